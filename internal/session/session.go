// Package session implements the resident compiler session: the state
// machine, request queue binding, and stdin/stdout wire protocol described
// in spec.md §4.5. Grounded on the reference CLI's repl.Session
// (NewSession/sendAndWait/Close), generalized from a JSON request/response
// protocol keyed by request ID to the boundary-key line protocol the
// frontend server speaks.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/flutter-tools/fsd/internal/artifact"
	"github.com/flutter-tools/fsd/internal/model"
	"github.com/flutter-tools/fsd/internal/packagemap"
	"github.com/flutter-tools/fsd/internal/protocol"
	"github.com/flutter-tools/fsd/internal/queue"
	"github.com/flutter-tools/fsd/internal/spawn"
	"github.com/flutter-tools/fsd/internal/uri"
)

// State is the session's lifecycle state (spec.md §3 SessionState).
type State int

const (
	NotStarted State = iota
	Running
	ShutDown
)

// Session owns the compiler subprocess, the framer, and the request queue
// for one resident compile session. The queue's single worker goroutine is
// the only goroutine that writes to stdin or reads framer results; stdout
// and stderr are read by their own goroutines, feeding the framer and sink
// respectively.
type Session struct {
	cfg      model.SessionConfig
	spawner  spawn.Spawner
	artifact artifact.Set

	mu                  sync.Mutex
	state               State
	awaitingConfirmation bool
	broken              bool // set when the child's stdout closes

	proc   *spawn.Process
	framer *protocol.Framer
	q      *queue.Queue

	stdoutDone chan struct{}
	stderrDone chan struct{}
}

// New constructs a Session bound to cfg. The subprocess is not started
// until the first Recompile request.
func New(cfg model.SessionConfig, spawner spawn.Spawner, set artifact.Set) *Session {
	s := &Session{
		cfg:      cfg,
		spawner:  spawner,
		artifact: set,
		framer:   protocol.New(cfg.Sink),
	}
	s.q = queue.New(s.handle)
	return s
}

// Recompile enqueues a recompile request and blocks until it completes.
func (s *Session) Recompile(r model.Request) (*model.CompilerOutput, error) {
	out := model.NewRequest(model.RequestRecompile)
	out.MainPath = r.MainPath
	out.Invalidated = r.Invalidated
	out.Output = r.Output
	out.PackagesFilePath = r.PackagesFilePath
	s.q.Submit(out)
	return out.Wait()
}

// CompileExpression enqueues an expression-compile request and blocks until
// it completes.
func (s *Session) CompileExpression(r model.Request) (*model.CompilerOutput, error) {
	out := model.NewRequest(model.RequestCompileExpression)
	out.Expression = r.Expression
	out.Definitions = r.Definitions
	out.TypeDefinitions = r.TypeDefinitions
	out.LibraryURI = r.LibraryURI
	out.Class = r.Class
	out.IsStatic = r.IsStatic
	s.q.Submit(out)
	return out.Wait()
}

// Reject enqueues a reject request and blocks until it completes.
func (s *Session) Reject() (*model.CompilerOutput, error) {
	out := model.NewRequest(model.RequestReject)
	s.q.Submit(out)
	return out.Wait()
}

// Accept is fire-and-forget: it enqueues an accept command, ordered FIFO
// against other requests, but does not wait for a result frame.
func (s *Session) Accept() {
	out := model.NewRequest(model.RequestAccept)
	s.q.Submit(out)
}

// ResetServer is fire-and-forget, same ordering guarantee as Accept.
func (s *Session) ResetServer() {
	out := model.NewRequest(model.RequestReset)
	s.q.Submit(out)
}

// Shutdown kills the child, drains the queue, and transitions to ShutDown.
// Any request left pending in the queue after this call observes
// ErrInvalidState via the handler's state check.
func (s *Session) Shutdown() {
	s.mu.Lock()
	proc := s.proc
	s.state = ShutDown
	s.mu.Unlock()

	if proc != nil {
		proc.Kill()
		proc.Wait()
	}
	s.q.Shutdown()
}

// handle runs on the queue's single worker goroutine.
func (s *Session) handle(req *model.Request) {
	s.mu.Lock()
	state := s.state
	broken := s.broken
	s.mu.Unlock()

	if state == ShutDown {
		req.Complete(nil, model.ErrInvalidState)
		return
	}
	if broken {
		req.Complete(nil, model.ErrUnexpectedExit)
		return
	}

	switch req.Kind {
	case model.RequestRecompile:
		s.handleRecompile(req)
	case model.RequestCompileExpression:
		s.handleCompileExpression(req)
	case model.RequestReject:
		s.handleReject(req)
	case model.RequestAccept:
		s.handleAccept(req)
	case model.RequestReset:
		s.handleReset(req)
	}
}

func (s *Session) handleRecompile(req *model.Request) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == NotStarted {
		out, err := s.coldCompile(req)
		req.Complete(out, err)
		return
	}

	out, err := s.incrementalRecompile(req)
	req.Complete(out, err)
}

func (s *Session) coldCompile(req *model.Request) (*model.CompilerOutput, error) {
	args := s.buildColdCompileArgs(req)

	proc, err := s.spawner.Spawn(context.Background(), s.artifact.Binary, args, nil)
	if err != nil {
		s.mu.Lock()
		s.state = Running // broken-but-running: subsequent requests error below
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", model.ErrSpawnFailed, err)
	}

	s.mu.Lock()
	s.proc = proc
	s.state = Running
	s.awaitingConfirmation = false
	s.mu.Unlock()

	s.framer.Reset(false)
	s.startReaders()

	mapper := s.newMapper(req.MainPath, req.PackagesFilePath)
	scriptURI, ok := mapper.Map(req.MainPath)
	if !ok {
		scriptURI = req.MainPath
	}

	if err := s.writeLine(fmt.Sprintf("compile %s", scriptURI)); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSpawnFailed, err)
	}

	out, err := s.framer.Next()
	if err == nil && out != nil {
		s.mu.Lock()
		s.awaitingConfirmation = true
		s.mu.Unlock()
	}
	return out, err
}

// buildColdCompileArgs mirrors BatchDriver's flag assembly, with the
// additions spec.md §4.5 documents for the cold compile: --incremental is
// always present, plus --initialize-from-dill/--unsafe-package-serialization
// /--enable-experiment when configured.
func (s *Session) buildColdCompileArgs(req *model.Request) []string {
	cfg := s.cfg
	sdkRoot := cfg.SDKRoot
	if !strings.HasSuffix(sdkRoot, "/") {
		sdkRoot += "/"
	}

	var args []string
	args = append(args, s.artifact.Snapshot)
	args = append(args, "--sdk-root", sdkRoot)
	args = append(args, "--strong")
	args = append(args, "--target="+cfg.Target.String())

	if cfg.TrackWidgetCreation {
		args = append(args, "--track-widget-creation")
	}
	args = append(args, "--incremental")

	if cfg.InitializeFromDill != "" {
		args = append(args, "--initialize-from-dill", cfg.InitializeFromDill)
	}
	if cfg.UnsafePackageSerialization {
		args = append(args, "--unsafe-package-serialization")
	}
	if len(cfg.ExperimentalFlags) > 0 {
		args = append(args, "--enable-experiment="+strings.Join(cfg.ExperimentalFlags, ","))
	}

	// Open Question (spec.md §9): when both a request-scoped packages path
	// and the session-scoped one are set, --packages is forwarded twice.
	// This is almost certainly unintentional upstream but is reproduced
	// verbatim rather than deduplicated.
	if req.PackagesFilePath != "" {
		args = append(args, "--packages", req.PackagesFilePath)
	}
	if cfg.PackagesFilePath != "" {
		args = append(args, "--packages", cfg.PackagesFilePath)
	}

	if req.Output != "" {
		args = append(args, "--output-dill", req.Output)
	}

	for _, r := range cfg.VFSRoots {
		args = append(args, "--filesystem-root", r)
	}
	if cfg.VFSScheme != "" {
		args = append(args, "--filesystem-scheme", cfg.VFSScheme)
	}

	return args
}

func (s *Session) newMapper(scriptPath, requestPackages string) *uri.Mapper {
	packages := requestPackages
	if packages == "" {
		packages = s.cfg.PackagesFilePath
	}
	if packages == "" {
		return &uri.Mapper{}
	}
	mappings, err := packagemap.Read(packages)
	if err != nil {
		return &uri.Mapper{}
	}
	return uri.New(scriptPath, mappings, s.cfg.VFSScheme, s.cfg.VFSRoots)
}

func (s *Session) incrementalRecompile(req *model.Request) (*model.CompilerOutput, error) {
	s.framer.Reset(false)

	mapper := uri.New(req.MainPath, s.readMappings(req.PackagesFilePath), s.cfg.VFSScheme, s.cfg.VFSRoots)
	key := uuid.NewString()

	var cmd strings.Builder
	cmd.WriteString("recompile ")
	if req.MainPath != "" {
		mainURI, ok := mapper.Map(req.MainPath)
		if !ok {
			mainURI = req.MainPath
		}
		cmd.WriteString(mainURI)
		cmd.WriteString(" ")
	}
	cmd.WriteString(key)
	if err := s.writeLine(cmd.String()); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnexpectedExit, err)
	}

	for _, invalidated := range req.Invalidated {
		if err := s.writeLine(s.mapInvalidated(mapper, invalidated)); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrUnexpectedExit, err)
		}
	}
	if err := s.writeLine(key); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnexpectedExit, err)
	}

	out, err := s.framer.Next()
	if err == nil && out != nil {
		s.mu.Lock()
		s.awaitingConfirmation = true
		s.mu.Unlock()
	}
	return out, err
}

func (s *Session) readMappings(requestPackages string) []packagemap.Mapping {
	packages := requestPackages
	if packages == "" {
		packages = s.cfg.PackagesFilePath
	}
	if packages == "" {
		return nil
	}
	mappings, err := packagemap.Read(packages)
	if err != nil {
		return nil
	}
	return mappings
}

// mapInvalidated maps a single invalidated-file entry per spec.md §4.5
// step 4: first via the URIMapper, then by vfs root prefix, else verbatim.
// file:-URIs are decoded to a path first, passed through unchanged on
// decode failure.
func (s *Session) mapInvalidated(mapper *uri.Mapper, entry string) string {
	path := entry
	if strings.HasPrefix(entry, "file:") {
		if u, err := url.Parse(entry); err == nil {
			path = u.Path
		} else {
			return entry
		}
	}

	if mapped, ok := mapper.Map(path); ok {
		return mapped
	}

	for _, root := range s.cfg.VFSRoots {
		if strings.HasPrefix(path, root) {
			suffix := strings.TrimPrefix(path, root)
			return s.cfg.VFSScheme + ":/" + strings.TrimPrefix(suffix, "/")
		}
	}

	return path
}

func (s *Session) handleCompileExpression(req *model.Request) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state != Running {
		req.Complete(nil, model.ErrInvalidState)
		return
	}

	s.framer.Reset(true)
	key := uuid.NewString()

	lines := []string{"compile-expression " + key, req.Expression}
	lines = append(lines, req.Definitions...)
	lines = append(lines, key)
	lines = append(lines, req.TypeDefinitions...)
	lines = append(lines, key)
	lines = append(lines, req.LibraryURI)
	lines = append(lines, req.Class)
	// Open Question (spec.md §9): preserve the literal "false" string when
	// IsStatic is unset, rather than a semantically-meaningful default.
	isStatic := "false"
	if req.IsStatic != nil {
		isStatic = strconv.FormatBool(*req.IsStatic)
	}
	lines = append(lines, isStatic)

	for _, l := range lines {
		if err := s.writeLine(l); err != nil {
			req.Complete(nil, fmt.Errorf("%w: %v", model.ErrUnexpectedExit, err))
			return
		}
	}

	out, err := s.framer.Next()
	req.Complete(out, err)
}

func (s *Session) handleReject(req *model.Request) {
	s.mu.Lock()
	awaiting := s.awaitingConfirmation
	s.mu.Unlock()

	if !awaiting {
		req.Complete(nil, nil)
		return
	}

	s.framer.Reset(false)
	if err := s.writeLine("reject"); err != nil {
		req.Complete(nil, fmt.Errorf("%w: %v", model.ErrUnexpectedExit, err))
		return
	}

	s.mu.Lock()
	s.awaitingConfirmation = false
	s.mu.Unlock()

	out, err := s.framer.Next()
	req.Complete(out, err)
}

func (s *Session) handleAccept(req *model.Request) {
	s.mu.Lock()
	awaiting := s.awaitingConfirmation
	s.mu.Unlock()
	if awaiting {
		s.writeLine("accept")
		s.mu.Lock()
		s.awaitingConfirmation = false
		s.mu.Unlock()
	}
	req.Complete(nil, nil)
}

func (s *Session) handleReset(req *model.Request) {
	s.writeLine("reset")
	req.Complete(nil, nil)
}

func (s *Session) writeLine(line string) error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return io.ErrClosedPipe
	}
	_, err := fmt.Fprintf(proc.Stdin, "%s\n", line)
	return err
}

func (s *Session) startReaders() {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	s.stdoutDone = make(chan struct{})
	s.stderrDone = make(chan struct{})

	go func() {
		defer close(s.stdoutDone)
		scanner := bufio.NewScanner(proc.Stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			s.framer.Feed(scanner.Text())
		}
		s.mu.Lock()
		s.broken = true
		s.mu.Unlock()
		s.framer.Close()
	}()

	go func() {
		defer close(s.stderrDone)
		scanner := bufio.NewScanner(proc.Stderr)
		for scanner.Scan() {
			if s.cfg.Sink != nil {
				s.cfg.Sink.Emit(scanner.Text(), false)
			}
		}
	}()
}
