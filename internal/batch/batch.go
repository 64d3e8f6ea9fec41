// Package batch implements the one-shot fingerprint-gated compile path,
// grounded on the reference CLI's exec.Run (process assembly, context/
// timeout handling, SIGINT forwarding to the child's process group).
package batch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/flutter-tools/fsd/internal/artifact"
	"github.com/flutter-tools/fsd/internal/fingerprint"
	"github.com/flutter-tools/fsd/internal/model"
	"github.com/flutter-tools/fsd/internal/packagemap"
	"github.com/flutter-tools/fsd/internal/protocol"
	"github.com/flutter-tools/fsd/internal/spawn"
	"github.com/flutter-tools/fsd/internal/uri"
)

// Driver runs a single compile invocation per Compile call.
type Driver struct {
	Spawner  spawn.Spawner
	Locate   func(sdkRoot string) (artifact.Set, error)
	Gate     *fingerprint.Gate
	Sink     model.DiagnosticSink
}

// New builds a Driver with the production locator and a fresh Gate.
func New(spawner spawn.Spawner, sink model.DiagnosticSink, opts artifact.Options) *Driver {
	return &Driver{
		Spawner: spawner,
		Locate: func(sdkRoot string) (artifact.Set, error) {
			return artifact.Locate(sdkRoot, opts)
		},
		Gate: fingerprint.NewGate(),
		Sink: sink,
	}
}

// Compile runs opts. Returns the compile result, or an error wrapping one
// of the model.Err* sentinels.
func (d *Driver) Compile(ctx context.Context, opts model.BatchOptions) (*model.CompilerOutput, error) {
	set, err := d.Locate(opts.SDKRoot)
	if err != nil {
		return nil, err
	}

	key := d.fingerprintKey(opts)
	if opts.DepFilePath != "" {
		skip, err := d.Gate.ShouldSkip(key)
		if err == nil && skip {
			return &model.CompilerOutput{OutputFilePath: opts.OutputPath, ErrorCount: 0}, nil
		}
	}

	args := d.buildArgs(set, opts)

	proc, err := d.Spawner.Spawn(ctx, set.Binary, args, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSpawnFailed, err)
	}

	framer := protocol.New(d.Sink)
	framer.Reset(false)

	stdoutDone := make(chan struct{})
	go func() {
		defer close(stdoutDone)
		scanner := bufio.NewScanner(proc.Stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			framer.Feed(scanner.Text())
		}
		framer.Close()
	}()

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(proc.Stderr)
		for scanner.Scan() {
			if d.Sink != nil {
				d.Sink.Emit(scanner.Text(), false)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	go func() {
		for range sigCh {
			proc.Kill()
		}
	}()
	defer func() { signal.Stop(sigCh); close(sigCh) }()

	proc.Stdin.Close() // batch compiles issue no commands after spawn.

	result, frameErr := framer.Next()
	waitErr := proc.Wait()
	<-stdoutDone
	<-stderrDone

	if waitErr != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCompileFailed, waitErr)
	}
	if frameErr != nil {
		return nil, frameErr
	}
	if result == nil {
		return nil, model.ErrCompileFailed
	}

	if opts.DepFilePath != "" {
		if err := d.Gate.Commit(key); err != nil {
			return result, fmt.Errorf("persisting fingerprint: %w", err)
		}
	}

	return result, nil
}

func (d *Driver) fingerprintKey(opts model.BatchOptions) fingerprint.Key {
	return fingerprint.Key{
		EntryPoint:           opts.MainPath,
		TrackWidgetCreation:  opts.TrackWidgetCreation,
		LinkPlatformKernelIn: opts.LinkPlatform,
		Inputs:               map[string]string{"mainPath": opts.MainPath},
		DepFilePath:          opts.DepFilePath,
	}
}

// buildArgs assembles the compiler command line in the stable order
// spec.md §4.3 step 4 documents.
func (d *Driver) buildArgs(set artifact.Set, opts model.BatchOptions) []string {
	sdkRoot := opts.SDKRoot
	if !strings.HasSuffix(sdkRoot, "/") {
		sdkRoot += "/"
	}

	var args []string
	args = append(args, set.Snapshot)
	args = append(args, "--sdk-root", sdkRoot)
	args = append(args, "--strong")
	args = append(args, "--target="+opts.Target.String())

	if opts.TrackWidgetCreation {
		args = append(args, "--track-widget-creation")
	}
	if !opts.LinkPlatform {
		args = append(args, "--no-link-platform")
	}
	if opts.AOT {
		args = append(args, "--aot", "--tfa")
	}
	if opts.ProductVM {
		args = append(args, "-Ddart.vm.product=true")
	}
	if opts.IncrementalByteStore != "" {
		args = append(args, "--incremental")
	}

	mainArg := opts.MainPath
	if opts.PackagesFilePath != "" {
		args = append(args, "--packages", opts.PackagesFilePath)
		if mappings, err := packagemap.Read(opts.PackagesFilePath); err == nil {
			mapper := uri.New(opts.MainPath, mappings, opts.VFSScheme, opts.VFSRoots)
			if mapped, ok := mapper.Map(opts.MainPath); ok {
				mainArg = mapped
			}
		}
	}

	if opts.OutputPath != "" {
		args = append(args, "--output-dill", opts.OutputPath)
	}
	if opts.DepFilePath != "" && len(opts.VFSRoots) == 0 {
		args = append(args, "--depfile", opts.DepFilePath)
	}

	for _, r := range opts.VFSRoots {
		args = append(args, "--filesystem-root", r)
	}
	if opts.VFSScheme != "" {
		args = append(args, "--filesystem-scheme", opts.VFSScheme)
	}

	args = append(args, opts.ExtraOptions...)
	args = append(args, mainArg)

	return args
}
