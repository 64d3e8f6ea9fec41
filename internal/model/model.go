// Package model holds the shared data types passed between the driver's
// components: compile targets, batch/session options, request variants,
// and the error taxonomy described in the design.
package model

import (
	"errors"
	"fmt"
)

// TargetModel selects which frontend target the compiler runtime builds for.
type TargetModel int

const (
	TargetFlutter TargetModel = iota
	TargetFlutterRunner
)

// ParseTargetModel parses a target model from its flag/wire string form.
func ParseTargetModel(s string) (TargetModel, error) {
	switch s {
	case "flutter":
		return TargetFlutter, nil
	case "flutter_runner":
		return TargetFlutterRunner, nil
	default:
		return 0, fmt.Errorf("unknown target model %q", s)
	}
}

func (t TargetModel) String() string {
	switch t {
	case TargetFlutter:
		return "flutter"
	case TargetFlutterRunner:
		return "flutter_runner"
	default:
		return "unknown"
	}
}

// CompilerOutput is the result of a single committed compile request.
// OutputFilePath is empty when the compile failed ("absent").
type CompilerOutput struct {
	OutputFilePath string
	ErrorCount     int
}

// Absent reports whether this result represents a failed/absent compile.
func (c *CompilerOutput) Absent() bool {
	return c == nil || c.OutputFilePath == ""
}

// Sentinel errors. Wrap with fmt.Errorf("...: %w", ErrX) at the call site so
// errors.Is still matches through added context.
var (
	ErrToolMissing        = errors.New("compiler binary not runnable")
	ErrSpawnFailed        = errors.New("failed to start compiler subprocess")
	ErrCompileFailed      = errors.New("compile failed")
	ErrProtocolViolation  = errors.New("unparsable result line from compiler subprocess")
	ErrUnexpectedExit     = errors.New("compiler subprocess exited unexpectedly")
	ErrInvalidState       = errors.New("request invalid in current session state")
)

// BatchOptions configures a single one-shot BatchDriver.Compile call.
type BatchOptions struct {
	SDKRoot                string
	MainPath               string
	OutputPath             string
	DepFilePath            string // optional
	Target                 TargetModel
	LinkPlatform           bool
	AOT                    bool
	TrackWidgetCreation    bool
	ExtraOptions           []string
	IncrementalByteStore   string // optional
	PackagesFilePath       string // optional
	VFSRoots               []string
	VFSScheme              string
	ProductVM              bool
}

// SessionConfig configures a long-lived ResidentSession for its entire life.
type SessionConfig struct {
	SDKRoot                   string
	TrackWidgetCreation       bool
	PackagesFilePath          string // optional
	VFSRoots                  []string
	VFSScheme                 string
	InitializeFromDill        string // optional
	Target                    TargetModel
	UnsafePackageSerialization bool
	ExperimentalFlags         []string
	Sink                      DiagnosticSink
}

// DiagnosticSink receives non-result output from the compiler subprocess.
// Emphasis marks the first diagnostic line of a frame (the "Compiler
// message:" header in the reference protocol).
type DiagnosticSink interface {
	Emit(line string, emphasis bool)
}

// RequestKind discriminates the Request variant.
type RequestKind int

const (
	RequestRecompile RequestKind = iota
	RequestCompileExpression
	RequestReject
	// RequestAccept and RequestReset are not part of spec.md's Request
	// variant table (accept/reset are documented as fire-and-forget
	// operations with no completion handle) but are routed through the
	// same FIFO queue as an implementation detail, so that their stdin
	// write is correctly ordered against concurrently submitted
	// Recompile/Reject/CompileExpression calls. Both complete immediately
	// once their stdin write is issued.
	RequestAccept
	RequestReset
)

// Request is the tagged union of operations a caller can enqueue against a
// ResidentSession. Exactly one of the *Recompile/*CompileExpression fields
// is meaningful, selected by Kind.
type Request struct {
	Kind RequestKind

	// Recompile fields.
	MainPath         string   // optional; empty means "same as before"
	Invalidated      []string
	Output           string
	PackagesFilePath string // optional, request-scoped override

	// CompileExpression fields.
	Expression       string
	Definitions      []string
	TypeDefinitions  []string
	LibraryURI       string // optional
	Class            string // optional
	IsStatic         *bool  // optional; nil preserves the "false" literal quirk

	// done is closed exactly once, after Result/Err are set.
	Result *CompilerOutput
	Err    error
	done   chan struct{}
}

// NewRequest allocates a Request with its completion channel initialized.
func NewRequest(kind RequestKind) *Request {
	return &Request{Kind: kind, done: make(chan struct{})}
}

// Complete resolves the request exactly once. Calling it twice panics, since
// that would indicate a bug in the queue/session pairing invariant.
func (r *Request) Complete(result *CompilerOutput, err error) {
	select {
	case <-r.done:
		panic("model: request completed twice")
	default:
	}
	r.Result = result
	r.Err = err
	close(r.done)
}

// Wait blocks until the request is completed and returns its outcome.
func (r *Request) Wait() (*CompilerOutput, error) {
	<-r.done
	return r.Result, r.Err
}
