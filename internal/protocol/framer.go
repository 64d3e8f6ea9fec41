// Package protocol implements the stdout framing parser for the frontend
// server's result protocol: a boundary-key-delimited frame per command,
// with everything else between "result <K>" and the "<K>" terminator
// treated as a diagnostic line.
package protocol

import (
	"strconv"
	"strings"

	"github.com/flutter-tools/fsd/internal/model"
)

const resultPrefix = "result "

// Framer consumes a line stream from the compiler subprocess's stdout and
// produces one CompilerOutput per frame. It is not safe for concurrent use;
// the session's single worker goroutine drives it.
type Framer struct {
	sink     model.DiagnosticSink
	suppress bool

	boundaryKey string
	sawFirstDiag bool
	pending     chan *frameResult
}

type frameResult struct {
	output *model.CompilerOutput
	err    error
}

// New creates a Framer that forwards diagnostics to sink.
func New(sink model.DiagnosticSink) *Framer {
	f := &Framer{sink: sink}
	f.Reset(false)
	return f
}

// Reset must be called before every command issued to the subprocess. It
// clears the boundary key, clears the seen-diagnostic flag, and allocates a
// fresh pending result. suppress disables diagnostic forwarding for the next
// frame (used for expression compilation).
func (f *Framer) Reset(suppress bool) {
	f.boundaryKey = ""
	f.sawFirstDiag = false
	f.suppress = suppress
	f.pending = make(chan *frameResult, 1)
}

// Next blocks until the current frame resolves (a terminator line was seen,
// or Close ran because the child's stdout closed mid-frame).
func (f *Framer) Next() (*model.CompilerOutput, error) {
	r := <-f.pending
	return r.output, r.err
}

// Feed classifies a single line of the subprocess's stdout.
func (f *Framer) Feed(line string) {
	if f.boundaryKey == "" {
		if strings.HasPrefix(line, resultPrefix) {
			f.boundaryKey = strings.TrimPrefix(line, resultPrefix)
		}
		return
	}

	if strings.HasPrefix(line, f.boundaryKey) {
		f.completeFrame(line)
		return
	}

	f.emitDiagnostic(line)
}

func (f *Framer) completeFrame(line string) {
	suffix := strings.TrimPrefix(line, f.boundaryKey)
	if suffix == "" {
		f.resolve(nil, nil)
		return
	}

	// suffix has the form " <outputPath> <errorCount>". Split on the LAST
	// space — preserved verbatim per spec; output paths with trailing
	// whitespace are mis-split, by design of the original protocol.
	body := strings.TrimPrefix(suffix, " ")
	lastSpace := strings.LastIndex(body, " ")
	if lastSpace < 0 {
		f.resolve(nil, model.ErrProtocolViolation)
		return
	}
	outputPath := body[:lastSpace]
	countStr := body[lastSpace+1:]
	count, err := strconv.Atoi(countStr)
	if err != nil {
		f.resolve(nil, model.ErrProtocolViolation)
		return
	}
	f.resolve(&model.CompilerOutput{OutputFilePath: outputPath, ErrorCount: count}, nil)
}

func (f *Framer) emitDiagnostic(line string) {
	if f.suppress || f.sink == nil {
		return
	}
	if !f.sawFirstDiag {
		f.sawFirstDiag = true
		f.sink.Emit("Compiler message:", true)
	}
	f.sink.Emit(line, false)
}

func (f *Framer) resolve(output *model.CompilerOutput, err error) {
	select {
	case f.pending <- &frameResult{output: output, err: err}:
	default:
		// Already resolved (e.g. by Close racing completeFrame); drop.
	}
}

// Close is called when the subprocess's stdout reader hits EOF. Any pending
// result resolves "absent" so no caller hangs waiting on a dead child.
func (f *Framer) Close() {
	f.resolve(nil, nil)
}
