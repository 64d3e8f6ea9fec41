package diagnostics

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log
}

func TestLogrusSink_EmitPlainLineLogsInfo(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogrusSink(newTestLogger(&buf), "frontend-server", "stdout", false)

	sink.Emit("lib/main.dart:1:2: Error: bad thing", false)

	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), "lib/main.dart:1:2: Error: bad thing")
	assert.Contains(t, buf.String(), `"component":"frontend-server"`)
	assert.Contains(t, buf.String(), `"source":"stdout"`)
}

func TestLogrusSink_EmitEmphasizedLineLogsWarn(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogrusSink(newTestLogger(&buf), "frontend-server", "stdout", false)

	sink.Emit("Compiler message:", true)

	assert.Contains(t, buf.String(), `"level":"warning"`)
}

func TestLogrusSink_StyledNoColorReturnsPlain(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogrusSink(newTestLogger(&buf), "frontend-server", "stdout", false)

	got := sink.Styled("Compiler message:", true)
	assert.Equal(t, "Compiler message:", got)
}

func TestLogrusSink_StyledNonEmphasizedReturnsPlainEvenWithColor(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogrusSink(newTestLogger(&buf), "frontend-server", "stdout", true)

	got := sink.Styled("a diagnostic line", false)
	assert.Equal(t, "a diagnostic line", got)
}

func TestLogrusSink_StyledWithColorEmphasizesButPreservesText(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogrusSink(newTestLogger(&buf), "frontend-server", "stdout", true)

	got := sink.Styled("Compiler message:", true)
	require.Contains(t, got, "Compiler message:")
}

func TestLogrusSink_EmitEchoesStyledLineToEcho(t *testing.T) {
	var logBuf, echoBuf bytes.Buffer
	sink := NewLogrusSink(newTestLogger(&logBuf), "frontend-server", "stderr", true)
	sink.Echo = &echoBuf

	sink.Emit("Compiler message:", true)

	assert.Equal(t, sink.Styled("Compiler message:", true)+"\n", echoBuf.String())
}

func TestLogrusSink_EmitEchoesPlainLineWithoutColor(t *testing.T) {
	var logBuf, echoBuf bytes.Buffer
	sink := NewLogrusSink(newTestLogger(&logBuf), "frontend-server", "stderr", false)
	sink.Echo = &echoBuf

	sink.Emit("lib/main.dart:1:2: Error: bad thing", false)

	assert.Equal(t, "lib/main.dart:1:2: Error: bad thing\n", echoBuf.String())
}

func TestLogrusSink_EmitSkipsEchoWhenNil(t *testing.T) {
	var logBuf bytes.Buffer
	sink := NewLogrusSink(newTestLogger(&logBuf), "frontend-server", "stderr", true)
	sink.Echo = nil

	assert.NotPanics(t, func() {
		sink.Emit("lib/main.dart:1:2: Error: bad thing", true)
	})
}
