// Package diagnostics routes compiler subprocess output (stdout
// diagnostics and raw stderr lines) to structured logging, and echoes the
// same lines to the CLI's own stderr with emphasis styling.
package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

var emphasisStyle = lipgloss.NewStyle().Bold(true)

// LogrusSink is the default model.DiagnosticSink. Every line is logged
// through logrus (emphasized lines at Warn, the framer's one-time "Compiler
// message:" header; everything else at Info) and also echoed to Echo with
// emphasis styling applied. The logrus entry text itself is always plain so
// structured/JSON log output stays machine-parseable; styling only ever
// touches the Echo copy.
type LogrusSink struct {
	Log    *logrus.Entry
	Color  bool
	Source string // "stdout" or "stderr"
	Echo   io.Writer
}

// NewLogrusSink builds a sink scoped to a component name, echoing styled
// diagnostics to stderr.
func NewLogrusSink(log *logrus.Logger, component, source string, color bool) *LogrusSink {
	return &LogrusSink{
		Log:    log.WithField("component", component),
		Color:  color,
		Source: source,
		Echo:   os.Stderr,
	}
}

func (s *LogrusSink) Emit(line string, emphasis bool) {
	entry := s.Log.WithField("source", s.Source)
	if emphasis {
		entry.Warn(line)
	} else {
		entry.Info(line)
	}

	if s.Echo != nil {
		fmt.Fprintln(s.Echo, s.Styled(line, emphasis))
	}
}

// Styled renders line for the CLI's own stderr echo, applying emphasis
// coloring when Color is enabled.
func (s *LogrusSink) Styled(line string, emphasis bool) string {
	if !s.Color || !emphasis {
		return line
	}
	return emphasisStyle.Render(line)
}
