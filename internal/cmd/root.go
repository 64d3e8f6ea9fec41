// Package cmd wires the fsd CLI surface, grounded on the reference CLI's
// internal/cmd (flag wiring style, RunE structure, ConfigDir global).
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flutter-tools/fsd/internal/fsdconfig"
)

var (
	// ConfigDir overrides the config directory (--config flag / FSD_HOME).
	ConfigDir string

	logLevelFlag string
	noColorFlag  bool

	log = logrus.New()
)

// NewRootCmd builds the root command without running it, so tests can drive
// it against captured stdout/stderr instead of the process's own.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fsd",
		Short:         "Driver for the frontend compiler's batch and resident modes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&ConfigDir, "config", "", "config directory (default ~/.config/fsd)")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored diagnostic emphasis")

	addCompileCommand(root)
	addResidentCommand(root)
	addConfigCommand(root)

	return root
}

// Execute builds and runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging() {
	fsdconfig.SetHome(ConfigDir)
	level, err := logrus.ParseLevel(fsdconfig.ResolveLogLevel(logLevelFlag))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: noColorFlag})
}
