package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flutter-tools/fsd/internal/fsdconfig"
)

func addConfigCommand(parent *cobra.Command) {
	cmd := &cobra.Command{Use: "config", Short: "Read or write ~/.config/fsd/config.toml"}

	get := &cobra.Command{
		Use:  "get <key>",
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			fsdconfig.SetHome(ConfigDir)
			value, err := fsdconfig.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), value)
			return nil
		},
	}

	set := &cobra.Command{
		Use:  "set <key> <value>",
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			fsdconfig.SetHome(ConfigDir)
			return fsdconfig.Set(args[0], args[1])
		},
	}

	cmd.AddCommand(get, set)
	parent.AddCommand(cmd)
}
