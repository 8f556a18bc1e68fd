package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/isdmx/jailrun/config"
	"github.com/isdmx/jailrun/sandbox"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List running jails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				cfg  *config.Config
				ctrl *sandbox.Controller
			)
			if err := populate(cfgFile, &cfg, &ctrl); err != nil {
				return err
			}

			return sandbox.List(context.Background(), ctrl.Launcher(), cfg.Sandbox.ListTool, sandbox.Stdio{
				Stdin:  cmd.InOrStdin(),
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
		},
	}
}
