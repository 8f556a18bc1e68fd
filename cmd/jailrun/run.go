package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/isdmx/jailrun/jailconf"
	"github.com/isdmx/jailrun/sandbox"
)

func newRunCmd() *cobra.Command {
	var destroy bool

	runCmd := &cobra.Command{
		Use:   "run [--destroy] <jail.conf> -- <command> [args...]",
		Short: "Create a jail from a definition file and run a command in it",
		Long: `Create a jail from the given definition file, run the command inside it with
the terminal's stdio attached, and wait for it to exit. The jail identifier is
printed as soon as the jail exists. With --destroy the jail is removed after
the command exits; otherwise it persists.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				ctrl *sandbox.Controller
				log  *zap.Logger
			)
			if err := populate(cfgFile, &ctrl, &log); err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			params, err := jailconf.ParseFile(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			result, err := ctrl.Run(ctx, sandbox.RunRequest{
				Params:  params,
				Command: args[1:],
				Destroy: destroy,
				Stdio:   sandbox.InheritStdio(),
				OnCreated: func(h sandbox.Handle) {
					fmt.Fprintf(out, "jid: %d\n", h.ID)
				},
			})
			if err != nil {
				return err
			}

			var failure *sandbox.CommandFailure
			if errors.As(result.Failure(), &failure) {
				log.Warn("command failed", zap.Int("jid", result.Handle.ID), zap.Int("exit_code", failure.ExitCode))
			}
			return nil
		},
	}

	runCmd.Flags().BoolVar(&destroy, "destroy", false, "remove the jail after the command exits")

	return runCmd
}
