package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/isdmx/jailrun/template"
)

func newTemplateCmd() *cobra.Command {
	names := make([]string, 0, len(template.Kinds()))
	for _, k := range template.Kinds() {
		names = append(names, k.String())
	}

	return &cobra.Command{
		Use:       "template <" + strings.Join(names, "|") + ">",
		Short:     "Provision a persistent jail from a built-in template",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := template.ParseKind(args[0])
			if err != nil {
				return err
			}

			var prov *template.Provisioner
			if err := populate(cfgFile, &prov); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handle, err := prov.ProvisionKind(ctx, kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "jid: %d\n", handle.ID)
			return nil
		},
	}
}
