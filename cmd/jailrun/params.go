package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/isdmx/jailrun/jailconf"
	"github.com/isdmx/jailrun/sandbox"
)

func newParamsCmd() *cobra.Command {
	var layout bool

	paramsCmd := &cobra.Command{
		Use:   "params <jail.conf>",
		Short: "Print the parameters a definition file produces",
		Long: `Parse a jail definition file and print the resulting parameters as YAML,
in the order they are passed to the kernel. With --layout the marshalled
descriptor table is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := jailconf.ParseFile(args[0])
			if err != nil {
				return err
			}

			if layout {
				return printLayout(cmd, params)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(params); err != nil {
				return fmt.Errorf("failed to encode parameters: %w", err)
			}
			return enc.Close()
		},
	}

	paramsCmd.Flags().BoolVar(&layout, "layout", false, "print the marshalled descriptor table")

	return paramsCmd
}

func printLayout(cmd *cobra.Command, params *sandbox.ParameterSet) error {
	m, err := sandbox.Marshal(params)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tKIND\tOFFSET\tLENGTH")
	for i := 0; i < m.Len(); i++ {
		d := m.Descriptor(i)
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", i, d.Kind, d.Offset, d.Length)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d descriptors, %s\n", m.Len(), humanize.Bytes(uint64(m.Size())))
	return nil
}
