package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jailrun",
		Short: "Create FreeBSD jails and run commands in them",
		Long: `jailrun creates a jail from a jail.conf-style definition, runs one command
inside it and optionally removes the jail when the command exits. It can also
provision jails from built-in templates and serve these operations over MCP.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newTemplateCmd())
	rootCmd.AddCommand(newParamsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("jailrun version %s\n", version)
		},
	})

	return rootCmd
}
