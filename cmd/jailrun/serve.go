package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/jailrun/config"
	"github.com/isdmx/jailrun/mcpserver"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve jail operations as MCP tools",
		Long: `Start the MCP server on the transport selected by server.transport
(stdio or http). The server runs until interrupted or, on stdio, until the
client closes the stream.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app := fx.New(
				providers(cfgFile),

				// Start the appropriate transport based on config
				fx.Invoke(startTransport),
			)
			if err := app.Err(); err != nil {
				return err
			}

			app.Run()
			return nil
		},
	}
}

func startTransport(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, server *mcpserver.MCPServer, log *zap.Logger) {
	serve := server.ServeStdio
	if cfg.Server.Transport == "http" {
		serve = server.ServeHTTP
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				if err := serve(); err != nil {
					log.Error("MCP server stopped", zap.Error(err))
					code = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}
