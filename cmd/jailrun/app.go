package main

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isdmx/jailrun/config"
	"github.com/isdmx/jailrun/logger"
	"github.com/isdmx/jailrun/mcpserver"
	"github.com/isdmx/jailrun/sandbox"
	"github.com/isdmx/jailrun/template"
)

// configPath is the --config flag value as an fx dependency
type configPath string

func loadConfig(path configPath) (*config.Config, error) {
	return config.Load(string(path))
}

func newMCPServer(cfg *config.Config, log *zap.Logger, ctrl *sandbox.Controller, prov *template.Provisioner) (*mcpserver.MCPServer, error) {
	return mcpserver.New(cfg, log, ctrl, prov)
}

func providers(path string) fx.Option {
	return fx.Options(
		fx.Supply(configPath(path)),
		fx.Provide(
			// Config
			loadConfig,

			// Logger with configuration
			logger.NewFromConfig,

			// Jail controller backed by the host kernel
			sandbox.NewControllerFromConfig,

			// Template provisioner sharing the controller's kernel
			template.NewProvisionerFromConfig,

			// MCP Server
			newMCPServer,
		),

		// Use the application logger for fx logs, below the default level
		// so command output is not interleaved with container events
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
	)
}

// populate builds the dependency graph for a one-shot command and fills
// targets from it.
func populate(path string, targets ...any) error {
	app := fx.New(
		providers(path),
		fx.Populate(targets...),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	return nil
}
