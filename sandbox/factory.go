package sandbox

import (
	"go.uber.org/zap"

	"github.com/isdmx/jailrun/config"
)

// NewControllerFromConfig creates a Controller backed by the host kernel
func NewControllerFromConfig(logger *zap.Logger, cfg *config.Config) *Controller {
	return NewController(logger, &Config{
		DefaultPath: cfg.Sandbox.DefaultPath,
		Persist:     cfg.Sandbox.Persist,
		ExecTool:    cfg.Sandbox.ExecTool,
		ListTool:    cfg.Sandbox.ListTool,
	})
}
