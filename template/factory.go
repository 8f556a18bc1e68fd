package template

import (
	"go.uber.org/zap"

	"github.com/isdmx/jailrun/config"
	"github.com/isdmx/jailrun/sandbox"
)

// NewProvisionerFromConfig creates a Provisioner that creates jails through
// the controller's kernel.
func NewProvisionerFromConfig(logger *zap.Logger, cfg *config.Config, ctrl *sandbox.Controller) *Provisioner {
	definition := func(t config.TemplateDefinition) Definition {
		return Definition{
			RootPath:    t.RootPath,
			DownloadURL: t.DownloadURL,
			ArchivePath: t.ArchivePath,
			Hostname:    t.Hostname,
		}
	}

	return NewProvisioner(logger, &Config{
		FetchTool:   cfg.Template.FetchTool,
		ExtractTool: cfg.Template.ExtractTool,
		Definitions: map[Kind]Definition{
			NetworkNamespaceOnly: definition(cfg.Templates.Netns),
			FreeBSDBase:          definition(cfg.Templates.FreeBSD),
			LinuxBase:            definition(cfg.Templates.Linux),
		},
	}, ctrl.Kernel())
}
