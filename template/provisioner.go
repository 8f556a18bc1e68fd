// Package template provisions jails from built-in templates.
//
// Provisioning downloads a template's base archive with an external tool,
// extracts it into the jail root, removes the archive, and creates a
// persistent jail rooted there. Stages run in order and stop at the first
// failure without undoing earlier ones.
package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/isdmx/jailrun/sandbox"
)

// Config holds the external tools and per-template locations
type Config struct {
	FetchTool   string
	ExtractTool string
	Definitions map[Kind]Definition
}

// Provisioner runs the template pipeline
type Provisioner struct {
	logger    *zap.Logger
	config    *Config
	kernel    sandbox.Kernel
	cmdRunner sandbox.CommandRunner
	fs        sandbox.FileSystem
}

// ProvisionerOption defines a functional option for Provisioner
type ProvisionerOption func(*Provisioner)

// WithCommandRunner sets the CommandRunner for Provisioner
func WithCommandRunner(cmdRunner sandbox.CommandRunner) ProvisionerOption {
	return func(p *Provisioner) {
		p.cmdRunner = cmdRunner
	}
}

// WithFileSystem sets the FileSystem for Provisioner
func WithFileSystem(fs sandbox.FileSystem) ProvisionerOption {
	return func(p *Provisioner) {
		p.fs = fs
	}
}

// NewProvisioner creates a new Provisioner with default implementations and optional interfaces
func NewProvisioner(logger *zap.Logger, config *Config, kernel sandbox.Kernel, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		logger:    logger,
		config:    config,
		kernel:    kernel,
		cmdRunner: &sandbox.RealCommandRunner{},
		fs:        &sandbox.RealFileSystem{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProvisionKind provisions the configured template of the given kind.
func (p *Provisioner) ProvisionKind(ctx context.Context, kind Kind) (sandbox.Handle, error) {
	def, ok := p.config.Definitions[kind]
	if !ok {
		return sandbox.Handle{}, fmt.Errorf("template %s is not configured", kind)
	}
	return p.Provision(ctx, NewSpec(kind, def))
}

// Provision runs every stage for spec and returns the created jail.
func (p *Provisioner) Provision(ctx context.Context, spec Spec) (sandbox.Handle, error) {
	logger := p.logger.With(zap.Stringer("template", spec.Kind), zap.String("root", spec.RootPath))

	if err := p.fs.MkdirAll(spec.RootPath, sandbox.DirPermission); err != nil {
		return sandbox.Handle{}, &ProvisionError{Kind: spec.Kind, Stage: StageMkdir, Err: err}
	}

	if spec.DownloadURL == "" {
		logger.Debug("template has no archive, skipping download")
	} else {
		if err := p.fetch(ctx, logger, spec); err != nil {
			return sandbox.Handle{}, err
		}
		if err := p.extract(ctx, logger, spec); err != nil {
			return sandbox.Handle{}, err
		}
		if err := p.fs.Remove(spec.ArchivePath); err != nil {
			logger.Warn("failed to remove archive", zap.Stringer("stage", StageCleanup), zap.String("archive", spec.ArchivePath), zap.Error(err))
		}
	}

	params, err := spec.Parameters()
	if err != nil {
		return sandbox.Handle{}, &ProvisionError{Kind: spec.Kind, Stage: StageCreate, Err: err}
	}
	spec.Params = params

	handle, err := p.kernel.Create(spec.Params)
	if err != nil {
		return sandbox.Handle{}, &ProvisionError{Kind: spec.Kind, Stage: StageCreate, Err: err}
	}
	logger.Info("template jail created", zap.Int("jid", handle.ID))
	return handle, nil
}

func (p *Provisioner) fetch(ctx context.Context, logger *zap.Logger, spec Spec) error {
	args := []string{p.config.FetchTool, "-o", spec.ArchivePath, spec.DownloadURL}
	logger.Info("downloading base archive", zap.String("url", spec.DownloadURL), zap.String("archive", spec.ArchivePath))

	if err := p.run(ctx, args); err != nil {
		err.Kind, err.Stage = spec.Kind, StageDownload
		return err
	}

	if size, err := p.fs.FileSize(spec.ArchivePath); err == nil {
		logger.Info("downloaded base archive", zap.String("size", humanize.Bytes(uint64(size))))
	}
	return nil
}

func (p *Provisioner) extract(ctx context.Context, logger *zap.Logger, spec Spec) error {
	args := []string{p.config.ExtractTool, "-xf", spec.ArchivePath, "-C", spec.RootPath}
	logger.Info("extracting base archive")

	if err := p.run(ctx, args); err != nil {
		err.Kind, err.Stage = spec.Kind, StageExtract
		return err
	}
	return nil
}

func (p *Provisioner) run(ctx context.Context, args []string) *ProvisionError {
	_, stderr, exitCode, err := p.cmdRunner.RunCommand(ctx, args)
	if err != nil {
		return &ProvisionError{Err: fmt.Errorf("%s: %w", args[0], err)}
	}
	if exitCode != 0 {
		return &ProvisionError{
			Err:    fmt.Errorf("%s exited with status %d", args[0], exitCode),
			Output: strings.TrimSpace(stderr),
		}
	}
	return nil
}
