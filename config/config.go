package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Template  TemplateConfig  `mapstructure:"template"`
	Templates TemplatesConfig `mapstructure:"templates"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// ServerConfig holds MCP server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// SandboxConfig holds jail lifecycle configuration
type SandboxConfig struct {
	DefaultPath string `mapstructure:"default_path"`
	Persist     bool   `mapstructure:"persist"`
	ExecTool    string `mapstructure:"exec_tool"`
	ListTool    string `mapstructure:"list_tool"`
}

// TemplateConfig holds the external tools used for provisioning
type TemplateConfig struct {
	FetchTool   string `mapstructure:"fetch_tool"`
	ExtractTool string `mapstructure:"extract_tool"`
}

// TemplatesConfig holds the built-in template definitions
type TemplatesConfig struct {
	Netns   TemplateDefinition `mapstructure:"netns"`
	FreeBSD TemplateDefinition `mapstructure:"freebsd"`
	Linux   TemplateDefinition `mapstructure:"linux"`
}

// TemplateDefinition locates a template's root and base archive
type TemplateDefinition struct {
	RootPath    string `mapstructure:"root_path"`
	DownloadURL string `mapstructure:"download_url"`
	ArchivePath string `mapstructure:"archive_path"`
	Hostname    string `mapstructure:"hostname"`
}

// New loads the configuration from config.yaml in the usual search paths
func New() (*Config, error) {
	return Load("")
}

// Load loads and validates the application configuration. An empty path
// searches for config.yaml in "." and "./config"; a missing file there is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("JAILRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("sandbox.default_path", "/")
	v.SetDefault("sandbox.persist", true)
	v.SetDefault("sandbox.exec_tool", "jexec")
	v.SetDefault("sandbox.list_tool", "jls")

	v.SetDefault("template.fetch_tool", "fetch")
	v.SetDefault("template.extract_tool", "tar")

	// Network namespace only: host filesystem, nothing to download
	v.SetDefault("templates.netns.root_path", "/")
	v.SetDefault("templates.netns.hostname", "netns")

	v.SetDefault("templates.freebsd.root_path", "/usr/local/jails/freebsd")
	v.SetDefault("templates.freebsd.download_url", "https://download.freebsd.org/releases/amd64/14.1-RELEASE/base.txz")
	v.SetDefault("templates.freebsd.archive_path", "/tmp/freebsd-base.txz")
	v.SetDefault("templates.freebsd.hostname", "freebsd")

	v.SetDefault("templates.linux.root_path", "/usr/local/jails/linux")
	v.SetDefault("templates.linux.download_url", "https://cdimage.ubuntu.com/ubuntu-base/releases/22.04/release/ubuntu-base-22.04-base-amd64.tar.gz")
	v.SetDefault("templates.linux.archive_path", "/tmp/linux-base.tar.gz")
	v.SetDefault("templates.linux.hostname", "linux")
}

// validate ensures the configuration is valid and reports every problem found
func (c *Config) validate() error {
	var result *multierror.Error

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		result = multierror.Append(result, fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		result = multierror.Append(result, fmt.Errorf("invalid logging.level: %s", c.Logging.Level))
	}

	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		result = multierror.Append(result, fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport))
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort))
	}

	if c.Sandbox.DefaultPath == "" {
		result = multierror.Append(result, errors.New("sandbox.default_path must not be empty"))
	}

	if c.Sandbox.ListTool == "" {
		result = multierror.Append(result, errors.New("sandbox.list_tool must not be empty"))
	}

	if c.Template.FetchTool == "" {
		result = multierror.Append(result, errors.New("template.fetch_tool must not be empty"))
	}

	if c.Template.ExtractTool == "" {
		result = multierror.Append(result, errors.New("template.extract_tool must not be empty"))
	}

	for name, def := range map[string]TemplateDefinition{
		"netns":   c.Templates.Netns,
		"freebsd": c.Templates.FreeBSD,
		"linux":   c.Templates.Linux,
	} {
		if def.RootPath == "" {
			result = multierror.Append(result, fmt.Errorf("templates.%s.root_path must not be empty", name))
		}
		if def.DownloadURL != "" && def.ArchivePath == "" {
			result = multierror.Append(result, fmt.Errorf("templates.%s.archive_path is required with download_url", name))
		}
	}

	return result.ErrorOrNil()
}
