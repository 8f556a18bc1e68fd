package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/jailrun/config"
	"github.com/isdmx/jailrun/jailconf"
	"github.com/isdmx/jailrun/sandbox"
	"github.com/isdmx/jailrun/template"
)

// JailRunner runs complete jail lifecycles
type JailRunner interface {
	Run(ctx context.Context, req sandbox.RunRequest) (sandbox.Result, error)
	Launcher() sandbox.ProcessLauncher
}

// TemplateProvisioner creates jails from built-in templates
type TemplateProvisioner interface {
	ProvisionKind(ctx context.Context, kind template.Kind) (sandbox.Handle, error)
}

// MCPServer represents the MCP server
type MCPServer struct {
	config      *config.Config
	logger      *zap.Logger
	runner      JailRunner
	provisioner TemplateProvisioner
	mcpServer   *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, runner JailRunner, provisioner TemplateProvisioner) (*MCPServer, error) {
	s := &MCPServer{
		config:      cfg,
		logger:      logger,
		runner:      runner,
		provisioner: provisioner,
	}

	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("sandbox.default_path", s.config.Sandbox.DefaultPath),
		zap.Bool("sandbox.persist", s.config.Sandbox.Persist),
		zap.String("sandbox.exec_tool", s.config.Sandbox.ExecTool),
		zap.String("sandbox.list_tool", s.config.Sandbox.ListTool),
		zap.String("template.fetch_tool", s.config.Template.FetchTool),
		zap.String("template.extract_tool", s.config.Template.ExtractTool),
	)

	s.mcpServer = server.NewMCPServer("jailrun", "0.1.0")

	s.registerRunJailTool()
	s.registerListJailsTool()
	s.registerProvisionTemplateTool()

	return s, nil
}

func (s *MCPServer) registerRunJailTool() {
	tool := mcp.Tool{
		Name:        "run_jail",
		Description: "Create a jail from a definition file and run a command inside it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_path": map[string]any{
					"type":        "string",
					"description": "Path of the jail definition file on the host",
				},
				"command": map[string]any{
					"type":        "string",
					"description": "Command line to run, split on whitespace",
				},
				"destroy": map[string]any{
					"type":        "boolean",
					"description": "Remove the jail after the command exits (default true)",
				},
			},
			Required: []string{"config_path", "command"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunJail)
}

func (s *MCPServer) registerListJailsTool() {
	tool := mcp.Tool{
		Name:        "list_jails",
		Description: "List running jails",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, s.handleListJails)
}

func (s *MCPServer) registerProvisionTemplateTool() {
	names := make([]string, 0, len(template.Kinds()))
	for _, k := range template.Kinds() {
		names = append(names, k.String())
	}

	tool := mcp.Tool{
		Name:        "provision_template",
		Description: "Download a template's base system and create a persistent jail from it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"template": map[string]any{
					"type":        "string",
					"description": "Template name",
					"enum":        names,
				},
			},
			Required: []string{"template"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleProvisionTemplate)
}

type runJailResult struct {
	JID       int    `json:"jid"`
	ExitCode  int    `json:"exit_code"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	Destroyed bool   `json:"destroyed"`
}

func (s *MCPServer) handleRunJail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configPath, err := request.RequireString("config_path")
	if err != nil {
		return nil, fmt.Errorf("config_path parameter is required: %w", err)
	}

	commandLine, err := request.RequireString("command")
	if err != nil {
		return nil, fmt.Errorf("command parameter is required: %w", err)
	}
	command := strings.Fields(commandLine)
	if len(command) == 0 {
		return nil, fmt.Errorf("command parameter is empty")
	}

	destroy := request.GetBool("destroy", true)

	params, err := jailconf.ParseFile(configPath)
	if err != nil {
		return errorResult("Invalid jail definition: %v", err), nil
	}

	s.logger.Info("running command in jail",
		zap.String("config_path", configPath),
		zap.Strings("command", command),
		zap.Bool("destroy", destroy))

	var stdout, stderr bytes.Buffer
	result, err := s.runner.Run(ctx, sandbox.RunRequest{
		Params:  params,
		Command: command,
		Destroy: destroy,
		Stdio:   sandbox.Stdio{Stdin: strings.NewReader(""), Stdout: &stdout, Stderr: &stderr},
	})
	if err != nil {
		s.logger.Error("jail run failed", zap.Error(err), zap.String("config_path", configPath))
		return errorResult("Jail run failed: %v", err), nil
	}

	return jsonResult(runJailResult{
		JID:       result.Handle.ID,
		ExitCode:  result.ExitCode,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Destroyed: result.Destroyed,
	})
}

func (s *MCPServer) handleListJails(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stdout, stderr bytes.Buffer
	err := sandbox.List(ctx, s.runner.Launcher(), s.config.Sandbox.ListTool, sandbox.Stdio{Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		s.logger.Error("jail listing failed", zap.Error(err))
		return errorResult("Listing failed: %v: %s", err, strings.TrimSpace(stderr.String())), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: stdout.String(),
			},
		},
	}, nil
}

func (s *MCPServer) handleProvisionTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("template")
	if err != nil {
		return nil, fmt.Errorf("template parameter is required: %w", err)
	}

	kind, err := template.ParseKind(name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("provisioning template", zap.Stringer("template", kind))

	handle, err := s.provisioner.ProvisionKind(ctx, kind)
	if err != nil {
		s.logger.Error("template provisioning failed", zap.Error(err), zap.Stringer("template", kind))
		return errorResult("Provisioning failed: %v", err), nil
	}

	return jsonResult(map[string]any{"jid": handle.ID, "template": kind.String()})
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf(format, args...),
			},
		},
		IsError: true,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(data),
			},
		},
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
