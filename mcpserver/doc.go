// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the jail lifecycle as MCP tools using the
// mark3labs/mcp-go library:
//
//   - run_jail creates a jail from a definition file, runs a command in it and
//     optionally removes it afterwards
//   - list_jails reports the running jails via the configured list tool
//   - provision_template bootstraps a persistent jail from a built-in template
//
// Command output is captured and returned in the tool result rather than
// inherited, since stdio may carry the protocol itself.
//
// Usage:
//
//	srv, err := mcpserver.New(cfg, logger, controller, provisioner)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = srv.ServeStdio() // or srv.ServeHTTP()
package mcpserver
