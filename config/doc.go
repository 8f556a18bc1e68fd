// Package config provides application configuration management.
//
// The config package loads the jailrun configuration from a YAML file,
// JAILRUN_* environment variables, and built-in defaults. It covers logging,
// the MCP server transport, jail lifecycle defaults, and the locations of
// the built-in templates.
//
// Usage:
//
//	cfg, err := config.Load("/usr/local/etc/jailrun.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Exec tool: %s\n", cfg.Sandbox.ExecTool)
package config
