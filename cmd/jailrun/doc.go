// Package main is the entry point for the jailrun command.
//
// jailrun creates FreeBSD jails from jail.conf-style definition files,
// runs a single command inside them and optionally removes them afterwards.
// It can also bootstrap jails from built-in templates, list running jails
// and serve the same operations as Model Context Protocol (MCP) tools.
//
// The application uses Uber's fx framework for dependency injection, with
// zap for structured logging, viper for configuration and cobra for the
// command line.
package main
