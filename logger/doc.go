// Package logger provides structured logging capabilities.
//
// The logger package builds the application's zap logger in either
// production (JSON) or development (colored console) mode.
//
// Usage:
//
//	logger, err := logger.New("development", "debug")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Info("jail created", zap.Int("jid", 1))
package logger
