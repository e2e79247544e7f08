// Package logging provides structured logging configuration for linkd.
//
// This package wraps log/slog to provide consistent logging across all linkd
// components. It supports configurable log levels and output formats.
//
// # Usage
//
// Create a logger with desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("server started", "port", 18812)
//	logger.Error("failed to register", "error", err)
//
// # Integration
//
// Components should accept a *slog.Logger in their constructor or via an
// option. If no logger is provided, use logging.Nop() for a no-op logger.
// Servers that want the conventional per-service identity on every record
// should derive their logger with ForService.
package logging
