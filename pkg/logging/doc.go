// Package logging provides structured logging utilities for sysdiff components.
//
// # Overview
//
// This package wraps the standard library slog package with sysdiff defaults
// so that capture, extraction and diff code log in one consistent format. It
// supports environment-based log level configuration, module/version context
// injection, and source location tracking for debug logs.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: per-file and per-line diff diagnostics, with source location
//   - INFO: phase transitions (default)
//   - WARN/WARNING: degraded output such as dropped table rows
//   - ERROR: partial capture failures
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("sysdiff", "v1.0.0")
//	    slog.Info("capture starting", "paths", 3)
//	}
//
// Setting explicit log level:
//
//	logging.SetDefaultStructuredLoggerWithLevel("sysdiff", "v1.0.0", "warn")
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls verbosity when no level is given:
//
//	LOG_LEVEL=debug sysdiff capture --path /sys/devices/system/cpu -- sleep 5
//
// # Output Format
//
// All logs are written to stderr in JSON format:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "capture started",
//	    "module": "sysdiff",
//	    "version": "v1.0.0",
//	    "paths": 3
//	}
package logging
