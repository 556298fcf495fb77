// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeDevice,
//	    "device command failed",
//	    cause,
//	    map[string]any{
//	        "command":   "mount -t tmpfs -o size=32m tmpfs /data/local/tmp/temp-fs",
//	        "exit_code": 1,
//	    },
//	)
package errors
