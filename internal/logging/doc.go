// Package logging provides structured logging for kepler.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// persistent attributes. The message pool and the destination registry log
// through it so that exhaustion and contained faults can be analyzed after
// a run.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Persistent attributes (component, destination)
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying handler safely.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/kepler/kepler.log", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	poolLogger := logger.WithComponent("pool")
//	poolLogger.Warn("pool exhausted", "outstanding", 2048)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"pool exhausted","component":"pool","outstanding":2048}
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output, or
// [NewWriterLogger] with a bytes.Buffer to assert on entries.
//
// # Configuration
//
// The logger is configured via kepler's config file:
//
//	logging:
//	  level: info
//	  file: ""   # empty writes to stderr
package logging
