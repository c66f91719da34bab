// Package logging provides structured logging for the Claudia coordinator.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging lock contention, session
// reclaim, and HTTP request handling in both single and parallel mode.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (session ID, component, request ID)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for the coordinator's state directory. Both `claudia
// coordinator start` and every CLI command that builds its agent (in
// either mode) call
// [NewLoggerWithRotation] with the logging.max_size_mb/max_backups/compress
// settings from the loaded config, so coordinator.log rotates on disk
// without any extra wiring at the call site:
//
//	logger, err := logging.NewLogger("/path/to/.agent-state", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Debug("acquired lock", "path", ".lock")
//	logger.Info("task claimed", "task_id", "task-004", "session_id", "s1")
//	logger.Warn("session heartbeat stale", "session_id", "s1", "age_s", 95)
//	logger.Error("rename failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	sessionLogger := logger.WithSession("s1")
//	componentLogger := sessionLogger.WithComponent("scheduler")
//	requestLogger := componentLogger.WithRequest("req-42")
//
//	// All logs from requestLogger include session_id, component, request_id
//	requestLogger.Info("claim evaluated", "task_id", "task-004")
//
// # Log Rotation
//
// For a long-running coordinator process, use log rotation to prevent
// unbounded growth of coordinator.log:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	}
//
//	logger, err := logging.NewLoggerWithRotation("/path/to/.agent-state", "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named coordinator.log.1, coordinator.log.2, etc., where
// .1 is the most recent backup. When compression is enabled, rotated files
// become coordinator.log.1.gz, etc.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	}
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
package logging
