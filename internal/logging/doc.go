// Package logging provides structured logging for commsframe.
//
// It wraps a package-level zap logger. Until Initialize is called the logger
// is a no-op, so the protocol packages can log freely when used as a library.
//
// # Log Levels
//
//   - Debug: frame hex dumps, per-frame decode results, websocket traffic
//   - Info: connections, server lifecycle, advertised services
//   - Warn: skipped or corrupt frames, dropped connections
//   - Error: startup failures and capture write errors
//
// # Configuration
//
// The level comes from the --log-level flag, the log_level config key or the
// COMMSFRAME_LOG_LEVEL environment variable, in that order:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Output goes to stderr so that command output on stdout stays clean.
package logging
