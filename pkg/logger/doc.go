// Package logger wraps zerolog behind a small structured logging interface.
//
// Console output is human readable and goes to stderr; when a log file is
// configured every event is also appended to it as a JSON line.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("id", 42).Info("Saved")
//
// TestLogger records messages in memory for assertions, and LeveledAdapter
// lets HTTP client libraries log through the same pipeline.
package logger
