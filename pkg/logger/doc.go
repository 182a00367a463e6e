// Package logger provides the structured logging used across igunfollow.
//
// It wraps zerolog behind a small Logger interface so packages can take a
// logger as a dependency and tests can swap in a TestLogger or NewNopLogger.
// Console output is colored and human readable. When LoggingConfig.File is
// set, JSON lines are also written to that file, rotated by size through
// lumberjack.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "batch")
//	log.InfoWithFields("Batch started", map[string]interface{}{"count": 12})
package logger
