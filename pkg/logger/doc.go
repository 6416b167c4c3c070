// Package logger provides the structured logging interface used across streamscout.
//
// It wraps zerolog behind a small Logger interface so packages can accept a
// logger without importing zerolog directly:
//   - levelled logging (Debug, Info, Warn, Error, Fatal)
//   - immutable derived loggers via WithField, WithFields and WithError
//   - coloured console output, or JSON with logging.format=json
//   - an optional JSON log file next to console output
//
// Basic Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Collection finished", map[string]interface{}{
//	    "creators": len(result.Creators),
//	    "errors":   result.Progress.Errors,
//	})
//
// Library code defaults to NewNopLogger. Tests use NewTestLogger and assert on
// the captured entries.
package logger
