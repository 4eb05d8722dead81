// Package logger provides the structured logger used across the crawler.
//
// It wraps zerolog behind a small interface so components take a Logger
// and tests can pass a TestLogger or NewNopLogger instead:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Page extracted", map[string]interface{}{
//	    "target":  "Berlin/Acme",
//	    "page":    3,
//	    "records": 10,
//	})
//
// Output is a colored console writer; when a log file is configured the
// JSON lines also go to that file.
package logger
