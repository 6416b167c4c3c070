// Package storage writes collection results to disk.
//
// Two formats are supported. CSV carries a UTF-8 byte order mark so
// spreadsheet tools pick the right encoding, one row per creator and only
// the first email address. JSON wraps the full creator records in a
// metadata envelope describing when and how they were collected.
//
// Every export is written to a temporary file in the destination directory
// and renamed into place, so a reader never observes a half written file.
//
// Usage:
//
//	cfg, err := models.NewExportConfig("csv", "out/creators.csv")
//	if err != nil {
//	    return err
//	}
//	exp := storage.NewExporter(storage.WithLogger(log))
//	if err := exp.Export(cfg, result.Creators, &result.Criteria); err != nil {
//	    return err
//	}
package storage
