// Package logger provides structured diagnostic logging for fanfoudl.
//
// It wraps zerolog behind a small interface so packages can accept a Logger
// and tests can swap in a TestLogger or NewNop.
//
//	err := logger.Initialize(&cfg.Logging)
//	logger.WithField("album", album.ID).Info("Resolved album")
//
// Diagnostics are written to stderr (and optionally a file). The per-album run
// log that users read lives in package runlog.
package logger
