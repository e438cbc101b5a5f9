// Package log provides structured protocol capture for model exchanges.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events (frames, decoded messages, session state changes and
// errors) per participant session. It is separate from operational logging
// (slog): protocol capture is a machine-readable trace for debugging a
// misbehaving engine.
//
// # Basic Usage
//
//	// Console, via slog at debug level
//	composite.WithProtocolLogger(log.NewSlogAdapter(slog.Default()))
//
//	// CBOR file, readable with "tooling log view"
//	fl, _ := log.NewFileLogger("composite.mlog")
//	composite.WithProtocolLogger(log.NewMultiLogger(fl, log.NewSlogAdapter(slog.Default())))
//
// # File Format
//
// Log files are a stream of CBOR-encoded Events with integer keys, using the
// .mlog extension by convention.
package log
