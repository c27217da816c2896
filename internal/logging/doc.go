// Package logging provides structured logging for dynoscaler.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// persistent context attributes. Every control-loop cycle logs through a
// child logger carrying the cycle number, so one cycle's sample, decision,
// command and telemetry lines can be filtered together.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation.
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Options{Level: "info"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	cycleLogger := logger.WithComponent("loop").WithCycle(42)
//	cycleLogger.Info("resize requested", "target", 3)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"resize requested","component":"loop","cycle":42,"target":3}
//
// # Log Rotation
//
// When Options.File is set, logs go to that file instead of stderr. With
// MaxSizeMB > 0 the file is rotated: dynoscaler.log.1 is the most recent
// backup, and with Compress enabled backups become dynoscaler.log.1.gz.
//
// # Configuration
//
//	logging:
//	  level: info
//	  file: /var/log/dynoscaler/dynoscaler.log
//	  max_size_mb: 10
//	  max_backups: 3
//	  compress: false
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWithWriter] to capture it.
package logging
