package telemetry

import (
	"context"

	"github.com/Iron-Ham/dynoscaler/internal/logging"
)

// LogSink writes each record as one structured log line. It is the
// fallback when no Elasticsearch cluster is configured.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a LogSink. A nil logger discards records.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &LogSink{logger: logger}
}

// Name returns "log".
func (s *LogSink) Name() string { return "log" }

// Record logs rec at INFO, or at WARN when the cycle failed.
func (s *LogSink) Record(_ context.Context, rec Record) error {
	args := []any{
		"action", rec.Action,
		"status_code", rec.StatusCode,
		"queue_depth", rec.QueueDepth,
		"active_instances", rec.ActiveInstances,
		"requested_instances", rec.RequestedInstances,
		"backlog_per_instance", rec.BacklogPerInstance,
		"desired_instances_estimate", rec.DesiredInstancesEstimate,
		"up_counter", rec.UpCounter,
		"down_counter", rec.DownCounter,
	}
	if rec.Failed() {
		args = append(args, "error_kind", rec.ErrorKind, "error", rec.ErrorMessage)
		s.logger.Warn("cycle recorded", args...)
		return nil
	}
	s.logger.Info("cycle recorded", args...)
	return nil
}
