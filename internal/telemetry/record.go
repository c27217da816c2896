// Package telemetry records the outcome of each control-loop cycle.
//
// A [Record] is an immutable snapshot of one cycle. Sinks are best-effort:
// a failed Record call is reported as an error to the caller, which logs it
// and carries on. Available sinks:
//
//   - [LogSink]: writes each record as a structured log line
//   - [Elasticsearch]: indexes each record as a document
//   - [Prometheus]: exposes the latest record as gauges
//   - [Last]: keeps the latest record for the status endpoint
//   - [Multi]: fans a record out to several sinks
package telemetry

import (
	"context"
	"time"
)

// Record is the telemetry document for one cycle.
type Record struct {
	Timestamp                time.Time `json:"timestamp"`
	Action                   string    `json:"action"`
	StatusCode               int       `json:"statusCode"`
	QueueDepth               float64   `json:"queueDepth"`
	ActiveInstances          int       `json:"activeInstances"`
	RequestedInstances       int       `json:"requestedInstances"`
	BacklogPerInstance       float64   `json:"backlogPerInstance"`
	DesiredInstancesEstimate float64   `json:"desiredInstancesEstimate"`
	UpCounter                int       `json:"upCounter"`
	DownCounter              int       `json:"downCounter"`
	ErrorKind                string    `json:"errorKind"`
	ErrorMessage             string    `json:"errorMessage"`
}

// Failed reports whether the cycle ended with an error.
func (r Record) Failed() bool {
	return r.ErrorKind != ""
}

// Sink receives one Record per cycle.
type Sink interface {
	// Name identifies the sink in logs and errors.
	Name() string

	// Record stores or publishes rec. Implementations must not retain
	// references into rec beyond the call.
	Record(ctx context.Context, rec Record) error
}
