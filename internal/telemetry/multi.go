package telemetry

import (
	"context"

	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// Multi delivers each record to every sink in order. A failing sink does
// not stop delivery to the rest.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a Multi over sinks. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Name returns "multi".
func (m *Multi) Name() string { return "multi" }

// Sinks returns the number of wrapped sinks.
func (m *Multi) Sinks() int { return len(m.sinks) }

// Record forwards rec to every sink. Each failure is wrapped in a
// TelemetryError naming its sink and the failures are returned joined.
// Multi does not log; the caller reports the joined error once.
func (m *Multi) Record(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, errors.NewTelemetryError(s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
