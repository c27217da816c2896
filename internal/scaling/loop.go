package scaling

import (
	"context"
	"time"

	"github.com/Iron-Ham/dynoscaler/internal/errors"
	"github.com/Iron-Ham/dynoscaler/internal/logging"
	"github.com/Iron-Ham/dynoscaler/internal/telemetry"
	"github.com/Iron-Ham/dynoscaler/internal/util"
)

const defaultInterval = 30 * time.Second

// FleetController reports and sets the fleet size.
type FleetController interface {
	SizeReader

	// SetSize requests n instances. It returns the remote status code. A
	// non-2xx status is returned with a nil error; err is reserved for calls
	// that did not complete.
	SetSize(ctx context.Context, n int) (int, error)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithInterval sets the time between cycle starts.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the loop logger.
func WithLogger(logger *logging.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// Loop drives the engine: sample, tick, maybe resize, record.
// It is the sole owner of its Engine.
type Loop struct {
	engine   *Engine
	source   MetricSource
	fleet    FleetController
	sink     telemetry.Sink
	interval time.Duration
	logger   *logging.Logger
	now      func() time.Time
	cycle    uint64
}

// NewLoop creates a Loop. Unset options use defaults: a 30s interval, a
// discarding logger and the wall clock.
func NewLoop(engine *Engine, source MetricSource, fleet FleetController, sink telemetry.Sink, opts ...LoopOption) *Loop {
	l := &Loop{
		engine:   engine,
		source:   source,
		fleet:    fleet,
		sink:     sink,
		interval: defaultInterval,
		logger:   logging.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithComponent("loop")
	return l
}

// Interval returns the time between cycle starts.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Run executes the first cycle immediately and then one cycle per interval
// until ctx is cancelled. A cycle that is running when ctx is cancelled is
// finished with a context detached from the cancellation, so adapters'
// own timeouts bound the shutdown delay. Run returns nil on shutdown.
func (l *Loop) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	l.logger.Info("control loop started", "interval", l.interval.String())

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.RunCycle(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped", "cycles", l.cycle)
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle executes one cycle and returns its telemetry record.
func (l *Loop) RunCycle(ctx context.Context) telemetry.Record {
	l.cycle++
	log := l.logger.WithCycle(l.cycle)

	rec := telemetry.Record{
		Timestamp:                l.now().UTC(),
		Action:                   ActionHold.String(),
		BacklogPerInstance:       -1,
		DesiredInstancesEstimate: -1,
	}

	sample, err := l.source.Sample(ctx)
	if err != nil {
		logCycleError(log, "sample failed, skipping decision", err)
		setError(&rec, err)
		l.finish(ctx, log, &rec)
		return rec
	}

	decision := l.engine.Tick(sample)
	rec.Action = decision.Action.String()
	rec.QueueDepth = sample.QueueDepth
	rec.BacklogPerInstance = decision.BacklogPerInstance
	rec.DesiredInstancesEstimate = decision.DesiredInstancesEstimate

	log.Debug("decision",
		"action", decision.Action.String(),
		"queue_depth", sample.QueueDepth,
		"active_instances", sample.ActiveInstances,
		"backlog_per_instance", decision.BacklogPerInstance,
	)

	if decision.Resize() {
		code, err := l.fleet.SetSize(ctx, decision.TargetInstances)
		rec.StatusCode = code
		if cmdErr := l.commandError(decision.TargetInstances, code, err); cmdErr != nil {
			logCycleError(log, "resize failed", cmdErr, "target", decision.TargetInstances)
			setError(&rec, cmdErr)
		} else {
			log.Info("resize requested",
				"action", decision.Action.String(),
				"from", sample.ActiveInstances,
				"target", decision.TargetInstances,
				"status_code", code,
			)
		}
	}

	l.finish(ctx, log, &rec)
	return rec
}

// commandError classifies a SetSize outcome. It returns nil on success.
func (l *Loop) commandError(target, code int, err error) *errors.CommandError {
	switch {
	case err != nil:
		return errors.NewCommandError(errors.CommandTransient, l.fleet.Name(), err).
			WithTarget(target).WithStatusCode(code)
	case code < 200 || code > 299:
		return errors.NewCommandError(errors.CommandRejected, l.fleet.Name(), nil).
			WithTarget(target).WithStatusCode(code)
	default:
		return nil
	}
}

// finish copies the engine state into rec and hands it to the sink.
func (l *Loop) finish(ctx context.Context, log *logging.Logger, rec *telemetry.Record) {
	st := l.engine.State()
	rec.ActiveInstances = st.ActiveInstances
	rec.RequestedInstances = st.LastTarget
	rec.UpCounter = st.UpCounter
	rec.DownCounter = st.DownCounter

	if l.sink == nil {
		return
	}
	if err := l.sink.Record(ctx, *rec); err != nil {
		var terr *errors.TelemetryError
		if !errors.As(err, &terr) {
			err = errors.NewTelemetryError(l.sink.Name(), err)
		}
		logCycleError(log, "telemetry not recorded", err)
	}
}

// logCycleError logs err at the level matching its severity, tagged with
// whether the next cycle may clear it.
func logCycleError(log *logging.Logger, msg string, err error, args ...any) {
	severity := errors.GetSeverity(err)
	args = append(args,
		"error", err,
		"severity", severity.String(),
		"retryable", errors.IsRetryable(err),
	)
	switch severity {
	case errors.SeverityCritical, errors.SeverityError:
		log.Error(msg, args...)
	case errors.SeverityWarning:
		log.Warn(msg, args...)
	case errors.SeverityInfo:
		log.Info(msg, args...)
	default:
		log.Debug(msg, args...)
	}
}

// maxErrorMessage bounds the error text stored in a record.
const maxErrorMessage = 1024

func setError(rec *telemetry.Record, err error) {
	rec.ErrorKind = errors.KindOf(err)
	rec.ErrorMessage = util.ErrorSummary(err, maxErrorMessage)
}
