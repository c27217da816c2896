package telemetry

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

const namespace = "dynoscaler"

// Prometheus publishes the latest record as gauges and counts cycles by
// action and error kind. It owns a private registry served by the HTTP
// server.
type Prometheus struct {
	registry *prometheus.Registry

	queueDepth      prometheus.Gauge
	activeInstances prometheus.Gauge
	requested       prometheus.Gauge
	backlog         prometheus.Gauge
	desired         prometheus.Gauge
	upCounter       prometheus.Gauge
	downCounter     prometheus.Gauge
	cycles          *prometheus.CounterVec
	resizes         *prometheus.CounterVec
}

// NewPrometheus creates the sink and registers its collectors.
func NewPrometheus() *Prometheus {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	p := &Prometheus{
		registry:        prometheus.NewRegistry(),
		queueDepth:      gauge("queue_depth", "Visible messages in the queue at the last cycle"),
		activeInstances: gauge("active_instances", "Fleet size reported at the last cycle"),
		requested:       gauge("requested_instances", "Last clamped resize target"),
		backlog:         gauge("backlog_per_instance", "Queue depth divided by fleet size at the last cycle"),
		desired:         gauge("desired_instances_estimate", "Queue depth divided by the backlog threshold"),
		upCounter:       gauge("up_counter", "Confirming over-threshold cycles"),
		downCounter:     gauge("down_counter", "Confirming under-threshold cycles"),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Control-loop cycles by action and error kind",
		}, []string{"action", "error_kind"}),
		resizes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resize_requests_total",
			Help:      "Resize commands issued by action and HTTP status code",
		}, []string{"action", "status_code"}),
	}

	p.registry.MustRegister(
		p.queueDepth,
		p.activeInstances,
		p.requested,
		p.backlog,
		p.desired,
		p.upCounter,
		p.downCounter,
		p.cycles,
		p.resizes,
	)
	return p
}

// Registry returns the registry holding the sink's collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Name returns "prometheus".
func (p *Prometheus) Name() string { return "prometheus" }

// Record updates the gauges and counters. A failed sample leaves the queue
// and backlog gauges at their previous values.
func (p *Prometheus) Record(_ context.Context, rec Record) error {
	kind := rec.ErrorKind
	if kind == "" {
		kind = "none"
	}
	p.cycles.WithLabelValues(rec.Action, kind).Inc()

	p.activeInstances.Set(float64(rec.ActiveInstances))
	p.requested.Set(float64(rec.RequestedInstances))
	p.upCounter.Set(float64(rec.UpCounter))
	p.downCounter.Set(float64(rec.DownCounter))

	if rec.BacklogPerInstance >= 0 {
		p.queueDepth.Set(rec.QueueDepth)
		p.backlog.Set(rec.BacklogPerInstance)
		p.desired.Set(rec.DesiredInstancesEstimate)
	}

	if rec.StatusCode != 0 || rec.ErrorKind == errors.KindCommand {
		p.resizes.WithLabelValues(rec.Action, statusLabel(rec.StatusCode)).Inc()
	}
	return nil
}

func statusLabel(code int) string {
	if code == 0 {
		return "none"
	}
	return strconv.Itoa(code)
}
