package scaling

// Action represents a scaling decision action.
type Action string

const (
	// ActionScaleUp indicates one instance should be added.
	ActionScaleUp Action = "scale_up"

	// ActionScaleDown indicates one instance should be removed.
	ActionScaleDown Action = "scale_down"

	// ActionHold indicates no resize this cycle.
	ActionHold Action = "hold"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Sample is one fresh reading of the queue and the fleet.
type Sample struct {
	// QueueDepth is the number of visible messages, averaged by the source.
	QueueDepth float64

	// ActiveInstances is the fleet size reported by the controller.
	ActiveInstances int
}

// State is the hysteresis state carried between cycles.
type State struct {
	// ActiveInstances is the fleet size from the most recent sample.
	ActiveInstances int

	// LastTarget is the most recent clamped resize target.
	LastTarget int

	// UpCounter counts confirming over-threshold cycles.
	UpCounter int

	// DownCounter counts confirming under-threshold cycles.
	DownCounter int
}

// Decision is the result of one engine tick.
type Decision struct {
	// Action is the resize action for this cycle.
	Action Action

	// TargetInstances is the clamped fleet size to request. For ActionHold it
	// equals the sampled fleet size.
	TargetInstances int

	// BacklogPerInstance is queue depth divided by the fleet size, with the
	// divisor floored at 1.
	BacklogPerInstance float64

	// DesiredInstancesEstimate is queue depth divided by the backlog
	// threshold. It is informational and never drives the decision.
	DesiredInstancesEstimate float64
}

// Resize reports whether the decision requires a SetSize call.
func (d Decision) Resize() bool {
	return d.Action == ActionScaleUp || d.Action == ActionScaleDown
}
