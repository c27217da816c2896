package scaling

// Config holds the engine parameters. It is copied into the Engine and never
// changes afterwards.
type Config struct {
	MinInstances     int
	MaxInstances     int
	UpCycles         int
	DownCycles       int
	BacklogThreshold float64
	HardCeiling      int
}

// Engine is the hysteresis decision engine.
//
// A qualifying tick either confirms its direction or, when it is the
// UpCycles-th (DownCycles-th) confirming tick, resets both counters and
// requests a one-step resize. A tick in the opposite direction decays the
// other counter by one instead of clearing it.
//
// The counters are reset when the resize is decided, before the fleet
// controller is called. A failed or rejected resize does not restore them.
type Engine struct {
	cfg   Config
	state State
}

// NewEngine creates an Engine whose fleet size and last target both start
// at cfg.MinInstances.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg: cfg,
		state: State{
			ActiveInstances: cfg.MinInstances,
			LastTarget:      cfg.MinInstances,
		},
	}
}

// Config returns the engine parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// State returns a copy of the current hysteresis state.
func (e *Engine) State() State {
	return e.state
}

// Tick consumes one sample and returns the decision for this cycle.
// The caller must not call Tick for a cycle whose sample failed.
func (e *Engine) Tick(s Sample) Decision {
	e.state.ActiveInstances = s.ActiveInstances

	d := Decision{
		Action:                   ActionHold,
		TargetInstances:          s.ActiveInstances,
		BacklogPerInstance:       s.QueueDepth / float64(max(s.ActiveInstances, 1)),
		DesiredInstancesEstimate: desiredInstances(s.QueueDepth, e.cfg.BacklogThreshold),
	}

	if d.BacklogPerInstance >= e.cfg.BacklogThreshold {
		if e.step(&e.state.UpCounter, &e.state.DownCounter, e.cfg.UpCycles) {
			d.Action = ActionScaleUp
			d.TargetInstances = e.commit(s.ActiveInstances + 1)
		}
	} else {
		if e.step(&e.state.DownCounter, &e.state.UpCounter, e.cfg.DownCycles) {
			d.Action = ActionScaleDown
			d.TargetInstances = e.commit(s.ActiveInstances - 1)
		}
	}

	return d
}

// step advances the confirming counter. It returns true when this tick
// completes the required number of cycles, in which case both counters are
// reset. Otherwise the opposing counter decays by one, never below zero.
func (e *Engine) step(confirm, oppose *int, cycles int) bool {
	if *confirm+1 >= cycles {
		*confirm = 0
		*oppose = 0
		return true
	}
	*confirm++
	*oppose = max(*oppose-1, 0)
	return false
}

// commit clamps raw and records it as the last target.
func (e *Engine) commit(raw int) int {
	target := e.Clamp(raw)
	e.state.LastTarget = target
	return target
}

// Clamp restricts x to [MinInstances, MaxInstances] and then to
// [1, HardCeiling]. The hard ceiling wins over a larger MaxInstances.
func (e *Engine) Clamp(x int) int {
	return clamp(e.cfg, x)
}

func clamp(cfg Config, x int) int {
	x = max(cfg.MinInstances, min(cfg.MaxInstances, x))
	if x > cfg.HardCeiling {
		x = cfg.HardCeiling
	}
	if x < 1 {
		x = 1
	}
	return x
}

// desiredInstances returns depth/threshold, or -1 when the threshold cannot
// divide.
func desiredInstances(depth, threshold float64) float64 {
	if threshold <= 0 {
		return -1
	}
	return depth / threshold
}
