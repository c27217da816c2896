package scaling

import (
	"math"
	"testing"
)

func defaultConfig() Config {
	return Config{
		MinInstances:     1,
		MaxInstances:     10,
		UpCycles:         3,
		DownCycles:       2,
		BacklogThreshold: 5,
		HardCeiling:      5,
	}
}

func TestNewEngine_InitialState(t *testing.T) {
	cfg := defaultConfig()
	cfg.MinInstances = 2
	e := NewEngine(cfg)

	st := e.State()
	if st.ActiveInstances != 2 || st.LastTarget != 2 {
		t.Errorf("initial state = %+v, want active and last target 2", st)
	}
	if st.UpCounter != 0 || st.DownCounter != 0 {
		t.Errorf("initial counters = %d/%d, want 0/0", st.UpCounter, st.DownCounter)
	}
	if e.Config() != cfg {
		t.Errorf("Config() = %+v, want %+v", e.Config(), cfg)
	}
}

func TestEngine_BacklogPerInstance(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   float64
	}{
		{"even split", Sample{QueueDepth: 20, ActiveInstances: 4}, 5},
		{"fractional", Sample{QueueDepth: 10, ActiveInstances: 3}, 10.0 / 3.0},
		{"empty queue", Sample{QueueDepth: 0, ActiveInstances: 2}, 0},
		{"averaged depth", Sample{QueueDepth: 7.5, ActiveInstances: 2}, 3.75},
		{"zero instances floors divisor", Sample{QueueDepth: 12, ActiveInstances: 0}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(defaultConfig())
			d := e.Tick(tt.sample)
			if math.Abs(d.BacklogPerInstance-tt.want) > 1e-9 {
				t.Errorf("BacklogPerInstance = %v, want %v", d.BacklogPerInstance, tt.want)
			}
		})
	}
}

func TestEngine_ZeroInstancesNotStored(t *testing.T) {
	cfg := defaultConfig()
	cfg.UpCycles = 1
	e := NewEngine(cfg)

	d := e.Tick(Sample{QueueDepth: 100, ActiveInstances: 0})

	if e.State().ActiveInstances != 0 {
		t.Errorf("ActiveInstances = %d, want the sampled 0", e.State().ActiveInstances)
	}
	if d.Action != ActionScaleUp {
		t.Fatalf("Action = %s, want scale_up", d.Action)
	}
	// clamp(0+1) with min 1
	if d.TargetInstances != 1 {
		t.Errorf("TargetInstances = %d, want 1", d.TargetInstances)
	}
}

func TestEngine_DesiredInstancesEstimate(t *testing.T) {
	e := NewEngine(defaultConfig())
	d := e.Tick(Sample{QueueDepth: 12, ActiveInstances: 1})
	if d.DesiredInstancesEstimate != 2.4 {
		t.Errorf("DesiredInstancesEstimate = %v, want 2.4", d.DesiredInstancesEstimate)
	}

	cfg := defaultConfig()
	cfg.BacklogThreshold = 0
	e = NewEngine(cfg)
	d = e.Tick(Sample{QueueDepth: 12, ActiveInstances: 1})
	if d.DesiredInstancesEstimate != -1 {
		t.Errorf("DesiredInstancesEstimate = %v, want -1 for zero threshold", d.DesiredInstancesEstimate)
	}
}

func TestEngine_ConfirmedScaleUp(t *testing.T) {
	e := NewEngine(Config{
		MinInstances:     1,
		MaxInstances:     10,
		UpCycles:         3,
		DownCycles:       3,
		BacklogThreshold: 5,
		HardCeiling:      5,
	})

	wantUp := []int{1, 2, 0}
	wantAction := []Action{ActionHold, ActionHold, ActionScaleUp}
	for i := range wantUp {
		d := e.Tick(Sample{QueueDepth: 20, ActiveInstances: 1})
		if got := e.State().UpCounter; got != wantUp[i] {
			t.Errorf("tick %d: UpCounter = %d, want %d", i+1, got, wantUp[i])
		}
		if d.Action != wantAction[i] {
			t.Errorf("tick %d: Action = %s, want %s", i+1, d.Action, wantAction[i])
		}
		if i == 2 && d.TargetInstances != 2 {
			t.Errorf("tick 3: TargetInstances = %d, want 2", d.TargetInstances)
		}
	}

	st := e.State()
	if st.DownCounter != 0 {
		t.Errorf("DownCounter = %d, want 0 after scale up", st.DownCounter)
	}
	if st.LastTarget != 2 {
		t.Errorf("LastTarget = %d, want 2", st.LastTarget)
	}
}

func TestEngine_ConfirmedScaleDown(t *testing.T) {
	e := NewEngine(defaultConfig())

	wantDown := []int{1, 0}
	wantAction := []Action{ActionHold, ActionScaleDown}
	for i := range wantDown {
		d := e.Tick(Sample{QueueDepth: 0, ActiveInstances: 2})
		if got := e.State().DownCounter; got != wantDown[i] {
			t.Errorf("tick %d: DownCounter = %d, want %d", i+1, got, wantDown[i])
		}
		if d.Action != wantAction[i] {
			t.Errorf("tick %d: Action = %s, want %s", i+1, d.Action, wantAction[i])
		}
		if i == 1 && d.TargetInstances != 1 {
			t.Errorf("tick 2: TargetInstances = %d, want 1", d.TargetInstances)
		}
	}
}

func TestEngine_HardCeilingWins(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxInstances = 20
	cfg.HardCeiling = 5
	e := NewEngine(cfg)

	if got := e.Clamp(8); got != 5 {
		t.Errorf("Clamp(8) = %d, want 5", got)
	}

	cfg.UpCycles = 1
	e = NewEngine(cfg)
	d := e.Tick(Sample{QueueDepth: 1000, ActiveInstances: 7})
	if d.Action != ActionScaleUp || d.TargetInstances != 5 {
		t.Errorf("decision = %+v, want scale_up to 5", d)
	}
}

func TestEngine_Clamp(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		in   int
		want int
	}{
		{"within bounds", Config{MinInstances: 1, MaxInstances: 10, HardCeiling: 5}, 3, 3},
		{"below min", Config{MinInstances: 2, MaxInstances: 10, HardCeiling: 5}, 0, 2},
		{"above max", Config{MinInstances: 1, MaxInstances: 3, HardCeiling: 5}, 4, 3},
		{"ceiling below max", Config{MinInstances: 1, MaxInstances: 20, HardCeiling: 5}, 8, 5},
		{"negative input", Config{MinInstances: 0, MaxInstances: 5, HardCeiling: 5}, -3, 1},
		{"zero min floors at one", Config{MinInstances: 0, MaxInstances: 5, HardCeiling: 5}, 0, 1},
		{"ceiling wins over min", Config{MinInstances: 7, MaxInstances: 10, HardCeiling: 5}, 8, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewEngine(tt.cfg).Clamp(tt.in); got != tt.want {
				t.Errorf("Clamp(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestEngine_ClampRange(t *testing.T) {
	configs := []Config{
		{MinInstances: 1, MaxInstances: 10, HardCeiling: 5},
		{MinInstances: 2, MaxInstances: 4, HardCeiling: 5},
		{MinInstances: 0, MaxInstances: 3, HardCeiling: 8},
		{MinInstances: 3, MaxInstances: 3, HardCeiling: 3},
	}

	for _, cfg := range configs {
		lo := max(1, cfg.MinInstances)
		hi := min(cfg.MaxInstances, cfg.HardCeiling)
		e := NewEngine(cfg)
		for x := -50; x <= 50; x++ {
			got := e.Clamp(x)
			if got < lo || got > hi {
				t.Fatalf("cfg %+v: Clamp(%d) = %d, outside [%d, %d]", cfg, x, got, lo, hi)
			}
		}
	}
}

func TestEngine_OpposingTickDecaysCounter(t *testing.T) {
	cfg := defaultConfig()
	cfg.UpCycles = 5
	cfg.DownCycles = 5
	e := NewEngine(cfg)

	for range 3 {
		e.Tick(Sample{QueueDepth: 20, ActiveInstances: 1})
	}
	if got := e.State().UpCounter; got != 3 {
		t.Fatalf("UpCounter = %d, want 3", got)
	}

	e.Tick(Sample{QueueDepth: 0, ActiveInstances: 1})
	st := e.State()
	if st.UpCounter != 2 || st.DownCounter != 1 {
		t.Errorf("counters = %d/%d, want up 2 down 1", st.UpCounter, st.DownCounter)
	}

	// decay never goes below zero
	for range 4 {
		e.Tick(Sample{QueueDepth: 0, ActiveInstances: 1})
	}
	if got := e.State().UpCounter; got != 0 {
		t.Errorf("UpCounter = %d, want 0", got)
	}
}

func TestEngine_ThresholdBoundaryScalesUp(t *testing.T) {
	cfg := defaultConfig()
	cfg.UpCycles = 1
	e := NewEngine(cfg)

	// backlog exactly equal to threshold counts as over
	d := e.Tick(Sample{QueueDepth: 10, ActiveInstances: 2})
	if d.Action != ActionScaleUp {
		t.Errorf("Action = %s, want scale_up at backlog == threshold", d.Action)
	}
}

func TestEngine_RepeatedScaleUps(t *testing.T) {
	cfg := defaultConfig()
	cfg.UpCycles = 2
	e := NewEngine(cfg)

	active := 1
	var targets []int
	for range 6 {
		d := e.Tick(Sample{QueueDepth: 100, ActiveInstances: active})
		if d.Resize() {
			targets = append(targets, d.TargetInstances)
			active = d.TargetInstances
		}
	}

	want := []int{2, 3, 4}
	if len(targets) != len(want) {
		t.Fatalf("targets = %v, want %v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("targets[%d] = %d, want %d", i, targets[i], want[i])
		}
	}
}

func TestEngine_HoldDoesNotChangeLastTarget(t *testing.T) {
	e := NewEngine(defaultConfig())
	d := e.Tick(Sample{QueueDepth: 20, ActiveInstances: 3})

	if d.Action != ActionHold {
		t.Fatalf("Action = %s, want hold", d.Action)
	}
	if d.TargetInstances != 3 {
		t.Errorf("TargetInstances = %d, want sampled size 3", d.TargetInstances)
	}
	if e.State().LastTarget != 1 {
		t.Errorf("LastTarget = %d, want initial 1", e.State().LastTarget)
	}
}

func TestDecision_Resize(t *testing.T) {
	tests := []struct {
		action Action
		want   bool
	}{
		{ActionScaleUp, true},
		{ActionScaleDown, true},
		{ActionHold, false},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			if got := (Decision{Action: tt.action}).Resize(); got != tt.want {
				t.Errorf("Resize() = %v, want %v", got, tt.want)
			}
		})
	}
}
