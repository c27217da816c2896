// Package scaling provides the hysteresis decision engine that keeps a worker
// fleet sized around a backlog-per-instance target.
//
// Each cycle samples queue depth and fleet size, feeds the sample to the
// engine, and issues at most one resize command. The engine requires several
// confirming cycles before it acts, which damps a noisy queue-depth signal
// into a bounded, one-step-at-a-time resize.
//
// The core types are:
//
//   - [Engine]: Owns the hysteresis [State] and turns a [Sample] into a [Decision]
//   - [Sampler]: Combines a queue depth reader and a fleet size reader into a [MetricSource]
//   - [Loop]: Runs one cycle per interval and records each outcome to a telemetry sink
//
// # Usage
//
//	engine := scaling.NewEngine(scaling.Config{
//	    MinInstances:     1,
//	    MaxInstances:     5,
//	    UpCycles:         3,
//	    DownCycles:       5,
//	    BacklogThreshold: 100,
//	    HardCeiling:      5,
//	})
//
//	loop := scaling.NewLoop(engine, scaling.NewSampler(depth, fleet), fleet, sink,
//	    scaling.WithInterval(30*time.Second),
//	    scaling.WithLogger(logger),
//	)
//	err := loop.Run(ctx)
//
// # Thread Safety
//
// Engine is not safe for concurrent use. A Loop owns its Engine and runs
// every cycle on the goroutine that called Run, so a cycle never overlaps
// the previous one.
package scaling
