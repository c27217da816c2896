package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
	"github.com/Iron-Ham/dynoscaler/internal/fleet"
	"github.com/Iron-Ham/dynoscaler/internal/logging"
	"github.com/Iron-Ham/dynoscaler/internal/queue"
	"github.com/Iron-Ham/dynoscaler/internal/scaling"
	"github.com/Iron-Ham/dynoscaler/internal/server"
	"github.com/Iron-Ham/dynoscaler/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the autoscaling control loop",
	Long: `Run the autoscaling control loop until interrupted.

The first cycle runs immediately, then one cycle per scaler.interval.
When server.enabled is set, /healthz, /status and /metrics are served on
server.address for as long as the loop runs.

Use --once to run a single cycle and print its record as JSON.`,
	RunE: runScaler,
}

var runOnce bool

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle, print its record and exit")
	rootCmd.AddCommand(runCmd)
}

// daemon is the assembled process: the control loop plus its optional
// HTTP server.
type daemon struct {
	loop     *scaling.Loop
	server   *server.Server
	listener net.Listener
	sinks    *telemetry.Multi
	logger   *logging.Logger
}

func runScaler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	d, err := build(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runOnce {
		d.closeListener()
		rec := d.loop.RunCycle(ctx)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	watchConfig(logger)
	return d.run(ctx)
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level: cfg.Level,
		File:  cfg.File,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		},
	})
	if err != nil {
		return nil, errors.NewConfigError("unable to open log file", err).WithField("logging.file")
	}
	return logger, nil
}

// build creates the queue reader and fleet controller selected by cfg and
// assembles the daemon around them.
func build(cfg *config.Config, logger *logging.Logger) (*daemon, error) {
	reader, err := queue.New(cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("queue: %w", err)
	}
	controller, err := fleet.New(cfg.Fleet)
	if err != nil {
		return nil, fmt.Errorf("fleet: %w", err)
	}
	return assemble(cfg, reader, controller, logger)
}

// assemble wires the engine, sampler, telemetry sinks and loop.
func assemble(cfg *config.Config, reader queue.Reader, controller fleet.Controller, logger *logging.Logger) (*daemon, error) {
	engine := scaling.NewEngine(scaling.Config{
		MinInstances:     cfg.Scaler.MinInstances,
		MaxInstances:     cfg.Scaler.MaxInstances,
		UpCycles:         cfg.Scaler.UpCycles,
		DownCycles:       cfg.Scaler.DownCycles,
		BacklogThreshold: cfg.Scaler.BacklogThreshold,
		HardCeiling:      cfg.Scaler.HardCeiling,
	})

	// Records go to Elasticsearch when it is configured and to the log
	// otherwise. Prometheus and the /status snapshot always see them.
	var primary telemetry.Sink = telemetry.NewLogSink(logger)
	if cfg.Telemetry.Elasticsearch.Enabled() {
		es, err := telemetry.NewElasticsearch(cfg.Telemetry.Elasticsearch, nil)
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		primary = es
	}
	prom := telemetry.NewPrometheus()
	last := telemetry.NewLast()
	sinks := telemetry.NewMulti(primary, prom, last)

	loop := scaling.NewLoop(engine, scaling.NewSampler(reader, controller), controller, sinks,
		scaling.WithInterval(cfg.Scaler.Interval),
		scaling.WithLogger(logger),
	)

	d := &daemon{loop: loop, sinks: sinks, logger: logger}

	// Bound last so no later step can fail with the port held.
	if cfg.Server.Enabled {
		d.server = server.New(cfg.Server.Address, prom.Registry(), last, logger)
		ln, err := d.server.Listen()
		if err != nil {
			return nil, errors.NewConfigError("unable to bind http server", err).WithField("server.address")
		}
		d.listener = ln
	}

	ec := engine.Config()
	logger.Info("dynoscaler configured",
		"queue", reader.Name(),
		"fleet", controller.Name(),
		"telemetry", primary.Name(),
		"sinks", sinks.Sinks(),
		"interval", loop.Interval().String(),
		"min_instances", ec.MinInstances,
		"max_instances", ec.MaxInstances,
		"hard_ceiling", ec.HardCeiling,
		"backlog_threshold", ec.BacklogThreshold,
	)
	return d, nil
}

// run blocks until ctx is cancelled. A server failure is logged and leaves
// the control loop running; only the loop decides when run returns.
func (d *daemon) run(ctx context.Context) error {
	var g errgroup.Group
	if d.server != nil && d.listener != nil {
		ln := d.listener
		g.Go(func() error {
			if err := d.server.Serve(ctx, ln); err != nil {
				d.logger.Error("http server failed, control loop continues",
					"address", ln.Addr().String(), "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return d.loop.Run(ctx)
	})
	return g.Wait()
}

// closeListener releases the server port when the server will not run.
func (d *daemon) closeListener() {
	if d.listener != nil {
		_ = d.listener.Close()
		d.listener = nil
	}
}

// watchConfig logs a warning when the config file changes. Settings are read
// once at startup, so a change takes effect on the next restart.
func watchConfig(logger *logging.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Warn("config file changed, restart required", "file", e.Name, "op", e.Op.String())
	})
	viper.WatchConfig()
}
