package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/StrathCole/oracle-push/pkg/config"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
	"github.com/StrathCole/oracle-push/pkg/feeder/publisher"
	"github.com/StrathCole/oracle-push/pkg/feeder/round"
	"github.com/StrathCole/oracle-push/pkg/feeder/selector"
	"github.com/StrathCole/oracle-push/pkg/feeder/store"
	"github.com/StrathCole/oracle-push/pkg/logging"
	"github.com/StrathCole/oracle-push/pkg/metrics"
	"github.com/StrathCole/oracle-push/pkg/server/aggregator"
	"github.com/StrathCole/oracle-push/pkg/server/api"
	"github.com/StrathCole/oracle-push/pkg/server/sources"
	"github.com/StrathCole/oracle-push/pkg/version"

	// Import sources to register them
	_ "github.com/StrathCole/oracle-push/pkg/server/sources/cex"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	envFile    = flag.String("env-file", ".env", "Path to dotenv file loaded before the configuration")
	once       = flag.Bool("once", false, "Run a single round and exit")
	dryRun     = flag.Bool("dry-run", false, "Dry run mode: log batches instead of publishing them")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("oracle-push version %s\n", version.Version)
		os.Exit(0)
	}

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		cfg.Publisher.DryRun = true
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File: logging.FileOptions{
			Path:       cfg.Logging.File.Path,
			MaxSize:    cfg.Logging.File.MaxSize,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   cfg.Logging.File.Compress,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting oracle-push", "version", version.Version, "once", *once)
	if cfg.Publisher.DryRun {
		logger.Warn("DRY RUN MODE ENABLED - batches are logged, not published")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, logger); err != nil {
		logger.Error("oracle-push failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *logging.Logger) error {
	app, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if *once {
		res, err := app.runner.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("Single round complete", "round", res.Round, "published", res.Published)
		return nil
	}

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	httpServer := api.NewServer(cfg.Server.HTTP.Addr, app.runner, logger)
	errChan := make(chan error, 2)
	go func() {
		errChan <- httpServer.Start()
	}()

	var wsServer *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		app.runner.OnResult(wsServer.SendResult)
		go func() {
			if err := wsServer.Start(context.Background()); err != nil {
				logger.Error("WebSocket server error", "error", err)
			}
		}()
	}

	scheduler, err := round.NewScheduler(app.runner, cfg.Round.Schedule, logger)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			runErr = err
		}
	}
	cancel()

	logger.Info("Shutting down gracefully...")
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", "error", err)
	}
	if wsServer != nil {
		wsServer.Stop()
	}
	return runErr
}

// application holds the wired round and the resources it owns.
type application struct {
	runner    *round.Runner
	state     store.Store
	publisher *publisher.Multi
}

func (a *application) Close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.state != nil {
		_ = a.state.Close()
	}
}

func build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*application, error) {
	srcs, err := buildSources(cfg, logger)
	if err != nil {
		return nil, err
	}

	multiplier, err := cfg.Aggregation.StdDevMultiplierValue()
	if err != nil {
		return nil, err
	}
	threshold, err := cfg.Gate.ThresholdValue()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	app := &application{state: st}

	app.publisher, err = publisher.Build(cfg.Publisher, st, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create publishers: %w", err)
	}

	app.runner, err = round.NewRunner(round.Config{
		Timeout:         cfg.Round.Timeout.ToDuration(),
		NormalizeQuotes: cfg.Aggregation.NormalizeQuotes,
	}, round.Deps{
		Sources: srcs,
		Aggregator: aggregator.NewTrimmedMedianAggregator(aggregator.TrimmedMedianConfig{
			MinSamples:       cfg.Aggregation.MinSamples,
			QuoteFilter:      cfg.Aggregation.QuoteFilter,
			TrimMinSamples:   cfg.Aggregation.TrimMinSamples,
			StdDevMultiplier: multiplier,
		}, logger),
		Gate: gate.New(gate.Config{
			Threshold:         threshold,
			BoundaryExclusive: cfg.Gate.BoundaryExclusive,
		}, logger),
		Selector: selector.New(selector.Config{
			RegisteringBatch: cfg.Selector.RegisteringBatch,
			SteadyBatch:      cfg.Selector.SteadyBatch,
		}),
		State:     st,
		Entropy:   selector.CryptoEntropy{},
		Publisher: app.publisher,
		Logger:    logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	logger.Info("Round configured",
		"sources", len(srcs),
		"state", cfg.State.Type,
		"publishers", len(app.publisher.Publishers()),
		"schedule", cfg.Round.Schedule,
	)
	return app, nil
}

// buildSources creates every enabled source. A source that fails to build
// is skipped with a warning; having none at all is an error.
func buildSources(cfg *config.Config, logger *logging.Logger) ([]sources.NormalizedSampleSource, error) {
	var out []sources.NormalizedSampleSource
	for _, sourceCfg := range cfg.EnabledSources() {
		if sourceCfg.Config == nil {
			sourceCfg.Config = make(map[string]interface{})
		}
		sourceCfg.Config["logger"] = logger

		source, err := sources.Create(sourceCfg.Type, sourceCfg.Name, sourceCfg.Config)
		if err != nil {
			logger.Warn("Failed to create source", "type", sourceCfg.Type, "name", sourceCfg.Name, "error", err)
			continue
		}
		logger.Info("Source initialized", "source", source.Name())
		out = append(out, source)
	}
	if len(out) == 0 {
		return nil, errors.New("no sources available")
	}
	return out, nil
}
