package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/voter-power/internal/config"
	"github.com/yourusername/voter-power/internal/database"
	"github.com/yourusername/voter-power/internal/dataset"
	"github.com/yourusername/voter-power/internal/forecast"
	"github.com/yourusername/voter-power/internal/health"
	"github.com/yourusername/voter-power/internal/logger"
	"github.com/yourusername/voter-power/internal/metrics"
	"github.com/yourusername/voter-power/internal/models"
	"github.com/yourusername/voter-power/internal/repository"
	"github.com/yourusername/voter-power/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	topN       int
	appLog     *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath, "Path to configuration file")
	rootCmd.PersistentFlags().IntVar(&topN, "top", 10, "Number of races shown in the console report")
	rootCmd.AddCommand(probabilityCmd, powerCmd, scheduleCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "voterpower",
	Short: "State legislative seat probabilities and voter power",
	Long: `Computes, for each configured state, the probability that the tracked party
reaches its seat threshold in each legislative chamber, the probability of a
bipartisan outcome, and the marginal value of one additional vote per district.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLog = logger.NewLoggerForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
		return nil
	},
}

var probabilityCmd = &cobra.Command{
	Use:   "probability",
	Short: "Compute chamber and bipartisan probabilities only",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(forecast.ModeProbability)
	},
}

var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Compute probabilities and per-district voter power",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(forecast.ModePower)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-run the forecast on the configured cron schedule",
	Long: `Keeps the engine and its CDF table in memory and recomputes the forecast
from freshly read inputs at every activation of schedule.cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeSchedule()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("voterpower %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// session holds what a command needs across one or more runs
type session struct {
	engine  *forecast.Engine
	server  *health.Server
	closers []func()
}

func (rt *session) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func setup(ctx context.Context) (*session, error) {
	rt := &session{}
	settings, err := forecast.FromConfig(cfg, time.Now())
	if err != nil {
		return nil, err
	}

	var (
		sink forecast.ResultSink
		db   *database.DB
	)
	if cfg.Database.Enabled {
		db, err = database.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)

		repos, err := repository.NewRepositories(db)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("failed to initialize repositories: %w", err)
		}
		sink = repos.Forecast
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		serverCfg := health.Config{
			ServiceName:    cfg.App.Name,
			Version:        Version,
			Port:           cfg.Metrics.Port,
			MetricsPath:    cfg.Metrics.Path,
			MetricsHandler: metrics.Handler(),
			Logger:         appLog,
		}
		if db != nil {
			serverCfg.DB = db
		}
		rt.server = health.NewServer(serverCfg)
		if err := rt.server.Start(ctx); err != nil {
			rt.close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() { rt.server.Shutdown() })
	}

	rt.engine, err = forecast.NewEngine(ctx, settings, sink, appLog)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	if rt.server != nil {
		rt.engine.SetProgress(rt.server)
		rt.server.SetReady(true)
	}
	return rt, nil
}

func execute(mode forecast.Mode) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLog.WithFields(logrus.Fields{
		"version":     Version,
		"commit":      GitCommit,
		"environment": cfg.App.Environment,
		"mode":        mode,
	}).Info("Starting voter power run")

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	run, err := rt.runOnce(ctx, mode)
	if err != nil {
		return err
	}
	fmt.Print(forecast.GenerateConsoleReport(run, topN))
	return nil
}

func executeSchedule() error {
	if cfg.Schedule.Cron == "" {
		return fmt.Errorf("%w: schedule.cron is not configured", models.ErrConfiguration)
	}
	mode := forecast.Mode(cfg.Schedule.Mode)
	if mode == "" {
		mode = forecast.ModePower
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	job := func(ctx context.Context) error {
		_, err := rt.runOnce(ctx, mode)
		return err
	}

	sched := scheduler.NewScheduler(appLog)
	if err := sched.Schedule("forecast", cfg.Schedule.Cron, cfg.Schedule.Timeout, job); err != nil {
		return err
	}
	if cfg.Schedule.RunOnStart {
		if err := job(ctx); err != nil {
			appLog.WithError(err).Error("Initial run failed")
		}
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	appLog.WithFields(logrus.Fields{
		"mode":     mode,
		"next_run": sched.NextRun().Format(time.RFC3339),
	}).Info("Waiting for scheduled runs")

	<-ctx.Done()
	appLog.Info("Shutdown signal received")
	return sched.Stop()
}

// runOnce reloads the inputs, computes every state and writes the outputs.
// A run whose results could not be persisted still writes its CSVs.
func (rt *session) runOnce(ctx context.Context, mode forecast.Mode) (*forecast.Run, error) {
	races, states, err := loadInputs(rt.engine.Settings().Sources)
	if err != nil {
		return nil, err
	}

	run, err := rt.engine.Run(ctx, mode, races, states)
	if err != nil && (run == nil || errors.Is(err, forecast.ErrNoStateSucceeded)) {
		return nil, err
	}
	if err != nil {
		appLog.WithError(err).Error("Failed to persist run")
	}

	if err := writeOutputs(mode, run); err != nil {
		return nil, err
	}
	return run, nil
}

func loadInputs(sources []models.ErrorSource) ([]models.Race, []models.StateConfig, error) {
	races, err := dataset.LoadRaces(cfg.Input.Races, sources)
	if err != nil {
		return nil, nil, err
	}
	states, err := dataset.LoadStates(cfg.Input.States)
	if err != nil {
		return nil, nil, err
	}
	seats, err := dataset.LoadCongressionalSeats(cfg.Input.Seats)
	if err != nil {
		return nil, nil, err
	}
	dataset.ApplySeats(states, seats)

	appLog.WithFields(logrus.Fields{
		"races":  len(races),
		"states": len(states),
	}).Info("Loaded inputs")
	return races, states, nil
}

func writeOutputs(mode forecast.Mode, run *forecast.Run) error {
	path := filepath.Join(cfg.Output.Directory, cfg.Output.Probabilities)
	if err := dataset.SaveCSV(path, run.Results, dataset.WriteProbabilities); err != nil {
		return err
	}
	appLog.WithField("path", path).Info("Wrote state probabilities")

	if mode != forecast.ModePower {
		return nil
	}
	path = filepath.Join(cfg.Output.Directory, cfg.Output.Powers)
	if err := dataset.SaveCSV(path, run.Results, dataset.WritePowers); err != nil {
		return err
	}
	appLog.WithField("path", path).Info("Wrote voter powers")
	return nil
}
