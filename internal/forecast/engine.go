// Package forecast runs the seat probability and voter power computation
// over every configured state.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/voter-power/internal/logger"
	"github.com/yourusername/voter-power/internal/metrics"
	"github.com/yourusername/voter-power/internal/models"
	"github.com/yourusername/voter-power/internal/power"
	"github.com/yourusername/voter-power/internal/probability"
)

// Mode selects how much of the computation a run performs
type Mode string

const (
	ModeProbability Mode = "probability"
	ModePower       Mode = "power"
)

// ErrNoStateSucceeded is returned when every state of a run failed
var ErrNoStateSucceeded = errors.New("no state computation succeeded")

// ResultSink persists finished runs
type ResultSink interface {
	SaveRun(ctx context.Context, run *Run) error
}

// Progress observes states finishing during a run
type Progress interface {
	StartRun(mode string, total int)
	StateDone()
}

// StateFailure records a state skipped after an error
type StateFailure struct {
	State string
	Err   error
}

// Run is the outcome of one pass over the configured states
type Run struct {
	ID          uuid.UUID
	Mode        Mode
	TailScale   float64
	StartedAt   time.Time
	CompletedAt time.Time
	Results     []models.StateResult
	Failures    []StateFailure
}

// Engine orchestrates forecast runs
type Engine struct {
	settings  Settings
	analyzer  *power.Analyzer
	evaluator *probability.Evaluator
	sink      ResultSink
	progress  Progress
	logger    *logrus.Logger
	flog      *logger.ForecastLogger
}

// NewEngine builds the shared win model, quadrature grid and analyzer. A
// CDF table that cannot be built is replaced by direct evaluation.
func NewEngine(ctx context.Context, settings Settings, sink ResultSink, log *logrus.Logger) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}
	flog := logger.NewForecastLogger(log)

	table, err := buildTable(ctx, settings, flog)
	if err != nil {
		return nil, err
	}
	model, err := probability.NewWinModel(settings.RaceSigma, settings.RaceDegreesOfFreedom, table)
	if err != nil {
		return nil, err
	}
	integrator, err := probability.NewIntegrator(model, settings.Sources, settings.MassTolerance)
	if err != nil {
		return nil, err
	}
	evaluator := probability.NewEvaluator(integrator)
	analyzer, err := power.NewAnalyzer(evaluator, power.Options{
		Workers:           settings.Workers,
		LinearVoteScaling: settings.LinearVoteScaling,
	}, log)
	if err != nil {
		return nil, err
	}

	return &Engine{
		settings:  settings,
		analyzer:  analyzer,
		evaluator: evaluator,
		sink:      sink,
		logger:    log,
		flog:      flog,
	}, nil
}

func buildTable(ctx context.Context, settings Settings, flog *logger.ForecastLogger) (*probability.CDFTable, error) {
	if settings.TableSize == 0 {
		metrics.RecordCDFTable(0, 0)
		return nil, nil
	}
	start := time.Now()
	table, err := probability.NewCDFTable(ctx, settings.RaceDegreesOfFreedom, settings.TableSize, settings.TableDomain)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		flog.LogCDFTable(settings.TableSize, 0, err)
		metrics.RecordCDFTable(0, 0)
		return nil, nil
	}
	elapsed := time.Since(start)
	flog.LogCDFTable(table.Size(), elapsed, nil)
	metrics.RecordCDFTable(table.Size(), elapsed.Seconds())
	return table, nil
}

// Settings returns the engine settings
func (e *Engine) Settings() Settings {
	return e.settings
}

// SetProgress registers an observer notified as each state finishes
func (e *Engine) SetProgress(p Progress) {
	e.progress = p
}

// Tabulated reports whether win probabilities come from the CDF table
func (e *Engine) Tabulated() bool {
	return e.evaluator.Model().Tabulated()
}

// Run computes every state. A failed state is logged and skipped; the run
// fails only when the context is cancelled or no state succeeds.
func (e *Engine) Run(ctx context.Context, mode Mode, races []models.Race, states []models.StateConfig) (*Run, error) {
	if mode != ModeProbability && mode != ModePower {
		return nil, fmt.Errorf("%w: unknown mode %q", models.ErrConfiguration, mode)
	}
	run := &Run{
		ID:        uuid.New(),
		Mode:      mode,
		TailScale: e.settings.TailScale,
		StartedAt: time.Now().UTC(),
	}
	flog := e.flog.WithRun(run.ID.String(), string(mode))
	flog.LogRunStarted(len(states), len(races), e.evaluator.Grid().Len(), e.Tabulated())
	if e.progress != nil {
		e.progress.StartRun(string(mode), len(states))
	}

	results := make([]*models.StateResult, len(states))
	failures := make([]error, len(states))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.settings.stateWorkers())
	for i, cfg := range states {
		i, cfg := i, cfg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := e.runState(gctx, mode, races, cfg, flog)
			elapsed := time.Since(start)
			if e.progress != nil {
				defer e.progress.StateDone()
			}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				metrics.RecordStateRun(string(mode), "failure", elapsed.Seconds())
				flog.LogStateFailed(cfg.State, err)
				failures[i] = err
				return nil
			}
			metrics.RecordStateRun(string(mode), "success", elapsed.Seconds())
			metrics.UpdateBipartisanProbability(cfg.State, res.BipartisanProbability)
			flog.LogStateCompleted(cfg.State, res.BipartisanProbability, len(res.Races), elapsed)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, res := range results {
		if res != nil {
			run.Results = append(run.Results, *res)
		} else {
			run.Failures = append(run.Failures, StateFailure{State: states[i].State, Err: failures[i]})
		}
	}
	run.CompletedAt = time.Now().UTC()
	flog.LogRunCompleted(len(run.Results), len(run.Failures), run.CompletedAt.Sub(run.StartedAt))

	if len(states) > 0 && len(run.Results) == 0 {
		return run, ErrNoStateSucceeded
	}
	if e.sink != nil {
		if err := e.sink.SaveRun(ctx, run); err != nil {
			return run, fmt.Errorf("failed to persist run: %w", err)
		}
	}
	return run, nil
}

func (e *Engine) runState(ctx context.Context, mode Mode, races []models.Race, cfg models.StateConfig, flog *logger.ForecastLogger) (*models.StateResult, error) {
	ps, err := power.PrepareState(races, cfg, e.settings.prepareOptions())
	if err != nil {
		return nil, err
	}
	folded := 0
	for _, n := range ps.Folded {
		folded += n
	}
	flog.LogStateStarted(cfg.State, len(ps.Races), folded, ps.Skipped)

	if mode == ModeProbability {
		return e.analyzer.Probability(ps)
	}
	return e.analyzer.VoterPower(ctx, ps)
}
