package power

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/voter-power/internal/metrics"
	"github.com/yourusername/voter-power/internal/models"
	"github.com/yourusername/voter-power/internal/probability"
)

// Options tunes the voter power computation
type Options struct {
	// Workers bounds concurrent perturbed evaluations; zero means GOMAXPROCS
	Workers int
	// LinearVoteScaling shares one computed delta between races that differ
	// only in turnout, rescaled by each race's voter count
	LinearVoteScaling bool
}

// Analyzer computes bipartisan probabilities and per-race voter power
type Analyzer struct {
	evaluator *probability.Evaluator
	opts      Options
	logger    *logrus.Logger
}

// NewAnalyzer creates an analyzer around a shared evaluator
func NewAnalyzer(evaluator *probability.Evaluator, opts Options, logger *logrus.Logger) (*Analyzer, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("%w: evaluator is required", models.ErrConfiguration)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{evaluator: evaluator, opts: opts, logger: logger}, nil
}

// Options returns the analyzer options after defaults are applied
func (a *Analyzer) Options() Options {
	return a.opts
}

// Probability evaluates the state's good-outcome probability without
// computing voter power
func (a *Analyzer) Probability(ps *PreparedState) (*models.StateResult, error) {
	result, _, err := a.baseline(ps)
	return result, err
}

func (a *Analyzer) baseline(ps *PreparedState) (*models.StateResult, *probability.Outcome, error) {
	out, err := a.evaluator.Evaluate(ps.Legislature)
	if err != nil {
		return nil, nil, fmt.Errorf("state %s: %w", ps.State, err)
	}
	metrics.RecordIntegration()

	result := &models.StateResult{
		State:                 ps.State,
		BipartisanProbability: out.Good,
		ChamberProbabilities:  make(map[models.Chamber]float64, len(ps.Legislature.Chambers)),
		MetaMargins:           make(map[models.Chamber]float64, len(ps.Legislature.Chambers)),
	}
	model := a.evaluator.Model()
	for c, ch := range ps.Legislature.Chambers {
		result.ChamberProbabilities[ch.Setup.Chamber] = out.Success[c]
		if mm, ok := model.MetaMargin(ch.Setup, ch.Margins); ok {
			result.MetaMargins[ch.Setup.Chamber] = mm
		}
	}
	return result, out, nil
}

// VoterPower evaluates the state and the change in its good-outcome
// probability from one extra vote for the party in each contested race
func (a *Analyzer) VoterPower(ctx context.Context, ps *PreparedState) (*models.StateResult, error) {
	result, base, err := a.baseline(ps)
	if err != nil {
		return nil, err
	}

	memo := NewSignatureCache()
	var flight singleflight.Group
	powers := make([]models.RacePower, len(ps.Races))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i := range ps.Races {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := a.racePower(ps, base, i, memo, &flight)
			if err != nil {
				return err
			}
			powers[i] = models.RacePower{
				Race:                    ps.Races[i],
				VoterPower:              p,
				RedistrictingVoterPower: redistricting(p, ps.CongressionalSeats),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("state %s: %w", ps.State, err)
	}

	hits, misses, ratio := memo.Stats()
	a.logger.WithFields(logrus.Fields{
		"state":      ps.State,
		"races":      len(ps.Races),
		"signatures": memo.Len(),
		"hits":       hits,
		"misses":     misses,
		"hit_ratio":  ratio,
	}).Debug("Voter power cache statistics")

	result.Races = powers
	return result, nil
}

func (a *Analyzer) racePower(ps *PreparedState, base *probability.Outcome, i int, memo *SignatureCache, flight *singleflight.Group) (float64, error) {
	if ps.Chamber(i).Forced() {
		return 0, nil
	}
	race := ps.Races[i]
	ref := ps.refs[i]
	perturbation := race.VotePerturbation()

	sig := Signature{
		Chamber:      race.Chamber,
		Margin:       race.Margin,
		Weights:      race.ErrorWeights,
		Perturbation: perturbation,
	}
	if a.opts.LinearVoteScaling {
		sig.Perturbation = 0
	}

	stored, ok := memo.Get(sig)
	if !ok {
		v, err, _ := flight.Do(sig.Key(), func() (any, error) {
			p1, err := a.evaluator.EvaluatePerturbed(ps.Legislature, base, ref.chamber, ref.race, perturbation)
			if err != nil {
				return nil, fmt.Errorf("race %s: %w", race.District, err)
			}
			metrics.RecordIntegration()
			delta := p1 - base.Good
			if a.opts.LinearVoteScaling {
				delta *= float64(race.Voters)
			}
			memo.Set(sig, delta)
			return delta, nil
		})
		if err != nil {
			return 0, err
		}
		stored = v.(float64)
	}

	if a.opts.LinearVoteScaling {
		return stored / float64(race.Voters), nil
	}
	return stored, nil
}

// redistricting scales a vote's power by the congressional seats decided
// by the legislature beyond the first
func redistricting(power float64, congressionalSeats int) float64 {
	if congressionalSeats < 1 {
		return 0
	}
	return power * float64(congressionalSeats-1)
}
