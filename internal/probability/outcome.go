package probability

import (
	"fmt"

	"github.com/yourusername/voter-power/internal/models"
)

// ChamberState describes whether a chamber is still in play
type ChamberState int

const (
	Contested ChamberState = iota
	ForcedWin
	ForcedLoss
)

func (s ChamberState) String() string {
	switch s {
	case ForcedWin:
		return "forced_win"
	case ForcedLoss:
		return "forced_loss"
	default:
		return "contested"
	}
}

// ChamberSetup is a chamber threshold resolved against its contested seats
type ChamberSetup struct {
	Chamber   models.Chamber
	Threshold int
	Tie       float64
	Seats     int
	State     ChamberState
}

// ResolveChamber marks a chamber as already won when the threshold is not
// positive and as already lost when it exceeds the contested seats
func ResolveChamber(cfg models.ChamberConfig, contested int) (ChamberSetup, error) {
	if err := cfg.Validate(); err != nil {
		return ChamberSetup{}, err
	}
	setup := ChamberSetup{
		Chamber:   cfg.Chamber,
		Threshold: cfg.SeatThreshold,
		Tie:       cfg.TieProbability,
		Seats:     contested,
	}
	switch {
	case cfg.SeatThreshold <= 0:
		setup.State = ForcedWin
	case cfg.SeatThreshold > contested:
		setup.State = ForcedLoss
	}
	return setup, nil
}

// Forced reports whether the chamber outcome is already decided
func (c ChamberSetup) Forced() bool {
	return c.State != Contested
}

// SuccessProbability returns P(seats > t) + tie * P(seats == t)
func (c ChamberSetup) SuccessProbability(dist SeatDistribution) (float64, error) {
	switch c.State {
	case ForcedWin:
		return 1, nil
	case ForcedLoss:
		return 0, nil
	}
	if c.Threshold < 1 || c.Threshold > c.Seats {
		return 0, fmt.Errorf("%w: %s threshold %d outside contested range [1, %d]",
			models.ErrConfiguration, c.Chamber, c.Threshold, c.Seats)
	}
	if dist.Seats() != c.Seats {
		return 0, fmt.Errorf("%w: %s distribution covers %d seats, expected %d",
			models.ErrConfiguration, c.Chamber, dist.Seats(), c.Seats)
	}
	return dist.Above(c.Threshold) + c.Tie*dist.Exactly(c.Threshold), nil
}

// OutcomeRule encodes which single-party results are undesirable
type OutcomeRule struct {
	BothBad    bool
	NeitherBad bool
}

// Good returns 1 - bothBad*P(both) - neitherBad*P(neither) for chamber
// success probabilities that are independent of each other. A single
// chamber counts as both chambers at once.
func (r OutcomeRule) Good(success []float64) float64 {
	both, neither := 1.0, 1.0
	for _, p := range success {
		both *= p
		neither *= 1 - p
	}
	good := 1.0
	if r.BothBad {
		good -= both
	}
	if r.NeitherBad {
		good -= neither
	}
	return good
}

// ChamberInput holds the contested races of one chamber
type ChamberInput struct {
	Setup   ChamberSetup
	Margins []float64
	Weights [][]float64
}

// Legislature is the full input of a joint chamber outcome computation
type Legislature struct {
	Chambers []ChamberInput
	Rule     OutcomeRule
}

// Outcome is the result of a joint chamber integration
type Outcome struct {
	Good          float64
	Success       []float64
	Distributions []SeatDistribution

	// nodeSuccess[c][n] is chamber c's success probability at quadrature node n
	nodeSuccess [][]float64
}

// Evaluator integrates chamber outcomes over shared shock draws
type Evaluator struct {
	*Integrator
}

// NewEvaluator wraps an integrator
func NewEvaluator(in *Integrator) *Evaluator {
	return &Evaluator{Integrator: in}
}

// Evaluate computes the good-outcome probability with both chambers
// sharing the same shock at every quadrature node
func (e *Evaluator) Evaluate(leg *Legislature) (*Outcome, error) {
	if err := e.checkLegislature(leg); err != nil {
		return nil, err
	}
	nodes := e.grid.Len()
	out := &Outcome{
		Success:       make([]float64, len(leg.Chambers)),
		Distributions: make([]SeatDistribution, len(leg.Chambers)),
		nodeSuccess:   make([][]float64, len(leg.Chambers)),
	}

	for c := range leg.Chambers {
		ch := &leg.Chambers[c]
		out.nodeSuccess[c] = make([]float64, nodes)
		if ch.Setup.Forced() {
			p, _ := ch.Setup.SuccessProbability(nil)
			for n := range out.nodeSuccess[c] {
				out.nodeSuccess[c][n] = p
			}
			out.Success[c] = p
			continue
		}
		success := out.nodeSuccess[c]
		marginal, err := e.integrate(ch.Margins, ch.Weights, func(n int, dist SeatDistribution) error {
			p, err := ch.Setup.SuccessProbability(dist)
			success[n] = p
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ch.Setup.Chamber, err)
		}
		p, err := ch.Setup.SuccessProbability(marginal)
		if err != nil {
			return nil, err
		}
		out.Success[c] = p
		out.Distributions[c] = marginal
	}

	out.Good = e.combine(leg.Rule, out.nodeSuccess)
	return out, nil
}

// EvaluatePerturbed recomputes the good-outcome probability with one race's
// margin shifted by delta. Only the perturbed chamber is re-integrated; the
// other chamber's per-node probabilities are taken from base.
func (e *Evaluator) EvaluatePerturbed(leg *Legislature, base *Outcome, chamber, race int, delta float64) (float64, error) {
	if chamber < 0 || chamber >= len(leg.Chambers) {
		return 0, fmt.Errorf("%w: chamber index %d out of range", models.ErrConfiguration, chamber)
	}
	ch := &leg.Chambers[chamber]
	if race < 0 || race >= len(ch.Margins) {
		return 0, fmt.Errorf("%w: race index %d out of range", models.ErrConfiguration, race)
	}
	if ch.Setup.Forced() {
		return base.Good, nil
	}

	margins := append([]float64(nil), ch.Margins...)
	margins[race] += delta

	nodes := e.grid.Len()
	perturbed := make([]float64, nodes)
	probs := make([]float64, len(margins))
	for n := 0; n < nodes; n++ {
		e.shiftedProbabilities(probs, margins, ch.Weights, n)
		p, err := ch.Setup.SuccessProbability(Convolve(probs))
		if err != nil {
			return 0, err
		}
		perturbed[n] = p
	}

	nodeSuccess := make([][]float64, len(base.nodeSuccess))
	copy(nodeSuccess, base.nodeSuccess)
	nodeSuccess[chamber] = perturbed
	return e.combine(leg.Rule, nodeSuccess), nil
}

func (e *Evaluator) combine(rule OutcomeRule, nodeSuccess [][]float64) float64 {
	success := make([]float64, len(nodeSuccess))
	good := 0.0
	for n := 0; n < e.grid.Len(); n++ {
		for c := range nodeSuccess {
			success[c] = nodeSuccess[c][n]
		}
		good += e.grid.Weight(n) * rule.Good(success)
	}
	return good
}

func (e *Evaluator) checkLegislature(leg *Legislature) error {
	if leg == nil || len(leg.Chambers) == 0 || len(leg.Chambers) > 2 {
		return fmt.Errorf("%w: a legislature needs one or two chambers", models.ErrConfiguration)
	}
	for _, ch := range leg.Chambers {
		if ch.Setup.Seats != len(ch.Margins) {
			return fmt.Errorf("%w: %s setup counts %d seats, %d races supplied",
				models.ErrConfiguration, ch.Setup.Chamber, ch.Setup.Seats, len(ch.Margins))
		}
		if ch.Setup.Forced() {
			continue
		}
		if err := e.CheckWeights(ch.Margins, ch.Weights); err != nil {
			return fmt.Errorf("%s: %w", ch.Setup.Chamber, err)
		}
	}
	return nil
}
