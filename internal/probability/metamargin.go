package probability

import "math"

const (
	metaMarginBound     = 2.0
	// relative to the race sigma; the t CDF is flat at 0.5 within about
	// 1e-8 standard units of zero, so a finer bracket cannot be resolved
	metaMarginRelTolerance = 1e-7
	metaMarginMaxSteps  = 200
)

// MetaMargin finds by bisection the uniform margin shift that would make
// the chamber a coin flip under independent race errors. Positive values
// mean the party is ahead. Decided chambers have no meta-margin.
func (m *WinModel) MetaMargin(setup ChamberSetup, margins []float64) (float64, bool) {
	if setup.Forced() || len(margins) != setup.Seats {
		return 0, false
	}
	shifted := make([]float64, len(margins))
	probs := make([]float64, len(margins))
	success := func(shift float64) float64 {
		for i, margin := range margins {
			shifted[i] = margin - shift
		}
		m.WinProbabilities(probs, shifted)
		p, err := setup.SuccessProbability(Convolve(probs))
		if err != nil {
			return math.NaN()
		}
		return p
	}

	tol := m.sigma * metaMarginRelTolerance
	lo, hi := -metaMarginBound, metaMarginBound
	if success(hi) >= 0.5 {
		return hi, true
	}
	if success(lo) < 0.5 {
		return lo, true
	}
	for step := 0; step < metaMarginMaxSteps && hi-lo > tol; step++ {
		mid := (lo + hi) / 2
		p := success(mid)
		if math.IsNaN(p) {
			return 0, false
		}
		if p < 0.5 {
			hi = mid
		} else {
			lo = mid
		}
	}
	return (lo + hi) / 2, true
}
