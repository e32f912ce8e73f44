// Package probability turns race margins into seat distributions and chamber
// outcome probabilities under independent and correlated Student-t errors.
package probability

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/voter-power/internal/models"
)

const (
	// DefaultTableSize samples the standardized domain finely enough that
	// interpolation error stays far below realistic race sigmas
	DefaultTableSize = 10_000_000
	// DefaultTableDomain is the half-width of the standardized table domain
	DefaultTableDomain = 50.0
	// MaxTableSize caps table memory at roughly 400MB
	MaxTableSize = 50_000_000
)

// CDFTable is a precomputed Student-t CDF sampled on [-domain, domain].
// It is read-only after construction and safe for concurrent use.
type CDFTable struct {
	dof    float64
	domain float64
	step   float64
	values []float64
	dist   distuv.StudentsT
}

// NewCDFTable samples the standardized t CDF at size equally spaced points
func NewCDFTable(ctx context.Context, dof float64, size int, domain float64) (*CDFTable, error) {
	if dof <= 0 || math.IsNaN(dof) {
		return nil, fmt.Errorf("%w: table degrees of freedom must be positive", models.ErrConfiguration)
	}
	if size < 2 || size > MaxTableSize {
		return nil, fmt.Errorf("%w: table size %d outside [2, %d]", models.ErrConfiguration, size, MaxTableSize)
	}
	if domain <= 0 || math.IsNaN(domain) || math.IsInf(domain, 0) {
		return nil, fmt.Errorf("%w: table domain must be positive and finite", models.ErrConfiguration)
	}

	t := &CDFTable{
		dof:    dof,
		domain: domain,
		step:   2 * domain / float64(size-1),
		values: make([]float64, size),
		dist:   distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof},
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (size + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < size; start += chunk {
		lo, hi := start, min(start+chunk, size)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%65536 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				t.values[i] = t.dist.CDF(-domain + float64(i)*t.step)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build cdf table: %w", err)
	}
	return t, nil
}

// DegreesOfFreedom returns the shape the table was sampled for
func (t *CDFTable) DegreesOfFreedom() float64 {
	return t.dof
}

// Size returns the number of samples
func (t *CDFTable) Size() int {
	return len(t.values)
}

// CDF interpolates the table; points outside the domain are evaluated directly
func (t *CDFTable) CDF(x float64) float64 {
	ix := (x + t.domain) / t.step
	if !(ix >= 0) || ix >= float64(len(t.values)-1) {
		return t.dist.CDF(x)
	}
	floor := int(ix)
	frac := ix - float64(floor)
	return (1-frac)*t.values[floor] + frac*t.values[floor+1]
}

// WinModel converts an expected margin into a win probability
type WinModel struct {
	sigma float64
	dof   float64
	dist  distuv.StudentsT
	table *CDFTable
}

// NewWinModel creates a win model; a nil table selects direct CDF evaluation
func NewWinModel(sigma, dof float64, table *CDFTable) (*WinModel, error) {
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("%w: race sigma must be positive", models.ErrConfiguration)
	}
	if dof <= 0 || math.IsNaN(dof) {
		return nil, fmt.Errorf("%w: race degrees of freedom must be positive", models.ErrConfiguration)
	}
	if table != nil && table.dof != dof {
		return nil, fmt.Errorf("%w: cdf table built for %v degrees of freedom, model uses %v",
			models.ErrConfiguration, table.dof, dof)
	}
	return &WinModel{
		sigma: sigma,
		dof:   dof,
		dist:  distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof},
		table: table,
	}, nil
}

// Sigma returns the race-level error scale
func (m *WinModel) Sigma() float64 {
	return m.sigma
}

// DegreesOfFreedom returns the race-level error shape
func (m *WinModel) DegreesOfFreedom() float64 {
	return m.dof
}

// Tabulated reports whether lookups go through a precomputed table
func (m *WinModel) Tabulated() bool {
	return m.table != nil
}

// WinProbability returns P(win) for an expected margin
func (m *WinModel) WinProbability(margin float64) float64 {
	x := margin / m.sigma
	if m.table != nil {
		return m.table.CDF(x)
	}
	return m.dist.CDF(x)
}

// WinProbabilities maps margins to win probabilities into dst, which must
// have the same length as margins
func (m *WinModel) WinProbabilities(dst, margins []float64) {
	for i, margin := range margins {
		dst[i] = m.WinProbability(margin)
	}
}

// WinProbability evaluates the Student-t CDF directly
func WinProbability(margin, sigma, dof float64) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}.CDF(margin / sigma)
}
