package probability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/voter-power/internal/models"
)

// MaxGridNodes bounds the Cartesian product of per-source nodes
const MaxGridNodes = 1 << 20

// Node is a quadrature point of one error source
type Node struct {
	Shock  float64
	Weight float64
}

// ChebyshevNodes places nodes at Chebyshev-spaced percentiles of the
// source's t distribution, weighted by the density at each node
func ChebyshevNodes(src models.ErrorSource) []Node {
	dist := distuv.StudentsT{Mu: 0, Sigma: src.Sigma, Nu: src.DegreesOfFreedom}
	n := src.Nodes
	nodes := make([]Node, n)
	for i := 1; i <= n; i++ {
		u := (1 + math.Cos(float64(2*i-1)*math.Pi/float64(2*n))) / 2
		shock := dist.Quantile(u)
		nodes[i-1] = Node{Shock: shock, Weight: dist.Prob(shock)}
	}
	return nodes
}

// Grid is the Cartesian product of the nodes of every error source
type Grid struct {
	sources []models.ErrorSource
	shocks  [][]float64
	weights []float64
	total   float64
}

// NewGrid enumerates every joint shock combination with its product weight
func NewGrid(sources []models.ErrorSource) (*Grid, error) {
	if err := models.ValidateSources(sources); err != nil {
		return nil, err
	}
	size := 1
	for _, src := range sources {
		if size > MaxGridNodes/src.Nodes {
			return nil, fmt.Errorf("%w: quadrature grid exceeds %d joint nodes", models.ErrConfiguration, MaxGridNodes)
		}
		size *= src.Nodes
	}

	shocks := [][]float64{{}}
	weights := []float64{1}
	for _, src := range sources {
		nodes := ChebyshevNodes(src)
		nextShocks := make([][]float64, 0, len(shocks)*len(nodes))
		nextWeights := make([]float64, 0, len(shocks)*len(nodes))
		for i, prefix := range shocks {
			for _, node := range nodes {
				combo := make([]float64, len(prefix)+1)
				copy(combo, prefix)
				combo[len(prefix)] = node.Shock
				nextShocks = append(nextShocks, combo)
				nextWeights = append(nextWeights, weights[i]*node.Weight)
			}
		}
		shocks, weights = nextShocks, nextWeights
	}

	total := floats.Sum(weights)
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: quadrature weights sum to %v; adjust node counts %v",
			models.ErrNumericInstability, total, nodeCounts(sources))
	}

	return &Grid{
		sources: append([]models.ErrorSource(nil), sources...),
		shocks:  shocks,
		weights: weights,
		total:   total,
	}, nil
}

// Len returns the number of joint nodes
func (g *Grid) Len() int {
	return len(g.weights)
}

// Dimensions returns the number of error sources
func (g *Grid) Dimensions() int {
	return len(g.sources)
}

// Shock returns the joint shock vector of node i
func (g *Grid) Shock(i int) []float64 {
	return g.shocks[i]
}

// Weight returns the normalized weight of node i
func (g *Grid) Weight(i int) float64 {
	return g.weights[i] / g.total
}

// Sources returns the error sources the grid was built from
func (g *Grid) Sources() []models.ErrorSource {
	return g.sources
}

func nodeCounts(sources []models.ErrorSource) map[string]int {
	counts := make(map[string]int, len(sources))
	for _, src := range sources {
		counts[src.Name] = src.Nodes
	}
	return counts
}

// Integrator marginalizes independent-race computations over correlated shocks
type Integrator struct {
	model *WinModel
	grid  *Grid
	tol   float64
}

// NewIntegrator builds the quadrature grid for the given sources
func NewIntegrator(model *WinModel, sources []models.ErrorSource, tol float64) (*Integrator, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: win model is required", models.ErrConfiguration)
	}
	grid, err := NewGrid(sources)
	if err != nil {
		return nil, err
	}
	if tol <= 0 {
		tol = DefaultMassTolerance
	}
	return &Integrator{model: model, grid: grid, tol: tol}, nil
}

// Grid returns the quadrature grid
func (in *Integrator) Grid() *Grid {
	return in.grid
}

// Model returns the race-level win model
func (in *Integrator) Model() *WinModel {
	return in.model
}

// Tolerance returns the mass tolerance
func (in *Integrator) Tolerance() float64 {
	return in.tol
}

// CheckWeights verifies every race carries one weight per error source
func (in *Integrator) CheckWeights(margins []float64, weights [][]float64) error {
	if len(weights) != len(margins) {
		return fmt.Errorf("%w: %d margins but %d weight vectors", models.ErrConfiguration, len(margins), len(weights))
	}
	dims := in.grid.Dimensions()
	for i, w := range weights {
		if len(w) != dims {
			return fmt.Errorf("%w: race %d has %d error weights, %d sources configured",
				models.ErrConfiguration, i, len(w), dims)
		}
	}
	return nil
}

// shiftedProbabilities writes the win probability of each race under the
// shock of node into probs
func (in *Integrator) shiftedProbabilities(probs, margins []float64, weights [][]float64, node int) {
	shock := in.grid.Shock(node)
	for r, margin := range margins {
		probs[r] = in.model.WinProbability(margin + floats.Dot(weights[r], shock))
	}
}

// integrate accumulates the marginal seat distribution of the races over
// every quadrature node. visit, if set, sees each node's conditional
// distribution before it is accumulated.
func (in *Integrator) integrate(margins []float64, weights [][]float64, visit func(node int, dist SeatDistribution) error) (SeatDistribution, error) {
	probs := make([]float64, len(margins))
	result := make(SeatDistribution, len(margins)+1)
	for node := 0; node < in.grid.Len(); node++ {
		in.shiftedProbabilities(probs, margins, weights, node)
		dist := Convolve(probs)
		if visit != nil {
			if err := visit(node, dist); err != nil {
				return nil, err
			}
		}
		floats.AddScaled(result, in.grid.Weight(node), dist)
	}
	if err := result.CheckMass(in.tol); err != nil {
		return nil, fmt.Errorf("%w (node counts %v)", err, nodeCounts(in.grid.sources))
	}
	return result, nil
}

// SeatDistribution returns the seat distribution of the races marginalized
// over the joint shock distribution
func (in *Integrator) SeatDistribution(margins []float64, weights [][]float64) (SeatDistribution, error) {
	if err := in.CheckWeights(margins, weights); err != nil {
		return nil, err
	}
	return in.integrate(margins, weights, nil)
}
