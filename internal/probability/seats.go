package probability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/voter-power/internal/models"
)

// DefaultMassTolerance bounds how far a distribution may drift from unit mass
const DefaultMassTolerance = 1e-9

// SeatDistribution is the probability of winning exactly k seats at index k
type SeatDistribution []float64

// Convolve computes the seat distribution of independent races as the
// coefficients of the product of (1-p) + p*x over all races
func Convolve(winProbs []float64) SeatDistribution {
	dist := make(SeatDistribution, 1, len(winProbs)+1)
	dist[0] = 1
	for _, p := range winProbs {
		dist = append(dist, 0)
		for k := len(dist) - 1; k > 0; k-- {
			dist[k] = dist[k]*(1-p) + dist[k-1]*p
		}
		dist[0] *= 1 - p
	}
	return dist
}

// Seats returns the number of races the distribution covers
func (d SeatDistribution) Seats() int {
	return len(d) - 1
}

// Mass returns the total probability
func (d SeatDistribution) Mass() float64 {
	return floats.Sum(d)
}

// Exactly returns P(seats == k)
func (d SeatDistribution) Exactly(k int) float64 {
	if k < 0 || k >= len(d) {
		return 0
	}
	return d[k]
}

// Above returns P(seats > k)
func (d SeatDistribution) Above(k int) float64 {
	if k < 0 {
		k = -1
	}
	if k+1 >= len(d) {
		return 0
	}
	return floats.Sum(d[k+1:])
}

// AtLeast returns P(seats >= k)
func (d SeatDistribution) AtLeast(k int) float64 {
	return d.Above(k - 1)
}

// Mean returns the expected number of seats
func (d SeatDistribution) Mean() float64 {
	mean := 0.0
	for k, p := range d {
		mean += float64(k) * p
	}
	return mean
}

// CheckMass returns ErrNumericInstability when the mass is not one within tol
func (d SeatDistribution) CheckMass(tol float64) error {
	mass := d.Mass()
	if math.IsNaN(mass) || math.Abs(mass-1) > tol {
		return fmt.Errorf("%w: seat distribution mass %.12f differs from 1 by more than %g",
			models.ErrNumericInstability, mass, tol)
	}
	return nil
}
