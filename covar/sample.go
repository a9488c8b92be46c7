package covar

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Total is a summation over simulated bandpower vectors so far.
// It gives the sample covariance against which a Gaussian covariance is
// checked.
type Total struct {
	// Sum of the vectors.
	Sum []float64
	// Sum of their outer products.
	Outer *mat.SymDense
	// Number of vectors added.
	N int
}

// NewTotal returns an empty total for vectors of length n.
func NewTotal(n int) *Total {
	return &Total{Sum: make([]float64, n), Outer: mat.NewSymDense(n, nil)}
}

// Add adds one vector.
func (t *Total) Add(x []float64) {
	if len(x) != len(t.Sum) {
		panic(fmt.Sprintf("bad vector length: want %d, got %d", len(t.Sum), len(x)))
	}
	floats.Add(t.Sum, x)
	t.Outer.SymRankOne(t.Outer, 1, mat.NewVecDense(len(x), x))
	t.N++
}

// AddTotal combines two totals.
// Neither operand can be nil.
func AddTotal(lhs, rhs *Total) *Total {
	if len(lhs.Sum) != len(rhs.Sum) {
		panic(fmt.Sprintf("lengths differ: %d, %d", len(lhs.Sum), len(rhs.Sum)))
	}
	sum := floats.AddTo(make([]float64, len(lhs.Sum)), lhs.Sum, rhs.Sum)
	outer := mat.NewSymDense(len(sum), nil)
	outer.AddSym(lhs.Outer, rhs.Outer)
	return &Total{sum, outer, lhs.N + rhs.N}
}

// Distr is the sample mean and covariance of a set of vectors.
type Distr struct {
	Mean  []float64
	Covar *mat.SymDense
}

// Normalize turns the sums into the sample mean and the unbiased sample
// covariance. It needs at least two vectors.
func Normalize(t *Total) (*Distr, error) {
	if t.N < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", t.N)
	}
	n := float64(t.N)
	mean := make([]float64, len(t.Sum))
	floats.ScaleTo(mean, 1/n, t.Sum)
	// (sum x x^T - n m m^T) / (n - 1)
	cov := mat.NewSymDense(len(mean), nil)
	cov.SymRankOne(t.Outer, -n, mat.NewVecDense(len(mean), mean))
	cov.ScaleSym(1/(n-1), cov)
	return &Distr{mean, cov}, nil
}
