package bins

import (
	"sort"

	"github.com/gfabbian/NaMaster/nmterr"
	"gonum.org/v1/gonum/interp"
)

// FlatBins groups continuous wavenumbers into bands [Lo[b], Hi[b]).
type FlatBins struct {
	Lo, Hi []float64
}

// NewFlat creates flat-sky bins from increasing, non-overlapping edges.
func NewFlat(lo, hi []float64) (*FlatBins, error) {
	const op = "bins.NewFlat"
	if len(lo) != len(hi) {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "edge lengths differ: %d, %d", len(lo), len(hi))
	}
	if len(lo) == 0 {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "no bands")
	}
	for b := range lo {
		if !(hi[b] > lo[b]) || lo[b] < 0 {
			return nil, nmterr.New(op, nmterr.ErrInvalid, "band %d: [%g, %g)", b, lo[b], hi[b])
		}
		if b > 0 && lo[b] < hi[b-1] {
			return nil, nmterr.New(op, nmterr.ErrInvalid, "band %d overlaps band %d", b, b-1)
		}
	}
	return &FlatBins{
		Lo: append([]float64(nil), lo...),
		Hi: append([]float64(nil), hi...),
	}, nil
}

// NewFlatFromEdges creates contiguous bands between consecutive edges.
func NewFlatFromEdges(edges []float64) (*FlatBins, error) {
	if len(edges) < 2 {
		return nil, nmterr.New("bins.NewFlatFromEdges", nmterr.ErrInvalid, "need at least two edges, got %d", len(edges))
	}
	return NewFlat(edges[:len(edges)-1], edges[1:])
}

func (bs *FlatBins) NBands() int {
	return len(bs.Lo)
}

// Band returns the band containing wavenumber k, or -1.
func (bs *FlatBins) Band(k float64) int {
	// First band whose upper edge exceeds k.
	b := sort.Search(len(bs.Hi), func(i int) bool { return bs.Hi[i] > k })
	if b == len(bs.Hi) || k < bs.Lo[b] {
		return -1
	}
	return b
}

// Center returns the midpoint of band b.
func (bs *FlatBins) Center(b int) float64 {
	return (bs.Lo[b] + bs.Hi[b]) / 2
}

// Evaluate interpolates a sampled spectrum linearly at the band centers.
// The samples ell must be strictly increasing.
// Beyond the sampled range the nearest sample is used.
func (bs *FlatBins) Evaluate(ell, cl []float64) ([]float64, error) {
	const op = "bins.Evaluate"
	if len(ell) != len(cl) {
		return nil, nmterr.New(op, nmterr.ErrShape, "sample lengths differ: %d, %d", len(ell), len(cl))
	}
	if len(ell) < 2 {
		return nil, nmterr.New(op, nmterr.ErrShape, "need at least two samples, got %d", len(ell))
	}
	for i := 1; i < len(ell); i++ {
		// Fit panics on unsorted samples.
		if !(ell[i] > ell[i-1]) {
			return nil, nmterr.New(op, nmterr.ErrInvalid, "samples not strictly increasing: ell[%d] = %g, ell[%d] = %g", i-1, ell[i-1], i, ell[i])
		}
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(ell, cl); err != nil {
		return nil, nmterr.Wrap(op, nmterr.ErrInvalid, err, "fit")
	}
	cb := make([]float64, bs.NBands())
	for b := range cb {
		cb[b] = pl.Predict(bs.Center(b))
	}
	return cb, nil
}

// Equal reports whether two binnings have identical edges.
func (bs *FlatBins) Equal(other *FlatBins) bool {
	if bs.NBands() != other.NBands() {
		return false
	}
	for b := range bs.Lo {
		if bs.Lo[b] != other.Lo[b] || bs.Hi[b] != other.Hi[b] {
			return false
		}
	}
	return true
}
