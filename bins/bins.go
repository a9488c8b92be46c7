// Package bins defines bandpowers: groupings of multipoles (on the sphere) or
// wavenumbers (on a flat patch) into bands.
package bins

import (
	"fmt"

	"github.com/gfabbian/NaMaster/nmterr"
	"gonum.org/v1/gonum/floats"
)

// Bins groups integer multipoles l <= LMax into bands.
// Weights within a band sum to one.
type Bins struct {
	LMax    int
	Ells    [][]int
	Weights [][]float64
}

// NewLinear creates bands of nlb consecutive multipoles starting at l = 2,
// up to lmax = 3 nside - 1. An incomplete last band is dropped.
func NewLinear(nside, nlb int) (*Bins, error) {
	const op = "bins.NewLinear"
	if nside <= 0 || nlb <= 0 {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "nside %d, nlb %d", nside, nlb)
	}
	lmax := 3*nside - 1
	nbands := (lmax - 1) / nlb
	if nbands == 0 {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "no complete band of width %d below lmax %d", nlb, lmax)
	}
	lo := make([]int, nbands)
	hi := make([]int, nbands)
	for b := range lo {
		lo[b] = 2 + b*nlb
		hi[b] = lo[b] + nlb
	}
	return NewFromEdges(lo, hi, lmax)
}

// NewFromEdges creates bands l in [lo[b], hi[b]) with uniform weights.
func NewFromEdges(lo, hi []int, lmax int) (*Bins, error) {
	const op = "bins.NewFromEdges"
	if len(lo) != len(hi) {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "edge lengths differ: %d, %d", len(lo), len(hi))
	}
	if len(lo) == 0 {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "no bands")
	}
	ells := make([][]int, len(lo))
	weights := make([][]float64, len(lo))
	for b := range lo {
		if lo[b] < 0 || hi[b] <= lo[b] || hi[b]-1 > lmax {
			return nil, nmterr.New(op, nmterr.ErrInvalid, "band %d: [%d, %d) with lmax %d", b, lo[b], hi[b], lmax)
		}
		if b > 0 && lo[b] < hi[b-1] {
			return nil, nmterr.New(op, nmterr.ErrInvalid, "band %d overlaps band %d", b, b-1)
		}
		n := hi[b] - lo[b]
		ells[b] = make([]int, n)
		weights[b] = make([]float64, n)
		for i := range ells[b] {
			ells[b][i] = lo[b] + i
			weights[b][i] = 1 / float64(n)
		}
	}
	return &Bins{lmax, ells, weights}, nil
}

// NewFromBandIndex creates bins from per-multipole band indices.
// Multipoles with a negative band index are not used.
// Weights are normalized within each band.
func NewFromBandIndex(ells, bpws []int, weights []float64, lmax int) (*Bins, error) {
	const op = "bins.NewFromBandIndex"
	if len(ells) != len(bpws) || len(ells) != len(weights) {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "lengths differ: %d, %d, %d", len(ells), len(bpws), len(weights))
	}
	nbands := 0
	for i, b := range bpws {
		if ells[i] < 0 || ells[i] > lmax {
			return nil, nmterr.New(op, nmterr.ErrInvalid, "multipole %d out of range [0, %d]", ells[i], lmax)
		}
		nbands = max(nbands, b+1)
	}
	if nbands == 0 {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "no bands")
	}
	bs := &Bins{LMax: lmax, Ells: make([][]int, nbands), Weights: make([][]float64, nbands)}
	for i, b := range bpws {
		if b < 0 {
			continue
		}
		bs.Ells[b] = append(bs.Ells[b], ells[i])
		bs.Weights[b] = append(bs.Weights[b], weights[i])
	}
	for b := range bs.Ells {
		sum := floats.Sum(bs.Weights[b])
		if len(bs.Ells[b]) == 0 || sum == 0 {
			return nil, nmterr.New(op, nmterr.ErrInvalid, "band %d is empty", b)
		}
		floats.Scale(1/sum, bs.Weights[b])
	}
	return bs, nil
}

func (bs *Bins) NBands() int {
	return len(bs.Ells)
}

// EffectiveEll returns the weighted mean multipole of band b.
func (bs *Bins) EffectiveEll(b int) float64 {
	var l float64
	for i, ell := range bs.Ells[b] {
		l += bs.Weights[b][i] * float64(ell)
	}
	return l
}

// BinCell averages a spectrum with l = 0, ..., LMax into bands.
func (bs *Bins) BinCell(cl []float64) []float64 {
	if len(cl) != bs.LMax+1 {
		panic(fmt.Sprintf("bad spectrum length: want %d, got %d", bs.LMax+1, len(cl)))
	}
	cb := make([]float64, bs.NBands())
	for b := range cb {
		for i, l := range bs.Ells[b] {
			cb[b] += bs.Weights[b][i] * cl[l]
		}
	}
	return cb
}

// UnbinCell spreads bandpowers over their multipoles.
// Multipoles outside every band are zero.
func (bs *Bins) UnbinCell(cb []float64) []float64 {
	if len(cb) != bs.NBands() {
		panic(fmt.Sprintf("bad number of bands: want %d, got %d", bs.NBands(), len(cb)))
	}
	cl := make([]float64, bs.LMax+1)
	for b := range cb {
		for _, l := range bs.Ells[b] {
			cl[l] = cb[b]
		}
	}
	return cl
}

// Equal reports whether two binnings have the same bands and weights.
func (bs *Bins) Equal(other *Bins) bool {
	if bs.LMax != other.LMax || bs.NBands() != other.NBands() {
		return false
	}
	for b := range bs.Ells {
		if len(bs.Ells[b]) != len(other.Ells[b]) {
			return false
		}
		for i := range bs.Ells[b] {
			if bs.Ells[b][i] != other.Ells[b][i] || bs.Weights[b][i] != other.Weights[b][i] {
				return false
			}
		}
	}
	return true
}
