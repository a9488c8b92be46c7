package field

import (
	"github.com/gfabbian/NaMaster/nmterr"
	"gonum.org/v1/gonum/floats"
)

// Flat is a masked map on a rectangular patch.
// Images are stored row-major: Mask[y][x] with NY rows of NX pixels.
type Flat struct {
	NX, NY int
	// Angular side lengths in radians.
	LX, LY float64
	Spin   int
	Mask   [][]float64
	Maps   [][][]float64
}

// NewFlat creates a flat field from a mask and its map components.
// The spin is 0 for one component and 2 for two.
func NewFlat(lx, ly float64, mask [][]float64, maps [][][]float64) (*Flat, error) {
	const op = "field.NewFlat"
	var spin int
	switch len(maps) {
	case 1:
		spin = 0
	case 2:
		spin = 2
	default:
		return nil, nmterr.New(op, nmterr.ErrShape, "need 1 or 2 maps, got %d", len(maps))
	}
	f, err := newFlat(op, lx, ly, mask, spin)
	if err != nil {
		return nil, err
	}
	for i, m := range maps {
		if len(m) != f.NY || !rectangular(m, f.NX) {
			return nil, nmterr.New(op, nmterr.ErrResolution, "map %d does not match the %dx%d mask", i, f.NY, f.NX)
		}
		f.Maps = append(f.Maps, clone2(m))
	}
	return f, nil
}

// NewFlatMaskOnly creates a flat field without maps.
func NewFlatMaskOnly(lx, ly float64, mask [][]float64, spin int) (*Flat, error) {
	return newFlat("field.NewFlatMaskOnly", lx, ly, mask, spin)
}

func newFlat(op string, lx, ly float64, mask [][]float64, spin int) (*Flat, error) {
	if spin != 0 && spin != 2 {
		return nil, nmterr.New(op, nmterr.ErrSpin, "spin %d", spin)
	}
	if !(lx > 0 && ly > 0) {
		return nil, nmterr.New(op, nmterr.ErrInvalid, "patch size %g x %g", lx, ly)
	}
	if len(mask) == 0 || len(mask[0]) == 0 {
		return nil, nmterr.New(op, nmterr.ErrShape, "empty mask")
	}
	nx := len(mask[0])
	if !rectangular(mask, nx) {
		return nil, nmterr.New(op, nmterr.ErrShape, "ragged mask")
	}
	for _, row := range mask {
		if err := checkMask(op, row); err != nil {
			return nil, err
		}
	}
	return &Flat{NX: nx, NY: len(mask), LX: lx, LY: ly, Spin: spin, Mask: clone2(mask)}, nil
}

func rectangular(x [][]float64, nx int) bool {
	for _, row := range x {
		if len(row) != nx {
			return false
		}
	}
	return true
}

func clone2(x [][]float64) [][]float64 {
	y := make([][]float64, len(x))
	for i := range x {
		y[i] = append([]float64(nil), x[i]...)
	}
	return y
}

func (f *Flat) NComponents() int {
	if f.Spin == 0 {
		return 1
	}
	return 2
}

// SameGeometry reports whether two flat fields share grid dimensions and
// angular extent.
func (f *Flat) SameGeometry(g *Flat) bool {
	return f.NX == g.NX && f.NY == g.NY && f.LX == g.LX && f.LY == g.LY
}

// MaskFourier returns the DFT of the mask normalized by the number of pixels.
func (f *Flat) MaskFourier() [][]complex128 {
	return Fourier2(f.Mask)
}

// MaskProductFourier returns the normalized DFT of w_a w_b.
func MaskProductFourier(a, b *Flat) [][]complex128 {
	w := make([][]float64, a.NY)
	for i := range w {
		w[i] = floats.MulTo(make([]float64, a.NX), a.Mask[i], b.Mask[i])
	}
	return Fourier2(w)
}
