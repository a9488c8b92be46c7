// Package field defines masked maps on the sphere and on flat patches.
//
// A field has a mask and one (spin 0) or two (spin 2) map components on the
// same pixelization. Fields are immutable: constructors copy their inputs.
package field

import (
	"github.com/gfabbian/NaMaster/healpix"
	"github.com/gfabbian/NaMaster/nmterr"
	"gonum.org/v1/gonum/floats"
)

// Field is a masked map on a HEALPix RING pixelization.
type Field struct {
	NSide int
	Spin  int
	Mask  []float64
	// Maps has one component for spin 0 and two for spin 2.
	// It is empty for a mask-only field.
	Maps [][]float64
}

// New creates a field from a mask and its map components.
// The spin is 0 for one component and 2 for two.
func New(mask []float64, maps [][]float64) (*Field, error) {
	const op = "field.New"
	var spin int
	switch len(maps) {
	case 1:
		spin = 0
	case 2:
		spin = 2
	default:
		return nil, nmterr.New(op, nmterr.ErrShape, "need 1 or 2 maps, got %d", len(maps))
	}
	f, err := newField(op, mask, spin)
	if err != nil {
		return nil, err
	}
	for i, m := range maps {
		if len(m) != len(mask) {
			return nil, nmterr.New(op, nmterr.ErrResolution, "map %d has %d pixels, mask has %d", i, len(m), len(mask))
		}
		f.Maps = append(f.Maps, append([]float64(nil), m...))
	}
	return f, nil
}

// NewMaskOnly creates a field without maps.
// Such fields are enough to compute coupling coefficients.
func NewMaskOnly(mask []float64, spin int) (*Field, error) {
	return newField("field.NewMaskOnly", mask, spin)
}

func newField(op string, mask []float64, spin int) (*Field, error) {
	if spin != 0 && spin != 2 {
		return nil, nmterr.New(op, nmterr.ErrSpin, "spin %d", spin)
	}
	nside, err := healpix.NSideFromNPix(len(mask))
	if err != nil {
		return nil, nmterr.Wrap(op, nmterr.ErrResolution, err, "mask")
	}
	if err := checkMask(op, mask); err != nil {
		return nil, err
	}
	return &Field{NSide: nside, Spin: spin, Mask: append([]float64(nil), mask...)}, nil
}

func checkMask(op string, mask []float64) error {
	for i, w := range mask {
		if !(w >= 0 && w <= 1) {
			return nmterr.New(op, nmterr.ErrInvalid, "mask value %g at pixel %d not in [0, 1]", w, i)
		}
	}
	return nil
}

// LMax is the maximum multipole resolved by the pixelization.
func (f *Field) LMax() int {
	return 3*f.NSide - 1
}

// NComponents returns the number of map components implied by the spin.
func (f *Field) NComponents() int {
	if f.Spin == 0 {
		return 1
	}
	return 2
}

// SameGeometry reports whether two fields share a pixelization.
func (f *Field) SameGeometry(g *Field) bool {
	return f.NSide == g.NSide && len(f.Mask) == len(g.Mask)
}

// MaskCrossSpectrum returns the cross power spectrum of the masks of two
// fields up to lmax.
func MaskCrossSpectrum(f, g *Field, lmax int) ([]float64, error) {
	return healpix.AnafastCross(f.Mask, g.Mask, lmax)
}

// MaskProductSpectrum returns the cross power spectrum of the mask products
// w_a w_b and w_c w_d up to lmax.
func MaskProductSpectrum(a, b, c, d *Field, lmax int) ([]float64, error) {
	return healpix.AnafastCross(product(a.Mask, b.Mask), product(c.Mask, d.Mask), lmax)
}

func product(x, y []float64) []float64 {
	return floats.MulTo(make([]float64, len(x)), x, y)
}
