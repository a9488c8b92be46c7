package field

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/gfabbian/NaMaster/healpix"
	"github.com/gfabbian/NaMaster/nmterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ones(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 1
	}
	return x
}

func ones2(ny, nx int) [][]float64 {
	x := make([][]float64, ny)
	for i := range x {
		x[i] = ones(nx)
	}
	return x
}

func TestNew(t *testing.T) {
	const nside = 4
	npix := healpix.NPix(nside)
	mask := ones(npix)
	f0, err := New(mask, [][]float64{make([]float64, npix)})
	require.NoError(t, err)
	assert.Equal(t, 0, f0.Spin)
	assert.Equal(t, nside, f0.NSide)
	assert.Equal(t, 11, f0.LMax())
	assert.Equal(t, 1, f0.NComponents())

	f2, err := New(mask, [][]float64{make([]float64, npix), make([]float64, npix)})
	require.NoError(t, err)
	assert.Equal(t, 2, f2.Spin)
	assert.Equal(t, 2, f2.NComponents())
	assert.True(t, f0.SameGeometry(f2))

	// Inputs are copied.
	mask[0] = 0.5
	assert.Equal(t, 1.0, f0.Mask[0])

	// A quarter of the pixels is the half-resolution map.
	half, err := New(mask[:npix/4], [][]float64{make([]float64, npix/4)})
	require.NoError(t, err)
	assert.Equal(t, nside/2, half.NSide)
	assert.False(t, f0.SameGeometry(half))
}

func TestNew_Errors(t *testing.T) {
	npix := healpix.NPix(2)
	_, err := New(ones(npix), nil)
	assert.ErrorIs(t, err, nmterr.ErrShape)
	_, err = New(ones(npix), make([][]float64, 3))
	assert.ErrorIs(t, err, nmterr.ErrShape)
	_, err = New(ones(npix), [][]float64{make([]float64, npix-1)})
	assert.ErrorIs(t, err, nmterr.ErrResolution)
	_, err = New(ones(npix-1), [][]float64{make([]float64, npix-1)})
	assert.ErrorIs(t, err, nmterr.ErrResolution)
	bad := ones(npix)
	bad[3] = 1.5
	_, err = New(bad, [][]float64{make([]float64, npix)})
	assert.ErrorIs(t, err, nmterr.ErrInvalid)
	_, err = NewMaskOnly(ones(npix), 1)
	assert.ErrorIs(t, err, nmterr.ErrSpin)
}

func TestMaskProductSpectrum(t *testing.T) {
	const nside = 4
	f, err := NewMaskOnly(ones(healpix.NPix(nside)), 0)
	require.NoError(t, err)
	wl, err := MaskProductSpectrum(f, f, f, f, f.LMax())
	require.NoError(t, err)
	require.Len(t, wl, f.LMax()+1)
	assert.InDelta(t, 4*math.Pi, wl[0], 1e-11)
	wl2, err := MaskCrossSpectrum(f, f, f.LMax())
	require.NoError(t, err)
	assert.InDeltaSlice(t, wl, wl2, 1e-12)
}

func TestNewFlat(t *testing.T) {
	const nx, ny = 8, 6
	lx, ly := 0.1, 0.075
	f, err := NewFlat(lx, ly, ones2(ny, nx), [][][]float64{ones2(ny, nx), ones2(ny, nx)})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Spin)
	assert.Equal(t, nx, f.NX)
	assert.Equal(t, ny, f.NY)

	g, err := NewFlatMaskOnly(lx, ly, ones2(ny, nx), 0)
	require.NoError(t, err)
	assert.True(t, f.SameGeometry(g))

	// Same grid, different extent.
	h, err := NewFlatMaskOnly(lx/2, ly, ones2(ny, nx), 0)
	require.NoError(t, err)
	assert.False(t, f.SameGeometry(h))

	// Cropped mask.
	q, err := NewFlat(lx, ly, ones2(ny/2, nx/2), [][][]float64{ones2(ny/2, nx/2)})
	require.NoError(t, err)
	assert.False(t, f.SameGeometry(q))

	_, err = NewFlat(lx, ly, ones2(ny, nx), [][][]float64{ones2(ny, nx-1)})
	assert.ErrorIs(t, err, nmterr.ErrResolution)
	_, err = NewFlat(0, ly, ones2(ny, nx), [][][]float64{ones2(ny, nx)})
	assert.ErrorIs(t, err, nmterr.ErrInvalid)
	ragged := ones2(ny, nx)
	ragged[2] = ragged[2][:3]
	_, err = NewFlatMaskOnly(lx, ly, ragged, 0)
	assert.ErrorIs(t, err, nmterr.ErrShape)
}

func TestFourier2(t *testing.T) {
	const nx, ny = 6, 5
	w := Fourier2(ones2(ny, nx))
	for i := range w {
		for j := range w[i] {
			want := 0.0
			if i == 0 && j == 0 {
				want = 1
			}
			assert.InDelta(t, want, cmplx.Abs(w[i][j]), 1e-14)
		}
	}

	// Compare with the direct sum.
	x := make([][]float64, ny)
	for i := range x {
		x[i] = make([]float64, nx)
		for j := range x[i] {
			x[i][j] = rand.Float64()
		}
	}
	got := Fourier2(x)
	for u := 0; u < ny; u++ {
		for v := 0; v < nx; v++ {
			var want complex128
			for i := 0; i < ny; i++ {
				for j := 0; j < nx; j++ {
					arg := -2 * math.Pi * (float64(u*i)/ny + float64(v*j)/nx)
					want += complex(x[i][j], 0) * cmplx.Exp(complex(0, arg))
				}
			}
			want /= nx * ny
			assert.InDelta(t, 0, cmplx.Abs(want-got[u][v]), 1e-12, "(%d, %d)", u, v)
		}
	}
}
