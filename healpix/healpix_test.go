package healpix

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNSideFromNPix(t *testing.T) {
	for _, n := range []int{1, 2, 16, 64} {
		got, err := NSideFromNPix(NPix(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
	// A quarter of the pixels is a valid map at half resolution.
	got, err := NSideFromNPix(NPix(64) / 4)
	require.NoError(t, err)
	assert.Equal(t, 32, got)

	for _, npix := range []int{0, -12, 13, 24, 12 * 3} {
		_, err := NSideFromNPix(npix)
		assert.Error(t, err, "npix %d", npix)
	}
}

func TestRings_Cover(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8} {
		rs := Rings(n)
		require.Len(t, rs, 4*n-1)
		next := 0
		for i, r := range rs {
			if r.Start != next {
				t.Fatalf("nside %d, ring %d: want start %d, got %d", n, i, next, r.Start)
			}
			next += r.Len
			if i > 0 && r.Z >= rs[i-1].Z {
				t.Errorf("nside %d, ring %d: z not decreasing", n, i)
			}
		}
		assert.Equal(t, NPix(n), next)
	}
}

func TestPix2Ang(t *testing.T) {
	const nside = 4
	theta, phi := Pix2Ang(nside, 0)
	assert.InDelta(t, math.Acos(1-1.0/(3*nside*nside)), theta, 1e-14)
	assert.InDelta(t, math.Pi/4, phi, 1e-14)
	// Pixels in the south cap mirror the north cap.
	thetaS, phiS := Pix2Ang(nside, NPix(nside)-4)
	assert.InDelta(t, math.Pi-theta, thetaS, 1e-14)
	assert.InDelta(t, phi, phiS, 1e-14)
}

func TestMapToAlm_Monopole(t *testing.T) {
	const (
		nside = 8
		lmax  = 3*nside - 1
		c     = 0.7
	)
	m := make([]float64, NPix(nside))
	for i := range m {
		m[i] = c
	}
	alm, err := MapToAlm(m, lmax)
	require.NoError(t, err)
	assert.InDelta(t, c*math.Sqrt(4*math.Pi), real(alm.At(0, 0)), 1e-12)
	assert.InDelta(t, 0, imag(alm.At(0, 0)), 1e-12)
	// Odd l vanish by north-south symmetry.
	for l := 1; l <= lmax; l += 2 {
		assert.InDelta(t, 0, cmplx.Abs(alm.At(l, 0)), 1e-12, "l=%d", l)
	}
	// m != 0 vanish by azimuthal symmetry of each ring.
	for l := 1; l <= lmax; l++ {
		for mm := 1; mm <= l && mm < 4; mm++ {
			assert.InDelta(t, 0, cmplx.Abs(alm.At(l, mm)), 1e-12, "l=%d m=%d", l, mm)
		}
	}

	cl := CrossSpectrum(alm, alm)
	assert.InDelta(t, 4*math.Pi*c*c, cl[0], 1e-11)
}

func TestMapToAlm_Dipole(t *testing.T) {
	const nside = 16
	m := make([]float64, NPix(nside))
	for i := range m {
		theta, _ := Pix2Ang(nside, i)
		m[i] = math.Cos(theta)
	}
	alm, err := MapToAlm(m, 4)
	require.NoError(t, err)
	want := math.Sqrt(4 * math.Pi / 3)
	assert.InEpsilon(t, want, real(alm.At(1, 0)), 1e-2)
	assert.InDelta(t, 0, real(alm.At(0, 0)), 1e-12)
}

func TestMapToAlm_Errors(t *testing.T) {
	_, err := MapToAlm(make([]float64, 10), 4)
	assert.Error(t, err)
	_, err = MapToAlm(make([]float64, 12), -1)
	assert.Error(t, err)
}
