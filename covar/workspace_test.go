package covar

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/gfabbian/NaMaster/bins"
	"github.com/gfabbian/NaMaster/field"
	"github.com/gfabbian/NaMaster/healpix"
	"github.com/gfabbian/NaMaster/internal/coupling"
	"github.com/gfabbian/NaMaster/mcm"
	"github.com/gfabbian/NaMaster/nmterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const (
	nside = 8
	nlb   = 4
)

func smoothMask(nside int) []float64 {
	m := make([]float64, healpix.NPix(nside))
	for i := range m {
		theta, _ := healpix.Pix2Ang(nside, i)
		c := math.Cos(theta)
		m[i] = 0.3 + 0.7*c*c
	}
	return m
}

func theory(n int) []float64 {
	cl := make([]float64, n)
	for l := range cl {
		cl[l] = 1 / float64(l+10)
	}
	return cl
}

type sphereFixture struct {
	b      *bins.Bins
	f0, f2 *field.Field
	f0Half *field.Field
	w      *mcm.Workspace
	cl     []float64
}

func newSphereFixture(t *testing.T) *sphereFixture {
	t.Helper()
	var fx sphereFixture
	var err error
	fx.b, err = bins.NewLinear(nside, nlb)
	require.NoError(t, err)
	mask := smoothMask(nside)
	fx.f0, err = field.NewMaskOnly(mask, 0)
	require.NoError(t, err)
	fx.f2, err = field.NewMaskOnly(mask, 2)
	require.NoError(t, err)
	// A quarter of the pixels reads as a map at half the resolution.
	fx.f0Half, err = field.NewMaskOnly(mask[:len(mask)/4], 0)
	require.NoError(t, err)
	fx.w = new(mcm.Workspace)
	require.NoError(t, fx.w.Compute(fx.f0, fx.f0, fx.b))
	fx.cl = theory(3 * nside)
	return &fx
}

func TestWorkspace_Lifecycle(t *testing.T) {
	fx := newSphereFixture(t)
	dir := t.TempDir()

	var cw Workspace
	err := cw.WriteTo(filepath.Join(dir, "wsp.dat"))
	assert.ErrorIs(t, err, nmterr.ErrNotInitialized)
	assert.Equal(t, nmterr.Validation, nmterr.ClassOf(err))

	require.NoError(t, cw.Compute(fx.f0, fx.f0, fx.b))
	assert.Equal(t, fx.w.LMax(), cw.LMax())
	assert.Equal(t, fx.w.NBands(), cw.NBands())
	assert.Equal(t, SpinCombination{}, cw.Spins())

	err = cw.WriteTo(filepath.Join(dir, "tests", "wsp.dat"))
	assert.ErrorIs(t, err, nmterr.ErrWrite)
	assert.Equal(t, nmterr.Runtime, nmterr.ClassOf(err))

	fname := filepath.Join(dir, "cw00.dat")
	require.NoError(t, cw.WriteTo(fname))
	var r Workspace
	require.NoError(t, r.ReadFrom(fname))
	assert.Equal(t, cw.LMax(), r.LMax())
	assert.Equal(t, cw.NBands(), r.NBands())
	for f, k := range cw.s.First {
		assert.True(t, mat.Equal(k, r.s.First[f]), "first %v", f)
	}
	for f, k := range cw.s.Second {
		assert.True(t, mat.Equal(k, r.s.Second[f]), "second %v", f)
	}

	// Reading replaces a ready workspace and fails on a fresh one alike.
	err = r.ReadFrom(filepath.Join(dir, "none"))
	assert.ErrorIs(t, err, nmterr.ErrRead)
	assert.Equal(t, nmterr.Runtime, nmterr.ClassOf(err))
	assert.True(t, r.Ready())
	var fresh Workspace
	assert.ErrorIs(t, fresh.ReadFrom(filepath.Join(dir, "none")), nmterr.ErrRead)
	assert.False(t, fresh.Ready())

	// A mode-coupling workspace file is not a covariance workspace.
	mname := filepath.Join(dir, "w00.dat")
	require.NoError(t, fx.w.WriteTo(mname))
	assert.ErrorIs(t, fresh.ReadFrom(mname), nmterr.ErrRead)
}

func TestWorkspace_ComputeErrors(t *testing.T) {
	fx := newSphereFixture(t)
	var cw Workspace
	err := cw.Compute(fx.f0, fx.f0Half, fx.b)
	assert.ErrorIs(t, err, nmterr.ErrResolution)
	assert.Equal(t, nmterr.Validation, nmterr.ClassOf(err))
	err = cw.Compute(fx.f0, fx.f0, fx.b, WithSecondPair(fx.f0, fx.f0Half, fx.b))
	assert.ErrorIs(t, err, nmterr.ErrResolution)

	wide, err := bins.NewLinear(nside, 2*nlb)
	require.NoError(t, err)
	err = cw.Compute(fx.f0, fx.f0, fx.b, WithSecondPair(fx.f0, fx.f0, wide))
	assert.ErrorIs(t, err, nmterr.ErrBinning)
	half, err := bins.NewLinear(nside/2, nlb)
	require.NoError(t, err)
	assert.ErrorIs(t, cw.Compute(fx.f0, fx.f0, half), nmterr.ErrBinning)
	assert.False(t, cw.Ready())

	// Same band count, different edges: the binnings reconcile.
	lo, hi := make([]int, fx.b.NBands()), make([]int, fx.b.NBands())
	for i := range lo {
		lo[i], hi[i] = 2+i*nlb, 4+i*nlb
	}
	narrow, err := bins.NewFromEdges(lo, hi, fx.b.LMax)
	require.NoError(t, err)
	require.NoError(t, cw.Compute(fx.f0, fx.f0, fx.b, WithSecondPair(fx.f2, fx.f0, narrow)))
	assert.Equal(t, SpinCombination{0, 0, 2, 0}, cw.Spins())
	_, b := cw.Bins()
	assert.True(t, b.Equal(narrow))
}

func TestGaussianCovariance_Errors(t *testing.T) {
	fx := newSphereFixture(t)
	cl := [][]float64{fx.cl}
	var spins SpinCombination

	var cw Workspace
	_, err := GaussianCovariance(&cw, spins, cl, cl, cl, cl, fx.w, nil)
	assert.ErrorIs(t, err, nmterr.ErrNotInitialized)
	require.NoError(t, cw.Compute(fx.f0, fx.f0, fx.b))

	// Wrong input power spectrum size.
	_, err = GaussianCovariance(&cw, spins, cl, cl, cl, [][]float64{fx.cl[:15]}, fx.w, nil)
	assert.ErrorIs(t, err, nmterr.ErrShape)
	assert.Equal(t, nmterr.Validation, nmterr.ClassOf(err))
	// Wrong input power spectrum shapes.
	_, err = GaussianCovariance(&cw, spins, cl, cl, cl, [][]float64{fx.cl, fx.cl}, fx.w, nil)
	assert.ErrorIs(t, err, nmterr.ErrShape)
	// Wrong input spins.
	_, err = GaussianCovariance(&cw, SpinCombination{0, 2, 0, 0}, cl, cl, cl, [][]float64{fx.cl, fx.cl}, fx.w, nil)
	assert.ErrorIs(t, err, nmterr.ErrSpin)
	_, err = GaussianCovariance(&cw, SpinCombination{1, 0, 0, 0}, cl, cl, cl, cl, fx.w, nil)
	assert.ErrorIs(t, err, nmterr.ErrSpin)

	// The decoupling workspace must match the spins and binning.
	var w2 mcm.Workspace
	require.NoError(t, w2.Compute(fx.f2, fx.f2, fx.b))
	_, err = GaussianCovariance(&cw, spins, cl, cl, cl, cl, &w2, nil)
	assert.ErrorIs(t, err, nmterr.ErrSpin)
	wide, err := bins.NewLinear(nside, 2*nlb)
	require.NoError(t, err)
	var ww mcm.Workspace
	require.NoError(t, ww.Compute(fx.f0, fx.f0, wide))
	_, err = GaussianCovariance(&cw, spins, cl, cl, cl, cl, fx.w, &ww)
	assert.ErrorIs(t, err, nmterr.ErrBinning)
	_, err = GaussianCovariance(&cw, spins, cl, cl, cl, cl, new(mcm.Workspace), nil)
	assert.ErrorIs(t, err, nmterr.ErrNotInitialized)
}

func TestGaussianCovariance_Spin0(t *testing.T) {
	fx := newSphereFixture(t)
	var cw Workspace
	require.NoError(t, cw.Compute(fx.f0, fx.f0, fx.b))
	cl := [][]float64{fx.cl}
	var spins SpinCombination

	cov, err := GaussianCovariance(&cw, spins, cl, cl, cl, cl, fx.w, nil)
	require.NoError(t, err)
	nb := fx.b.NBands()
	r, c := cov.Dims()
	require.Equal(t, nb, r)
	require.Equal(t, nb, c)
	for i := 0; i < nb; i++ {
		assert.Greater(t, cov.At(i, i), 0.0)
		for j := 0; j < nb; j++ {
			assert.InDelta(t, cov.At(i, j), cov.At(j, i), 1e-12*math.Abs(cov.At(i, i)))
		}
	}

	// Quadratic in the theory spectra.
	scaled := [][]float64{make([]float64, len(fx.cl))}
	for l, v := range fx.cl {
		scaled[0][l] = 3 * v
	}
	cov3, err := GaussianCovariance(&cw, spins, scaled, scaled, scaled, scaled, fx.w, fx.w)
	require.NoError(t, err)
	var want mat.Dense
	want.Scale(9, cov)
	assert.True(t, mat.EqualApprox(&want, cov3, 1e-12*mat.Norm(cov3, math.Inf(1))))

	// A reloaded workspace reproduces the covariance.
	fname := filepath.Join(t.TempDir(), "cw.dat")
	require.NoError(t, cw.WriteTo(fname))
	var r2 Workspace
	require.NoError(t, r2.ReadFrom(fname))
	cov2, err := GaussianCovariance(&r2, spins, cl, cl, cl, cl, fx.w, nil)
	require.NoError(t, err)
	assert.True(t, mat.Equal(cov, cov2))
}

func TestGaussianCovariance_Spin2(t *testing.T) {
	fx := newSphereFixture(t)
	var cw Workspace
	require.NoError(t, cw.Compute(fx.f0, fx.f2, fx.b))
	spins := SpinCombination{0, 2, 0, 2}
	n1, n2, n3, n4 := spins.NComponents()
	assert.Equal(t, [4]int{1, 2, 2, 4}, [4]int{n1, n2, n3, n4})

	zero := make([]float64, len(fx.cl))
	tt := [][]float64{fx.cl}
	te := [][]float64{fx.cl, zero}
	ee := [][]float64{fx.cl, zero, zero, fx.cl}
	var w mcm.Workspace
	require.NoError(t, w.Compute(fx.f0, fx.f2, fx.b))
	cov, err := GaussianCovariance(&cw, spins, tt, te, te, ee, &w, nil)
	require.NoError(t, err)
	r, c := cov.Dims()
	assert.Equal(t, 2*fx.b.NBands(), r)
	assert.Equal(t, 2*fx.b.NBands(), c)
	for i := 0; i < r; i++ {
		assert.Greater(t, cov.At(i, i), 0.0)
	}

	// Spins must match the fields of the workspace.
	_, err = GaussianCovariance(&cw, SpinCombination{0, 0, 0, 0}, tt, tt, tt, tt, fx.w, nil)
	assert.ErrorIs(t, err, nmterr.ErrSpin)
}

func TestCoupled_FullSky(t *testing.T) {
	const lmax = 16
	wl := make([]float64, lmax+1)
	wl[0] = 4 * math.Pi
	all := []coupling.Family{coupling.Family00, coupling.Family02, coupling.Family22Plus, coupling.Family22Minus}
	xi, err := coupling.Sphere(wl, lmax, all)
	require.NoError(t, err)
	first, second := Kernels(xi), Kernels(xi)
	cl := theory(lmax + 1)

	cov := coupled(SpinCombination{}, [4][][]float64{{cl}, {cl}, {cl}, {cl}}, first, second, lmax+1)
	for l1 := 0; l1 <= lmax; l1++ {
		for l2 := 0; l2 <= lmax; l2++ {
			want := 0.0
			if l1 == l2 {
				want = 2 * cl[l1] * cl[l1] / float64(2*l1+1)
			}
			assert.InDelta(t, want, cov.At(l1, l2), 1e-14, "(%d, %d)", l1, l2)
		}
	}

	// EE auto covariance of a spin-2 field with no B modes.
	zero := make([]float64, lmax+1)
	ee := [][]float64{cl, zero, zero, zero}
	cov = coupled(SpinCombination{2, 2, 2, 2}, [4][][]float64{ee, ee, ee, ee}, first, second, lmax+1)
	for l := 2; l <= lmax; l++ {
		assert.InDelta(t, 2*cl[l]*cl[l]/float64(2*l+1), cov.At(l*4, l*4), 1e-14, "l=%d", l)
		assert.InDelta(t, 0, cov.At(l*4+3, l*4+3), 1e-14, "l=%d", l)
	}
}
