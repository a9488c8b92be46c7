// Package covar estimates Gaussian covariance matrices of pseudo-spectra.
//
// A covariance workspace holds the mask coupling kernels for four fields:
// the two fields (A1, A2) of one spectrum and the two fields (B1, B2) of the
// other. With theory spectra and the mode-coupling workspaces of both
// spectra it yields the covariance of the decoupled bandpowers:
//
//	var cw covar.Workspace
//	if err := cw.Compute(f, f, b); err != nil {
//		return err
//	}
//	cov, err := covar.GaussianCovariance(&cw, spins, cl, cl, cl, cl, w, nil)
//
// The covariance uses the improved narrow-kernel approximation: the theory
// spectra are taken out of the coupling sums at the multipoles of the two
// bandpowers.
package covar

import (
	"fmt"

	"github.com/gfabbian/NaMaster/bins"
	"github.com/gfabbian/NaMaster/field"
	"github.com/gfabbian/NaMaster/internal/coupling"
	"github.com/gfabbian/NaMaster/internal/logging"
	"github.com/gfabbian/NaMaster/internal/wsio"
	"github.com/gfabbian/NaMaster/nmterr"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

var log = logging.Log()

const kindSphere = "cw"

// Kernels maps a kernel family to its matrix.
type Kernels map[coupling.Family]*mat.Dense

// pair is the optional second pair of fields of a covariance workspace.
type pair[F, B any] struct {
	c, d F
	bin  B
}

// Option configures Compute.
type Option[F, B any] func(*pair[F, B])

// WithSecondPair sets the fields and binning of the second spectrum.
// By default they are the fields and binning of the first.
func WithSecondPair[F, B any](c, d F, bin B) Option[F, B] {
	return func(p *pair[F, B]) {
		p.c, p.d, p.bin = c, d, bin
	}
}

// Workspace is a covariance workspace for fields on the sphere.
// The zero value is uninitialized.
type Workspace struct {
	s *state
}

type state struct {
	LMax          int
	Spins         SpinCombination
	BinA, BinB    *bins.Bins
	First, Second Kernels
}

func (w *Workspace) Ready() bool {
	return w.s != nil
}

func (w *Workspace) mustReady() {
	if w.s == nil {
		panic("covar: workspace not initialized")
	}
}

func (w *Workspace) LMax() int {
	w.mustReady()
	return w.s.LMax
}

// NBands returns the number of bands of the first spectrum.
func (w *Workspace) NBands() int {
	w.mustReady()
	return w.s.BinA.NBands()
}

// Spins returns the spins of the fields the workspace was computed for.
func (w *Workspace) Spins() SpinCombination {
	w.mustReady()
	return w.s.Spins
}

// Bins returns the binnings of the two spectra.
func (w *Workspace) Bins() (a, b *bins.Bins) {
	w.mustReady()
	return w.s.BinA, w.s.BinB
}

// Compute builds the coupling kernels for the spectrum of fields a and b
// and, if given with WithSecondPair, the spectrum of fields c and d.
// All fields must share one resolution. Any previous state is replaced.
func (w *Workspace) Compute(a, b *field.Field, binAB *bins.Bins, opts ...Option[*field.Field, *bins.Bins]) error {
	const op = "covar.Compute"
	p := pair[*field.Field, *bins.Bins]{c: a, d: b, bin: binAB}
	for _, opt := range opts {
		opt(&p)
	}
	for _, f := range []*field.Field{b, p.c, p.d} {
		if !a.SameGeometry(f) {
			return nmterr.New(op, nmterr.ErrResolution, "nside %d and %d", a.NSide, f.NSide)
		}
	}
	lmax := a.LMax()
	if binAB.LMax != lmax {
		return nmterr.New(op, nmterr.ErrBinning, "binning lmax %d, fields lmax %d", binAB.LMax, lmax)
	}
	if p.bin.LMax != lmax || p.bin.NBands() != binAB.NBands() {
		return nmterr.New(op, nmterr.ErrBinning, "second binning has lmax %d and %d bands, want %d and %d",
			p.bin.LMax, p.bin.NBands(), lmax, binAB.NBands())
	}

	spins := SpinCombination{a.Spin, b.Spin, p.c.Spin, p.d.Spin}
	famFirst, famSecond := spins.families()
	s := &state{LMax: lmax, Spins: spins, BinA: binAB, BinB: p.bin}
	log.V(1).Info("compute covariance kernels", "lmax", lmax, "spins", spins.array())

	// Kernel of (w_a1 w_b1) with (w_a2 w_b2), and of (w_a1 w_b2) with (w_a2 w_b1).
	var g errgroup.Group
	g.Go(func() error {
		wl, err := field.MaskProductSpectrum(a, p.c, b, p.d, lmax)
		if err != nil {
			return err
		}
		s.First, err = coupling.Sphere(wl, lmax, famFirst)
		return err
	})
	g.Go(func() error {
		wl, err := field.MaskProductSpectrum(a, p.d, b, p.c, lmax)
		if err != nil {
			return err
		}
		s.Second, err = coupling.Sphere(wl, lmax, famSecond)
		return err
	})
	if err := g.Wait(); err != nil {
		return nmterr.Wrap(op, nmterr.ErrInvalid, err, "mask spectrum")
	}
	w.s = s
	return nil
}

// WriteTo saves the workspace to a file.
func (w *Workspace) WriteTo(fname string) error {
	const op = "covar.WriteTo"
	if w.s == nil {
		return nmterr.New(op, nmterr.ErrNotInitialized, "cannot write")
	}
	return wsio.Save(op, fname, kindSphere, w.s)
}

// ReadFrom replaces the workspace with the content of a file.
// On failure the workspace is unchanged.
func (w *Workspace) ReadFrom(fname string) error {
	const op = "covar.ReadFrom"
	s := new(state)
	if err := wsio.Load(op, fname, kindSphere, s); err != nil {
		return err
	}
	if s.BinA == nil || s.BinB == nil {
		return nmterr.Wrap(op, nmterr.ErrRead, fmt.Errorf("missing binning"), "%s", fname)
	}
	first, second := s.Spins.families()
	if err := checkKernels(s.First, first, s.LMax+1); err != nil {
		return nmterr.Wrap(op, nmterr.ErrRead, err, "%s", fname)
	}
	if err := checkKernels(s.Second, second, s.LMax+1); err != nil {
		return nmterr.Wrap(op, nmterr.ErrRead, err, "%s", fname)
	}
	w.s = s
	return nil
}

func checkKernels(k Kernels, fams []coupling.Family, n int) error {
	for _, f := range fams {
		m, ok := k[f]
		if !ok || m == nil {
			return fmt.Errorf("missing %v kernel", f)
		}
		if r, c := m.Dims(); r != n || c != n {
			return fmt.Errorf("%v kernel is %dx%d, want %dx%d", f, r, c, n, n)
		}
	}
	return nil
}
