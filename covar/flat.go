package covar

import (
	"fmt"

	"github.com/gfabbian/NaMaster/bins"
	"github.com/gfabbian/NaMaster/field"
	"github.com/gfabbian/NaMaster/internal/coupling"
	"github.com/gfabbian/NaMaster/internal/wsio"
	"github.com/gfabbian/NaMaster/nmterr"
	"golang.org/x/sync/errgroup"
)

const kindFlat = "cw-flat"

// FlatWorkspace is a covariance workspace for flat fields.
// Kernels are averaged over the Fourier modes of each band.
type FlatWorkspace struct {
	s *flatState
}

type flatState struct {
	Spins         SpinCombination
	Bins          *bins.FlatBins
	First, Second Kernels
}

func (w *FlatWorkspace) Ready() bool {
	return w.s != nil
}

func (w *FlatWorkspace) mustReady() {
	if w.s == nil {
		panic("covar: flat workspace not initialized")
	}
}

func (w *FlatWorkspace) NBands() int {
	w.mustReady()
	return w.s.Bins.NBands()
}

func (w *FlatWorkspace) Spins() SpinCombination {
	w.mustReady()
	return w.s.Spins
}

func (w *FlatWorkspace) Bins() *bins.FlatBins {
	w.mustReady()
	return w.s.Bins
}

// Compute builds the coupling kernels for the spectrum of flat fields a and
// b and, if given with WithSecondPair, the spectrum of fields c and d.
// All fields must share grid and extent, and both binnings must have the
// same bandpowers. Any previous state is replaced.
func (w *FlatWorkspace) Compute(a, b *field.Flat, binAB *bins.FlatBins, opts ...Option[*field.Flat, *bins.FlatBins]) error {
	const op = "covar.FlatWorkspace.Compute"
	p := pair[*field.Flat, *bins.FlatBins]{c: a, d: b, bin: binAB}
	for _, opt := range opts {
		opt(&p)
	}
	for _, f := range []*field.Flat{b, p.c, p.d} {
		if !a.SameGeometry(f) {
			return nmterr.New(op, nmterr.ErrResolution, "%dx%d pixels over %gx%g and %dx%d pixels over %gx%g",
				a.NX, a.NY, a.LX, a.LY, f.NX, f.NY, f.LX, f.LY)
		}
	}
	if !binAB.Equal(p.bin) {
		return nmterr.New(op, nmterr.ErrBandpowers, "%d and %d bands", binAB.NBands(), p.bin.NBands())
	}
	nb := binAB.NBands()
	modes := coupling.FlatModes(a.NX, a.NY, a.LX, a.LY, binAB.Band)
	for band, n := range coupling.BandCounts(modes, nb) {
		if n == 0 {
			return nmterr.New(op, nmterr.ErrInvalid, "band %d holds no Fourier mode", band)
		}
	}

	spins := SpinCombination{a.Spin, b.Spin, p.c.Spin, p.d.Spin}
	famFirst, famSecond := spins.families()
	s := &flatState{Spins: spins, Bins: binAB}
	log.V(1).Info("compute flat covariance kernels", "bands", nb, "modes", len(modes), "spins", spins.array())

	// The second term pairs k with -k'.
	var g errgroup.Group
	g.Go(func() (err error) {
		s.First, err = coupling.Flat(field.MaskProductFourier(a, p.c), field.MaskProductFourier(b, p.d), modes, nb, false, famFirst)
		return err
	})
	g.Go(func() (err error) {
		s.Second, err = coupling.Flat(field.MaskProductFourier(a, p.d), field.MaskProductFourier(b, p.c), modes, nb, true, famSecond)
		return err
	})
	if err := g.Wait(); err != nil {
		return nmterr.Wrap(op, nmterr.ErrInvalid, err, "coupling kernels")
	}
	w.s = s
	return nil
}

// WriteTo saves the workspace to a file.
func (w *FlatWorkspace) WriteTo(fname string) error {
	const op = "covar.FlatWorkspace.WriteTo"
	if w.s == nil {
		return nmterr.New(op, nmterr.ErrNotInitialized, "cannot write")
	}
	return wsio.Save(op, fname, kindFlat, w.s)
}

// ReadFrom replaces the workspace with the content of a file.
// On failure the workspace is unchanged.
func (w *FlatWorkspace) ReadFrom(fname string) error {
	const op = "covar.FlatWorkspace.ReadFrom"
	s := new(flatState)
	if err := wsio.Load(op, fname, kindFlat, s); err != nil {
		return err
	}
	if s.Bins == nil {
		return nmterr.Wrap(op, nmterr.ErrRead, fmt.Errorf("missing binning"), "%s", fname)
	}
	first, second := s.Spins.families()
	if err := checkKernels(s.First, first, s.Bins.NBands()); err != nil {
		return nmterr.Wrap(op, nmterr.ErrRead, err, "%s", fname)
	}
	if err := checkKernels(s.Second, second, s.Bins.NBands()); err != nil {
		return nmterr.Wrap(op, nmterr.ErrRead, err, "%s", fname)
	}
	w.s = s
	return nil
}
