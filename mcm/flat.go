package mcm

import (
	"fmt"

	"github.com/gfabbian/NaMaster/bins"
	"github.com/gfabbian/NaMaster/field"
	"github.com/gfabbian/NaMaster/internal/coupling"
	"github.com/gfabbian/NaMaster/internal/wsio"
	"github.com/gfabbian/NaMaster/nmterr"
	"gonum.org/v1/gonum/mat"
)

const kindFlat = "mcm-flat"

// FlatWorkspace is a mode-coupling workspace for flat fields.
// Spectra are given per band: the coupling is averaged over the Fourier
// modes of each band.
type FlatWorkspace struct {
	s *flatState
}

type flatState struct {
	Spins [2]int
	Bins  *bins.FlatBins
	// Coupling is the (NBands n) x (NBands n) matrix indexed band*n + p.
	Coupling *mat.Dense
	// Inverse of Coupling.
	Inverse *mat.Dense
}

func (s *flatState) ncomp() int {
	return coupling.NComponents(s.Spins[0]) * coupling.NComponents(s.Spins[1])
}

// Ready reports whether the workspace has been computed or read.
func (w *FlatWorkspace) Ready() bool {
	return w.s != nil
}

func (w *FlatWorkspace) NBands() int {
	w.mustReady()
	return w.s.Bins.NBands()
}

func (w *FlatWorkspace) Spins() (int, int) {
	w.mustReady()
	return w.s.Spins[0], w.s.Spins[1]
}

func (w *FlatWorkspace) NComponents() int {
	w.mustReady()
	return w.s.ncomp()
}

func (w *FlatWorkspace) Bins() *bins.FlatBins {
	w.mustReady()
	return w.s.Bins
}

func (w *FlatWorkspace) mustReady() {
	if w.s == nil {
		panic("mcm: flat workspace not initialized")
	}
}

// Compute builds the band coupling matrix of two flat fields:
//
//	M(b, b') = N_b' Xi(b, b')
//
// where N_b' counts the Fourier modes in band b'.
func (w *FlatWorkspace) Compute(f1, f2 *field.Flat, b *bins.FlatBins) error {
	const op = "mcm.FlatWorkspace.Compute"
	if !f1.SameGeometry(f2) {
		return nmterr.New(op, nmterr.ErrResolution, "%dx%d and %dx%d pixels", f1.NX, f1.NY, f2.NX, f2.NY)
	}
	nb := b.NBands()
	modes := coupling.FlatModes(f1.NX, f1.NY, f1.LX, f1.LY, b.Band)
	count := coupling.BandCounts(modes, nb)
	for band, c := range count {
		if c == 0 {
			return nmterr.New(op, nmterr.ErrInvalid, "band %d holds no Fourier mode", band)
		}
	}
	log.V(1).Info("compute flat mode coupling", "bands", nb, "modes", len(modes))
	s := &flatState{Spins: [2]int{f1.Spin, f2.Spin}, Bins: b}
	xi, err := coupling.Flat(f1.MaskFourier(), f2.MaskFourier(), modes, nb, false, coupling.Families(f1.Spin, f2.Spin))
	if err != nil {
		return nmterr.Wrap(op, nmterr.ErrInvalid, err, "coupling kernels")
	}
	n := s.ncomp()
	s.Coupling = mat.NewDense(nb*n, nb*n, nil)
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			fam, sign := coupling.Element(f1.Spin, f2.Spin, p, q)
			if sign == 0 {
				continue
			}
			k := xi[fam]
			for b1 := 0; b1 < nb; b1++ {
				for b2 := 0; b2 < nb; b2++ {
					s.Coupling.Set(b1*n+p, b2*n+q, sign*float64(count[b2])*k.At(b1, b2))
				}
			}
		}
	}
	s.Inverse = new(mat.Dense)
	if err := s.Inverse.Inverse(s.Coupling); err != nil {
		return nmterr.Wrap(op, nmterr.ErrInvalid, err, "band coupling matrix")
	}
	w.s = s
	return nil
}

// Couple applies the band coupling matrix to per-band spectra.
func (w *FlatWorkspace) Couple(cb [][]float64) ([][]float64, error) {
	const op = "mcm.FlatWorkspace.Couple"
	if w.s == nil {
		return nil, nmterr.New(op, nmterr.ErrNotInitialized, "")
	}
	return apply(op, w.s.Coupling, cb, w.s.ncomp(), w.s.Bins.NBands())
}

// Decouple turns coupled bandpowers into decoupled bandpowers.
func (w *FlatWorkspace) Decouple(cb [][]float64) ([][]float64, error) {
	const op = "mcm.FlatWorkspace.Decouple"
	if w.s == nil {
		return nil, nmterr.New(op, nmterr.ErrNotInitialized, "")
	}
	return apply(op, w.s.Inverse, cb, w.s.ncomp(), w.s.Bins.NBands())
}

func apply(op string, m mat.Matrix, cb [][]float64, n, size int) ([][]float64, error) {
	x, err := flatten(op, cb, n, size)
	if err != nil {
		return nil, err
	}
	var y mat.VecDense
	y.MulVec(m, x)
	return unflatten(&y, n), nil
}

// DecouplingMatrix returns the inverse band coupling matrix, indexed
// band*n + p. The result must not be modified.
func (w *FlatWorkspace) DecouplingMatrix() mat.Matrix {
	w.mustReady()
	return w.s.Inverse
}

// WriteTo saves the workspace to a file.
func (w *FlatWorkspace) WriteTo(fname string) error {
	const op = "mcm.FlatWorkspace.WriteTo"
	if w.s == nil {
		return nmterr.New(op, nmterr.ErrNotInitialized, "cannot write")
	}
	return wsio.Save(op, fname, kindFlat, w.s)
}

// ReadFrom replaces the workspace with the content of a file.
// On failure the workspace is unchanged.
func (w *FlatWorkspace) ReadFrom(fname string) error {
	const op = "mcm.FlatWorkspace.ReadFrom"
	s := new(flatState)
	if err := wsio.Load(op, fname, kindFlat, s); err != nil {
		return err
	}
	if s.Bins == nil || s.Coupling == nil || s.Inverse == nil {
		return nmterr.Wrap(op, nmterr.ErrRead, fmt.Errorf("incomplete workspace"), "%s", fname)
	}
	nl := s.Bins.NBands() * s.ncomp()
	for _, m := range []*mat.Dense{s.Coupling, s.Inverse} {
		if r, c := m.Dims(); r != nl || c != nl {
			return nmterr.New(op, nmterr.ErrRead, "%s: matrix is %dx%d, want %dx%d", fname, r, c, nl, nl)
		}
	}
	w.s = s
	return nil
}
