// Package mcm provides mode-coupling workspaces.
//
// A mode-coupling workspace holds the matrix relating the power spectrum of
// masked fields (the pseudo-spectrum) to the underlying spectrum, binned and
// inverted so that pseudo-spectra can be decoupled into bandpowers.
//
// To estimate bandpowers from a coupled spectrum:
//
//	var w mcm.Workspace
//	if err := w.Compute(f1, f2, b); err != nil {
//		return err
//	}
//	cb, err := w.Decouple(cl)
//
// Workspaces are not safe for concurrent mutation.
package mcm

import (
	"fmt"

	"github.com/gfabbian/NaMaster/bins"
	"github.com/gfabbian/NaMaster/field"
	"github.com/gfabbian/NaMaster/internal/coupling"
	"github.com/gfabbian/NaMaster/internal/logging"
	"github.com/gfabbian/NaMaster/internal/wsio"
	"github.com/gfabbian/NaMaster/nmterr"
	"gonum.org/v1/gonum/mat"
)

var log = logging.Log()

const kindSphere = "mcm"

// Workspace is a mode-coupling workspace for fields on the sphere.
// The zero value is uninitialized.
type Workspace struct {
	s *state
}

// state is the persisted content of a Workspace.
type state struct {
	LMax  int
	Spins [2]int
	Bins  *bins.Bins
	// Coupling is the (LMax+1)n x (LMax+1)n matrix with n components,
	// indexed l*n + p.
	Coupling *mat.Dense
	// Decoupling maps coupled spectra to bandpowers:
	// the inverse binned coupling matrix times the binning operator.
	Decoupling *mat.Dense
}

// Ready reports whether the workspace has been computed or read.
func (w *Workspace) Ready() bool {
	return w.s != nil
}

func (w *Workspace) LMax() int {
	w.mustReady()
	return w.s.LMax
}

func (w *Workspace) NBands() int {
	w.mustReady()
	return w.s.Bins.NBands()
}

// Spins returns the spins of the two fields.
func (w *Workspace) Spins() (int, int) {
	w.mustReady()
	return w.s.Spins[0], w.s.Spins[1]
}

// NComponents returns the number of spectrum components.
func (w *Workspace) NComponents() int {
	w.mustReady()
	return coupling.NComponents(w.s.Spins[0]) * coupling.NComponents(w.s.Spins[1])
}

// Bins returns the binning.
func (w *Workspace) Bins() *bins.Bins {
	w.mustReady()
	return w.s.Bins
}

func (w *Workspace) mustReady() {
	if w.s == nil {
		panic("mcm: workspace not initialized")
	}
}

// Compute builds the coupling matrix for two fields and a binning.
// Any previous state is replaced.
func (w *Workspace) Compute(f1, f2 *field.Field, b *bins.Bins) error {
	const op = "mcm.Compute"
	if !f1.SameGeometry(f2) {
		return nmterr.New(op, nmterr.ErrResolution, "nside %d and %d", f1.NSide, f2.NSide)
	}
	lmax := f1.LMax()
	if b.LMax != lmax {
		return nmterr.New(op, nmterr.ErrBinning, "binning lmax %d, fields lmax %d", b.LMax, lmax)
	}
	wl, err := field.MaskCrossSpectrum(f1, f2, lmax)
	if err != nil {
		return nmterr.Wrap(op, nmterr.ErrInvalid, err, "mask spectrum")
	}
	log.V(1).Info("compute mode coupling", "lmax", lmax, "spins", []int{f1.Spin, f2.Spin})
	s := &state{LMax: lmax, Spins: [2]int{f1.Spin, f2.Spin}, Bins: b}
	if s.Coupling, err = sphereCoupling(wl, lmax, f1.Spin, f2.Spin); err != nil {
		return nmterr.Wrap(op, nmterr.ErrInvalid, err, "coupling kernels")
	}
	s.Decoupling, err = decoupling(s.Coupling, b, s.ncomp())
	if err != nil {
		return nmterr.Wrap(op, nmterr.ErrInvalid, err, "binned coupling matrix")
	}
	w.s = s
	return nil
}

func (s *state) ncomp() int {
	return coupling.NComponents(s.Spins[0]) * coupling.NComponents(s.Spins[1])
}

// M(l1 p, l2 q) = (2 l2 + 1) sign Xi_F(l1, l2).
func sphereCoupling(wl []float64, lmax, s1, s2 int) (*mat.Dense, error) {
	xi, err := coupling.Sphere(wl, lmax, coupling.Families(s1, s2))
	if err != nil {
		return nil, err
	}
	n := coupling.NComponents(s1) * coupling.NComponents(s2)
	m := mat.NewDense((lmax+1)*n, (lmax+1)*n, nil)
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			fam, sign := coupling.Element(s1, s2, p, q)
			if sign == 0 {
				continue
			}
			k := xi[fam]
			for l1 := 0; l1 <= lmax; l1++ {
				for l2 := 0; l2 <= lmax; l2++ {
					m.Set(l1*n+p, l2*n+q, sign*float64(2*l2+1)*k.At(l1, l2))
				}
			}
		}
	}
	return m, nil
}

// decoupling returns inv(B M U) B where B bins and U unbins.
func decoupling(m *mat.Dense, b *bins.Bins, n int) (*mat.Dense, error) {
	nl := b.LMax + 1
	nb := b.NBands()
	binOp := mat.NewDense(nb*n, nl*n, nil)
	unbinOp := mat.NewDense(nl*n, nb*n, nil)
	for band := 0; band < nb; band++ {
		for i, l := range b.Ells[band] {
			for p := 0; p < n; p++ {
				binOp.Set(band*n+p, l*n+p, b.Weights[band][i])
				unbinOp.Set(l*n+p, band*n+p, 1)
			}
		}
	}
	var bm, mb mat.Dense
	bm.Mul(binOp, m)
	mb.Mul(&bm, unbinOp)
	var inv mat.Dense
	if err := inv.Inverse(&mb); err != nil {
		return nil, err
	}
	log.V(2).Info("inverted binned coupling matrix", "size", nb*n)
	d := new(mat.Dense)
	d.Mul(&inv, binOp)
	return d, nil
}

// Couple applies the coupling matrix to a spectrum with one slice of
// length LMax+1 per component.
func (w *Workspace) Couple(cl [][]float64) ([][]float64, error) {
	const op = "mcm.Couple"
	if w.s == nil {
		return nil, nmterr.New(op, nmterr.ErrNotInitialized, "")
	}
	n := w.s.ncomp()
	x, err := flatten(op, cl, n, w.s.LMax+1)
	if err != nil {
		return nil, err
	}
	var y mat.VecDense
	y.MulVec(w.s.Coupling, x)
	return unflatten(&y, n), nil
}

// Decouple turns a coupled spectrum with one slice of length LMax+1 per
// component into bandpowers, one slice of length NBands per component.
func (w *Workspace) Decouple(cl [][]float64) ([][]float64, error) {
	const op = "mcm.Decouple"
	if w.s == nil {
		return nil, nmterr.New(op, nmterr.ErrNotInitialized, "")
	}
	n := w.s.ncomp()
	x, err := flatten(op, cl, n, w.s.LMax+1)
	if err != nil {
		return nil, err
	}
	var y mat.VecDense
	y.MulVec(w.s.Decoupling, x)
	return unflatten(&y, n), nil
}

// DecouplingMatrix returns the (NBands n) x ((LMax+1) n) operator used by
// Decouple, indexed band*n + p by l*n + p. The result must not be modified.
func (w *Workspace) DecouplingMatrix() mat.Matrix {
	w.mustReady()
	return w.s.Decoupling
}

// CouplingMatrix returns the unbinned coupling matrix, indexed l*n + p.
// The result must not be modified.
func (w *Workspace) CouplingMatrix() mat.Matrix {
	w.mustReady()
	return w.s.Coupling
}

// WriteTo saves the workspace to a file.
func (w *Workspace) WriteTo(fname string) error {
	const op = "mcm.WriteTo"
	if w.s == nil {
		return nmterr.New(op, nmterr.ErrNotInitialized, "cannot write")
	}
	return wsio.Save(op, fname, kindSphere, w.s)
}

// ReadFrom replaces the workspace with the content of a file.
// On failure the workspace is unchanged.
func (w *Workspace) ReadFrom(fname string) error {
	const op = "mcm.ReadFrom"
	s := new(state)
	if err := wsio.Load(op, fname, kindSphere, s); err != nil {
		return err
	}
	if err := s.check(); err != nil {
		return nmterr.Wrap(op, nmterr.ErrRead, err, "%s", fname)
	}
	w.s = s
	return nil
}

func (s *state) check() error {
	if s.Bins == nil || s.Coupling == nil || s.Decoupling == nil {
		return fmt.Errorf("incomplete workspace")
	}
	n := s.ncomp()
	nl := (s.LMax + 1) * n
	if r, c := s.Coupling.Dims(); r != nl || c != nl {
		return fmt.Errorf("coupling matrix is %dx%d, want %dx%d", r, c, nl, nl)
	}
	if r, c := s.Decoupling.Dims(); r != s.Bins.NBands()*n || c != nl {
		return fmt.Errorf("decoupling matrix is %dx%d, want %dx%d", r, c, s.Bins.NBands()*n, nl)
	}
	return nil
}

// flatten interleaves components: x[i*n + p] = cl[p][i].
func flatten(op string, cl [][]float64, n, size int) (*mat.VecDense, error) {
	if len(cl) != n {
		return nil, nmterr.New(op, nmterr.ErrShape, "need %d components, got %d", n, len(cl))
	}
	x := mat.NewVecDense(n*size, nil)
	for p, c := range cl {
		if len(c) != size {
			return nil, nmterr.New(op, nmterr.ErrShape, "component %d has length %d, want %d", p, len(c), size)
		}
		for i, v := range c {
			x.SetVec(i*n+p, v)
		}
	}
	return x, nil
}

func unflatten(x *mat.VecDense, n int) [][]float64 {
	size := x.Len() / n
	cl := make([][]float64, n)
	for p := range cl {
		cl[p] = make([]float64, size)
		for i := range cl[p] {
			cl[p][i] = x.AtVec(i*n + p)
		}
	}
	return cl
}
