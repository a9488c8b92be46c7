package covar

import (
	"github.com/gfabbian/NaMaster/bins"
	"github.com/gfabbian/NaMaster/internal/coupling"
	"github.com/gfabbian/NaMaster/mcm"
	"github.com/gfabbian/NaMaster/nmterr"
	"gonum.org/v1/gonum/mat"
)

// GaussianCovariance returns the covariance between the decoupled
// bandpowers of the spectra (A1, A2) and (B1, B2).
//
// The theory spectra cla1b1, cla1b2, cla2b1 and cla2b2 hold one slice per
// component, each with LMax+1 multipoles. Components of a spectrum between
// fields x and y are ordered i*n_y + j with E before B.
// wa decouples the first spectrum and wb the second; a nil wb means wa.
//
// The result has NBands*n_A rows and NBands*n_B columns, indexed
// band*n + component.
func GaussianCovariance(cw *Workspace, spins SpinCombination, cla1b1, cla1b2, cla2b1, cla2b2 [][]float64, wa, wb *mcm.Workspace) (*mat.Dense, error) {
	const op = "covar.GaussianCovariance"
	if wb == nil {
		wb = wa
	}
	if cw == nil || !cw.Ready() {
		return nil, nmterr.New(op, nmterr.ErrNotInitialized, "covariance workspace")
	}
	if wa == nil || !wa.Ready() || !wb.Ready() {
		return nil, nmterr.New(op, nmterr.ErrNotInitialized, "mode-coupling workspace")
	}
	s := cw.s
	if err := checkSpins(op, spins, s.Spins); err != nil {
		return nil, err
	}
	cls := [4][][]float64{cla1b1, cla1b2, cla2b1, cla2b2}
	if err := checkSpectra(op, spins, cls, s.LMax+1); err != nil {
		return nil, err
	}
	for i, w := range []*mcm.Workspace{wa, wb} {
		s1, s2 := w.Spins()
		want := [2]int{spins.A1, spins.A2}
		b := s.BinA
		if i == 1 {
			want = [2]int{spins.B1, spins.B2}
			b = s.BinB
		}
		if [2]int{s1, s2} != want {
			return nil, nmterr.New(op, nmterr.ErrSpin, "mode-coupling workspace has spins %d, %d, want %d, %d", s1, s2, want[0], want[1])
		}
		if w.LMax() != s.LMax || w.NBands() != b.NBands() {
			return nil, nmterr.New(op, nmterr.ErrBinning, "mode-coupling workspace has lmax %d and %d bands, want %d and %d",
				w.LMax(), w.NBands(), s.LMax, b.NBands())
		}
	}

	cov := coupled(spins, cls, s.First, s.Second, s.LMax+1)
	log.V(2).Info("decouple covariance", "rows", wa.NBands()*wa.NComponents(), "cols", wb.NBands()*wb.NComponents())
	return decouple(wa.DecouplingMatrix(), cov, wb.DecouplingMatrix()), nil
}

// GaussianCovarianceFlat is GaussianCovariance for flat fields.
// The theory spectra are sampled at the wavenumbers ell and interpolated
// linearly to the band centers.
func GaussianCovarianceFlat(cw *FlatWorkspace, spins SpinCombination, ell []float64, cla1b1, cla1b2, cla2b1, cla2b2 [][]float64, wa, wb *mcm.FlatWorkspace) (*mat.Dense, error) {
	const op = "covar.GaussianCovarianceFlat"
	if wb == nil {
		wb = wa
	}
	if cw == nil || !cw.Ready() {
		return nil, nmterr.New(op, nmterr.ErrNotInitialized, "covariance workspace")
	}
	if wa == nil || !wa.Ready() || !wb.Ready() {
		return nil, nmterr.New(op, nmterr.ErrNotInitialized, "mode-coupling workspace")
	}
	s := cw.s
	if err := checkSpins(op, spins, s.Spins); err != nil {
		return nil, err
	}
	cls := [4][][]float64{cla1b1, cla1b2, cla2b1, cla2b2}
	if err := checkSpectra(op, spins, cls, len(ell)); err != nil {
		return nil, err
	}
	for i, w := range []*mcm.FlatWorkspace{wa, wb} {
		s1, s2 := w.Spins()
		want := [2]int{spins.A1, spins.A2}
		if i == 1 {
			want = [2]int{spins.B1, spins.B2}
		}
		if [2]int{s1, s2} != want {
			return nil, nmterr.New(op, nmterr.ErrSpin, "mode-coupling workspace has spins %d, %d, want %d, %d", s1, s2, want[0], want[1])
		}
		if w.NBands() != s.Bins.NBands() {
			return nil, nmterr.New(op, nmterr.ErrBandpowers, "mode-coupling workspace has %d bands, want %d", w.NBands(), s.Bins.NBands())
		}
	}

	var banded [4][][]float64
	for i, cl := range cls {
		b, err := evaluate(s.Bins, ell, cl)
		if err != nil {
			return nil, nmterr.Wrap(op, nmterr.ErrInvalid, err, "spectrum %d", i)
		}
		banded[i] = b
	}
	cov := coupled(spins, banded, s.First, s.Second, s.Bins.NBands())
	return decouple(wa.DecouplingMatrix(), cov, wb.DecouplingMatrix()), nil
}

func evaluate(b *bins.FlatBins, ell []float64, cl [][]float64) ([][]float64, error) {
	out := make([][]float64, len(cl))
	for i, c := range cl {
		var err error
		if out[i], err = b.Evaluate(ell, c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkSpins(op string, spins, want SpinCombination) error {
	if err := spins.Validate(); err != nil {
		return nmterr.Wrap(op, nmterr.ErrSpin, err, "")
	}
	if spins != want {
		return nmterr.New(op, nmterr.ErrSpin, "spins %v, workspace computed for %v", spins.array(), want.array())
	}
	return nil
}

// checkSpectra checks the number of components of each spectrum and that
// every component has n samples.
func checkSpectra(op string, spins SpinCombination, cls [4][][]float64, n int) error {
	names := [4]string{"a1b1", "a1b2", "a2b1", "a2b2"}
	n1, n2, n3, n4 := spins.NComponents()
	for i, nc := range [4]int{n1, n2, n3, n4} {
		if len(cls[i]) != nc {
			return nmterr.New(op, nmterr.ErrShape, "spectrum %s has %d components, want %d", names[i], len(cls[i]), nc)
		}
	}
	for i, cl := range cls {
		for p, c := range cl {
			if len(c) != n {
				return nmterr.New(op, nmterr.ErrShape, "spectrum %s component %d has %d samples, want %d", names[i], p, len(c), n)
			}
		}
	}
	return nil
}

// coupled returns the covariance of the coupled spectra, n samples per
// component:
//
//	Cov(l p, l' q) = 1/2 [C1(l) C2(l') + C1(l') C2(l)] Xi1(l, l')
//	               + 1/2 [C3(l) C4(l') + C3(l') C4(l)] Xi2(l, l')
//
// with C1 = a1b1, C2 = a2b2, C3 = a1b2 and C4 = a2b1.
func coupled(spins SpinCombination, cls [4][][]float64, first, second Kernels, n int) *mat.Dense {
	famFirst, famSecond := spins.families()
	nA2 := coupling.NComponents(spins.A2)
	nB1 := coupling.NComponents(spins.B1)
	nB2 := coupling.NComponents(spins.B2)
	nA := coupling.NComponents(spins.A1) * nA2
	nB := nB1 * nB2
	c1, c3, c4, c2 := cls[0], cls[1], cls[2], cls[3]

	cov := mat.NewDense(n*nA, n*nB, nil)
	for p := 0; p < nA; p++ {
		i, j := p/nA2, p%nA2
		for q := 0; q < nB; q++ {
			k, m := q/nB2, q%nB2
			x1, x2 := c1[i*nB1+k], c2[j*nB2+m]
			x3, x4 := c3[i*nB2+m], c4[j*nB1+k]
			xi1 := first[spins.family(famFirst, p, q)]
			xi2 := second[spins.family(famSecond, p, q)]
			for l1 := 0; l1 < n; l1++ {
				for l2 := 0; l2 < n; l2++ {
					v := 0.5*(x1[l1]*x2[l2]+x1[l2]*x2[l1])*xi1.At(l1, l2) +
						0.5*(x3[l1]*x4[l2]+x3[l2]*x4[l1])*xi2.At(l1, l2)
					cov.Set(l1*nA+p, l2*nB+q, v)
				}
			}
		}
	}
	return cov
}

// decouple returns da cov db^T.
func decouple(da mat.Matrix, cov *mat.Dense, db mat.Matrix) *mat.Dense {
	var tmp mat.Dense
	tmp.Mul(da, cov)
	out := new(mat.Dense)
	out.Mul(&tmp, db.T())
	return out
}
