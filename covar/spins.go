package covar

import (
	"github.com/gfabbian/NaMaster/internal/coupling"
	"github.com/gfabbian/NaMaster/nmterr"
)

// SpinCombination holds the spins of the four fields entering a covariance
// between the spectra of (A1, A2) and (B1, B2).
type SpinCombination struct {
	A1, A2, B1, B2 int
}

// Validate checks that every spin is 0 or 2.
func (s SpinCombination) Validate() error {
	for _, v := range s.array() {
		if v != 0 && v != 2 {
			return nmterr.New("covar.SpinCombination", nmterr.ErrSpin, "spin %d, want 0 or 2", v)
		}
	}
	return nil
}

// NComponents returns the number of components expected for each of the
// spectra a1b1, a1b2, a2b1 and a2b2.
func (s SpinCombination) NComponents() (a1b1, a1b2, a2b1, a2b2 int) {
	n := func(x, y int) int { return coupling.NComponents(x) * coupling.NComponents(y) }
	return n(s.A1, s.B1), n(s.A1, s.B2), n(s.A2, s.B1), n(s.A2, s.B2)
}

func (s SpinCombination) array() [4]int {
	return [4]int{s.A1, s.A2, s.B1, s.B2}
}

// pairSpin is the effective spin of a spectrum between fields of spins x and y.
func pairSpin(x, y int) int {
	if x != 0 || y != 0 {
		return 2
	}
	return 0
}

// families returns the kernels needed by each term of the covariance.
// The first term pairs A1 with B1 and A2 with B2, the second A1 with B2
// and A2 with B1.
func (s SpinCombination) families() (first, second []coupling.Family) {
	first = coupling.Families(pairSpin(s.A1, s.B1), pairSpin(s.A2, s.B2))
	second = coupling.Families(pairSpin(s.A1, s.B2), pairSpin(s.A2, s.B1))
	return first, second
}

// family selects the kernel of a term for spectrum components p (of A)
// and q (of B). For spin-2 kernels the parity of the total number of B
// modes picks the plus or minus kernel.
func (s SpinCombination) family(fams []coupling.Family, p, q int) coupling.Family {
	if len(fams) == 1 {
		return fams[0]
	}
	if (coupling.Parity(s.A1, s.A2, p)+coupling.Parity(s.B1, s.B2, q))%2 == 0 {
		return coupling.Family22Plus
	}
	return coupling.Family22Minus
}
