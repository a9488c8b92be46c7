// Package coupling computes the mask coupling kernels shared by the
// mode-coupling and covariance workspaces.
//
// On the sphere a kernel of family F built from a mask spectrum W is
//
//	Xi_F(l1, l2) = 1/(4 pi) sum_L (2L+1) W_L J_F(l1, l2, L)
//
// where J_F is a product of two 3j symbols:
//
//	00:  (l1 l2 L; 0 0 0)^2
//	02:  (l1 l2 L; 0 0 0) (l1 l2 L; 2 -2 0)
//	22+: (l1 l2 L; 2 -2 0)^2 for l1+l2+L even
//	22-: (l1 l2 L; 2 -2 0)^2 for l1+l2+L odd
//
// On a flat patch the sum over L is replaced by a sum over pairs of Fourier
// modes and the 3j symbols by powers of cos and sin of twice the angle
// between the modes.
package coupling

import "fmt"

// Family selects the spin structure of a kernel.
type Family int

const (
	Family00 Family = iota
	Family02
	Family22Plus
	Family22Minus
)

func (f Family) String() string {
	switch f {
	case Family00:
		return "00"
	case Family02:
		return "02"
	case Family22Plus:
		return "22+"
	case Family22Minus:
		return "22-"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Families returns the kernels needed to couple fields of spins s1 and s2.
func Families(s1, s2 int) []Family {
	switch {
	case s1 == 0 && s2 == 0:
		return []Family{Family00}
	case s1 == 0 || s2 == 0:
		return []Family{Family02}
	default:
		return []Family{Family22Plus, Family22Minus}
	}
}

// NComponents returns the number of map components of a field with spin s.
func NComponents(s int) int {
	if s == 0 {
		return 1
	}
	return 2
}

// Element returns the kernel and sign coupling true component q into
// coupled component p of a spectrum between fields of spins s1 and s2.
// Components are ordered i*n2 + j with E before B. A zero sign means no coupling.
//
// The 2x2 block is
//
//	EE  [ +  0  0  - ]
//	EB  [ 0  +  -' 0 ]
//	BE  [ 0  -' +  0 ]
//	BB  [ -  0  0  + ]
//
// with + = 22+, - = 22- and -' = -(22-).
func Element(s1, s2, p, q int) (Family, float64) {
	switch {
	case s1 == 0 && s2 == 0:
		return Family00, 1
	case s1 == 0 || s2 == 0:
		if p == q {
			return Family02, 1
		}
		return Family02, 0
	}
	switch {
	case p == q:
		return Family22Plus, 1
	case p+q == 3 && (p == 0 || p == 3):
		return Family22Minus, 1
	case p+q == 3:
		return Family22Minus, -1
	}
	return Family22Plus, 0
}

// Parity returns the number of B components in component index p of a
// spectrum between fields of spins s1 and s2, modulo 2.
func Parity(s1, s2, p int) int {
	n2 := NComponents(s2)
	i, j := p/n2, p%n2
	var nb int
	if s1 != 0 && i == 1 {
		nb++
	}
	if s2 != 0 && j == 1 {
		nb++
	}
	return nb % 2
}
