package healpix

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Alm holds harmonic coefficients a_lm for 0 <= m <= l <= LMax.
type Alm struct {
	LMax   int
	Coeffs []complex128
}

// NewAlm allocates zero coefficients.
func NewAlm(lmax int) *Alm {
	return &Alm{lmax, make([]complex128, (lmax+1)*(lmax+2)/2)}
}

// Index of (l, m) in Coeffs. The ordering is m-major.
func (a *Alm) Index(l, m int) int {
	return m*(2*a.LMax+1-m)/2 + l
}

func (a *Alm) At(l, m int) complex128 {
	return a.Coeffs[a.Index(l, m)]
}

// MapToAlm computes the spherical harmonic coefficients of a RING-ordered map
// up to lmax by quadrature with uniform pixel weights.
func MapToAlm(m []float64, lmax int) (*Alm, error) {
	nside, err := NSideFromNPix(len(m))
	if err != nil {
		return nil, err
	}
	if lmax < 0 {
		return nil, fmt.Errorf("negative lmax: %d", lmax)
	}
	var (
		alm   = NewAlm(lmax)
		omega = 4 * math.Pi / float64(len(m))
		ffts  = make(map[int]*fourier.FFT)
		phase = make([]complex128, lmax+1)
		lam   = make([]float64, lmax+1)
	)
	for _, r := range Rings(nside) {
		fft, ok := ffts[r.Len]
		if !ok {
			fft = fourier.NewFFT(r.Len)
			ffts[r.Len] = fft
		}
		x := fft.Coefficients(nil, m[r.Start:r.Start+r.Len])
		ringPhases(phase, x, r)

		cth := r.Z
		sth := math.Sqrt((1 - cth) * (1 + cth))
		lmm := 1 / math.Sqrt(4*math.Pi)
		for mm := 0; mm <= lmax; mm++ {
			if mm > 0 {
				lmm *= -math.Sqrt(float64(2*mm+1)/float64(2*mm)) * sth
			}
			if lmm == 0 {
				break
			}
			legendre(lam, lmm, cth, mm, lmax)
			f := phase[mm] * complex(omega, 0)
			for l := mm; l <= lmax; l++ {
				alm.Coeffs[alm.Index(l, mm)] += complex(lam[l], 0) * f
			}
		}
	}
	return alm, nil
}

// ringPhases sets phase[m] = sum_j x_j exp(-i m phi_j) for the ring from its DFT.
func ringPhases(phase []complex128, dft []complex128, r Ring) {
	n := r.Len
	for m := range phase {
		k := m % n
		var c complex128
		if k <= n/2 {
			c = dft[k]
		} else {
			c = cmplx.Conj(dft[n-k])
		}
		phase[m] = c * cmplx.Exp(complex(0, -float64(m)*r.Phi0))
	}
}

// legendre fills lam[l] for l in [m, lmax] with the normalized associated
// Legendre functions given lam[m] = lmm.
func legendre(lam []float64, lmm, x float64, m, lmax int) {
	lam[m] = lmm
	if m == lmax {
		return
	}
	lam[m+1] = math.Sqrt(float64(2*m+3)) * x * lmm
	fm := float64(m * m)
	for l := m + 2; l <= lmax; l++ {
		fl := float64(l)
		fl1 := float64(l - 1)
		a := math.Sqrt((4*fl*fl - 1) / (fl*fl - fm))
		b := math.Sqrt((fl1*fl1 - fm) / (4*fl1*fl1 - 1))
		lam[l] = a * (x*lam[l-1] - b*lam[l-2])
	}
}

// CrossSpectrum returns C_l = sum_m a_lm conj(b_lm) / (2l+1).
func CrossSpectrum(a, b *Alm) []float64 {
	lmax := min(a.LMax, b.LMax)
	cl := make([]float64, lmax+1)
	for l := 0; l <= lmax; l++ {
		s := real(a.At(l, 0) * cmplx.Conj(b.At(l, 0)))
		for m := 1; m <= l; m++ {
			s += 2 * real(a.At(l, m)*cmplx.Conj(b.At(l, m)))
		}
		cl[l] = s / float64(2*l+1)
	}
	return cl
}

// AnafastCross returns the cross spectrum of two maps up to lmax.
func AnafastCross(m1, m2 []float64, lmax int) ([]float64, error) {
	a1, err := MapToAlm(m1, lmax)
	if err != nil {
		return nil, err
	}
	a2, err := MapToAlm(m2, lmax)
	if err != nil {
		return nil, err
	}
	return CrossSpectrum(a1, a2), nil
}
