package coupling

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Mode is a Fourier mode of a flat patch that falls in a band.
type Mode struct {
	// Row and column in the DFT grid.
	IY, IX int
	// Angle of the wavevector.
	Phi  float64
	Band int
}

// FlatModes lists the modes of an ny x nx grid with side lengths ly, lx
// whose wavenumber lies in a band. band returns -1 outside every band.
func FlatModes(nx, ny int, lx, ly float64, band func(k float64) int) []Mode {
	var modes []Mode
	for iy := 0; iy < ny; iy++ {
		ky := 2 * math.Pi * float64(freq(iy, ny)) / ly
		for ix := 0; ix < nx; ix++ {
			kx := 2 * math.Pi * float64(freq(ix, nx)) / lx
			b := band(math.Hypot(kx, ky))
			if b < 0 {
				continue
			}
			modes = append(modes, Mode{iy, ix, math.Atan2(ky, kx), b})
		}
	}
	return modes
}

// Signed frequency of DFT index i of n.
func freq(i, n int) int {
	if i <= n/2 {
		return i
	}
	return i - n
}

// Flat computes band-averaged kernels between two Fourier grids f and g:
//
//	Xi_F(b, b') = 1/(N_b N_b') sum_{k in b, k' in b'} Re[f(q) conj(g(q))] S_F(2(phi_k - phi_k'))
//
// with q = k - k', or q = k + k' if sum is set.
// S_F is 1, cos, cos^2 and sin^2 for families 00, 02, 22+ and 22-.
func Flat(f, g [][]complex128, modes []Mode, nbands int, sum bool, fams []Family) (map[Family]*mat.Dense, error) {
	if len(f) == 0 || len(f[0]) == 0 {
		return nil, fmt.Errorf("empty Fourier grid")
	}
	ny, nx := len(f), len(f[0])
	if len(g) != ny {
		return nil, fmt.Errorf("grids have %d and %d rows", ny, len(g))
	}
	for i := range f {
		if len(f[i]) != nx || len(g[i]) != nx {
			return nil, fmt.Errorf("row %d: want %d columns", i, nx)
		}
	}
	byBand := make([][]Mode, nbands)
	for _, m := range modes {
		if m.Band < 0 || m.Band >= nbands {
			return nil, fmt.Errorf("mode (%d, %d) in band %d of %d", m.IY, m.IX, m.Band, nbands)
		}
		if m.IY < 0 || m.IY >= ny || m.IX < 0 || m.IX >= nx {
			return nil, fmt.Errorf("mode (%d, %d) outside the %dx%d grid", m.IY, m.IX, ny, nx)
		}
		byBand[m.Band] = append(byBand[m.Band], m)
	}
	xi := make(map[Family]*mat.Dense, len(fams))
	for _, fam := range fams {
		xi[fam] = mat.NewDense(nbands, nbands, nil)
	}

	var grp errgroup.Group
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for b := 0; b < nbands; b++ {
		b := b
		grp.Go(func() error {
			acc := make([][]float64, len(fams))
			for i := range acc {
				acc[i] = make([]float64, nbands)
			}
			for _, k := range byBand[b] {
				for _, kp := range modes {
					var iy, ix int
					if sum {
						iy, ix = mod(k.IY+kp.IY, ny), mod(k.IX+kp.IX, nx)
					} else {
						iy, ix = mod(k.IY-kp.IY, ny), mod(k.IX-kp.IX, nx)
					}
					fq, gq := f[iy][ix], g[iy][ix]
					w := real(fq)*real(gq) + imag(fq)*imag(gq)
					c, s := math.Cos(2*(k.Phi-kp.Phi)), math.Sin(2*(k.Phi-kp.Phi))
					for i, fam := range fams {
						var v float64
						switch fam {
						case Family00:
							v = w
						case Family02:
							v = w * c
						case Family22Plus:
							v = w * c * c
						case Family22Minus:
							v = w * s * s
						default:
							return fmt.Errorf("unknown kernel %v", fam)
						}
						acc[i][kp.Band] += v
					}
				}
			}
			for i, row := range acc {
				for bp, v := range row {
					if n := len(byBand[b]) * len(byBand[bp]); n > 0 {
						xi[fams[i]].Set(b, bp, v/float64(n))
					}
				}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return xi, nil
}

// BandCounts returns the number of modes in each band.
func BandCounts(modes []Mode, nbands int) []int {
	n := make([]int, nbands)
	for _, m := range modes {
		n[m.Band]++
	}
	return n
}

func mod(a, b int) int {
	return ((a % b) + b) % b
}
