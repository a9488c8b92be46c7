package coupling

import (
	"fmt"
	"math"
	"runtime"

	"github.com/gfabbian/NaMaster/wigner"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Sphere computes the kernels of the given families for multipoles
// 0, ..., lmax from the mask cross spectrum wl.
// Terms with L beyond the end of wl are dropped.
// The kernels are symmetric.
func Sphere(wl []float64, lmax int, fams []Family) (map[Family]*mat.Dense, error) {
	if lmax < 0 {
		return nil, fmt.Errorf("negative lmax %d", lmax)
	}
	if len(wl) == 0 {
		return nil, fmt.Errorf("empty mask spectrum")
	}
	xi := make(map[Family]*mat.Dense, len(fams))
	var need00, need22 bool
	for _, f := range fams {
		xi[f] = mat.NewDense(lmax+1, lmax+1, nil)
		switch f {
		case Family00:
			need00 = true
		case Family02:
			need00, need22 = true, true
		case Family22Plus, Family22Minus:
			need22 = true
		default:
			return nil, fmt.Errorf("unknown kernel %v", f)
		}
	}
	lw := len(wl) - 1

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for l1 := 0; l1 <= lmax; l1++ {
		l1 := l1
		g.Go(func() error {
			var buf00, buf22 []float64
			for l2 := l1; l2 <= lmax; l2++ {
				var (
					lmin0, lmin2 int
					w00, w22     []float64
				)
				if need00 {
					lmin0, w00 = wigner.ThreeJ(buf00, l1, l2, 0, 0)
					buf00 = w00
				}
				if need22 {
					lmin2, w22 = wigner.ThreeJ(buf22, l1, l2, 2, -2)
					buf22 = w22
				}
				var s00, s02, s22p, s22m float64
				lo := abs(l1 - l2)
				hi := min(l1+l2, lw)
				for L := lo; L <= hi; L++ {
					c := float64(2*L+1) * wl[L]
					a := wigner.At(lmin0, w00, L)
					b := wigner.At(lmin2, w22, L)
					s00 += c * a * a
					s02 += c * a * b
					if (l1+l2+L)%2 == 0 {
						s22p += c * b * b
					} else {
						s22m += c * b * b
					}
				}
				for f, m := range xi {
					var v float64
					switch f {
					case Family00:
						v = s00
					case Family02:
						v = s02
					case Family22Plus:
						v = s22p
					case Family22Minus:
						v = s22m
					}
					v /= 4 * math.Pi
					m.Set(l1, l2, v)
					m.Set(l2, l1, v)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return xi, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
