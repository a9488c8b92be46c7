// Package healpix provides the HEALPix RING geometry and a spin-0 harmonic
// analysis sufficient to compute power spectra of masks.
package healpix

import (
	"fmt"
	"math"
)

// NPix returns the number of pixels for nside.
func NPix(nside int) int {
	return 12 * nside * nside
}

// NSideFromNPix returns nside such that npix = 12 nside^2.
func NSideFromNPix(npix int) (int, error) {
	if npix <= 0 || npix%12 != 0 {
		return 0, fmt.Errorf("invalid number of pixels: %d", npix)
	}
	n := int(math.Round(math.Sqrt(float64(npix / 12))))
	if n <= 0 || NPix(n) != npix {
		return 0, fmt.Errorf("invalid number of pixels: %d", npix)
	}
	return n, nil
}

// Ring describes one iso-latitude ring of pixels.
type Ring struct {
	// Cosine of the colatitude.
	Z float64
	// Index of the first pixel.
	Start int
	// Number of pixels.
	Len int
	// Longitude of the first pixel.
	Phi0 float64
}

// Rings returns the 4 nside - 1 rings from north to south.
func Rings(nside int) []Ring {
	var (
		n    = nside
		npix = NPix(n)
		ncap = 2 * n * (n - 1)
		fn   = float64(n)
		rs   = make([]Ring, 0, 4*n-1)
	)
	for r := 1; r < 4*n; r++ {
		switch {
		case r < n:
			// North polar cap.
			fr := float64(r)
			rs = append(rs, Ring{
				Z:     1 - fr*fr/(3*fn*fn),
				Start: 2 * r * (r - 1),
				Len:   4 * r,
				Phi0:  math.Pi / (4 * fr),
			})
		case r <= 3*n:
			// Equatorial belt.
			var phi0 float64
			if (r+n)%2 == 0 {
				phi0 = math.Pi / (4 * fn)
			}
			rs = append(rs, Ring{
				Z:     float64(2*n-r) * 2 / (3 * fn),
				Start: ncap + (r-n)*4*n,
				Len:   4 * n,
				Phi0:  phi0,
			})
		default:
			// South polar cap.
			s := 4*n - r
			fs := float64(s)
			rs = append(rs, Ring{
				Z:     -1 + fs*fs/(3*fn*fn),
				Start: npix - 2*s*(s+1),
				Len:   4 * s,
				Phi0:  math.Pi / (4 * fs),
			})
		}
	}
	return rs
}

// Pix2Ang returns the colatitude and longitude of a pixel center.
func Pix2Ang(nside, pix int) (theta, phi float64) {
	for _, r := range Rings(nside) {
		if pix >= r.Start && pix < r.Start+r.Len {
			j := pix - r.Start
			return math.Acos(r.Z), r.Phi0 + 2*math.Pi*float64(j)/float64(r.Len)
		}
	}
	panic(fmt.Sprintf("pixel out of range: %d (nside %d)", pix, nside))
}
