package field

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// Fourier2 computes the 2D DFT of a row-major image, normalized by the
// number of pixels, so that a constant image of ones maps to a unit impulse.
func Fourier2(x [][]float64) [][]complex128 {
	ny, nx := len(x), len(x[0])
	dst := make([][]complex128, ny)
	// Transform rows.
	rows := fourier.NewCmplxFFT(nx)
	buf := make([]complex128, nx)
	for i := range x {
		copyRealTo(buf, x[i])
		dst[i] = rows.Coefficients(nil, buf)
	}
	// Transform columns in place.
	cols := fourier.NewCmplxFFT(ny)
	col := make([]complex128, ny)
	out := make([]complex128, ny)
	scale := complex(1/(float64(nx)*float64(ny)), 0)
	for j := 0; j < nx; j++ {
		for i := 0; i < ny; i++ {
			col[i] = dst[i][j]
		}
		cols.Coefficients(out, col)
		for i := 0; i < ny; i++ {
			dst[i][j] = out[i] * scale
		}
	}
	return dst
}

func copyRealTo(dst []complex128, src []float64) {
	for i, v := range src {
		dst[i] = complex(v, 0)
	}
}
