// Package wigner computes Wigner 3j symbols.
//
// The symbols (l1 l2 L; m1 m2 -m1-m2) for all allowed L are obtained at once
// from the three-term recursion in L (Schulten and Gordon). The recursion is
// run from the stretched value L = l1+l2 downward, which never divides by a
// vanishing coefficient, then normalized with
//
//	sum_L (2L+1) (l1 l2 L; m1 m2 m)^2 = 1
//
// and given the sign of the stretched symbol, (-1)^(l1-l2+m1+m2).
package wigner

import "math"

const (
	huge = 1e150
	tiny = 1e-150
)

// ThreeJ computes (l1 l2 L; m1 m2 -m1-m2) for L in [lmin, l1+l2].
// The result is written into dst if it has enough capacity.
// If no L is allowed, returns an empty slice.
func ThreeJ(dst []float64, l1, l2, m1, m2 int) (lmin int, w []float64) {
	m := -(m1 + m2)
	if l1 < 0 || l2 < 0 || abs(m1) > l1 || abs(m2) > l2 {
		return 0, dst[:0]
	}
	lmin = max(abs(l1-l2), abs(m))
	lmax := l1 + l2
	if lmin > lmax {
		return 0, dst[:0]
	}
	n := lmax - lmin + 1
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	w = dst[:n]

	// Recursion in j = L with j2 = l1, j3 = l2, mj = m.
	var (
		j2, j3 = float64(l1), float64(l2)
		m2f    = float64(m1)
		m3f    = float64(m2)
		mj     = float64(m)
	)
	a := func(j int) float64 {
		x := float64(j)
		d := j2 - j3
		s := j2 + j3 + 1
		return math.Sqrt((x*x - d*d) * (s*s - x*x) * (x*x - mj*mj))
	}
	b := func(j int) float64 {
		x := float64(j)
		return -(2*x + 1) * (j2*(j2+1)*mj - j3*(j3+1)*mj - x*(x+1)*(m3f-m2f))
	}

	w[n-1] = 1
	next := 0.0 // f(j+1)
	for j := lmax; j > lmin; j-- {
		i := j - lmin
		cur := w[i]
		x := float64(j)
		prev := -(x*a(j+1)*next + b(j)*cur) / ((x + 1) * a(j))
		w[i-1] = prev
		next = cur
		if math.Abs(prev) > huge {
			for k := i - 1; k < n; k++ {
				w[k] *= tiny
			}
			next *= tiny
		}
	}

	var sum float64
	for i, v := range w {
		sum += float64(2*(lmin+i)+1) * v * v
	}
	norm := 1 / math.Sqrt(sum)
	if (l1-l2+m1+m2)&1 != 0 {
		norm = -norm
	}
	for i := range w {
		w[i] *= norm
	}
	return lmin, w
}

// At returns the symbol for L from the output of ThreeJ, or zero if L is not in range.
func At(lmin int, w []float64, l int) float64 {
	i := l - lmin
	if i < 0 || i >= len(w) {
		return 0
	}
	return w[i]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
