package mps

import (
	"cmp"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"github.com/fumin/tensor"
)

const (
	// jacobiEps is the relative size below which two columns count as
	// orthogonal.
	jacobiEps = 1e-14
	// maxJacobiSweeps bounds the number of sweeps over all column pairs.
	maxJacobiSweeps = 64
)

// svdTrunc computes the truncated singular value decomposition a = u @ s @ v
// of a matrix a. Singular values are sorted largest first, and the smallest
// ones are discarded for as long as the sum of their squares stays within
// cutoff times the total. At least one singular value is always kept.
//
// The decomposition applies one sided Jacobi rotations to the columns of a
// until all columns are pairwise orthogonal, at which point the column norms
// are the singular values. Intermediate arithmetic is in complex128.
// See Section 8.6.3 The one-sided Jacobi algorithm, Matrix Computations, Golub and Van Loan.
func svdTrunc(a *tensor.Dense, cutoff float64) (*tensor.Dense, *tensor.Dense, *tensor.Dense) {
	shape := a.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("%#v", shape))
	}
	rows, cols := shape[0], shape[1]

	// b holds the rotated columns of a, w the accumulated rotations,
	// so that a = b @ w.H at all times.
	b := make([][]complex128, cols)
	w := make([][]complex128, cols)
	for j := range cols {
		b[j] = make([]complex128, rows)
		for i := range rows {
			b[j][i] = complex128(a.At(i, j))
		}
		w[j] = make([]complex128, cols)
		w[j][j] = 1
	}

	for range maxJacobiSweeps {
		rotated := false
		for p := 0; p < cols-1; p++ {
			for q := p + 1; q < cols; q++ {
				if jacobiRotate(b, w, p, q) {
					rotated = true
				}
			}
		}
		if !rotated {
			break
		}
	}

	// The singular values are the column norms of b.
	sigmas := make([]colNorm, cols)
	for j := range sigmas {
		var sum float64
		for _, v := range b[j] {
			sum += real(v)*real(v) + imag(v)*imag(v)
		}
		sigmas[j] = colNorm{col: j, sigma: math.Sqrt(sum)}
	}
	slices.SortFunc(sigmas, func(x, y colNorm) int { return cmp.Compare(y.sigma, x.sigma) })

	k := min(truncRank(sigmas, cutoff), rows, cols)

	u := tensor.Zeros(rows, k)
	s := tensor.Zeros(k, k)
	v := tensor.Zeros(k, cols)
	for jj := range k {
		sj := sigmas[jj]
		s.SetAt([]int{jj, jj}, complex64(complex(sj.sigma, 0)))
		if sj.sigma > 0 {
			for i := range rows {
				u.SetAt([]int{i, jj}, complex64(b[sj.col][i]/complex(sj.sigma, 0)))
			}
		}
		for j := range cols {
			v.SetAt([]int{jj, j}, complex64(cmplx.Conj(w[sj.col][j])))
		}
	}
	return u, s, v
}

type colNorm struct {
	col   int
	sigma float64
}

// truncRank returns the number of singular values to keep.
func truncRank(sigmas []colNorm, cutoff float64) int {
	var total float64
	for _, sj := range sigmas {
		total += sj.sigma * sj.sigma
	}

	k := len(sigmas)
	var discarded float64
	for k > 1 {
		d := discarded + sigmas[k-1].sigma*sigmas[k-1].sigma
		if d > cutoff*total {
			break
		}
		discarded = d
		k--
	}
	return k
}

// jacobiRotate orthogonalizes columns p and q of b, applying the same
// rotation to w. It reports whether a rotation was needed.
func jacobiRotate(b, w [][]complex128, p, q int) bool {
	var alpha, beta float64
	var gamma complex128
	for i := range b[p] {
		bp, bq := b[p][i], b[q][i]
		alpha += real(bp)*real(bp) + imag(bp)*imag(bp)
		beta += real(bq)*real(bq) + imag(bq)*imag(bq)
		gamma += cmplx.Conj(bp) * bq
	}
	g := cmplx.Abs(gamma)
	if g <= jacobiEps*math.Sqrt(alpha*beta) {
		return false
	}

	// Rotate the phase of column q so that the overlap with column p
	// becomes real, then zero it with a real Givens rotation.
	phase := cmplx.Conj(gamma / complex(g, 0))
	zeta := (beta - alpha) / (2 * g)
	t := math.Copysign(1, zeta) / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
	c := complex(1/math.Sqrt(1+t*t), 0)
	sn := c * complex(t, 0)

	for _, cols := range [][][]complex128{b, w} {
		cp, cq := cols[p], cols[q]
		for i := range cp {
			qi := phase * cq[i]
			cp[i], cq[i] = c*cp[i]-sn*qi, sn*cp[i]+c*qi
		}
	}
	return true
}
