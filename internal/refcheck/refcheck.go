// Package refcheck computes reference results for the integer GEMM on the
// host, used to verify device output. The product is evaluated in float64
// with gonum, which is exact for int8 operands at any practical contraction
// depth (the accumulator stays far below 2^53).
package refcheck

import "gonum.org/v1/gonum/mat"

// GemmInt8 returns alpha*A@B + beta*C for the logical row-major matrices
// A (m×k, leading dimension lda), B (k×n, leading dimension ldb) and
// C (m×n, leading dimension ldc). The returned slice is a dense m×n
// row-major matrix; the inputs are not modified.
func GemmInt8(m, n, k int, alpha, beta int32, a []int8, lda int, b []int8, ldb int, c []int32, ldc int) []int32 {
	ad := mat.NewDense(m, k, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < k; j++ {
			ad.Set(i, j, float64(a[i*lda+j]))
		}
	}
	bd := mat.NewDense(k, n, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			bd.Set(i, j, float64(b[i*ldb+j]))
		}
	}

	var prod mat.Dense
	prod.Mul(ad, bd)

	out := make([]int32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := alpha * int32(prod.At(i, j))
			if beta != 0 {
				v += beta * c[i*ldc+j]
			}
			out[i*n+j] = v
		}
	}
	return out
}
