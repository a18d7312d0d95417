// Package igemm dispatches quantized integer matrix multiplies to the
// device's fixed-point GEMM kernel, transparently repacking operands whose
// leading dimension violates the kernel's alignment requirement.
package igemm

import (
	"time"

	"github.com/axonlabs/igemm/internal/device"
	"github.com/axonlabs/igemm/internal/metrics"
)

// The vendor kernel needs leading dimensions that are multiples of 4 for
// 32-bit access over 8-bit elements; rounding to 32 is the tightest safely
// sufficient multiple.
const ldAlignment = 32

func roundoff(v, d int) int {
	return (v + d - 1) / d * d
}

// GemmInt8 computes C = alpha*A@B + beta*C for row-major int8 matrices
// A (m×k, leading dimension lda) and B (k×n, leading dimension ldb) into the
// row-major int32 matrix C (m×n, leading dimension ldc), using the stream
// and scratch allocator from ec.
//
// Operands whose leading dimension is not a multiple of 32 are repacked into
// a stream-scoped scratch buffer with an aligned pitch before the kernel
// runs; callers may pass any leading dimension that covers the logical
// extent. All device work is enqueued on ec.Stream and runs in submission
// order, so the multiply observes completed copies without any explicit
// synchronization. Completion is observed through the caller's own stream
// synchronization.
func GemmInt8(m, n, k int, alpha, beta int32, a device.Ptr, lda int, b device.Ptr, ldb int, c device.Ptr, ldc int, ec *device.ExecContext) error {
	const op = "GemmInt8"
	if a.IsNil() || b.IsNil() || c.IsNil() {
		return device.NewArgumentError(op, "input matrix should not be null")
	}
	if ec == nil || ec.Stream == nil {
		return device.NewArgumentError(op, "execution context with a stream is required")
	}
	if ec.Allocator == nil {
		return device.NewArgumentError(op, "execution context has no scratch allocator")
	}
	stream := ec.Stream
	start := time.Now()

	ldaAligned, aBuf := lda, a
	if lda&(ldAlignment-1) != 0 {
		ldaAligned = roundoff(lda, ldAlignment)
		padded, err := ec.Allocator.ScratchBuffer(m*ldaAligned, stream)
		if err != nil {
			return err
		}
		if err := stream.Copy2DAsync(padded, ldaAligned, a, lda, k, m); err != nil {
			return err
		}
		aBuf = padded
		metrics.ScratchBytes.Add(float64(m * ldaAligned))
	}

	ldbAligned, bBuf := ldb, b
	if ldb&(ldAlignment-1) != 0 {
		ldbAligned = roundoff(ldb, ldAlignment)
		padded, err := ec.Allocator.ScratchBuffer(k*ldbAligned, stream)
		if err != nil {
			return err
		}
		if err := stream.Copy2DAsync(padded, ldbAligned, b, ldb, n, k); err != nil {
			return err
		}
		bBuf = padded
		metrics.ScratchBytes.Add(float64(k * ldbAligned))
	}

	metrics.Dispatches.WithLabelValues(paddedLabel(ldaAligned != lda, ldbAligned != ldb)).Inc()

	// The caller's row-major (m,n,k) product is issued as the vendor's
	// column-major (n,m,k) product with the operands swapped.
	err := stream.Blas().GemmInt8Ex(n, m, k, alpha, bBuf, ldbAligned, aBuf, ldaAligned, beta, c, ldc)
	if err != nil {
		return err
	}
	metrics.DispatchDuration.Observe(float64(time.Since(start).Microseconds()))
	return nil
}

func paddedLabel(a, b bool) string {
	switch {
	case a && b:
		return "both"
	case a:
		return "a"
	case b:
		return "b"
	default:
		return "none"
	}
}
