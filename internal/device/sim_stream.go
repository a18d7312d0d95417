package device

import (
	"fmt"
	"sync"
)

// simStream executes submitted work in order on a dedicated goroutine.
// Errors raised by asynchronous work are sticky: the first one is recorded
// and reported at the next Synchronize, mirroring how real drivers surface
// asynchronous failures.
type simStream struct {
	dev   *SimDevice
	tasks chan func()
	wg    sync.WaitGroup

	mu      sync.Mutex
	err     error
	retire  []func()
	closed  bool
	blasRef *simBlas
}

func newSimStream(d *SimDevice) *simStream {
	s := &simStream{
		dev:   d,
		tasks: make(chan func(), 64),
	}
	s.blasRef = &simBlas{stream: s}
	go s.worker()
	return s
}

func (s *simStream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
}

// submit enqueues fn; fn's error, if any, becomes the stream's sticky error.
func (s *simStream) submit(fn func() error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return NewDeviceError("Submit", "stream is destroyed", nil)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.tasks <- func() {
		if err := fn(); err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
	}
	return nil
}

// onRetire registers fn to run after the stream next retires its pending
// work. Used by the allocator to reclaim scratch buffers.
func (s *simStream) onRetire(fn func()) {
	s.mu.Lock()
	s.retire = append(s.retire, fn)
	s.mu.Unlock()
}

// Synchronize waits for all submitted work, runs pending retirement hooks
// and returns (and clears) the stream's sticky error.
func (s *simStream) Synchronize() error {
	s.wg.Wait()

	s.mu.Lock()
	retire := s.retire
	s.retire = nil
	err := s.err
	s.err = nil
	s.mu.Unlock()

	for _, fn := range retire {
		fn()
	}
	return err
}

func (s *simStream) close() error {
	err := s.Synchronize()
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.tasks)
	}
	s.mu.Unlock()
	return err
}

// Blas returns the fixed-point BLAS handle bound to this stream.
func (s *simStream) Blas() Blas { return s.blasRef }

// Copy2DAsync enqueues a strided device-to-device copy of height rows of
// width bytes, repacking from spitch to dpitch. Extent validation happens
// synchronously; the copy itself runs on the stream.
func (s *simStream) Copy2DAsync(dst Ptr, dpitch int, src Ptr, spitch int, width, height int) error {
	const op = "Copy2DAsync"
	if dst.IsNil() || src.IsNil() {
		return NewDeviceError(op, "null device pointer", nil)
	}
	if width < 0 || height < 0 {
		return NewDeviceError(op, "negative copy extent", nil)
	}
	if width > spitch || width > dpitch {
		return NewDeviceError(op, "copy width exceeds pitch", nil)
	}
	if height > 0 {
		if need := (height-1)*spitch + width; need > src.Size() {
			return NewDeviceError(op, fmt.Sprintf("source extent %d exceeds allocation %d", need, src.Size()), nil)
		}
		if need := (height-1)*dpitch + width; need > dst.Size() {
			return NewDeviceError(op, fmt.Sprintf("destination extent %d exceeds allocation %d", need, dst.Size()), nil)
		}
	}

	return s.submit(func() error {
		db, sb := dst.Bytes(), src.Bytes()
		for row := 0; row < height; row++ {
			copy(db[row*dpitch:row*dpitch+width], sb[row*spitch:row*spitch+width])
		}
		return nil
	})
}

// simBlas implements the vendor fixed-point GEMM on the host, column-major
// with no transposition, int8 inputs and a 32-bit integer accumulator. Like
// the real kernel it refuses int8 operands whose leading dimension is not
// 32-bit aligned; argument checks are synchronous, the multiply runs on the
// owning stream.
type simBlas struct {
	stream *simStream
}

func (bl *simBlas) GemmInt8Ex(m, n, k int, alpha int32, a Ptr, lda int, b Ptr, ldb int, beta int32, c Ptr, ldc int) error {
	const op = "GemmInt8Ex"
	if a.IsNil() || b.IsNil() || c.IsNil() {
		return NewDeviceError(op, "null device pointer", nil)
	}
	if m < 0 || n < 0 || k < 0 {
		return NewDeviceError(op, "negative dimension", nil)
	}
	// 32-bit access width over 8-bit elements.
	if lda%4 != 0 || ldb%4 != 0 {
		return NewDeviceError(op, fmt.Sprintf("leading dimension not 32-bit aligned: lda=%d ldb=%d", lda, ldb), nil)
	}
	if lda < max(1, m) || ldb < max(1, k) || ldc < max(1, m) {
		return NewDeviceError(op, "leading dimension smaller than matrix extent", nil)
	}
	if n > 0 && k > 0 {
		if need := (k-1)*lda + m; need > a.Size() {
			return NewDeviceError(op, "matrix A extent exceeds allocation", nil)
		}
		if need := (n-1)*ldb + k; need > b.Size() {
			return NewDeviceError(op, "matrix B extent exceeds allocation", nil)
		}
		if need := ((n-1)*ldc + m) * 4; need > c.Size() {
			return NewDeviceError(op, "matrix C extent exceeds allocation", nil)
		}
	}

	return bl.stream.submit(func() error {
		av, bv, cv := a.Int8(), b.Int8(), c.Int32()
		for j := 0; j < n; j++ {
			for i := 0; i < m; i++ {
				var acc int32
				for l := 0; l < k; l++ {
					acc += int32(av[l*lda+i]) * int32(bv[j*ldb+l])
				}
				cv[j*ldc+i] = alpha*acc + beta*cv[j*ldc+i]
			}
		}
		return nil
	})
}
