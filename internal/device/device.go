// Package device models the accelerator surface the GEMM dispatcher runs
// against: device memory, ordered streams, a stream-bound BLAS handle and a
// scratch allocator. Backends (the host-backed simulator, CUDA) implement
// these interfaces; callers and the dispatcher only see the interfaces.
package device

import "unsafe"

// DeviceInfo contains information about the selected compute device
type DeviceInfo struct {
	Name              string `json:"name"`
	TotalMemory       int64  `json:"totalMemory"`     // in bytes
	AvailableMemory   int64  `json:"availableMemory"` // in bytes
	ComputeCapability string `json:"computeCapability"`
	DriverVersion     string `json:"driverVersion"`
	CUDAVersion       string `json:"cudaVersion,omitempty"`
}

// Ptr is an opaque pointer to device-resident memory plus the size of the
// allocation behind it. A zero Ptr is the device null pointer.
//
// On host-backed devices the memory is directly addressable and the typed
// view accessors may be used; on real accelerators they must not be.
type Ptr struct {
	ptr  unsafe.Pointer
	size int
}

// IsNil reports whether p is the device null pointer.
func (p Ptr) IsNil() bool { return p.ptr == nil }

// Size returns the number of bytes addressable through p.
func (p Ptr) Size() int { return p.size }

// Offset returns a pointer advanced by off bytes into the same allocation.
func (p Ptr) Offset(off int) Ptr {
	if p.IsNil() || off < 0 || off > p.size {
		return Ptr{}
	}
	return Ptr{ptr: unsafe.Add(p.ptr, off), size: p.size - off}
}

// Bytes returns the allocation as a byte slice. Host-backed devices only.
func (p Ptr) Bytes() []byte {
	if p.IsNil() {
		return nil
	}
	return unsafe.Slice((*byte)(p.ptr), p.size)
}

// Int8 returns the allocation viewed as int8 elements. Host-backed only.
func (p Ptr) Int8() []int8 {
	if p.IsNil() {
		return nil
	}
	return unsafe.Slice((*int8)(p.ptr), p.size)
}

// Int32 returns the allocation viewed as int32 elements. Host-backed only.
func (p Ptr) Int32() []int32 {
	if p.IsNil() {
		return nil
	}
	return unsafe.Slice((*int32)(p.ptr), p.size/4)
}

// Stream is an ordered queue of asynchronous device operations. Operations
// submitted to the same stream execute in submission order; completion is
// only observable through Synchronize.
//
// The interface deliberately exposes just the capabilities the dispatcher
// needs (submit a strided copy, reach the stream-bound BLAS handle) rather
// than a backend-specific concrete type.
type Stream interface {
	// Copy2DAsync enqueues a device-to-device strided copy of height rows of
	// width bytes each, from src with row pitch spitch to dst with row pitch
	// dpitch (all in bytes). It returns as soon as the copy is queued;
	// argument validation failures are reported synchronously.
	Copy2DAsync(dst Ptr, dpitch int, src Ptr, spitch int, width, height int) error

	// Blas returns the vendor BLAS handle bound to this stream. Kernels
	// launched through the handle are ordered after previously submitted
	// stream work.
	Blas() Blas

	// Synchronize blocks until all previously submitted work has completed
	// and returns the first asynchronous error recorded on the stream.
	Synchronize() error
}

// Blas is the vendor fixed-point GEMM surface. The calling convention is the
// vendor's, i.e. column-major with no transposition on either operand:
// C (m×n, int32) = alpha * A (m×k, int8) * B (k×n, int8) + beta * C.
//
// The vendor kernel requires the leading dimensions of its int8 operands to
// be 32-bit aligned; implementations reject violations with a device-class
// error rather than reading misaligned memory.
type Blas interface {
	GemmInt8Ex(m, n, k int, alpha int32, a Ptr, lda int, b Ptr, ldb int, beta int32, c Ptr, ldc int) error
}

// Allocator hands out scratch buffers whose lifetime is tied to a stream:
// the buffer stays valid for work already submitted to the stream and is
// reclaimed automatically once the stream retires that work. There is no
// manual free.
type Allocator interface {
	ScratchBuffer(size int, s Stream) (Ptr, error)
}

// ExecContext bundles the stream and allocator a dispatch call operates on.
// The caller owns both; the dispatcher never creates or destroys them.
type ExecContext struct {
	Stream    Stream
	Allocator Allocator
}

// Device is a compute backend. Implementations manage their own memory and
// streams; backend selection and fallback is the Manager's job, not the
// backend's.
type Device interface {
	// NewStream creates an independent stream of execution on the device.
	NewStream() (Stream, error)

	// Malloc allocates size bytes of device memory.
	Malloc(size int) (Ptr, error)

	// Free releases memory obtained from Malloc. Scratch buffers must not be
	// passed here; their release is stream-scheduled.
	Free(p Ptr) error

	// MemcpyHtoD copies len(src) bytes of host memory into dst.
	MemcpyHtoD(dst Ptr, src []byte) error

	// MemcpyDtoH copies len(dst) bytes of device memory into dst.
	MemcpyDtoH(dst []byte, src Ptr) error

	// Allocator returns the device's stream-scoped scratch allocator.
	Allocator() Allocator

	// Info returns static information about the device.
	Info() DeviceInfo

	// IsAvailable performs a cheap availability probe without initializing.
	IsAvailable() bool

	// Initialize prepares the device for use. Idempotent.
	Initialize() error

	// Cleanup tears down streams and releases device memory.
	Cleanup() error
}
