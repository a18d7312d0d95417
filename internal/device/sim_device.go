package device

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// SimDevice is a host-backed device implementation. Memory lives in ordinary
// Go allocations, streams are goroutines draining an ordered task queue, and
// the BLAS handle runs the fixed-point kernels on the CPU while enforcing
// the same operand constraints the real vendor kernel imposes. It is the
// fallback backend and the one the test suite runs against.
type SimDevice struct {
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool
	allocated   map[uintptr][]byte
	freeList    [][]byte
	streams     []*simStream
	totalAlloc  int64
}

// NewSimDevice creates a simulator device instance.
func NewSimDevice(logger *zap.Logger) *SimDevice {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimDevice{
		logger:    logger,
		allocated: make(map[uintptr][]byte),
	}
}

// IsAvailable always reports true; the simulator has no hardware to probe.
func (d *SimDevice) IsAvailable() bool { return true }

// Initialize prepares the device for use. Idempotent.
func (d *SimDevice) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	d.initialized = true
	d.logger.Info("simulator device initialized", zap.Int("cores", runtime.NumCPU()))
	return nil
}

// Info returns static information about the simulated device.
func (d *SimDevice) Info() DeviceInfo {
	total, avail := systemMemory()
	return DeviceInfo{
		Name:              fmt.Sprintf("Simulator (%s)", runtime.GOARCH),
		TotalMemory:       total,
		AvailableMemory:   avail,
		ComputeCapability: "N/A",
		DriverVersion:     runtime.Version(),
	}
}

// Malloc allocates size bytes of simulated device memory. Freed blocks are
// recycled, so fresh allocations may carry stale contents, just like real
// device memory.
func (d *SimDevice) Malloc(size int) (Ptr, error) {
	if size <= 0 {
		return Ptr{}, NewArgumentError("Malloc", "size must be positive")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return Ptr{}, NewDeviceError("Malloc", "device not initialized", nil)
	}

	// First-fit reuse from the free list.
	for i, buf := range d.freeList {
		if len(buf) >= size {
			d.freeList = append(d.freeList[:i], d.freeList[i+1:]...)
			d.allocated[uintptr(unsafe.Pointer(&buf[0]))] = buf
			return Ptr{ptr: unsafe.Pointer(&buf[0]), size: size}, nil
		}
	}

	buf := make([]byte, size)
	d.allocated[uintptr(unsafe.Pointer(&buf[0]))] = buf
	d.totalAlloc += int64(size)
	return Ptr{ptr: unsafe.Pointer(&buf[0]), size: size}, nil
}

// Free returns a block obtained from Malloc to the free list. A nil Ptr is
// ignored.
func (d *SimDevice) Free(p Ptr) error {
	if p.IsNil() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	key := uintptr(p.ptr)
	buf, ok := d.allocated[key]
	if !ok {
		return NewArgumentError("Free", "pointer was not allocated by this device")
	}
	delete(d.allocated, key)
	d.freeList = append(d.freeList, buf)
	return nil
}

// MemcpyHtoD copies len(src) bytes of host memory into dst.
func (d *SimDevice) MemcpyHtoD(dst Ptr, src []byte) error {
	if dst.IsNil() {
		return NewArgumentError("MemcpyHtoD", "destination is null")
	}
	if len(src) > dst.Size() {
		return NewArgumentError("MemcpyHtoD", "source larger than destination allocation")
	}
	copy(dst.Bytes(), src)
	return nil
}

// MemcpyDtoH copies len(dst) bytes of device memory into dst.
func (d *SimDevice) MemcpyDtoH(dst []byte, src Ptr) error {
	if src.IsNil() {
		return NewArgumentError("MemcpyDtoH", "source is null")
	}
	if len(dst) > src.Size() {
		return NewArgumentError("MemcpyDtoH", "destination larger than source allocation")
	}
	copy(dst, src.Bytes()[:len(dst)])
	return nil
}

// NewStream creates an independent in-order execution stream.
func (d *SimDevice) NewStream() (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, NewDeviceError("NewStream", "device not initialized", nil)
	}
	s := newSimStream(d)
	d.streams = append(d.streams, s)
	return s, nil
}

// Allocator returns the device's stream-scoped scratch allocator.
func (d *SimDevice) Allocator() Allocator { return (*simAllocator)(d) }

// Cleanup synchronizes and stops all streams and drops every allocation.
func (d *SimDevice) Cleanup() error {
	d.mu.Lock()
	streams := d.streams
	d.streams = nil
	d.mu.Unlock()

	var firstErr error
	for _, s := range streams {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	d.mu.Lock()
	d.allocated = make(map[uintptr][]byte)
	d.freeList = nil
	d.initialized = false
	d.mu.Unlock()
	return firstErr
}

// simAllocator adapts SimDevice's arena to the Allocator interface. Scratch
// release is scheduled on the owning stream's retirement instead of being
// the caller's problem.
type simAllocator SimDevice

// streamRetirer is the capability a stream must offer for scratch buffers to
// be reclaimed automatically when its pending work retires.
type streamRetirer interface {
	onRetire(fn func())
}

func (a *simAllocator) ScratchBuffer(size int, s Stream) (Ptr, error) {
	d := (*SimDevice)(a)
	r, ok := s.(streamRetirer)
	if !ok {
		return Ptr{}, NewArgumentError("ScratchBuffer", "stream is not owned by this device")
	}
	p, err := d.Malloc(size)
	if err != nil {
		return Ptr{}, NewMemoryError("ScratchBuffer", "scratch allocation failed", err)
	}
	r.onRetire(func() {
		_ = d.Free(p)
	})
	return p, nil
}
