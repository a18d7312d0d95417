//go:build cuda
// +build cuda

package device

/*
#cgo LDFLAGS: -lcudart -lcublas
#include <cuda_runtime.h>
#include <cublas_v2.h>
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// CUDADevice implements Device on NVIDIA hardware through the CUDA runtime
// and cuBLAS. The fixed-point GEMM maps onto cublasGemmEx with 8-bit integer
// inputs and a 32-bit integer accumulator; scratch buffers use the
// stream-ordered allocator (cudaMallocAsync/cudaFreeAsync).
type CUDADevice struct {
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool
	available   bool
	deviceInfo  DeviceInfo
	streams     []*cudaStream
}

// NewCUDADevice creates a CUDA device instance and probes for hardware.
func NewCUDADevice(logger *zap.Logger) *CUDADevice {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &CUDADevice{logger: logger}
	if err := d.checkDevice(); err != nil {
		logger.Warn("CUDA device not available", zap.Error(err))
	} else {
		d.available = true
	}
	return d
}

func (d *CUDADevice) checkDevice() error {
	var count C.int
	if rc := C.cudaGetDeviceCount(&count); rc != C.cudaSuccess {
		return cudaErr("cudaGetDeviceCount", rc)
	}
	if count == 0 {
		return fmt.Errorf("no CUDA device present")
	}
	return nil
}

// IsAvailable reports whether a CUDA device was found at construction.
func (d *CUDADevice) IsAvailable() bool { return d.available }

// Initialize sets up the CUDA context and captures device properties.
func (d *CUDADevice) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.available {
		return NewDeviceError("Initialize", "CUDA device not available", nil)
	}
	if d.initialized {
		return nil
	}

	if rc := C.cudaSetDevice(0); rc != C.cudaSuccess {
		return NewDeviceError("Initialize", "cudaSetDevice failed", cudaErr("cudaSetDevice", rc))
	}

	var props C.struct_cudaDeviceProp
	if rc := C.cudaGetDeviceProperties(&props, 0); rc != C.cudaSuccess {
		return NewDeviceError("Initialize", "cudaGetDeviceProperties failed", cudaErr("cudaGetDeviceProperties", rc))
	}
	var free, total C.size_t
	if rc := C.cudaMemGetInfo(&free, &total); rc != C.cudaSuccess {
		return NewDeviceError("Initialize", "cudaMemGetInfo failed", cudaErr("cudaMemGetInfo", rc))
	}
	var driver, runtime C.int
	C.cudaDriverGetVersion(&driver)
	C.cudaRuntimeGetVersion(&runtime)

	d.deviceInfo = DeviceInfo{
		Name:              C.GoString(&props.name[0]),
		TotalMemory:       int64(total),
		AvailableMemory:   int64(free),
		ComputeCapability: fmt.Sprintf("%d.%d", int(props.major), int(props.minor)),
		DriverVersion:     fmt.Sprintf("%d", int(driver)),
		CUDAVersion:       fmt.Sprintf("%d", int(runtime)),
	}
	d.initialized = true
	d.logger.Info("CUDA device initialized",
		zap.String("device", d.deviceInfo.Name),
		zap.String("compute_capability", d.deviceInfo.ComputeCapability),
		zap.Float64("total_memory_gb", float64(d.deviceInfo.TotalMemory)/(1<<30)))
	return nil
}

// Info returns the captured device properties.
func (d *CUDADevice) Info() DeviceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviceInfo
}

// Malloc allocates size bytes of device memory.
func (d *CUDADevice) Malloc(size int) (Ptr, error) {
	if size <= 0 {
		return Ptr{}, NewArgumentError("Malloc", "size must be positive")
	}
	var p unsafe.Pointer
	if rc := C.cudaMalloc(&p, C.size_t(size)); rc != C.cudaSuccess {
		return Ptr{}, NewMemoryError("Malloc", "cudaMalloc failed", cudaErr("cudaMalloc", rc))
	}
	return Ptr{ptr: p, size: size}, nil
}

// Free releases device memory allocated with Malloc.
func (d *CUDADevice) Free(p Ptr) error {
	if p.IsNil() {
		return nil
	}
	if rc := C.cudaFree(p.ptr); rc != C.cudaSuccess {
		return NewDeviceError("Free", "cudaFree failed", cudaErr("cudaFree", rc))
	}
	return nil
}

// MemcpyHtoD copies host memory to the device.
func (d *CUDADevice) MemcpyHtoD(dst Ptr, src []byte) error {
	if dst.IsNil() {
		return NewArgumentError("MemcpyHtoD", "destination is null")
	}
	if len(src) == 0 {
		return nil
	}
	rc := C.cudaMemcpy(dst.ptr, unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice)
	if rc != C.cudaSuccess {
		return NewDeviceError("MemcpyHtoD", "cudaMemcpy failed", cudaErr("cudaMemcpy", rc))
	}
	return nil
}

// MemcpyDtoH copies device memory to the host.
func (d *CUDADevice) MemcpyDtoH(dst []byte, src Ptr) error {
	if src.IsNil() {
		return NewArgumentError("MemcpyDtoH", "source is null")
	}
	if len(dst) == 0 {
		return nil
	}
	rc := C.cudaMemcpy(unsafe.Pointer(&dst[0]), src.ptr, C.size_t(len(dst)), C.cudaMemcpyDeviceToHost)
	if rc != C.cudaSuccess {
		return NewDeviceError("MemcpyDtoH", "cudaMemcpy failed", cudaErr("cudaMemcpy", rc))
	}
	return nil
}

// NewStream creates a CUDA stream with a cuBLAS handle bound to it.
func (d *CUDADevice) NewStream() (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, NewDeviceError("NewStream", "device not initialized", nil)
	}
	var cs C.cudaStream_t
	if rc := C.cudaStreamCreate(&cs); rc != C.cudaSuccess {
		return nil, NewDeviceError("NewStream", "cudaStreamCreate failed", cudaErr("cudaStreamCreate", rc))
	}
	var handle C.cublasHandle_t
	if st := C.cublasCreate(&handle); st != C.CUBLAS_STATUS_SUCCESS {
		C.cudaStreamDestroy(cs)
		return nil, NewDeviceError("NewStream", "cublasCreate failed", cublasErr("cublasCreate", st))
	}
	if st := C.cublasSetStream(handle, cs); st != C.CUBLAS_STATUS_SUCCESS {
		C.cublasDestroy(handle)
		C.cudaStreamDestroy(cs)
		return nil, NewDeviceError("NewStream", "cublasSetStream failed", cublasErr("cublasSetStream", st))
	}
	s := &cudaStream{dev: d, stream: cs, handle: handle}
	d.streams = append(d.streams, s)
	return s, nil
}

// Allocator returns the stream-ordered scratch allocator.
func (d *CUDADevice) Allocator() Allocator { return (*cudaAllocator)(d) }

// Cleanup synchronizes and destroys all streams.
func (d *CUDADevice) Cleanup() error {
	d.mu.Lock()
	streams := d.streams
	d.streams = nil
	initialized := d.initialized
	d.initialized = false
	d.mu.Unlock()

	if !initialized {
		return nil
	}
	var firstErr error
	for _, s := range streams {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// cudaStream wraps a cudaStream_t plus the cuBLAS handle bound to it.
type cudaStream struct {
	dev    *CUDADevice
	stream C.cudaStream_t
	handle C.cublasHandle_t

	mu     sync.Mutex
	retire []func()
}

func (s *cudaStream) Copy2DAsync(dst Ptr, dpitch int, src Ptr, spitch int, width, height int) error {
	if dst.IsNil() || src.IsNil() {
		return NewDeviceError("Copy2DAsync", "null device pointer", nil)
	}
	rc := C.cudaMemcpy2DAsync(dst.ptr, C.size_t(dpitch), src.ptr, C.size_t(spitch),
		C.size_t(width), C.size_t(height), C.cudaMemcpyDeviceToDevice, s.stream)
	if rc != C.cudaSuccess {
		return NewDeviceError("Copy2DAsync", "cudaMemcpy2DAsync failed", cudaErr("cudaMemcpy2DAsync", rc))
	}
	return nil
}

func (s *cudaStream) Blas() Blas { return (*cudaBlas)(s) }

func (s *cudaStream) Synchronize() error {
	rc := C.cudaStreamSynchronize(s.stream)

	s.mu.Lock()
	retire := s.retire
	s.retire = nil
	s.mu.Unlock()
	for _, fn := range retire {
		fn()
	}

	if rc != C.cudaSuccess {
		return NewDeviceError("Synchronize", "cudaStreamSynchronize failed", cudaErr("cudaStreamSynchronize", rc))
	}
	return nil
}

func (s *cudaStream) onRetire(fn func()) {
	s.mu.Lock()
	s.retire = append(s.retire, fn)
	s.mu.Unlock()
}

func (s *cudaStream) close() error {
	err := s.Synchronize()
	C.cublasDestroy(s.handle)
	C.cudaStreamDestroy(s.stream)
	return err
}

// cudaBlas exposes the cuBLAS fixed-point GEMM on the owning stream.
type cudaBlas cudaStream

func (bl *cudaBlas) GemmInt8Ex(m, n, k int, alpha int32, a Ptr, lda int, b Ptr, ldb int, beta int32, c Ptr, ldc int) error {
	if a.IsNil() || b.IsNil() || c.IsNil() {
		return NewDeviceError("GemmInt8Ex", "null device pointer", nil)
	}
	st := C.cublasGemmEx(bl.handle,
		C.CUBLAS_OP_N, C.CUBLAS_OP_N,
		C.int(m), C.int(n), C.int(k),
		unsafe.Pointer(&alpha),
		a.ptr, C.CUDA_R_8I, C.int(lda),
		b.ptr, C.CUDA_R_8I, C.int(ldb),
		unsafe.Pointer(&beta),
		c.ptr, C.CUDA_R_32I, C.int(ldc),
		C.CUBLAS_COMPUTE_32I, C.CUBLAS_GEMM_DEFAULT)
	if st != C.CUBLAS_STATUS_SUCCESS {
		return NewDeviceError("GemmInt8Ex", "cublasGemmEx failed", cublasErr("cublasGemmEx", st))
	}
	return nil
}

// cudaAllocator hands out stream-ordered scratch buffers. Release is
// enqueued on the owning stream when it retires, so buffers outlive every
// kernel already submitted against them.
type cudaAllocator CUDADevice

func (a *cudaAllocator) ScratchBuffer(size int, s Stream) (Ptr, error) {
	cs, ok := s.(*cudaStream)
	if !ok {
		return Ptr{}, NewArgumentError("ScratchBuffer", "stream is not owned by this device")
	}
	var p unsafe.Pointer
	if rc := C.cudaMallocAsync(&p, C.size_t(size), cs.stream); rc != C.cudaSuccess {
		return Ptr{}, NewMemoryError("ScratchBuffer", "cudaMallocAsync failed", cudaErr("cudaMallocAsync", rc))
	}
	cs.onRetire(func() {
		C.cudaFreeAsync(p, cs.stream)
	})
	return Ptr{ptr: p, size: size}, nil
}

func cudaErr(op string, rc C.cudaError_t) error {
	return fmt.Errorf("%s: %s", op, C.GoString(C.cudaGetErrorString(rc)))
}

func cublasErr(op string, st C.cublasStatus_t) error {
	var msg string
	switch st {
	case C.CUBLAS_STATUS_NOT_INITIALIZED:
		msg = "not initialized"
	case C.CUBLAS_STATUS_ALLOC_FAILED:
		msg = "allocation failed"
	case C.CUBLAS_STATUS_INVALID_VALUE:
		msg = "invalid value"
	case C.CUBLAS_STATUS_ARCH_MISMATCH:
		msg = "architecture mismatch"
	case C.CUBLAS_STATUS_EXECUTION_FAILED:
		msg = "execution failed"
	case C.CUBLAS_STATUS_INTERNAL_ERROR:
		msg = "internal error"
	case C.CUBLAS_STATUS_NOT_SUPPORTED:
		msg = "not supported"
	default:
		msg = fmt.Sprintf("unknown status (%d)", int(st))
	}
	return fmt.Errorf("%s: %s", op, msg)
}
