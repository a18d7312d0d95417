//go:build !cuda
// +build !cuda

package device

import "go.uber.org/zap"

// CUDADevice is a stub type when the cuda build tag is not set.
type CUDADevice struct {
	logger *zap.Logger
}

// NewCUDADevice returns a stub that reports unavailable.
func NewCUDADevice(logger *zap.Logger) *CUDADevice {
	return &CUDADevice{logger: logger}
}

func (d *CUDADevice) IsAvailable() bool { return false }

func (d *CUDADevice) Initialize() error {
	return NewDeviceError("Initialize", "built without CUDA support", nil)
}

func (d *CUDADevice) Info() DeviceInfo {
	return DeviceInfo{Name: "CUDA not available"}
}

func (d *CUDADevice) NewStream() (Stream, error) {
	return nil, NewDeviceError("NewStream", "built without CUDA support", nil)
}

func (d *CUDADevice) Malloc(size int) (Ptr, error) {
	return Ptr{}, NewDeviceError("Malloc", "built without CUDA support", nil)
}

func (d *CUDADevice) Free(p Ptr) error { return nil }

func (d *CUDADevice) MemcpyHtoD(dst Ptr, src []byte) error {
	return NewDeviceError("MemcpyHtoD", "built without CUDA support", nil)
}

func (d *CUDADevice) MemcpyDtoH(dst []byte, src Ptr) error {
	return NewDeviceError("MemcpyDtoH", "built without CUDA support", nil)
}

func (d *CUDADevice) Allocator() Allocator { return nil }

func (d *CUDADevice) Cleanup() error { return nil }
