//go:build cuda
// +build cuda

package device

import "go.uber.org/zap"

// tryCreateCUDADevice returns a CUDA device when the build includes CUDA
// support. Availability is still probed at runtime by the Manager.
func tryCreateCUDADevice(logger *zap.Logger) Device {
	return NewCUDADevice(logger)
}
