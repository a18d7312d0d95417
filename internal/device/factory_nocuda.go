//go:build !cuda
// +build !cuda

package device

import "go.uber.org/zap"

// tryCreateCUDADevice returns nil when the build excludes CUDA support.
func tryCreateCUDADevice(logger *zap.Logger) Device {
	return nil
}
