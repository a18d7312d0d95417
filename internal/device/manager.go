package device

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Backend preference values accepted by NewManager.
const (
	BackendAuto = "auto"
	BackendCUDA = "cuda"
	BackendSim  = "sim"
)

// Manager handles device selection and lifecycle. It prefers CUDA when the
// binary was built with it and hardware is present, and falls back to the
// host simulator otherwise.
type Manager struct {
	mu     sync.RWMutex
	device Device
	logger *zap.Logger
}

// NewManager creates a manager and initializes the device matching the
// preference: "cuda" demands CUDA, "sim" forces the simulator, "auto" takes
// the best available.
func NewManager(logger *zap.Logger, prefer string) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{logger: logger}
	if err := m.detectAndInitialize(prefer); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) detectAndInitialize(prefer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch prefer {
	case "", BackendAuto, BackendCUDA:
		if cuda := tryCreateCUDADevice(m.logger.Named("cuda")); cuda != nil && cuda.IsAvailable() {
			if err := cuda.Initialize(); err == nil {
				m.logger.Info("using CUDA device", zap.String("name", cuda.Info().Name))
				m.device = cuda
				return nil
			} else {
				m.logger.Warn("CUDA device failed to initialize", zap.Error(err))
				_ = cuda.Cleanup()
			}
		}
		if prefer == BackendCUDA {
			return NewDeviceError("NewManager", "CUDA backend requested but not usable", nil)
		}
	case BackendSim:
		// fall through to the simulator
	default:
		return NewArgumentError("NewManager", fmt.Sprintf("unknown backend preference %q", prefer))
	}

	sim := NewSimDevice(m.logger.Named("sim"))
	if err := sim.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize simulator device: %w", err)
	}
	m.logger.Info("using simulator device")
	m.device = sim
	return nil
}

// Device returns the selected device.
func (m *Manager) Device() Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.device
}

// NewExecContext creates a fresh stream on the selected device and bundles
// it with the device's scratch allocator.
func (m *Manager) NewExecContext() (*ExecContext, error) {
	dev := m.Device()
	if dev == nil {
		return nil, NewDeviceError("NewExecContext", "no device available", nil)
	}
	s, err := dev.NewStream()
	if err != nil {
		return nil, err
	}
	return &ExecContext{Stream: s, Allocator: dev.Allocator()}, nil
}

// Info returns device information from the selected device.
func (m *Manager) Info() DeviceInfo {
	dev := m.Device()
	if dev == nil {
		return DeviceInfo{Name: "no device available"}
	}
	return dev.Info()
}

// IsAccelerated reports whether the selected device is real hardware rather
// than the simulator.
func (m *Manager) IsAccelerated() bool {
	dev := m.Device()
	if dev == nil {
		return false
	}
	_, isSim := dev.(*SimDevice)
	return !isSim
}

// BackendType returns a short name for the selected device.
func (m *Manager) BackendType() string {
	dev := m.Device()
	switch {
	case dev == nil:
		return "none"
	case !m.IsAccelerated():
		return BackendSim
	default:
		return BackendCUDA
	}
}

// Cleanup releases the selected device.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		if err := m.device.Cleanup(); err != nil {
			return err
		}
		m.device = nil
	}
	return nil
}
