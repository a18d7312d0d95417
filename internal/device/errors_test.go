package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClasses(t *testing.T) {
	argErr := NewArgumentError("GemmInt8", "input matrix should not be null")
	memErr := NewMemoryError("ScratchBuffer", "arena exhausted", nil)
	devErr := NewDeviceError("Copy2DAsync", "copy failed", errors.New("invalid stream"))

	assert.True(t, IsArgumentError(argErr))
	assert.False(t, IsDeviceError(argErr))
	assert.True(t, IsMemoryError(memErr))
	assert.True(t, IsDeviceError(devErr))
	assert.False(t, IsArgumentError(nil))
}

func TestErrorMessage(t *testing.T) {
	err := NewDeviceError("GemmInt8Ex", "kernel rejected launch", errors.New("invalid value"))
	assert.Equal(t, "device error in GemmInt8Ex: kernel rejected launch: invalid value", err.Error())

	plain := NewArgumentError("GemmInt8", "missing stream")
	assert.Equal(t, "argument error in GemmInt8: missing stream", plain.Error())
}

func TestErrorClassSurvivesWrapping(t *testing.T) {
	inner := NewDeviceError("GemmInt8Ex", "execution failed", nil)
	wrapped := fmt.Errorf("dispatch failed: %w", inner)

	assert.True(t, IsDeviceError(wrapped))

	var de *Error
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, ErrClassDevice, de.Class)
	assert.Equal(t, "GemmInt8Ex", de.Op)
}
