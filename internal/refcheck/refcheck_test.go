package refcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGemmInt8_PlainProduct(t *testing.T) {
	a := []int8{ // 2×3
		1, 2, 3,
		4, 5, 6,
	}
	b := []int8{ // 3×2
		7, 8,
		9, 10,
		11, 12,
	}

	got := GemmInt8(2, 2, 3, 1, 0, a, 3, b, 2, nil, 2)
	assert.Equal(t, []int32{58, 64, 139, 154}, got)
}

func TestGemmInt8_AlphaBeta(t *testing.T) {
	a := []int8{2}
	b := []int8{3}
	c := []int32{10}

	got := GemmInt8(1, 1, 1, 5, -2, a, 1, b, 1, c, 1)
	assert.Equal(t, []int32{5*6 - 2*10}, got)
	assert.Equal(t, []int32{10}, c, "input C must not be modified")
}

func TestGemmInt8_RespectsLeadingDimensions(t *testing.T) {
	// Logical 2×2 matrices embedded in wider storage.
	a := []int8{
		1, 2, 99, 99, 99,
		3, 4, 99, 99, 99,
	}
	b := []int8{
		5, 6, 77,
		7, 8, 77,
	}

	got := GemmInt8(2, 2, 2, 1, 0, a, 5, b, 3, nil, 2)
	assert.Equal(t, []int32{19, 22, 43, 50}, got)
}

func TestGemmInt8_NegativeOperands(t *testing.T) {
	a := []int8{-128, 127}
	b := []int8{127, -128}

	got := GemmInt8(1, 1, 2, 1, 0, a, 2, b, 1, nil, 1)
	assert.Equal(t, []int32{-128*127 + 127*(-128)}, got)
}
