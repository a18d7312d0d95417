package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDispatcherMetrics(t *testing.T) {
	t.Run("Dispatches", func(t *testing.T) {
		before := testutil.ToFloat64(Dispatches.WithLabelValues("both"))
		Dispatches.WithLabelValues("both").Inc()
		assert.Equal(t, before+1, testutil.ToFloat64(Dispatches.WithLabelValues("both")))
	})

	t.Run("ScratchBytes", func(t *testing.T) {
		before := testutil.ToFloat64(ScratchBytes)
		ScratchBytes.Add(2 * 32)
		assert.Equal(t, before+64, testutil.ToFloat64(ScratchBytes))
	})

	t.Run("DispatchDuration", func(t *testing.T) {
		assert.NotPanics(t, func() {
			DispatchDuration.Observe(12.5)
		})
	})

	t.Run("DeviceMemoryGauges", func(t *testing.T) {
		DeviceMemoryTotalBytes.Set(1 << 30)
		DeviceMemoryAvailableBytes.Set(1 << 29)
		assert.Equal(t, float64(1<<30), testutil.ToFloat64(DeviceMemoryTotalBytes))
		assert.Equal(t, float64(1<<29), testutil.ToFloat64(DeviceMemoryAvailableBytes))
	})
}
