package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatcher metrics
	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igemm_dispatch_total",
		Help: "Total integer GEMM dispatches, partitioned by which operands needed an aligned repack",
	}, []string{"padded"})

	ScratchBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igemm_scratch_bytes_total",
		Help: "Total bytes of stream-scoped scratch memory requested for operand repacking",
	})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "igemm_dispatch_duration_us",
		Help:    "Host-side time to enqueue one integer GEMM dispatch in microseconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1us to ~16ms
	})

	// Device metrics
	DeviceMemoryTotalBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "igemm_device_memory_total_bytes",
		Help: "Total memory of the selected compute device in bytes",
	})

	DeviceMemoryAvailableBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "igemm_device_memory_available_bytes",
		Help: "Available memory of the selected compute device in bytes",
	})
)
