package tinysa

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK             = "ok"
	outcomeInvalid        = "invalid"
	outcomeUnimplemented  = "unimplemented"
	outcomeUnknown        = "unknown"
	outcomeTransportFault = "io_error"

	// command label for names not in the registry
	unknownCommandLabel = "unknown"
)

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinysa",
			Name:      "commands_total",
			Help:      "Commands dispatched by outcome.",
		},
		[]string{"command", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tinysa",
			Name:      "command_duration_seconds",
			Help:      "Time from write to complete frame.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	frameBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinysa",
			Name:      "frame_bytes_total",
			Help:      "Bytes received in complete frames.",
		},
	)
)

// RegisterMetrics registers the collectors with the default registry. Safe to call repeatedly.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsTotal, commandDuration, frameBytes)
	})
}

func recordCommand(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

func recordFrame(command string, n int, d time.Duration) {
	commandDuration.WithLabelValues(command).Observe(d.Seconds())
	frameBytes.Add(float64(n))
}
