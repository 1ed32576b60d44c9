package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesRead counts accepted accelerometer readings per sensor.
	SamplesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tremor_samples_read_total",
			Help: "Total accelerometer samples read, by sensor",
		},
		[]string{"sensor"},
	)

	// SensorReadFailures counts failed sensor reads per sensor.
	SensorReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tremor_sensor_read_failures_total",
			Help: "Total failed sensor reads, by sensor",
		},
		[]string{"sensor"},
	)

	// PacketsPublished counts packets successfully handed to the transport.
	PacketsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tremor_packets_published_total",
			Help: "Total feature packets successfully published",
		},
	)

	// PacketsSuppressed counts packets held back by the publish governor.
	PacketsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tremor_packets_suppressed_total",
			Help: "Total feature packets suppressed before publishing, by reason",
		},
		[]string{"reason"},
	)

	// PublishFailures counts transport send failures.
	PublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tremor_publish_failures_total",
			Help: "Total transport send failures",
		},
	)

	// BufferFill reports the current rolling-window fill level per sensor.
	BufferFill = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tremor_buffer_fill_samples",
			Help: "Current rolling-window fill level in samples, by sensor",
		},
		[]string{"sensor"},
	)
)
