package pipeline

import "github.com/neuromotion-data/tremor/internal/dsp"

// ChannelFeatures groups the per-axis feature records plus the derived
// magnitude channel for one sensor.
type ChannelFeatures struct {
	X         dsp.FeatureRecord `json:"x"`
	Y         dsp.FeatureRecord `json:"y"`
	Z         dsp.FeatureRecord `json:"z"`
	Magnitude dsp.FeatureRecord `json:"magnitude"`
}

// RawSample is the most recent raw accelerometer reading per axis, in g.
type RawSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// KeyMetrics is the reduced per-sensor payload sent when the governor is
// configured with key-metrics-only forwarding: the magnitude channel's
// RMS and tremor index plus the latest magnitude reading.
type KeyMetrics struct {
	RMS            float64 `json:"rms"`
	TremorIndex    float64 `json:"tremor_index"`
	Magnitude      float64 `json:"magnitude"`
	IsParkinsonian bool    `json:"is_parkinsonian"`
}

// DataPacket is one processing cycle's output: per-sensor feature records
// and the latest raw readings. It is built once per cycle and owned by
// the collector until handed to the governor, which may augment it with
// compliance metadata before forwarding.
type DataPacket struct {
	Timestamp float64 `json:"timestamp"`

	// Features carries the full per-channel records. It is nil on
	// key-metrics-only packets, where KeyMetrics is set instead.
	Features   map[string]ChannelFeatures `json:"features,omitempty"`
	KeyMetrics map[string]KeyMetrics      `json:"key_metrics,omitempty"`
	RawLatest  map[string]RawSample       `json:"raw_latest,omitempty"`

	// Compliance metadata injected by the governor before handoff.
	DeviceID    string `json:"device_id,omitempty"`
	DataVersion string `json:"data_version,omitempty"`
}

// SensorNames returns the sensors present in the packet, whichever of
// the full or reduced feature maps is populated.
func (p *DataPacket) SensorNames() []string {
	m := len(p.Features)
	if m == 0 {
		m = len(p.KeyMetrics)
	}
	names := make([]string, 0, m)
	if len(p.Features) > 0 {
		for name := range p.Features {
			names = append(names, name)
		}
		return names
	}
	for name := range p.KeyMetrics {
		names = append(names, name)
	}
	return names
}

// Publisher decides whether a computed packet is forwarded. It returns
// true when the cycle is considered handled, which includes throttled
// cycles that are deliberately reported as successful.
type Publisher interface {
	Publish(p *DataPacket) bool
}
