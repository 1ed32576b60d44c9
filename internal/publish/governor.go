// Package publish implements the rate governor that decides which
// computed feature packets reach the outbound transport.
package publish

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neuromotion-data/tremor/internal/monitoring"
	"github.com/neuromotion-data/tremor/internal/pipeline"
	"github.com/neuromotion-data/tremor/internal/timeutil"
)

// DataVersion is the wire schema version injected into every forwarded
// packet.
const DataVersion = "1.0"

// Defaults for the governor throttles.
const (
	DefaultDecimationFactor = 10
	DefaultDeltaThreshold   = 0.05
	DefaultMinInterval      = time.Second
)

// Sink is the transport boundary the governor forwards to. Send reports
// delivery success; the governor never blocks or retries on failure.
type Sink interface {
	Send(p *pipeline.DataPacket) bool
}

// Options configures the governor's throttles.
type Options struct {
	// DecimationFactor forwards only every Nth cycle. Values below 2
	// disable decimation.
	DecimationFactor int

	// DeltaThreshold is the relative change required in at least one
	// tracked metric before an eligible packet is re-sent.
	DeltaThreshold float64

	// MinInterval is the minimum spacing between successful sends. A
	// throttled cycle is reported as success without publishing.
	MinInterval time.Duration

	// SummaryWindow, when positive, switches the governor into
	// time-windowed summarization: cycles are aggregated and at most one
	// summary packet is emitted per window.
	SummaryWindow time.Duration

	// KeyMetricsOnly strips axis-level detail before handoff.
	KeyMetricsOnly bool

	// DeviceID identifies this rig in forwarded packets. Empty generates
	// a random id.
	DeviceID string
}

// Governor owns all publish-rate state: the decimation counter, the
// dead-band baseline and the last-send timestamp. State is mutated only
// by Publish, only on successful handoff, and only from the pipeline's
// single goroutine.
type Governor struct {
	opts  Options
	sink  Sink
	clock timeutil.Clock

	cycles   int
	hasSent  bool
	lastSent time.Time
	baseline map[string]float64

	sum summaryState
}

// New creates a governor. Zero option fields select the defaults.
func New(opts Options, sink Sink, clock timeutil.Clock) *Governor {
	if opts.DecimationFactor == 0 {
		opts.DecimationFactor = DefaultDecimationFactor
	}
	if opts.DeltaThreshold == 0 {
		opts.DeltaThreshold = DefaultDeltaThreshold
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.DeviceID == "" {
		opts.DeviceID = NewDeviceID()
	}
	return &Governor{opts: opts, sink: sink, clock: clock}
}

// NewDeviceID generates a fresh rig identifier, used both as the packet
// device id and as the MQTT client id.
func NewDeviceID() string {
	return "tremor-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// DeviceID returns the id stamped into forwarded packets.
func (g *Governor) DeviceID() string {
	return g.opts.DeviceID
}

// Publish runs the throttle chain on one cycle's packet and forwards it
// when every gate passes. The return value reports whether the cycle is
// considered handled: a real send, or a min-interval throttle that is
// deliberately treated as a success without publishing.
func (g *Governor) Publish(p *pipeline.DataPacket) bool {
	g.cycles++

	if g.opts.SummaryWindow > 0 {
		return g.summarize(p)
	}

	if g.opts.DecimationFactor > 1 && g.cycles%g.opts.DecimationFactor != 0 {
		monitoring.PacketsSuppressed.WithLabelValues("decimation").Inc()
		return false
	}

	metrics := metricsOf(p)
	if g.hasSent && !changedBeyond(g.baseline, metrics, g.opts.DeltaThreshold) {
		monitoring.PacketsSuppressed.WithLabelValues("dead_band").Inc()
		return false
	}

	if g.hasSent && g.clock.Since(g.lastSent) < g.opts.MinInterval {
		// Throttled cycles report success without a send. The baseline is
		// untouched so the next cycle still compares against the last
		// packet that actually went out.
		monitoring.PacketsSuppressed.WithLabelValues("min_interval").Inc()
		return true
	}

	return g.send(p, metrics)
}

// send stamps, optionally strips, and forwards the packet. Governor
// state advances only when the sink reports success, keeping the
// dead-band comparison valid for a retry on the next cycle.
func (g *Governor) send(p *pipeline.DataPacket, metrics map[string]float64) bool {
	out := p
	if g.opts.KeyMetricsOnly {
		out = stripToKeyMetrics(p)
	}
	out.Timestamp = float64(g.clock.Now().UnixNano()) / 1e9
	out.DeviceID = g.opts.DeviceID
	out.DataVersion = DataVersion

	if !g.sink.Send(out) {
		monitoring.Logf("publish: transport send failed, packet dropped")
		monitoring.PublishFailures.Inc()
		return false
	}

	g.hasSent = true
	g.lastSent = g.clock.Now()
	g.baseline = metrics
	monitoring.PacketsPublished.Inc()
	return true
}

// stripToKeyMetrics reduces a full packet to per-sensor RMS and tremor
// index from the magnitude channel plus the latest magnitude reading.
func stripToKeyMetrics(p *pipeline.DataPacket) *pipeline.DataPacket {
	key := make(map[string]pipeline.KeyMetrics, len(p.Features))
	for name, feat := range p.Features {
		km := pipeline.KeyMetrics{
			RMS:            feat.Magnitude.RMS,
			TremorIndex:    feat.Magnitude.TremorIndex,
			IsParkinsonian: feat.Magnitude.IsParkinsonian,
		}
		if raw, ok := p.RawLatest[name]; ok {
			km.Magnitude = math.Sqrt(raw.X*raw.X + raw.Y*raw.Y + raw.Z*raw.Z)
		}
		key[name] = km
	}
	return &pipeline.DataPacket{
		Timestamp:  p.Timestamp,
		KeyMetrics: key,
	}
}

// metricsOf flattens the packet's tracked scalar metrics for dead-band
// comparison: RMS and tremor index of every channel of every sensor.
func metricsOf(p *pipeline.DataPacket) map[string]float64 {
	m := make(map[string]float64, len(p.Features)*8)
	for name, feat := range p.Features {
		channels := map[string]*struct{ rms, index float64 }{
			"x":         {feat.X.RMS, feat.X.TremorIndex},
			"y":         {feat.Y.RMS, feat.Y.TremorIndex},
			"z":         {feat.Z.RMS, feat.Z.TremorIndex},
			"magnitude": {feat.Magnitude.RMS, feat.Magnitude.TremorIndex},
		}
		for ch, v := range channels {
			m[name+"/"+ch+"/rms"] = v.rms
			m[name+"/"+ch+"/tremor_index"] = v.index
		}
	}
	return m
}

// changedBeyond reports whether any metric moved by at least threshold,
// relative to its baseline value. Metrics appearing or disappearing
// count as changed.
func changedBeyond(baseline, current map[string]float64, threshold float64) bool {
	if len(baseline) != len(current) {
		return true
	}
	for key, now := range current {
		prev, ok := baseline[key]
		if !ok {
			return true
		}
		delta := math.Abs(now - prev)
		if delta == 0 {
			continue
		}
		denom := math.Abs(prev)
		if denom < 1e-12 {
			// Any movement off an exact-zero baseline is a change.
			return true
		}
		if delta/denom >= threshold {
			return true
		}
	}
	return false
}
