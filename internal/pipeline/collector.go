package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/neuromotion-data/tremor/internal/dsp"
	"github.com/neuromotion-data/tremor/internal/monitoring"
	"github.com/neuromotion-data/tremor/internal/sensor"
	"github.com/neuromotion-data/tremor/internal/timeutil"
)

// State is the collector's position in its per-tick cycle.
type State int

const (
	StateIdle State = iota
	StateFilling
	StateReady
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFilling:
		return "filling"
	case StateReady:
		return "ready"
	case StatePublishing:
		return "publishing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// statusLogInterval is the tick period of the buffer-fill progress log.
const statusLogInterval = 100

// Collector runs the acquisition cycle: read every sensor, append into
// the rolling windows, and once all sensors are ready extract features
// for x, y, z and magnitude, assemble a DataPacket and hand it to the
// publisher. Buffers are never cleared between cycles; the window rolls.
//
// A Collector is single-threaded by design: all buffer and governor
// state is touched only from Run's goroutine.
type Collector struct {
	sensors   map[string]sensor.Source
	buffers   *Buffers
	extractor *dsp.Extractor
	publisher Publisher
	clock     timeutil.Clock

	interval time.Duration
	state    State
	ticks    int
}

// NewCollector wires a collector. samplingRate is in Hz and must be
// positive (validated by the configuration layer).
func NewCollector(sensors map[string]sensor.Source, windowSize int, samplingRate float64, extractor *dsp.Extractor, publisher Publisher, clock timeutil.Clock) *Collector {
	names := make([]string, 0, len(sensors))
	for name := range sensors {
		names = append(names, name)
	}
	return &Collector{
		sensors:   sensors,
		buffers:   NewBuffers(windowSize, names),
		extractor: extractor,
		publisher: publisher,
		clock:     clock,
		interval:  time.Duration(float64(time.Second) / samplingRate),
		state:     StateIdle,
	}
}

// State returns the collector's current cycle state.
func (c *Collector) State() State {
	return c.state
}

// Ticks returns the number of completed ticks.
func (c *Collector) Ticks() int {
	return c.ticks
}

// Initialize brings up every sensor source. A sensor that fails to
// initialize is logged and kept; its reads will fail until it recovers,
// which stalls packet assembly but never the loop.
func (c *Collector) Initialize() {
	for _, name := range c.buffers.Sensors() {
		if err := c.sensors[name].Initialize(); err != nil {
			monitoring.Logf("sensor %s: initialize failed: %v", name, err)
			continue
		}
		monitoring.Logf("sensor %s: initialized", name)
	}
	c.state = StateFilling
}

// Run executes the sampling loop until ctx is cancelled. Each tick's
// work is followed by a sleep of whatever remains of the sampling
// interval; an overlong tick starts the next one immediately with no
// catch-up, trading rate drift for the absence of backlog.
func (c *Collector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.state = StateIdle
			return
		default:
		}

		start := c.clock.Now()
		c.Tick()
		if remaining := c.interval - c.clock.Since(start); remaining > 0 {
			c.clock.Sleep(remaining)
		}
	}
}

// Tick performs one acquisition cycle.
func (c *Collector) Tick() {
	c.ticks++

	for _, name := range c.buffers.Sensors() {
		r, err := c.sensors[name].Read()
		if err != nil {
			monitoring.Logf("sensor %s: read failed: %v", name, err)
			monitoring.SensorReadFailures.WithLabelValues(name).Inc()
			continue
		}
		if r == nil {
			continue
		}
		if err := c.buffers.Append(name, r.X, r.Y, r.Z); err != nil {
			monitoring.Logf("sensor %s: %v", name, err)
			continue
		}
		monitoring.SamplesRead.WithLabelValues(name).Inc()
		monitoring.BufferFill.WithLabelValues(name).Set(float64(c.buffers.Fill(name)))
	}

	if c.ticks%statusLogInterval == 0 {
		c.logFillStatus()
	}

	if !c.buffers.AllReady() {
		c.state = StateFilling
		return
	}
	c.state = StateReady

	packet := c.assemble()
	if packet == nil {
		c.state = StateFilling
		return
	}

	c.state = StatePublishing
	c.publisher.Publish(packet)
	c.state = StateFilling
}

// assemble extracts features for every sensor and builds the packet.
// A per-sensor extraction failure is logged and drops that sensor from
// the packet without aborting the others; nil is returned when nothing
// could be extracted.
func (c *Collector) assemble() *DataPacket {
	features := make(map[string]ChannelFeatures, len(c.sensors))
	rawLatest := make(map[string]RawSample, len(c.sensors))

	for _, name := range c.buffers.Sensors() {
		x, y, z := c.buffers.Axes(name)

		fx, err := c.extractor.Process(x)
		if err != nil {
			monitoring.Logf("sensor %s: extraction failed on x: %v", name, err)
			continue
		}
		fy, err := c.extractor.Process(y)
		if err != nil {
			monitoring.Logf("sensor %s: extraction failed on y: %v", name, err)
			continue
		}
		fz, err := c.extractor.Process(z)
		if err != nil {
			monitoring.Logf("sensor %s: extraction failed on z: %v", name, err)
			continue
		}
		fm, err := c.extractor.Process(c.buffers.Magnitude(name))
		if err != nil {
			monitoring.Logf("sensor %s: extraction failed on magnitude: %v", name, err)
			continue
		}

		features[name] = ChannelFeatures{X: fx, Y: fy, Z: fz, Magnitude: fm}
		if lx, ly, lz, ok := c.buffers.Latest(name); ok {
			rawLatest[name] = RawSample{X: lx, Y: ly, Z: lz}
		}
	}

	if len(features) == 0 {
		return nil
	}
	return &DataPacket{
		Timestamp: float64(c.clock.Now().UnixNano()) / 1e9,
		Features:  features,
		RawLatest: rawLatest,
	}
}

func (c *Collector) logFillStatus() {
	for _, name := range c.buffers.Sensors() {
		monitoring.Logf("tick %d: sensor %s buffer %d/%d", c.ticks, name, c.buffers.Fill(name), c.buffers.Size())
	}
}

// Close releases every sensor source. Transport shutdown belongs to the
// owner of the sink.
func (c *Collector) Close() {
	for _, name := range c.buffers.Sensors() {
		if err := c.sensors[name].Close(); err != nil {
			monitoring.Logf("sensor %s: close failed: %v", name, err)
		}
	}
}
