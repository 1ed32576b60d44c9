// Package pipeline ties sensor sampling, rolling-window buffering,
// feature extraction and publish handoff into one per-tick cycle.
package pipeline

import (
	"fmt"
	"math"
	"sort"
)

// axisWindow holds the three rolling axis buffers for one sensor. All
// three are appended together so they always have equal length.
type axisWindow struct {
	x, y, z []float64
}

// Buffers manages fixed-capacity rolling sample windows, one per
// (sensor, axis) pair. Sensors fill independently; readiness is reported
// per sensor. Not safe for concurrent use.
type Buffers struct {
	size    int
	names   []string
	windows map[string]*axisWindow
}

// NewBuffers creates rolling windows of windowSize samples for the given
// sensors. Sensor names are kept in sorted order so packet assembly is
// deterministic.
func NewBuffers(windowSize int, sensors []string) *Buffers {
	names := make([]string, len(sensors))
	copy(names, sensors)
	sort.Strings(names)

	windows := make(map[string]*axisWindow, len(names))
	for _, name := range names {
		windows[name] = &axisWindow{
			x: make([]float64, 0, windowSize),
			y: make([]float64, 0, windowSize),
			z: make([]float64, 0, windowSize),
		}
	}
	return &Buffers{size: windowSize, names: names, windows: windows}
}

// Size returns the window capacity in samples.
func (b *Buffers) Size() int {
	return b.size
}

// Sensors returns the managed sensor names in sorted order. The caller
// must not modify the returned slice.
func (b *Buffers) Sensors() []string {
	return b.names
}

// Append pushes one sample per axis into the sensor's windows, evicting
// the oldest sample once the capacity is exceeded.
func (b *Buffers) Append(sensor string, x, y, z float64) error {
	w, ok := b.windows[sensor]
	if !ok {
		return fmt.Errorf("unknown sensor %q", sensor)
	}
	w.x = push(w.x, x, b.size)
	w.y = push(w.y, y, b.size)
	w.z = push(w.z, z, b.size)
	return nil
}

func push(buf []float64, v float64, size int) []float64 {
	if len(buf) == size {
		copy(buf, buf[1:])
		buf[size-1] = v
		return buf
	}
	return append(buf, v)
}

// Fill returns the current sample count for the sensor.
func (b *Buffers) Fill(sensor string) int {
	w, ok := b.windows[sensor]
	if !ok {
		return 0
	}
	return len(w.x)
}

// Ready reports whether all three axis windows for the sensor hold
// exactly the window size.
func (b *Buffers) Ready(sensor string) bool {
	return b.Fill(sensor) == b.size
}

// AllReady reports whether every managed sensor is ready. The collector
// waits for all sensors before running extraction so packets stay
// time-aligned.
func (b *Buffers) AllReady() bool {
	for _, name := range b.names {
		if !b.Ready(name) {
			return false
		}
	}
	return len(b.names) > 0
}

// Axes returns the sensor's current axis windows. The slices are views
// into internal storage, valid only until the next Append; callers must
// not mutate or retain them.
func (b *Buffers) Axes(sensor string) (x, y, z []float64) {
	w, ok := b.windows[sensor]
	if !ok {
		return nil, nil, nil
	}
	return w.x, w.y, w.z
}

// Magnitude computes the elementwise vector magnitude over the sensor's
// current windows. It is computed fresh on every call and never cached.
func (b *Buffers) Magnitude(sensor string) []float64 {
	w, ok := b.windows[sensor]
	if !ok {
		return nil
	}
	out := make([]float64, len(w.x))
	for i := range out {
		out[i] = math.Sqrt(w.x[i]*w.x[i] + w.y[i]*w.y[i] + w.z[i]*w.z[i])
	}
	return out
}

// Latest returns the most recent raw sample per axis.
func (b *Buffers) Latest(sensor string) (x, y, z float64, ok bool) {
	w, found := b.windows[sensor]
	if !found || len(w.x) == 0 {
		return 0, 0, 0, false
	}
	n := len(w.x) - 1
	return w.x[n], w.y[n], w.z[n], true
}
