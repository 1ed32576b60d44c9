// Package sensor provides tri-axial accelerometer sample sources for the
// tremor pipeline.
package sensor

// Reading is one tri-axial accelerometer sample in g units.
type Reading struct {
	X         float64
	Y         float64
	Z         float64
	Timestamp float64 // seconds since epoch
}

// Source is implemented by anything that can produce accelerometer
// readings. Read returns nil when no new data is available this tick,
// which is not an error; a returned error is logged by the caller and
// treated as "no sample" for that tick.
type Source interface {
	Initialize() error
	Read() (*Reading, error)
	Close() error
}
