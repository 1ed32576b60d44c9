package sensor

import (
	"math"
	"math/rand"
	"time"
)

// SyntheticSource generates a deterministic sine-plus-noise signal per
// axis, for development runs and tests without hardware. One reading is
// produced per Read call; sample spacing follows the configured rate
// regardless of wall-clock time.
type SyntheticSource struct {
	FreqHz       float64    // tremor frequency of the generated sine
	SampleRateHz float64    // nominal sampling rate used for sample spacing
	Amplitude    [3]float64 // per-axis sine amplitude in g
	Offset       [3]float64 // per-axis constant offset in g (gravity etc.)
	NoiseStdDev  float64    // gaussian noise sigma in g, 0 for a clean signal
	Seed         int64      // rng seed, fixed so runs are reproducible

	rng *rand.Rand
	n   int
}

// Initialize seeds the noise generator.
func (s *SyntheticSource) Initialize() error {
	if s.SampleRateHz == 0 {
		s.SampleRateHz = 100
	}
	s.rng = rand.New(rand.NewSource(s.Seed))
	s.n = 0
	return nil
}

// Read returns the next synthetic sample. It never fails and always has
// new data.
func (s *SyntheticSource) Read() (*Reading, error) {
	t := float64(s.n) / s.SampleRateHz
	s.n++

	phase := 2 * math.Pi * s.FreqHz * t
	r := &Reading{
		X:         s.Offset[0] + s.Amplitude[0]*math.Sin(phase),
		Y:         s.Offset[1] + s.Amplitude[1]*math.Sin(phase),
		Z:         s.Offset[2] + s.Amplitude[2]*math.Sin(phase),
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	}
	if s.NoiseStdDev > 0 {
		r.X += s.rng.NormFloat64() * s.NoiseStdDev
		r.Y += s.rng.NormFloat64() * s.NoiseStdDev
		r.Z += s.rng.NormFloat64() * s.NoiseStdDev
	}
	return r, nil
}

// Close releases nothing; synthetic sources hold no resources.
func (s *SyntheticSource) Close() error {
	return nil
}
