// Package dsp implements the tremor feature-extraction chain: zero-phase
// Butterworth low-pass filtering and spectral feature computation over
// fixed-length accelerometer sample windows.
package dsp

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientSamples reports an input series too short for the
// configured filter order. The minimum is FilterSpec.MinSamples.
var ErrInsufficientSamples = errors.New("insufficient samples for filter")

// DefaultFilterOrder is the Butterworth order used when none is configured.
const DefaultFilterOrder = 4

// FilterSpec describes a Butterworth low-pass design. It is immutable
// once handed to NewLowPass.
type FilterSpec struct {
	CutoffHz     float64
	SampleRateHz float64
	Order        int
}

// Validate checks the design against the Nyquist limit. A violation is a
// configuration error and must be caught before the sampling loop starts.
func (s FilterSpec) Validate() error {
	if s.SampleRateHz <= 0 {
		return fmt.Errorf("sample rate must be positive, got %g", s.SampleRateHz)
	}
	if s.CutoffHz <= 0 {
		return fmt.Errorf("cutoff must be positive, got %g", s.CutoffHz)
	}
	if s.CutoffHz >= s.SampleRateHz/2 {
		return fmt.Errorf("cutoff %g Hz violates Nyquist limit for %g Hz sampling", s.CutoffHz, s.SampleRateHz)
	}
	if s.Order < 1 {
		return fmt.Errorf("filter order must be at least 1, got %d", s.Order)
	}
	return nil
}

// MinSamples returns the shortest input length Apply accepts.
func (s FilterSpec) MinSamples() int {
	return 3*s.Order + 1
}

// biquad is one second-order section in transposed direct form II.
// A first-order section has B2 == A2 == 0.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// LowPass is a zero-phase Butterworth low-pass filter realized as a
// cascade of second-order sections run forward and then backward over the
// input. It keeps no state between calls, so one instance may process
// interleaved axis or sensor streams safely.
type LowPass struct {
	spec     FilterSpec
	sections []biquad
}

// NewLowPass designs a low-pass filter for the given spec. The spec must
// already have been validated; NewLowPass re-checks it to fail loudly on
// programming errors.
func NewLowPass(spec FilterSpec) (*LowPass, error) {
	if spec.Order == 0 {
		spec.Order = DefaultFilterOrder
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter spec: %w", err)
	}
	return &LowPass{
		spec:     spec,
		sections: butterworthLP(spec.CutoffHz, spec.Order, spec.SampleRateHz),
	}, nil
}

// Spec returns the design the filter was built from.
func (f *LowPass) Spec() FilterSpec {
	return f.spec
}

// Apply runs the filter forward and backward over samples and returns a
// new slice of equal length with zero group delay. Inputs shorter than
// MinSamples return ErrInsufficientSamples. The input is not modified.
func (f *LowPass) Apply(samples []float64) ([]float64, error) {
	min := f.spec.MinSamples()
	if len(samples) < min {
		return nil, fmt.Errorf("%w: got %d samples, need at least %d", ErrInsufficientSamples, len(samples), min)
	}

	// Odd extension at both ends suppresses the startup transient of the
	// forward and backward passes, mirroring the usual filtfilt treatment.
	pad := 3 * f.spec.Order
	ext := oddExtend(samples, pad)

	f.run(ext)
	reverse(ext)
	f.run(ext)
	reverse(ext)

	out := make([]float64, len(samples))
	copy(out, ext[pad:len(ext)-pad])
	return out, nil
}

// run filters x in place through the section cascade. Each section
// starts from its steady-state response to the first sample, the
// filtfilt initial-condition treatment: with zeroed state the startup
// transient leaves a residual floor that dominates the stopband.
func (f *LowPass) run(x []float64) {
	for _, s := range f.sections {
		c := x[0]
		y0 := c * (s.b0 + s.b1 + s.b2) / (1 + s.a1 + s.a2)
		z2 := s.b2*c - s.a2*y0
		z1 := s.b1*c - s.a1*y0 + z2
		for i, v := range x {
			y := s.b0*v + z1
			z1 = s.b1*v - s.a1*y + z2
			z2 = s.b2*v - s.a2*y
			x[i] = y
		}
	}
}

// oddExtend returns samples with pad points of odd (point-reflected)
// extension prepended and appended.
func oddExtend(samples []float64, pad int) []float64 {
	n := len(samples)
	ext := make([]float64, n+2*pad)
	first, last := samples[0], samples[n-1]
	for i := 0; i < pad; i++ {
		ext[i] = 2*first - samples[pad-i]
		ext[pad+n+i] = 2*last - samples[n-2-i]
	}
	copy(ext[pad:], samples)
	return ext
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// butterworthLP builds the second-order-section cascade for a lowpass
// Butterworth of the given order. Odd orders get a trailing first-order
// section.
func butterworthLP(freq float64, order int, sampleRate float64) []biquad {
	sections := make([]biquad, 0, (order+1)/2)
	for i := 0; i < order/2; i++ {
		sections = append(sections, lowpassSection(freq, butterworthQ(order, i), sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, firstOrderLP(freq, sampleRate))
	}
	return sections
}

// butterworthQ returns the quality factor of pole pair i for the given
// order, from the Butterworth pole angles on the unit circle.
func butterworthQ(order, i int) float64 {
	theta := math.Pi * float64(2*i+1) / float64(2*order)
	return 1 / (2 * math.Sin(theta))
}

// lowpassSection designs one lowpass biquad at freq with quality factor q.
func lowpassSection(freq, q, sampleRate float64) biquad {
	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	b0 := (1 - cw) / 2
	b1 := 1 - cw
	b2 := (1 - cw) / 2
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	return biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// firstOrderLP designs a first-order lowpass section via the bilinear
// transform with frequency prewarping.
func firstOrderLP(freq, sampleRate float64) biquad {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)
	return biquad{
		b0: k * norm,
		b1: k * norm,
		a1: (k - 1) * norm,
	}
}
