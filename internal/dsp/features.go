package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Default tremor band bounds in Hz, the clinically typical range for
// Parkinsonian rest tremor.
const (
	DefaultTremorBandLow  = 3.0
	DefaultTremorBandHigh = 6.0
)

// tremorIndexThreshold is the fixed classification threshold on the
// tremor-band power fraction.
const tremorIndexThreshold = 0.3

// FeatureRecord is the output of one feature-extraction pass over one
// sample series. It is created fresh per call and never mutated.
//
// The JSON field names match the wire schema consumed downstream.
type FeatureRecord struct {
	RMS            float64 `json:"rms"`
	DominantFreq   float64 `json:"dominant_freq"`
	TremorPower    float64 `json:"tremor_power"`
	TremorIndex    float64 `json:"tremor_index"`
	IsParkinsonian bool    `json:"is_parkinsonian"`
}

// Extractor computes tremor features from accelerometer sample windows.
// It is not safe for concurrent use; the pipeline runs it from a single
// goroutine.
type Extractor struct {
	fs       float64
	bandLow  float64
	bandHigh float64
	filter   *LowPass

	// fft is cached per input length; the window length is fixed for the
	// life of a pipeline so this almost never reallocates.
	fft  *fourier.FFT
	fftN int
}

// NewExtractor builds an extractor with the given filter design and
// tremor band. Zero band bounds select the defaults.
func NewExtractor(spec FilterSpec, bandLow, bandHigh float64) (*Extractor, error) {
	if bandLow == 0 && bandHigh == 0 {
		bandLow, bandHigh = DefaultTremorBandLow, DefaultTremorBandHigh
	}
	if bandLow < 0 || bandHigh <= bandLow {
		return nil, fmt.Errorf("invalid tremor band [%g, %g]", bandLow, bandHigh)
	}
	filter, err := NewLowPass(spec)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		fs:       spec.SampleRateHz,
		bandLow:  bandLow,
		bandHigh: bandHigh,
		filter:   filter,
	}, nil
}

// Band returns the configured tremor band bounds in Hz.
func (e *Extractor) Band() (low, high float64) {
	return e.bandLow, e.bandHigh
}

// Process low-pass filters the series and derives its spectral tremor
// features. The only failure mode is ErrInsufficientSamples from the
// filter; everything after that is pure computation.
func (e *Extractor) Process(samples []float64) (FeatureRecord, error) {
	filtered, err := e.filter.Apply(samples)
	if err != nil {
		return FeatureRecord{}, err
	}

	var sumSquares float64
	for _, v := range filtered {
		sumSquares += v * v
	}
	rms := math.Sqrt(sumSquares / float64(len(filtered)))

	n := len(filtered)
	if e.fft == nil || e.fftN != n {
		e.fft = fourier.NewFFT(n)
		e.fftN = n
	}
	coeffs := e.fft.Coefficients(nil, filtered)

	binWidth := e.fs / float64(n)
	var tremorPower, totalPower float64
	var maxMag float64
	domIdx := 0
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		power := mag * mag
		totalPower += power

		freq := float64(i) * binWidth
		if freq >= e.bandLow && freq <= e.bandHigh {
			tremorPower += power
		}

		// The DC bin takes part in the argmax on purpose: a DC-dominated
		// series reports dominant_freq 0, matching the deployed behavior.
		if mag > maxMag {
			maxMag = mag
			domIdx = i
		}
	}
	dominantFreq := float64(domIdx) * binWidth

	var tremorIndex float64
	if totalPower > 0 {
		tremorIndex = tremorPower / totalPower
	}

	return FeatureRecord{
		RMS:            rms,
		DominantFreq:   dominantFreq,
		TremorPower:    tremorPower,
		TremorIndex:    tremorIndex,
		IsParkinsonian: dominantFreq >= e.bandLow && dominantFreq <= e.bandHigh && tremorIndex > tremorIndexThreshold,
	}, nil
}
