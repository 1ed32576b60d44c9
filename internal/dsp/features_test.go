package dsp

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(FilterSpec{CutoffHz: 12, SampleRateHz: 100, Order: 4}, 3, 6)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return e
}

func TestProcessTremorSine(t *testing.T) {
	e := newTestExtractor(t)

	// A 5 Hz sine at 100 Hz sampling is squarely inside the tremor band.
	rec, err := e.Process(sine(5, 100, 256))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	binWidth := 100.0 / 256.0
	if math.Abs(rec.DominantFreq-5.0) > binWidth {
		t.Errorf("DominantFreq = %v, want 5.0 +/- %v", rec.DominantFreq, binWidth)
	}
	if rec.TremorIndex <= 0.3 {
		t.Errorf("TremorIndex = %v, want > 0.3", rec.TremorIndex)
	}
	if !rec.IsParkinsonian {
		t.Error("IsParkinsonian = false, want true")
	}
	if rec.RMS <= 0 {
		t.Errorf("RMS = %v, want > 0", rec.RMS)
	}
}

func TestProcessZeroInput(t *testing.T) {
	e := newTestExtractor(t)

	rec, err := e.Process(make([]float64, 256))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if rec.RMS != 0 {
		t.Errorf("RMS = %v, want 0", rec.RMS)
	}
	if rec.TremorIndex != 0 {
		t.Errorf("TremorIndex = %v, want 0 (no division by zero)", rec.TremorIndex)
	}
	if rec.IsParkinsonian {
		t.Error("IsParkinsonian = true, want false")
	}
}

func TestProcessConstantInputDCDominates(t *testing.T) {
	e := newTestExtractor(t)

	in := make([]float64, 256)
	for i := range in {
		in[i] = 0.98 // a resting accelerometer axis reads ~1 g
	}
	rec, err := e.Process(in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// The DC bin participates in the dominant-frequency argmax, so a
	// constant series reports 0 Hz and cannot classify as tremor with the
	// default band starting at 3 Hz.
	if rec.DominantFreq != 0 {
		t.Errorf("DominantFreq = %v, want 0", rec.DominantFreq)
	}
	if rec.TremorIndex > 1e-6 {
		t.Errorf("TremorIndex = %v, want ~0", rec.TremorIndex)
	}
	if rec.IsParkinsonian {
		t.Error("IsParkinsonian = true, want false")
	}
}

func TestProcessOutOfBandSine(t *testing.T) {
	e := newTestExtractor(t)

	// 10 Hz is above the band but below the filter cutoff, so it survives
	// filtering and dominates the spectrum outside [3, 6].
	rec, err := e.Process(sine(10, 100, 256))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if rec.DominantFreq < 9 || rec.DominantFreq > 11 {
		t.Errorf("DominantFreq = %v, want ~10", rec.DominantFreq)
	}
	if rec.IsParkinsonian {
		t.Error("IsParkinsonian = true, want false")
	}
}

func TestProcessBoundsHoldForRandomInput(t *testing.T) {
	e := newTestExtractor(t)
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 25; trial++ {
		in := make([]float64, 256)
		for i := range in {
			in[i] = rng.NormFloat64() * 2
		}
		rec, err := e.Process(in)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if rec.TremorIndex < 0 || rec.TremorIndex > 1 {
			t.Fatalf("TremorIndex = %v out of [0,1]", rec.TremorIndex)
		}
		if rec.RMS < 0 {
			t.Fatalf("RMS = %v, want >= 0", rec.RMS)
		}
		if rec.TremorPower < 0 {
			t.Fatalf("TremorPower = %v, want >= 0", rec.TremorPower)
		}
	}
}

func TestProcessPropagatesInsufficientSamples(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Process(make([]float64, 5))
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("Process error = %v, want ErrInsufficientSamples", err)
	}
}

func TestNewExtractorValidation(t *testing.T) {
	spec := FilterSpec{CutoffHz: 12, SampleRateHz: 100, Order: 4}

	tests := []struct {
		name     string
		spec     FilterSpec
		low      float64
		high     float64
		wantErr  bool
		wantLow  float64
		wantHigh float64
	}{
		{"defaults band", spec, 0, 0, false, DefaultTremorBandLow, DefaultTremorBandHigh},
		{"explicit band", spec, 2, 8, false, 2, 8},
		{"inverted band", spec, 6, 3, true, 0, 0},
		{"negative low", spec, -1, 6, true, 0, 0},
		{"nyquist violation", FilterSpec{CutoffHz: 80, SampleRateHz: 100, Order: 4}, 3, 6, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewExtractor(tt.spec, tt.low, tt.high)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExtractor error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			low, high := e.Band()
			if low != tt.wantLow || high != tt.wantHigh {
				t.Errorf("Band() = [%g, %g], want [%g, %g]", low, high, tt.wantLow, tt.wantHigh)
			}
		})
	}
}

func TestProcessTremorBandInclusive(t *testing.T) {
	// Band edges are inclusive. Use a band aligned to bin centers:
	// fs=100, n=256 gives binWidth 0.390625; choose band [bin16, bin20]
	// exactly and a sine on bin 16.
	binWidth := 100.0 / 256.0
	low, high := 16*binWidth, 20*binWidth
	e, err := NewExtractor(FilterSpec{CutoffHz: 12, SampleRateHz: 100, Order: 4}, low, high)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	rec, err := e.Process(sine(16*binWidth, 100, 256))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if rec.TremorPower <= 0 {
		t.Errorf("TremorPower = %v, want > 0 for a sine on the inclusive band edge", rec.TremorPower)
	}
	if rec.TremorIndex < 0.5 {
		t.Errorf("TremorIndex = %v, want most power inside the band", rec.TremorIndex)
	}
}
