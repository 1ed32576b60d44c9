package sensor

import (
	"errors"
	"math"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Reading
		wantErr bool
	}{
		{"plain", "0.01,-0.02,0.98", Reading{X: 0.01, Y: -0.02, Z: 0.98}, false},
		{"spaces", " 0.1 , 0.2 , 0.3 ", Reading{X: 0.1, Y: 0.2, Z: 0.3}, false},
		{"trailing newline handled by scanner", "1,2,3", Reading{X: 1, Y: 2, Z: 3}, false},
		{"too few fields", "1,2", Reading{}, true},
		{"too many fields", "1,2,3,4", Reading{}, true},
		{"non-numeric", "1,abc,3", Reading{}, true},
		{"empty", "", Reading{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.X != tt.want.X || got.Y != tt.want.Y || got.Z != tt.want.Z {
				t.Errorf("parseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestSerialSourceReadEmpty(t *testing.T) {
	s := NewSerialSource("torso", "/dev/null-port", 0)
	// Without Initialize there is no reader; Read must report no data
	// rather than block.
	r, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r != nil {
		t.Errorf("Read = %+v, want nil", r)
	}
}

func TestSerialSourceCloseIdempotent(t *testing.T) {
	s := NewSerialSource("torso", "/dev/null-port", 0)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// A second Close must be a no-op, not a panic on the done channel.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSyntheticSourceDeterministic(t *testing.T) {
	mk := func() *SyntheticSource {
		return &SyntheticSource{
			FreqHz:       5,
			SampleRateHz: 100,
			Amplitude:    [3]float64{1, 0.5, 0},
			Offset:       [3]float64{0, 0, 0.98},
			NoiseStdDev:  0.01,
			Seed:         7,
		}
	}

	a, b := mk(), mk()
	if err := a.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := b.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for i := 0; i < 300; i++ {
		ra, _ := a.Read()
		rb, _ := b.Read()
		if ra.X != rb.X || ra.Y != rb.Y || ra.Z != rb.Z {
			t.Fatalf("sample %d differs between identically seeded sources", i)
		}
	}
}

func TestSyntheticSourceWaveform(t *testing.T) {
	s := &SyntheticSource{
		FreqHz:       5,
		SampleRateHz: 100,
		Amplitude:    [3]float64{1, 0, 0},
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// Sample 5 (t = 0.05 s) of a 5 Hz sine is sin(pi/2) = 1.
	var r *Reading
	for i := 0; i <= 5; i++ {
		r, _ = s.Read()
	}
	if math.Abs(r.X-1) > 1e-9 {
		t.Errorf("X at t=0.05s = %v, want 1", r.X)
	}
	if r.Y != 0 || r.Z != 0 {
		t.Errorf("Y,Z = %v,%v, want 0,0", r.Y, r.Z)
	}
}

func TestMockSourceScript(t *testing.T) {
	readErr := errors.New("bus glitch")
	m := &MockSource{
		Script: []*Reading{
			{X: 1},
			nil,
			{X: 3},
		},
		Errs: map[int]error{1: readErr},
	}

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	r, err := m.Read()
	if err != nil || r == nil || r.X != 1 {
		t.Fatalf("read 0 = %+v, %v", r, err)
	}
	if _, err := m.Read(); !errors.Is(err, readErr) {
		t.Fatalf("read 1 error = %v, want scripted error", err)
	}
	r, err = m.Read()
	if err != nil || r == nil || r.X != 3 {
		t.Fatalf("read 2 = %+v, %v", r, err)
	}
	if r, err := m.Read(); err != nil || r != nil {
		t.Fatalf("read past script = %+v, %v, want nil, nil", r, err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Read(); !errors.Is(err, ErrMockClosed) {
		t.Fatalf("read after close error = %v, want ErrMockClosed", err)
	}
}
