package pipeline

import (
	"math"
	"testing"
)

func TestBuffersRollingWindow(t *testing.T) {
	b := NewBuffers(4, []string{"torso"})

	// Appending more than the capacity keeps only the most recent
	// window-size samples, in original order.
	for i := 1; i <= 10; i++ {
		if err := b.Append("torso", float64(i), float64(i)*10, float64(i)*100); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if got := b.Fill("torso"); got != 4 {
		t.Fatalf("Fill = %d, want 4", got)
	}
	x, y, z := b.Axes("torso")
	wantX := []float64{7, 8, 9, 10}
	for i := range wantX {
		if x[i] != wantX[i] {
			t.Errorf("x[%d] = %v, want %v", i, x[i], wantX[i])
		}
		if y[i] != wantX[i]*10 || z[i] != wantX[i]*100 {
			t.Errorf("axis buffers out of step at %d: %v, %v, %v", i, x[i], y[i], z[i])
		}
	}
}

func TestBuffersEqualLengthInvariant(t *testing.T) {
	b := NewBuffers(8, []string{"torso", "left_hand"})

	for i := 0; i < 5; i++ {
		if err := b.Append("torso", 1, 2, 3); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	x, y, z := b.Axes("torso")
	if len(x) != len(y) || len(y) != len(z) {
		t.Errorf("axis lengths diverged: %d, %d, %d", len(x), len(y), len(z))
	}

	// The other sensor is untouched.
	if got := b.Fill("left_hand"); got != 0 {
		t.Errorf("left_hand fill = %d, want 0", got)
	}
}

func TestBuffersReadiness(t *testing.T) {
	b := NewBuffers(3, []string{"a", "b"})

	for i := 0; i < 3; i++ {
		b.Append("a", 0, 0, 0)
	}
	if !b.Ready("a") {
		t.Error("sensor a not ready at exactly window size")
	}
	if b.Ready("b") {
		t.Error("empty sensor b reported ready")
	}
	if b.AllReady() {
		t.Error("AllReady with one empty sensor")
	}

	for i := 0; i < 3; i++ {
		b.Append("b", 0, 0, 0)
	}
	if !b.AllReady() {
		t.Error("AllReady = false with all sensors full")
	}
}

func TestBuffersMagnitudeComputedFresh(t *testing.T) {
	b := NewBuffers(2, []string{"s"})
	b.Append("s", 3, 4, 0)
	b.Append("s", 0, 0, 5)

	m := b.Magnitude("s")
	if len(m) != 2 {
		t.Fatalf("magnitude length = %d, want 2", len(m))
	}
	if math.Abs(m[0]-5) > 1e-12 || math.Abs(m[1]-5) > 1e-12 {
		t.Errorf("magnitude = %v, want [5 5]", m)
	}

	// New samples must be reflected on the next call: nothing is cached.
	b.Append("s", 1, 0, 0)
	m = b.Magnitude("s")
	if math.Abs(m[1]-1) > 1e-12 {
		t.Errorf("magnitude after append = %v, want [5 1]", m)
	}
}

func TestBuffersLatest(t *testing.T) {
	b := NewBuffers(4, []string{"s"})

	if _, _, _, ok := b.Latest("s"); ok {
		t.Error("Latest on empty buffer reported ok")
	}

	b.Append("s", 1, 2, 3)
	b.Append("s", 4, 5, 6)
	x, y, z, ok := b.Latest("s")
	if !ok || x != 4 || y != 5 || z != 6 {
		t.Errorf("Latest = %v,%v,%v,%v, want 4,5,6,true", x, y, z, ok)
	}
}

func TestBuffersUnknownSensor(t *testing.T) {
	b := NewBuffers(4, []string{"s"})
	if err := b.Append("ghost", 0, 0, 0); err == nil {
		t.Error("Append to unknown sensor succeeded")
	}
	if got := b.Magnitude("ghost"); got != nil {
		t.Errorf("Magnitude for unknown sensor = %v, want nil", got)
	}
}

func TestBuffersSensorsSorted(t *testing.T) {
	b := NewBuffers(4, []string{"torso", "left_hand", "right_hand"})
	names := b.Sensors()
	want := []string{"left_hand", "right_hand", "torso"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Sensors() = %v, want %v", names, want)
		}
	}
}
