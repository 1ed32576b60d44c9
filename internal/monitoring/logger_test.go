package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerRedirects(t *testing.T) {
	defer SetLogger(nil)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	Logf("sensor %s: %s", "torso", "read failed")
	if got != "sensor torso: read failed" {
		t.Errorf("Logf produced %q", got)
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	defer func() { SetLogger(func(format string, v ...interface{}) {}) }()

	SetLogger(nil)
	// Must not panic.
	Logf("dropped %d", 1)
}
