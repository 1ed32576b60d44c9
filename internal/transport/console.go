package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/neuromotion-data/tremor/internal/monitoring"
	"github.com/neuromotion-data/tremor/internal/pipeline"
)

// ConsoleSink prints packets as indented JSON, the default destination
// for bench runs without a broker.
type ConsoleSink struct {
	// W receives the output; nil selects os.Stdout.
	W io.Writer
}

// Initialize is a no-op.
func (c *ConsoleSink) Initialize() error {
	if c.W == nil {
		c.W = os.Stdout
	}
	return nil
}

// Send writes the packet as indented JSON followed by a newline.
func (c *ConsoleSink) Send(p *pipeline.DataPacket) bool {
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		monitoring.Logf("console: marshal failed: %v", err)
		return false
	}
	if _, err := fmt.Fprintln(c.W, string(out)); err != nil {
		monitoring.Logf("console: write failed: %v", err)
		return false
	}
	return true
}

// Close is a no-op.
func (c *ConsoleSink) Close() error {
	return nil
}
