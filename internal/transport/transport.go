// Package transport delivers assembled feature packets to their
// consumers: the console, an MQTT broker, or a fan-out of sinks.
package transport

import "github.com/neuromotion-data/tremor/internal/pipeline"

// Sink is a packet destination. Send reports delivery success; callers
// never retry a failed packet. Implementations are used from a single
// goroutine.
type Sink interface {
	Initialize() error
	Send(p *pipeline.DataPacket) bool
	Close() error
}
