package transport

import "github.com/neuromotion-data/tremor/internal/pipeline"

// MultiSink fans packets out to several sinks. The first sink is the
// primary: its result is what the caller sees, so governor state follows
// the real transport while secondary sinks (the local archive) record on
// a best-effort basis.
type MultiSink struct {
	Sinks []Sink
}

// Initialize brings up every sink, failing on the first error.
func (m *MultiSink) Initialize() error {
	for _, s := range m.Sinks {
		if err := s.Initialize(); err != nil {
			return err
		}
	}
	return nil
}

// Send forwards to all sinks and returns the primary's result.
func (m *MultiSink) Send(p *pipeline.DataPacket) bool {
	if len(m.Sinks) == 0 {
		return false
	}
	ok := m.Sinks[0].Send(p)
	for _, s := range m.Sinks[1:] {
		s.Send(p)
	}
	return ok
}

// Close closes every sink, returning the first error encountered.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
