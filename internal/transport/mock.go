package transport

import "github.com/neuromotion-data/tremor/internal/pipeline"

// MockSink records sent packets for tests. FailNext makes the next Send
// report failure, exercising the pipeline's drop-and-move-on path.
type MockSink struct {
	Sent        []*pipeline.DataPacket
	FailNext    bool
	FailAlways  bool
	InitErr     error
	Initialized bool
	Closed      bool
}

// Initialize records the call.
func (m *MockSink) Initialize() error {
	m.Initialized = true
	return m.InitErr
}

// Send records the packet unless configured to fail.
func (m *MockSink) Send(p *pipeline.DataPacket) bool {
	if m.FailAlways {
		return false
	}
	if m.FailNext {
		m.FailNext = false
		return false
	}
	m.Sent = append(m.Sent, p)
	return true
}

// Close records the call.
func (m *MockSink) Close() error {
	m.Closed = true
	return nil
}
