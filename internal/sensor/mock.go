package sensor

import "errors"

// ErrMockClosed is returned by a MockSource read after Close.
var ErrMockClosed = errors.New("mock sensor closed")

// MockSource replays a scripted sequence of readings and errors, for
// tests. A nil entry in Script yields a "no data this tick" read.
type MockSource struct {
	Script  []*Reading
	Errs    map[int]error // read index -> error returned instead of a reading
	InitErr error

	Reads       int
	Initialized bool
	Closed      bool
}

// Initialize records the call and returns the configured error, if any.
func (m *MockSource) Initialize() error {
	m.Initialized = true
	return m.InitErr
}

// Read returns the next scripted entry. Past the end of the script it
// reports no data.
func (m *MockSource) Read() (*Reading, error) {
	if m.Closed {
		return nil, ErrMockClosed
	}
	i := m.Reads
	m.Reads++
	if err, ok := m.Errs[i]; ok {
		return nil, err
	}
	if i >= len(m.Script) {
		return nil, nil
	}
	return m.Script[i], nil
}

// Close marks the source closed.
func (m *MockSource) Close() error {
	m.Closed = true
	return nil
}
