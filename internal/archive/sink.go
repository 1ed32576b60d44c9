package archive

import (
	"github.com/neuromotion-data/tremor/internal/monitoring"
	"github.com/neuromotion-data/tremor/internal/pipeline"
)

// Sink adapts the archive as a secondary transport sink so published
// packets are recorded locally alongside the real transport.
type Sink struct {
	DB *DB
}

// Initialize is a no-op; the database is opened by the caller.
func (s *Sink) Initialize() error {
	return nil
}

// Send records the packet, reporting but swallowing storage errors.
func (s *Sink) Send(p *pipeline.DataPacket) bool {
	if err := s.DB.RecordPacket(p); err != nil {
		monitoring.Logf("archive: record failed: %v", err)
		return false
	}
	return true
}

// Close closes the underlying database.
func (s *Sink) Close() error {
	return s.DB.Close()
}
