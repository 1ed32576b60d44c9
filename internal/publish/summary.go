package publish

import (
	"time"

	"github.com/neuromotion-data/tremor/internal/dsp"
	"github.com/neuromotion-data/tremor/internal/monitoring"
	"github.com/neuromotion-data/tremor/internal/pipeline"
)

// chanAccum aggregates one channel's feature records across a summary
// window: mean RMS and tremor index, peak tremor power, the most recent
// dominant frequency, and whether any cycle classified as tremor.
type chanAccum struct {
	count          int
	rmsSum         float64
	indexSum       float64
	maxTremorPower float64
	lastDominant   float64
	parkinsonian   bool
}

func (a *chanAccum) fold(r dsp.FeatureRecord) {
	a.count++
	a.rmsSum += r.RMS
	a.indexSum += r.TremorIndex
	if r.TremorPower > a.maxTremorPower {
		a.maxTremorPower = r.TremorPower
	}
	a.lastDominant = r.DominantFreq
	a.parkinsonian = a.parkinsonian || r.IsParkinsonian
}

func (a *chanAccum) record() dsp.FeatureRecord {
	if a.count == 0 {
		return dsp.FeatureRecord{}
	}
	n := float64(a.count)
	return dsp.FeatureRecord{
		RMS:            a.rmsSum / n,
		DominantFreq:   a.lastDominant,
		TremorPower:    a.maxTremorPower,
		TremorIndex:    a.indexSum / n,
		IsParkinsonian: a.parkinsonian,
	}
}

// sensorAccum aggregates all four channels of one sensor.
type sensorAccum struct {
	x, y, z, magnitude chanAccum
}

type summaryState struct {
	active  bool
	start   time.Time
	acc     map[string]*sensorAccum
	lastRaw map[string]pipeline.RawSample
}

// summarize folds the packet into the running window and emits one
// summary packet when the window has elapsed. Absorbed cycles report
// success, mirroring the min-interval throttle behavior.
func (g *Governor) summarize(p *pipeline.DataPacket) bool {
	if !g.sum.active {
		g.sum = summaryState{
			active:  true,
			start:   g.clock.Now(),
			acc:     make(map[string]*sensorAccum),
			lastRaw: make(map[string]pipeline.RawSample),
		}
	}
	g.sum.fold(p)

	if g.clock.Since(g.sum.start) < g.opts.SummaryWindow {
		monitoring.PacketsSuppressed.WithLabelValues("summary").Inc()
		return true
	}

	out := g.sum.packet()
	if out == nil {
		g.sum = summaryState{}
		return false
	}
	if !g.send(out, metricsOf(out)) {
		// The window keeps accumulating and the aggregate is retried on
		// the next cycle, matching the rule that governor state advances
		// only on a successful send.
		return false
	}
	g.sum = summaryState{}
	return true
}

func (s *summaryState) fold(p *pipeline.DataPacket) {
	for name, feat := range p.Features {
		a, ok := s.acc[name]
		if !ok {
			a = &sensorAccum{}
			s.acc[name] = a
		}
		a.x.fold(feat.X)
		a.y.fold(feat.Y)
		a.z.fold(feat.Z)
		a.magnitude.fold(feat.Magnitude)
	}
	for name, raw := range p.RawLatest {
		s.lastRaw[name] = raw
	}
}

func (s *summaryState) packet() *pipeline.DataPacket {
	if len(s.acc) == 0 {
		return nil
	}
	features := make(map[string]pipeline.ChannelFeatures, len(s.acc))
	for name, a := range s.acc {
		features[name] = pipeline.ChannelFeatures{
			X:         a.x.record(),
			Y:         a.y.record(),
			Z:         a.z.record(),
			Magnitude: a.magnitude.record(),
		}
	}
	rawLatest := make(map[string]pipeline.RawSample, len(s.lastRaw))
	for name, raw := range s.lastRaw {
		rawLatest[name] = raw
	}
	return &pipeline.DataPacket{
		Features:  features,
		RawLatest: rawLatest,
	}
}
