// Package config loads and validates the tremor pipeline configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/neuromotion-data/tremor/internal/dsp"
)

// SensorConfig describes one accelerometer placement.
type SensorConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Type selects the source implementation: "serial" or "synthetic".
	Type string `yaml:"type"`

	// Serial source settings.
	Port     string `yaml:"port,omitempty"`
	BaudRate int    `yaml:"baud_rate,omitempty"`

	// Synthetic source settings.
	FreqHz    float64 `yaml:"freq_hz,omitempty"`
	Amplitude float64 `yaml:"amplitude,omitempty"`
	Noise     float64 `yaml:"noise,omitempty"`
}

// ProcessingConfig holds the sampling and feature-extraction parameters.
type ProcessingConfig struct {
	SamplingRate float64    `yaml:"sampling_rate"`
	WindowSize   int        `yaml:"window_size"`
	FilterCutoff float64    `yaml:"filter_cutoff"`
	FilterOrder  int        `yaml:"filter_order"`
	TremorBand   [2]float64 `yaml:"tremor_band"`
}

// FilterSpec builds the dsp design from the processing parameters.
func (p ProcessingConfig) FilterSpec() dsp.FilterSpec {
	return dsp.FilterSpec{
		CutoffHz:     p.FilterCutoff,
		SampleRateHz: p.SamplingRate,
		Order:        p.FilterOrder,
	}
}

// PublishConfig holds the rate-governor parameters.
type PublishConfig struct {
	DecimationFactor      int     `yaml:"decimation_factor"`
	DeltaThreshold        float64 `yaml:"delta_threshold"`
	MinPublishIntervalSec float64 `yaml:"min_publish_interval_sec"`
	SummaryWindowSec      float64 `yaml:"summary_window_sec"`
	KeyMetricsOnly        bool    `yaml:"key_metrics_only"`
}

// MinPublishInterval returns the interval as a duration.
func (p PublishConfig) MinPublishInterval() time.Duration {
	return time.Duration(p.MinPublishIntervalSec * float64(time.Second))
}

// SummaryWindow returns the summary window as a duration.
func (p PublishConfig) SummaryWindow() time.Duration {
	return time.Duration(p.SummaryWindowSec * float64(time.Second))
}

// TransportConfig selects and configures the outbound transport.
type TransportConfig struct {
	// Type is "console" or "mqtt".
	Type string `yaml:"type"`

	BrokerURL   string `yaml:"broker_url,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`

	CACert             string `yaml:"ca_cert,omitempty"`
	ClientCert         string `yaml:"client_cert,omitempty"`
	ClientKey          string `yaml:"client_key,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
}

// ArchiveConfig configures the local feature archive. An empty path
// disables archiving.
type ArchiveConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	Sensors    []SensorConfig   `yaml:"sensors"`
	Processing ProcessingConfig `yaml:"processing"`
	Publish    PublishConfig    `yaml:"publish"`
	Transport  TransportConfig  `yaml:"transport"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// Default returns the stock three-placement tremor rig configuration.
func Default() *Config {
	return &Config{
		Sensors: []SensorConfig{
			{Name: "torso", Description: "Back torso sensor", Type: "serial", Port: "/dev/ttyACM0"},
			{Name: "left_hand", Description: "Left hand/wrist sensor", Type: "serial", Port: "/dev/ttyACM1"},
			{Name: "right_hand", Description: "Right hand/wrist sensor", Type: "serial", Port: "/dev/ttyACM2"},
		},
		Processing: ProcessingConfig{
			SamplingRate: 100,
			WindowSize:   256, // 2.56 s at 100 Hz
			FilterCutoff: 12,
			FilterOrder:  dsp.DefaultFilterOrder,
			TremorBand:   [2]float64{dsp.DefaultTremorBandLow, dsp.DefaultTremorBandHigh},
		},
		Publish: PublishConfig{
			DecimationFactor:      10,
			DeltaThreshold:        0.05,
			MinPublishIntervalSec: 1,
		},
		Transport: TransportConfig{Type: "console"},
	}
}

// Load reads a YAML config from path, or returns Default when path is
// empty. Fields omitted from the file keep their defaults. The result
// has been validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the whole document. Validation failures are fatal at
// startup, before the sampling loop begins.
func (c *Config) Validate() error {
	if len(c.Sensors) == 0 {
		return fmt.Errorf("at least one sensor is required")
	}
	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.Name == "" {
			return fmt.Errorf("sensor %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate sensor name %q", s.Name)
		}
		seen[s.Name] = true
		switch s.Type {
		case "serial":
			if s.Port == "" {
				return fmt.Errorf("sensor %q: serial type requires a port", s.Name)
			}
		case "synthetic":
		default:
			return fmt.Errorf("sensor %q: unknown type %q", s.Name, s.Type)
		}
	}

	p := c.Processing
	if err := p.FilterSpec().Validate(); err != nil {
		return err
	}
	minWindow := p.FilterSpec().MinSamples()
	if p.WindowSize < minWindow {
		return fmt.Errorf("window_size %d is below the filter minimum of %d samples", p.WindowSize, minWindow)
	}
	if p.TremorBand[0] < 0 || p.TremorBand[1] <= p.TremorBand[0] {
		return fmt.Errorf("invalid tremor_band [%g, %g]", p.TremorBand[0], p.TremorBand[1])
	}
	if p.TremorBand[1] > p.SamplingRate/2 {
		return fmt.Errorf("tremor_band upper bound %g Hz exceeds the Nyquist limit for %g Hz sampling", p.TremorBand[1], p.SamplingRate)
	}

	pub := c.Publish
	if pub.DecimationFactor < 1 {
		return fmt.Errorf("decimation_factor must be at least 1, got %d", pub.DecimationFactor)
	}
	if pub.DeltaThreshold < 0 {
		return fmt.Errorf("delta_threshold must not be negative, got %g", pub.DeltaThreshold)
	}
	if pub.MinPublishIntervalSec < 0 || pub.SummaryWindowSec < 0 {
		return fmt.Errorf("publish intervals must not be negative")
	}

	switch c.Transport.Type {
	case "console":
	case "mqtt":
		if c.Transport.BrokerURL == "" {
			return fmt.Errorf("mqtt transport requires broker_url")
		}
	default:
		return fmt.Errorf("unknown transport type %q", c.Transport.Type)
	}

	return nil
}
