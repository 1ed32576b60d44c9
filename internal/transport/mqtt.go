package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/neuromotion-data/tremor/internal/monitoring"
	"github.com/neuromotion-data/tremor/internal/pipeline"
)

// DefaultTopicPrefix is the topic namespace packets publish under.
const DefaultTopicPrefix = "parkinsons/tremor"

// publishTimeout bounds a single QoS 1 publish round trip.
const publishTimeout = 5 * time.Second

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	BrokerURL   string // e.g. "mqtts://broker.example:8883"
	TopicPrefix string // defaults to DefaultTopicPrefix
	ClientID    string

	Username string
	Password string

	// TLS material. CACertFile alone verifies the server; adding the
	// client pair enables mutual TLS.
	CACertFile         string
	ClientCertFile     string
	ClientKeyFile      string
	InsecureSkipVerify bool
}

// MQTTSink publishes packets to an MQTT v5 broker at QoS 1. The
// connection manager reconnects in the background; sends while
// disconnected fail fast so the pipeline can drop the packet and move on.
type MQTTSink struct {
	opts MQTTOptions

	ctx       context.Context
	cm        *autopaho.ConnectionManager
	connected atomic.Bool
}

// NewMQTTSink creates a sink whose connection lives until ctx is
// cancelled or Close is called.
func NewMQTTSink(ctx context.Context, opts MQTTOptions) *MQTTSink {
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	return &MQTTSink{opts: opts, ctx: ctx}
}

// Initialize dials the broker and waits for the first connection.
func (m *MQTTSink) Initialize() error {
	u, err := url.Parse(m.opts.BrokerURL)
	if err != nil {
		return fmt.Errorf("parse broker url %q: %w", m.opts.BrokerURL, err)
	}

	tlsCfg, err := m.tlsConfig()
	if err != nil {
		return err
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		TlsCfg:                        tlsCfg,
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		ConnectUsername:               m.opts.Username,
		ConnectPassword:               []byte(m.opts.Password),
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			m.connected.Store(true)
			monitoring.Logf("mqtt: connected to %s", m.opts.BrokerURL)
		},
		OnConnectError: func(err error) {
			m.connected.Store(false)
			monitoring.Logf("mqtt: connect error: %v", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: m.opts.ClientID,
			OnClientError: func(err error) {
				m.connected.Store(false)
				monitoring.Logf("mqtt: client error: %v", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				m.connected.Store(false)
				monitoring.Logf("mqtt: server disconnect, reason code %d", d.ReasonCode)
			},
		},
	}
	if m.opts.Password == "" {
		cfg.ConnectPassword = nil
	}

	cm, err := autopaho.NewConnection(m.ctx, cfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	m.cm = cm

	waitCtx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(waitCtx); err != nil {
		// The manager keeps retrying in the background; report but do not
		// tear down.
		monitoring.Logf("mqtt: broker not reachable yet: %v", err)
	}
	return nil
}

func (m *MQTTSink) tlsConfig() (*tls.Config, error) {
	if m.opts.CACertFile == "" && m.opts.ClientCertFile == "" {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: m.opts.InsecureSkipVerify,
	}
	if m.opts.CACertFile != "" {
		ca, err := os.ReadFile(m.opts.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("no certificates found in %s", m.opts.CACertFile)
		}
		cfg.RootCAs = pool
	}
	if m.opts.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(m.opts.ClientCertFile, m.opts.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// Send publishes the packet at QoS 1. The topic is
// {prefix}/{sensor} when the packet carries exactly one sensor,
// {prefix}/default otherwise.
func (m *MQTTSink) Send(p *pipeline.DataPacket) bool {
	if m.cm == nil {
		monitoring.Logf("mqtt: client not initialized")
		return false
	}
	if !m.connected.Load() {
		monitoring.Logf("mqtt: not connected, dropping packet")
		return false
	}

	payload, err := json.Marshal(p)
	if err != nil {
		monitoring.Logf("mqtt: marshal failed: %v", err)
		return false
	}

	ctx, cancel := context.WithTimeout(m.ctx, publishTimeout)
	defer cancel()
	if _, err := m.cm.Publish(ctx, &paho.Publish{
		QoS:     1,
		Topic:   m.topicFor(p),
		Payload: payload,
	}); err != nil {
		monitoring.Logf("mqtt: publish failed: %v", err)
		return false
	}
	return true
}

func (m *MQTTSink) topicFor(p *pipeline.DataPacket) string {
	names := p.SensorNames()
	if len(names) == 1 {
		return m.opts.TopicPrefix + "/" + names[0]
	}
	return m.opts.TopicPrefix + "/default"
}

// Close disconnects from the broker.
func (m *MQTTSink) Close() error {
	m.connected.Store(false)
	if m.cm == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.cm.Disconnect(ctx)
}
