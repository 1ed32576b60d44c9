// Command tremord runs the tremor monitoring pipeline: it samples the
// configured accelerometers, extracts spectral tremor features over a
// rolling window, and publishes rate-governed packets to the configured
// transport.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neuromotion-data/tremor/internal/archive"
	"github.com/neuromotion-data/tremor/internal/config"
	"github.com/neuromotion-data/tremor/internal/dsp"
	"github.com/neuromotion-data/tremor/internal/pipeline"
	"github.com/neuromotion-data/tremor/internal/publish"
	"github.com/neuromotion-data/tremor/internal/sensor"
	"github.com/neuromotion-data/tremor/internal/timeutil"
	"github.com/neuromotion-data/tremor/internal/transport"
)

var (
	configPath = flag.String("config", "", "Path to YAML config (empty uses defaults)")
	devMode    = flag.Bool("dev", false, "Replace all sensors with synthetic 5 Hz sources")
	duration   = flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	listen     = flag.String("listen", ":9090", "Listen address for /metrics and /healthz (empty disables)")
)

func buildSource(sc config.SensorConfig, sampleRate float64, dev bool) sensor.Source {
	if dev || sc.Type == "synthetic" {
		freq := sc.FreqHz
		if freq == 0 {
			freq = 5
		}
		amp := sc.Amplitude
		if amp == 0 {
			amp = 0.5
		}
		return &sensor.SyntheticSource{
			FreqHz:       freq,
			SampleRateHz: sampleRate,
			Amplitude:    [3]float64{amp, amp / 2, amp / 4},
			NoiseStdDev:  sc.Noise,
		}
	}
	return sensor.NewSerialSource(sc.Name, sc.Port, sc.BaudRate)
}

func buildSink(ctx context.Context, cfg *config.Config, deviceID string) (transport.Sink, error) {
	var primary transport.Sink
	switch cfg.Transport.Type {
	case "mqtt":
		primary = transport.NewMQTTSink(ctx, transport.MQTTOptions{
			BrokerURL:          cfg.Transport.BrokerURL,
			TopicPrefix:        cfg.Transport.TopicPrefix,
			ClientID:           deviceID,
			Username:           cfg.Transport.Username,
			Password:           cfg.Transport.Password,
			CACertFile:         cfg.Transport.CACert,
			ClientCertFile:     cfg.Transport.ClientCert,
			ClientKeyFile:      cfg.Transport.ClientKey,
			InsecureSkipVerify: cfg.Transport.InsecureSkipVerify,
		})
	default:
		primary = &transport.ConsoleSink{}
	}

	if cfg.Archive.Path == "" {
		return primary, nil
	}
	db, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, err
	}
	return &transport.MultiSink{Sinks: []transport.Sink{primary, &archive.Sink{DB: db}}}, nil
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	sources := make(map[string]sensor.Source, len(cfg.Sensors))
	for _, sc := range cfg.Sensors {
		sources[sc.Name] = buildSource(sc, cfg.Processing.SamplingRate, *devMode)
	}

	deviceID := publish.NewDeviceID()
	sink, err := buildSink(ctx, cfg, deviceID)
	if err != nil {
		log.Fatalf("transport: %v", err)
	}
	if err := sink.Initialize(); err != nil {
		log.Fatalf("transport init: %v", err)
	}
	defer sink.Close()

	extractor, err := dsp.NewExtractor(cfg.Processing.FilterSpec(), cfg.Processing.TremorBand[0], cfg.Processing.TremorBand[1])
	if err != nil {
		log.Fatalf("dsp: %v", err)
	}

	clock := timeutil.RealClock{}
	governor := publish.New(publish.Options{
		DecimationFactor: cfg.Publish.DecimationFactor,
		DeltaThreshold:   cfg.Publish.DeltaThreshold,
		MinInterval:      cfg.Publish.MinPublishInterval(),
		SummaryWindow:    cfg.Publish.SummaryWindow(),
		KeyMetricsOnly:   cfg.Publish.KeyMetricsOnly,
		DeviceID:         deviceID,
	}, sink, clock)
	log.Printf("device id %s, %d sensors, %s transport", governor.DeviceID(), len(sources), cfg.Transport.Type)

	collector := pipeline.NewCollector(sources, cfg.Processing.WindowSize, cfg.Processing.SamplingRate, extractor, governor, clock)
	collector.Initialize()
	defer collector.Close()

	var wg sync.WaitGroup

	var srv *http.Server
	if *listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok\n"))
		})
		srv = &http.Server{Addr: *listen, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		collector.Run(ctx)
	}()

	<-ctx.Done()
	log.Print("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics server shutdown: %v", err)
		}
	}

	wg.Wait()
}
