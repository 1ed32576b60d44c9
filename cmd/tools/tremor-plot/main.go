// Command tremor-plot renders feature time series from a tremord
// archive database as PNG charts: RMS, tremor index and dominant
// frequency over time for one sensor channel.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/neuromotion-data/tremor/internal/archive"
)

var (
	dbPath  = flag.String("db", "tremor.db", "Path to the archive database")
	sensors = flag.String("sensor", "", "Sensor name to plot (empty plots every sensor)")
	channel = flag.String("channel", "magnitude", "Channel: x, y, z or magnitude")
	outDir  = flag.String("out", ".", "Output directory for PNG files")
	since   = flag.Duration("since", 0, "Only plot records newer than this age (0 plots everything)")
)

type series struct {
	name    string
	extract func(archive.Point) float64
}

func renderSensor(db *archive.DB, sensor string, sinceTS float64) error {
	points, err := db.FeatureSeries(sensor, *channel, sinceTS)
	if err != nil {
		return fmt.Errorf("query %s/%s: %w", sensor, *channel, err)
	}
	if len(points) == 0 {
		log.Printf("no records for %s/%s, skipping", sensor, *channel)
		return nil
	}

	t0 := points[0].Timestamp
	for _, s := range []series{
		{"rms", func(p archive.Point) float64 { return p.RMS }},
		{"tremor_index", func(p archive.Point) float64 { return p.TremorIndex }},
		{"dominant_freq", func(p archive.Point) float64 { return p.DominantFreq }},
	} {
		pl := plot.New()
		pl.Title.Text = fmt.Sprintf("%s %s %s", sensor, *channel, s.name)
		pl.X.Label.Text = "seconds"
		pl.Y.Label.Text = s.name

		pts := make(plotter.XYs, 0, len(points))
		for _, p := range points {
			pts = append(pts, plotter.XY{X: p.Timestamp - t0, Y: s.extract(p)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build %s line: %w", s.name, err)
		}
		line.Width = vg.Points(1)
		pl.Add(line)

		file := filepath.Join(*outDir, fmt.Sprintf("%s_%s_%s.png", sensor, *channel, s.name))
		if err := pl.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return fmt.Errorf("save %s: %w", file, err)
		}
		log.Printf("wrote %s (%d points)", file, len(pts))
	}
	return nil
}

func main() {
	flag.Parse()

	db, err := archive.Open(*dbPath)
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer db.Close()

	var sinceTS float64
	if *since > 0 {
		sinceTS = float64(time.Now().Add(-*since).UnixNano()) / 1e9
	}

	names := []string{*sensors}
	if *sensors == "" {
		names, err = db.Sensors()
		if err != nil {
			log.Fatalf("list sensors: %v", err)
		}
		if len(names) == 0 {
			log.Print("archive has no sensors")
			os.Exit(0)
		}
	}

	for _, name := range names {
		if err := renderSensor(db, name, sinceTS); err != nil {
			log.Fatalf("plot: %v", err)
		}
	}
}
