package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/scansim/internal/sim"
)

// FramePlotter accumulates per-frame scan statistics over a run and
// renders them as PNG time series after the run ends. Sample it once
// per completed frame; WritePlots produces the output files.
type FramePlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	sensorID  string

	samples   []frameSample
	startTime time.Time
}

// frameSample is one frame's aggregate numbers.
type frameSample struct {
	FrameIdx     int
	Timestamp    time.Time
	TotalPoints  int
	SurfaceHits  int
	MeanDistance float64 // over surface hits only
	HeadingDeg   float64
}

// NewFramePlotter creates a plotter for the given sensor.
func NewFramePlotter(sensorID string) *FramePlotter {
	return &FramePlotter{sensorID: sensorID}
}

// Start initializes the plotter for a new run. outputDir should be a
// run-specific directory (e.g. "plots/20260829_101500").
func (fp *FramePlotter) Start(outputDir string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	fp.outputDir = outputDir
	fp.enabled = true
	fp.startTime = time.Time{}
	fp.samples = nil
	return nil
}

// Stop disables sampling. Call WritePlots to produce output files.
func (fp *FramePlotter) Stop() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.enabled = false
}

// IsEnabled reports whether the plotter is currently recording.
func (fp *FramePlotter) IsEnabled() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.enabled
}

// SampleCount returns the number of frames recorded so far.
func (fp *FramePlotter) SampleCount() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return len(fp.samples)
}

// Sample captures one frame's aggregates.
func (fp *FramePlotter) Sample(frame *sim.OutputFrame) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if !fp.enabled || frame == nil {
		return
	}
	if fp.startTime.IsZero() {
		fp.startTime = frame.CapturedAt
	}

	hits := 0
	sumDist := 0.0
	for _, p := range frame.Points {
		if p.Miss() {
			continue
		}
		hits++
		sumDist += float64(p.Point.Z)
	}
	mean := 0.0
	if hits > 0 {
		mean = sumDist / float64(hits)
	}

	fp.samples = append(fp.samples, frameSample{
		FrameIdx:     len(fp.samples) + 1,
		Timestamp:    frame.CapturedAt,
		TotalPoints:  frame.TotalPoints(),
		SurfaceHits:  hits,
		MeanDistance: mean,
		HeadingDeg:   frame.HorizontalAngleDeg,
	})
}

// WritePlots renders the accumulated series into PNG files in the
// output directory: point counts, surface-hit fraction, and mean hit
// distance, all against frame index.
func (fp *FramePlotter) WritePlots() error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if len(fp.samples) == 0 {
		return fmt.Errorf("no samples recorded")
	}

	countPts := make(plotter.XYs, 0, len(fp.samples))
	hitFracPts := make(plotter.XYs, 0, len(fp.samples))
	distPts := make(plotter.XYs, 0, len(fp.samples))
	for _, s := range fp.samples {
		x := float64(s.FrameIdx)
		countPts = append(countPts, plotter.XY{X: x, Y: float64(s.TotalPoints)})
		frac := 0.0
		if s.TotalPoints > 0 {
			frac = float64(s.SurfaceHits) / float64(s.TotalPoints)
		}
		hitFracPts = append(hitFracPts, plotter.XY{X: x, Y: frac})
		if s.SurfaceHits > 0 {
			distPts = append(distPts, plotter.XY{X: x, Y: s.MeanDistance})
		}
	}

	if err := fp.writeSeries("points_per_frame.png", "Points per Frame", "points", countPts); err != nil {
		return err
	}
	if err := fp.writeSeries("hit_fraction.png", "Surface Hit Fraction", "fraction", hitFracPts); err != nil {
		return err
	}
	if len(distPts) > 0 {
		if err := fp.writeSeries("mean_hit_distance.png", "Mean Hit Distance", "metres", distPts); err != nil {
			return err
		}
	}
	return nil
}

func (fp *FramePlotter) writeSeries(filename, title, yLabel string, pts plotter.XYs) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", title, fp.sensorID)
	p.X.Label.Text = "frame"
	p.Y.Label.Text = yLabel

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build line for %s: %w", filename, err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	outPath := filepath.Join(fp.outputDir, filename)
	if err := p.Save(14*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}
