package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/scansim/internal/sim"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleFramePolar renders a quick scatter plot (HTML) of the latest
// frame using go-echarts. Point positions carry (vertical angle,
// horizontal angle, distance), so the plot projects azimuth/distance
// to XY, a top-down sweep view. This is a debugging-only endpoint (no
// auth) for eyeballing scan coverage without tooling.
// Query params:
//   - sensor_id (optional; defaults to the configured sensor)
//   - max_points (optional; default 8000) to reduce payload size
func (ws *WebServer) handleFramePolar(w http.ResponseWriter, r *http.Request) {
	s, sensorID := ws.simFor(r)
	if s == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no simulator registered for sensor "+sensorID)
		return
	}
	frame := s.LastFrame()
	if frame == nil || len(frame.Points) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no frame available")
		return
	}

	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}

	// Downsample by stride to stay within maxPoints.
	stride := 1
	if len(frame.Points) > maxPoints {
		stride = int(math.Ceil(float64(len(frame.Points)) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, len(frame.Points)/stride+1)
	maxAbs := 0.0
	for i := 0; i < len(frame.Points); i += stride {
		p := frame.Points[i]
		if p.Miss() {
			continue
		}
		theta := float64(p.Point.Y) * math.Pi / 180.0
		x := float64(p.Point.Z) * math.Sin(theta)
		y := float64(p.Point.Z) * math.Cos(theta)
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, float64(p.ObjectTag)}})
	}

	if len(data) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "latest frame has no surface hits")
		return
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	// Square plot with symmetric axes so the sweep stays circular.
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scan Frame (Polar->XY)", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Simulated Scan Frame", Subtitle: fmt.Sprintf("sensor=%s seq=%d points=%d stride=%d", sensorID, frame.Seq, len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxTag(frame)),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("detections", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func maxTag(frame *sim.OutputFrame) uint32 {
	max := uint32(1)
	for _, p := range frame.Points {
		if p.ObjectTag > max {
			max = p.ObjectTag
		}
	}
	return max
}
