// Package monitor is the simulator's debug HTTP surface: live stats
// JSON per sensor, an echarts scatter page of the latest frame, and a
// gonum/plot PNG dumper for offline inspection. Everything here reads
// through the sim registry; nothing on this surface mutates a sensor.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/scansim/internal/sim"
	"github.com/banshee-data/scansim/internal/version"
)

// WebServer serves the monitoring endpoints for all registered
// simulators.
type WebServer struct {
	address  string
	sensorID string // default sensor for endpoints called without one
	server   *http.Server
	capture  AdminAttacher // optional capture DB debug surface
}

// AdminAttacher is anything that can mount extra debug routes; the
// capture store implements it.
type AdminAttacher interface {
	AttachAdminRoutes(mux *http.ServeMux)
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address  string
	SensorID string
	Capture  AdminAttacher
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:  config.Address,
		sensorID: config.SensorID,
		capture:  config.Capture,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/sim/sensors", ws.handleSensors)
	mux.HandleFunc("/api/sim/stats", ws.handleStats)
	mux.HandleFunc("/api/sim/frame", ws.handleFrameMeta)
	mux.HandleFunc("/debug/frame/polar", ws.handleFramePolar)

	if ws.capture != nil {
		ws.capture.AttachAdminRoutes(mux)
	}
	return mux
}

// Start begins the HTTP server and blocks until the context is
// cancelled, then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting monitor HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start monitor server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down monitor HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("monitor server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("monitor server force close error: %v", err)
		}
	}
	return nil
}

// Handler exposes the route mux for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("monitor: failed to encode response: %v", err)
	}
}

// simFor resolves the sensor_id query parameter against the registry,
// falling back to the server's default sensor.
func (ws *WebServer) simFor(r *http.Request) (*sim.Simulator, string) {
	sensorID := r.URL.Query().Get("sensor_id")
	if sensorID == "" {
		sensorID = ws.sensorID
	}
	return sim.GetSimulator(sensorID), sensorID
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (ws *WebServer) handleSensors(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]interface{}{"sensors": sim.ListSensorIDs()})
}

// statsResponse is the stats JSON shape for one sensor.
type statsResponse struct {
	SensorID      string  `json:"sensor_id"`
	Seq           uint64  `json:"seq"`
	FramesBuilt   uint64  `json:"frames_built"`
	PointsTotal   uint64  `json:"points_total"`
	FramesDropped uint64  `json:"frames_dropped"`
	LastTickMs    float64 `json:"last_tick_ms"`
	HeadingDeg    float64 `json:"heading_deg"`
	Channels      int     `json:"channels"`
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	s, sensorID := ws.simFor(r)
	if s == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no simulator registered for sensor "+sensorID)
		return
	}
	stats := s.Stats()
	ws.writeJSON(w, statsResponse{
		SensorID:      sensorID,
		Seq:           stats.Seq,
		FramesBuilt:   stats.FramesBuilt,
		PointsTotal:   stats.PointsTotal,
		FramesDropped: stats.FramesDropped,
		LastTickMs:    float64(stats.LastTickNanos) / 1e6,
		HeadingDeg:    stats.HeadingDeg,
		Channels:      s.Config().Channels,
	})
}

// handleFrameMeta returns the latest frame's metadata and per-channel
// counts, without the point payload.
func (ws *WebServer) handleFrameMeta(w http.ResponseWriter, r *http.Request) {
	s, sensorID := ws.simFor(r)
	if s == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no simulator registered for sensor "+sensorID)
		return
	}
	frame := s.LastFrame()
	if frame == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no frame captured yet")
		return
	}
	ws.writeJSON(w, map[string]interface{}{
		"sensor_id":            frame.SensorID,
		"seq":                  frame.Seq,
		"captured_at":          frame.CapturedAt,
		"horizontal_angle_deg": frame.HorizontalAngleDeg,
		"total_points":         frame.TotalPoints(),
		"points_per_channel":   frame.PointsPerChannel,
	})
}
