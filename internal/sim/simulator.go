// Package sim implements the scan-and-classify engine of a simulated
// rotating multi-channel LiDAR.
//
// Each tick is one synchronous unit of work driven by an external
// fixed-step clock:
//
//	plan:     derive the per-channel sample budget and angular step
//	          from the tick's delta time (sweep.go)
//	cast:     fan out one goroutine per channel, each walking its
//	          samples in order against the scene provider under a
//	          shared read lock (caster.go)
//	classify: map every raw hit to a semantic detection through the
//	          ordered fallback ladder (classify.go)
//	assemble: flatten detections channel-major with the per-channel
//	          count table (frame.go)
//	advance:  move the heading by the swept angle, modulo the FOV
//	          (sweep.go)
//
// The heading is the only state that survives across ticks. Completed
// frames go to the registered callback through a dedicated worker
// goroutine so a slow consumer can never stall the scan path.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/scansim/internal/sim/scene"
)

// SimulatorConfig configures one simulated sensor instance.
type SimulatorConfig struct {
	SensorID        string             // identifier stamped on frames and used by the registry (default: "sim-0")
	Sensor          SensorConfig       // optical geometry; the zero value selects DefaultSensorConfig
	World           scene.Scene        // ray-cast provider (required)
	Surfaces        scene.Surfaces     // material catalog (required)
	FrameCallback   func(*OutputFrame) // invoked from a dedicated worker per completed frame
	FrameQueueDepth int                // queued frames before the callback path drops (default: 8)
}

// SimulatorStats is a snapshot of a simulator's counters.
type SimulatorStats struct {
	Seq           uint64  // last completed frame sequence number
	FramesBuilt   uint64  // frames assembled since start
	PointsTotal   uint64  // detections emitted since start
	FramesDropped uint64  // frames dropped because the callback queue was full
	LastTickNanos int64   // duration of the most recent tick
	HeadingDeg    float64 // heading after the most recent tick
}

// Simulator owns the scan state of one simulated sensor and runs the
// tick pipeline against its scene provider. Tick is single-owner: the
// tick driver must not call it concurrently. Stats and LastFrame are
// safe from any goroutine.
type Simulator struct {
	cfg         SensorConfig
	sensorID    string
	world       scene.Scene
	classifier  Classifier
	laserAngles []float64

	// Tick-owned state; never touched off the tick path.
	state        ScanState
	recordedHits [][]RawHit
	seq          uint64

	mu        sync.Mutex // guards lastFrame and stats
	lastFrame *OutputFrame
	stats     SimulatorStats

	frameCallback func(*OutputFrame)
	frameCh       chan *OutputFrame // serialises frame callback invocations
	frameDone     chan struct{}     // closed when frameCallbackWorker exits
}

// NewSimulator builds a simulator, applying defaults, validating the
// sensor geometry, computing the laser table, and registering the
// instance under its sensor ID. The callback worker starts immediately
// when a FrameCallback is configured; Close shuts it down.
func NewSimulator(config SimulatorConfig) (*Simulator, error) {
	if config.World == nil {
		return nil, errors.New("simulator: world provider is required")
	}
	if config.Surfaces == nil {
		return nil, errors.New("simulator: surface catalog is required")
	}
	if config.SensorID == "" {
		config.SensorID = "sim-0"
	}
	if config.FrameQueueDepth == 0 {
		config.FrameQueueDepth = 8
	}
	sensor := config.Sensor
	if sensor == (SensorConfig{}) {
		sensor = DefaultSensorConfig()
	}
	if err := sensor.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:           sensor,
		sensorID:      config.SensorID,
		world:         config.World,
		classifier:    Classifier{Surfaces: config.Surfaces},
		laserAngles:   buildLaserAngles(sensor),
		frameCallback: config.FrameCallback,
	}

	if s.frameCallback != nil {
		s.frameCh = make(chan *OutputFrame, config.FrameQueueDepth)
		s.frameDone = make(chan struct{})
		go s.frameCallbackWorker()
	}

	RegisterSimulator(config.SensorID, s)
	return s, nil
}

// SensorID returns the identifier stamped on this simulator's frames.
func (s *Simulator) SensorID() string {
	return s.sensorID
}

// Config returns the immutable sensor geometry.
func (s *Simulator) Config() SensorConfig {
	return s.cfg
}

// Tick runs one complete scan for the given delta time and sensor pose
// and returns the assembled frame. A tick that requests zero points is
// skipped: it logs a warning and returns (nil, nil) with the heading
// untouched. A fatal classification error aborts the tick before the
// heading advances and no frame is emitted.
func (s *Simulator) Tick(deltaTime float64, pose scene.Pose) (*OutputFrame, error) {
	if deltaTime <= 0 {
		return nil, fmt.Errorf("simulator %s: delta time must be positive, got %g", s.sensorID, deltaTime)
	}

	start := time.Now()
	plan, ok := planSweep(s.cfg, s.state.Heading(), deltaTime)
	if !ok {
		Opsf("%s: no points requested this tick, try increasing points per second", s.sensorID)
		return nil, nil
	}

	s.resetRecordedHits(s.cfg.Channels, plan.pointsPerLaser)
	s.castBatch(plan, pose)

	frame, err := s.assembleFrame(pose)
	if err != nil {
		return nil, fmt.Errorf("simulator %s: %w", s.sensorID, err)
	}

	s.state.advance(plan.sweptDeg, plan.hfovDeg)
	s.seq++
	frame.Seq = s.seq
	frame.CapturedAt = start
	frame.HorizontalAngleDeg = s.state.Heading()

	elapsed := time.Since(start)
	s.mu.Lock()
	s.lastFrame = frame
	s.stats.Seq = frame.Seq
	s.stats.FramesBuilt++
	s.stats.PointsTotal += uint64(len(frame.Points))
	s.stats.LastTickNanos = elapsed.Nanoseconds()
	s.stats.HeadingDeg = s.state.Heading()
	s.mu.Unlock()

	s.emitFrame(frame)
	Tracef("%s: frame %d, %d points in %v, heading %.2f",
		s.sensorID, frame.Seq, len(frame.Points), elapsed, frame.HorizontalAngleDeg)
	return frame, nil
}

// Heading returns the heading at the start of the next tick, in
// degrees. Only meaningful from the tick-driving goroutine.
func (s *Simulator) Heading() float64 {
	return s.state.Heading()
}

// Stats returns a snapshot of the simulator's counters.
func (s *Simulator) Stats() SimulatorStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LastFrame returns the most recently completed frame, or nil before
// the first tick. Frames are never mutated after assembly, so sharing
// the pointer is safe.
func (s *Simulator) LastFrame() *OutputFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// emitFrame hands a frame to the callback queue without blocking the
// tick path. When the queue is full the frame is dropped and counted;
// a slow consumer costs frames, never scan latency.
func (s *Simulator) emitFrame(frame *OutputFrame) {
	if s.frameCh == nil {
		return
	}
	select {
	case s.frameCh <- frame:
	default:
		s.mu.Lock()
		s.stats.FramesDropped++
		s.mu.Unlock()
		Diagf("%s: dropped frame %d: callback queue full", s.sensorID, frame.Seq)
	}
}

// frameCallbackWorker invokes the frame callback serially, one frame at
// a time, in submission order.
func (s *Simulator) frameCallbackWorker() {
	defer close(s.frameDone)
	for frame := range s.frameCh {
		s.frameCallback(frame)
	}
}

// Close shuts down the callback worker and waits for it to drain. Must
// be called when the simulator is no longer needed to avoid goroutine
// leaks.
func (s *Simulator) Close() {
	if s.frameCh != nil {
		close(s.frameCh)
		<-s.frameDone
	}
}
