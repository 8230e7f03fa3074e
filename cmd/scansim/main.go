package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/scansim/internal/config"
	"github.com/banshee-data/scansim/internal/sim"
	"github.com/banshee-data/scansim/internal/sim/monitor"
	"github.com/banshee-data/scansim/internal/sim/network"
	"github.com/banshee-data/scansim/internal/sim/scene/triscene"
	"github.com/banshee-data/scansim/internal/sim/storage/sqlite"
	"github.com/banshee-data/scansim/internal/timeutil"
	"github.com/banshee-data/scansim/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON profile (defaults merge from "+config.DefaultProfilePath+")")
	sensorID    = flag.String("sensor-id", "", "Sensor identifier stamped on frames (overrides profile)")
	listen      = flag.String("listen", "", "HTTP listen address for the monitor (overrides profile)")
	scenePath   = flag.String("scene", "", "Path to the JSON scene description (overrides profile)")
	forward     = flag.Bool("forward", false, "Stream completed frames over UDP")
	forwardAddr = flag.String("forward-addr", "", "Address to stream frames to (overrides profile)")
	forwardPort = flag.Int("forward-port", 0, "Port to stream frames to (overrides profile)")
	capture     = flag.Bool("capture", false, "Record completed frames to the capture database")
	dbFile      = flag.String("db", "", "Path to the SQLite capture database (overrides profile)")
	plotDir     = flag.String("plot-dir", "", "Directory for frame trend plots, written on shutdown (overrides profile)")
	logInterval = flag.Int("log-interval", 2, "Statistics logging interval in seconds")
	verbose     = flag.Bool("verbose", false, "Enable diagnostic logging")
	trace       = flag.Bool("trace", false, "Enable per-tick trace logging (implies -verbose)")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

// formatWithCommas formats a number with thousands separators
func formatWithCommas(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}

// loadProfile merges the defaults file (when present) with an explicit
// -config profile and then with any overriding flags.
func loadProfile() (*config.Profile, error) {
	profile := config.EmptyProfile()
	if _, err := os.Stat(config.DefaultProfilePath); err == nil {
		p, err := config.LoadProfile(config.DefaultProfilePath)
		if err != nil {
			return nil, fmt.Errorf("defaults profile: %w", err)
		}
		profile = p
	}
	if *configPath != "" {
		p, err := config.LoadProfile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", *configPath, err)
		}
		profile = p
	}

	if *sensorID != "" {
		profile.SensorID = sensorID
	}
	if *listen != "" {
		profile.MonitorListen = listen
	}
	if *scenePath != "" {
		profile.ScenePath = scenePath
	}
	if *forwardAddr != "" {
		profile.ForwardAddr = forwardAddr
	}
	if *forwardPort != 0 {
		profile.ForwardPort = forwardPort
	}
	if *dbFile != "" {
		profile.CaptureDBPath = dbFile
	}
	if *plotDir != "" {
		profile.PlotDir = plotDir
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("scansim %s\n", version.String())
		return
	}

	writers := sim.LogWriters{Ops: os.Stderr}
	if *verbose || *trace {
		writers.Diag = os.Stderr
	}
	if *trace {
		writers.Trace = os.Stderr
	}
	sim.SetLogWriters(writers)

	profile, err := loadProfile()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	world, err := triscene.LoadFile(profile.GetScenePath())
	if err != nil {
		log.Fatalf("Failed to load scene %s: %v", profile.GetScenePath(), err)
	}
	log.Printf("Loaded scene %s (%d meshes)", profile.GetScenePath(), world.MeshCount())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Frame streaming over UDP, enabled with -forward.
	var forwarder *network.FrameForwarder
	if *forward {
		forwarder, err = network.NewFrameForwarder(profile.GetForwardAddr(), profile.GetForwardPort(), 0, 0)
		if err != nil {
			log.Fatalf("Failed to create frame forwarder: %v", err)
		}
		defer forwarder.Close()
		forwarder.Start(ctx)
		log.Printf("Forwarding frames to %s", forwarder.Address())
	}

	// Capture database; always opened so the monitor can serve the
	// tailsql surface, but frames are only recorded with -capture.
	captureDB, err := sqlite.NewCaptureDB(profile.GetCaptureDBPath())
	if err != nil {
		log.Fatalf("Failed to open capture database: %v", err)
	}
	defer captureDB.Close()

	var session *sqlite.Session
	if *capture {
		session, err = captureDB.BeginSession(profile.GetSensorID(), "scansim daemon capture")
		if err != nil {
			log.Fatalf("Failed to begin capture session: %v", err)
		}
		log.Printf("Recording frames to %s (session %s)", profile.GetCaptureDBPath(), session.SessionID)
		defer func() {
			if err := captureDB.EndSession(session.SessionID); err != nil {
				log.Printf("Failed to end capture session: %v", err)
			}
		}()
	}

	plotter := monitor.NewFramePlotter(profile.GetSensorID())
	if dir := profile.GetPlotDir(); dir != "" {
		if err := plotter.Start(dir); err != nil {
			log.Fatalf("Failed to start frame plotter: %v", err)
		}
		log.Printf("Writing frame trend plots to %s on shutdown", dir)
	}

	simulator, err := sim.NewSimulator(sim.SimulatorConfig{
		SensorID: profile.GetSensorID(),
		Sensor:   profile.SensorConfig(),
		World:    world,
		Surfaces: world,
		FrameCallback: func(frame *sim.OutputFrame) {
			if forwarder != nil {
				forwarder.Forward(frame)
			}
			if session != nil {
				if err := captureDB.InsertFrame(session.SessionID, frame); err != nil {
					log.Printf("Failed to record frame %d: %v", frame.Seq, err)
				}
			}
			plotter.Sample(frame)
		},
	})
	if err != nil {
		log.Fatalf("Failed to create simulator: %v", err)
	}
	defer func() {
		simulator.Close()
		sim.UnregisterSimulator(simulator.SensorID())
	}()

	cfg := simulator.Config()
	log.Printf("Sensor %s: %d channels, %s points/sec, %.1f Hz rotation, %.1f m range",
		simulator.SensorID(), cfg.Channels, formatWithCommas(int64(cfg.PointsPerSecond)),
		cfg.RotationFrequency, cfg.Range)

	var wg sync.WaitGroup

	// Tick driver routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner := &sim.Runner{
			Sim:      simulator,
			Clock:    timeutil.RealClock{},
			Interval: profile.GetTickInterval(),
		}
		if err := runner.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Tick driver error: %v", err)
			stop()
		}
		log.Print("Tick driver routine terminated")
	}()

	// Monitor HTTP server routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address:  profile.GetMonitorListen(),
			SensorID: simulator.SensorID(),
			Capture:  captureDB,
		})
		log.Printf("Starting monitor server on %s", profile.GetMonitorListen())
		if err := ws.Start(ctx); err != nil {
			log.Printf("Monitor server error: %v", err)
		}
		log.Print("Monitor server routine terminated")
	}()

	// Periodic statistics logging routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Duration(*logInterval) * time.Second)
		defer ticker.Stop()

		var lastFrames, lastPoints uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := simulator.Stats()
				frames := stats.FramesBuilt - lastFrames
				points := stats.PointsTotal - lastPoints
				lastFrames = stats.FramesBuilt
				lastPoints = stats.PointsTotal
				if frames == 0 {
					continue
				}

				interval := float64(*logInterval)
				logMsg := fmt.Sprintf("Sim stats (/sec): %.1f frames, %s points, heading %.1f deg",
					float64(frames)/interval, formatWithCommas(int64(float64(points)/interval)), stats.HeadingDeg)
				if forwarder != nil {
					fframes, packets, _, dropped, _ := forwarder.Stats().GetAndReset()
					logMsg += fmt.Sprintf(", forwarded %d frames in %d packets", fframes, packets)
					if dropped > 0 {
						logMsg += fmt.Sprintf(", %d dropped on forward", dropped)
					}
				}
				log.Print(logMsg)
			}
		}
	}()

	wg.Wait()

	if plotter.IsEnabled() {
		if err := plotter.WritePlots(); err != nil {
			log.Printf("Failed to write frame trend plots: %v", err)
		} else {
			log.Printf("Wrote frame trend plots (%d samples)", plotter.SampleCount())
		}
	}
	log.Print("Graceful shutdown complete")
}
