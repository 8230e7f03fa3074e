package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/scansim/internal/sim/scene"
	"github.com/banshee-data/scansim/internal/timeutil"
)

// Runner drives a simulator from a fixed-step clock. Each tick's delta
// time is the measured wall interval since the previous tick, so a
// stalled host produces a wider sweep rather than lost angle coverage.
type Runner struct {
	Sim      *Simulator
	Clock    timeutil.Clock    // defaults to the real clock
	Interval time.Duration     // tick period (default 100ms)
	Pose     func() scene.Pose // sensor transform per tick; nil means origin
}

// Run ticks the simulator until the context is cancelled or a tick
// fails fatally. The first tick uses the configured interval as its
// delta time; subsequent ticks use the measured gap.
func (r *Runner) Run(ctx context.Context) error {
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	last := clock.Now()
	first := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			if first {
				dt = interval.Seconds()
				first = false
			}
			last = now
			if dt <= 0 {
				continue
			}

			pose := scene.Pose{}
			if r.Pose != nil {
				pose = r.Pose()
			}
			if _, err := r.Sim.Tick(dt, pose); err != nil {
				return fmt.Errorf("tick failed: %w", err)
			}
		}
	}
}
