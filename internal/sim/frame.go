package sim

import (
	"fmt"
	"time"

	"github.com/banshee-data/scansim/internal/sim/scene"
)

// OutputFrame is one tick's worth of classified detections, flattened
// channel-major: all of channel 0's points in ray order, then channel
// 1's, and so on, with the per-channel count table alongside. Frames
// are built fresh each tick and handed off whole; nothing in the
// engine retains them.
type OutputFrame struct {
	SensorID           string              // which simulated sensor produced this frame
	Seq                uint64              // monotonically increasing frame number
	CapturedAt         time.Time           // wall-clock time the tick ran
	HorizontalAngleDeg float64             // heading after this tick's sweep
	Points             []SemanticDetection // channel-major detections
	PointsPerChannel   []uint32            // detection count per channel
}

// TotalPoints returns the summed channel counts.
func (f *OutputFrame) TotalPoints() int {
	total := 0
	for _, n := range f.PointsPerChannel {
		total += int(n)
	}
	return total
}

// assembleFrame classifies every recorded hit and flattens the results.
// Channel order and within-channel ray order are preserved exactly as
// cast. A fatal classification error aborts the whole frame: no
// partial output ships.
func (s *Simulator) assembleFrame(pose scene.Pose) (*OutputFrame, error) {
	counts := make([]uint32, len(s.recordedHits))
	total := 0
	for i, hits := range s.recordedHits {
		counts[i] = uint32(len(hits))
		total += len(hits)
	}

	origin := pose.Origin()
	points := make([]SemanticDetection, 0, total)
	for channel, hits := range s.recordedHits {
		for j, hit := range hits {
			det, err := s.classifier.Classify(hit, origin)
			if err != nil {
				return nil, fmt.Errorf("classify channel %d sample %d: %w", channel, j, err)
			}
			points = append(points, det)
		}
	}

	return &OutputFrame{
		SensorID:         s.sensorID,
		Points:           points,
		PointsPerChannel: counts,
	}, nil
}
