package sim

import (
	"sync"

	"github.com/banshee-data/scansim/internal/sim/scene"
)

// castFlags are the standard per-ray query flags: per-triangle
// intersection with face and material reporting, so every downstream
// classifier lookup has the data it needs.
const castFlags = scene.TraceComplex | scene.ReportFaceIndex | scene.ReportMaterial

// resetRecordedHits clears each per-channel buffer and reserves the
// tick's sample budget up front. Buffers are reused across ticks to
// keep the hot path allocation-free once capacities settle.
func (s *Simulator) resetRecordedHits(channels, pointsPerLaser int) {
	if len(s.recordedHits) != channels {
		s.recordedHits = make([][]RawHit, channels)
	}
	for i := range s.recordedHits {
		if cap(s.recordedHits[i]) < pointsPerLaser {
			s.recordedHits[i] = make([]RawHit, 0, pointsPerLaser)
		} else {
			s.recordedHits[i] = s.recordedHits[i][:0]
		}
	}
}

// castBatch fans out one goroutine per channel and joins them all
// before returning. The world read lock is held for the entire batch:
// rays only ever see one consistent snapshot of the scene.
func (s *Simulator) castBatch(plan sweepPlan, pose scene.Pose) {
	s.world.RLock()
	defer s.world.RUnlock()

	var wg sync.WaitGroup
	for ch := range s.recordedHits {
		wg.Add(1)
		go func(channel int) {
			defer wg.Done()
			s.castChannel(channel, plan, pose)
		}(ch)
	}
	wg.Wait()
}

// castChannel walks one channel's samples in index order. Each channel
// goroutine appends only to its own buffer, so per-channel ordering
// holds with no locking at all.
func (s *Simulator) castChannel(channel int, plan sweepPlan, pose scene.Pose) {
	for j := 0; j < plan.pointsPerLaser; j++ {
		vert, horiz := sampleAngles(plan, s.laserAngles, channel, j)
		s.recordedHits[channel] = append(s.recordedHits[channel], s.shootLaser(vert, horiz, pose))
	}
}

// shootLaser casts a single ray composed from the emission angles and
// the sensor pose. A miss still produces a RawHit (distance zero, no
// surface) so angular coverage stays dense regardless of what the ray
// found.
func (s *Simulator) shootLaser(vertDeg, horizDeg float64, pose scene.Pose) RawHit {
	dir := pose.RotateToWorld(scene.SphericalDirection(horizDeg, vertDeg))
	hit, ok := s.world.CastRay(pose.Origin(), dir, s.cfg.Range, castFlags)
	if !ok {
		hit = scene.Hit{Surface: scene.NoSurface, FaceIndex: -1}
	}
	return RawHit{VertAngle: vertDeg, HorizAngle: horizDeg, Hit: hit}
}
