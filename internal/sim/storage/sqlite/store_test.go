package sqlite

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scansim/internal/sim"
	"github.com/banshee-data/scansim/internal/sim/scene"
)

func testDB(t *testing.T) *CaptureDB {
	t.Helper()
	db, err := NewCaptureDB(filepath.Join(t.TempDir(), "capture.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func storedFrame(seq uint64) *sim.OutputFrame {
	return &sim.OutputFrame{
		SensorID:           "store-test",
		Seq:                seq,
		CapturedAt:         time.Unix(0, 1700000000_000000000+int64(seq)),
		HorizontalAngleDeg: float64(seq) * 36.0,
		Points: []sim.SemanticDetection{
			{Point: sim.Vec3f{X: 10, Y: -170, Z: 4}, CosIncAngle: 0.8, ObjectTag: 7, BaseColor: scene.RGBA{R: 40, A: 255}},
			{Point: sim.Vec3f{X: 10, Y: -168, Z: 0}, CosIncAngle: sim.CosIncMiss},
			{Point: sim.Vec3f{X: -30, Y: -170, Z: 2}, CosIncAngle: 0.5, ObjectIdx: sim.CodeNoParameters},
		},
		PointsPerChannel: []uint32{2, 1},
	}
}

func TestMigrationsApply(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	version, dirty, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Reopening an already-migrated database is a no-op.
	db2, err := NewCaptureDB(db.path)
	require.NoError(t, err)
	db2.Close()
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	s, err := db.BeginSession("sim-0", "bench run")
	require.NoError(t, err)
	require.NotEmpty(t, s.SessionID)

	loaded, err := db.GetSession(s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "sim-0", loaded.SensorID)
	assert.Equal(t, "bench run", loaded.Notes)
	assert.True(t, loaded.EndedAt.IsZero())

	require.NoError(t, db.EndSession(s.SessionID))
	loaded, err = db.GetSession(s.SessionID)
	require.NoError(t, err)
	assert.False(t, loaded.EndedAt.IsZero())

	// Ending twice fails.
	assert.Error(t, db.EndSession(s.SessionID))
	assert.Error(t, db.EndSession("no-such-session"))
}

func TestFrameRoundTrip(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	s, err := db.BeginSession("sim-0", "")
	require.NoError(t, err)

	want := storedFrame(3)
	require.NoError(t, db.InsertFrame(s.SessionID, want))

	got, err := db.GetFrame(s.SessionID, 3)
	require.NoError(t, err)
	assert.Equal(t, want.Seq, got.Seq)
	assert.Equal(t, want.HorizontalAngleDeg, got.HorizontalAngleDeg)
	assert.Equal(t, 2, got.Channels)
	assert.Equal(t, want.CapturedAt.UnixNano(), got.CapturedAt.UnixNano())
	assert.Equal(t, want.PointsPerChannel, got.PointsPerChannel)
	if diff := cmp.Diff(want.Points, got.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}

	// Duplicate sequence within a session is rejected by the index.
	assert.Error(t, db.InsertFrame(s.SessionID, want))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	s, err := db.BeginSession("sim-0", "")
	require.NoError(t, err)

	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, db.InsertFrame(s.SessionID, storedFrame(seq)))
	}

	sum, err := db.Summarize(s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum.FrameCount)
	assert.Equal(t, int64(15), sum.PointCount)
	assert.Equal(t, uint64(1), sum.FirstSeq)
	assert.Equal(t, uint64(5), sum.LastSeq)

	empty, err := db.Summarize("no-such-session")
	require.NoError(t, err)
	assert.Zero(t, empty.FrameCount)
}

func TestListSessions(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	first, err := db.BeginSession("sim-0", "first")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // distinct start stamps for ordering
	second, err := db.BeginSession("sim-1", "second")
	require.NoError(t, err)

	sessions, err := db.ListSessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.SessionID, sessions[0].SessionID)
	assert.Equal(t, first.SessionID, sessions[1].SessionID)

	limited, err := db.ListSessions(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.SessionID, limited[0].SessionID)
}

func TestAdminRoutesServeDebugIndex(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	req := httptest.NewRequest("GET", "/debug/", nil)
	req.RemoteAddr = "127.0.0.1:1234" // tsweb only serves debug to localhost by default
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tailsql")
}
