// Package sqlite persists simulator output: capture sessions and the
// encoded frames recorded under them. The schema is migration-driven
// and embedded in the binary, so a fresh database file is ready after
// NewCaptureDB alone.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/scansim/internal/monitoring"
	"github.com/banshee-data/scansim/internal/sim"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// CaptureDB wraps the capture database connection.
type CaptureDB struct {
	*sql.DB
	path string
}

// NewCaptureDB opens (or creates) the capture database and migrates it
// to the latest schema version.
func NewCaptureDB(path string) (*CaptureDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	cdb := &CaptureDB{DB: db, path: path}
	if err := cdb.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return cdb, nil
}

// migrateUp applies any pending embedded migrations. Already-current
// databases are a no-op.
func (db *CaptureDB) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Not closing m: that would close the shared DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version and dirty state.
func (db *CaptureDB) SchemaVersion() (version uint, dirty bool, err error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, false, err
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return 0, false, err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Session is one recording run of one sensor.
type Session struct {
	SessionID string
	SensorID  string
	StartedAt time.Time
	EndedAt   time.Time // zero while the session is open
	Notes     string
}

// BeginSession opens a new capture session and returns it.
func (db *CaptureDB) BeginSession(sensorID, notes string) (*Session, error) {
	s := &Session{
		SessionID: uuid.New().String(),
		SensorID:  sensorID,
		StartedAt: time.Now(),
		Notes:     notes,
	}
	_, err := db.Exec(
		`INSERT INTO capture_sessions (session_id, sensor_id, started_unix_nanos, notes) VALUES (?, ?, ?, ?)`,
		s.SessionID, s.SensorID, s.StartedAt.UnixNano(), s.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to begin session: %w", err)
	}
	monitoring.Logf("capture session %s started for sensor %s", s.SessionID, sensorID)
	return s, nil
}

// EndSession stamps the session's end time.
func (db *CaptureDB) EndSession(sessionID string) error {
	res, err := db.Exec(
		`UPDATE capture_sessions SET ended_unix_nanos = ? WHERE session_id = ? AND ended_unix_nanos IS NULL`,
		time.Now().UnixNano(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("session %s not found or already ended", sessionID)
	}
	return err
}

// GetSession loads one session row.
func (db *CaptureDB) GetSession(sessionID string) (*Session, error) {
	row := db.QueryRow(
		`SELECT session_id, sensor_id, started_unix_nanos, ended_unix_nanos, notes
		 FROM capture_sessions WHERE session_id = ?`, sessionID)

	var s Session
	var started int64
	var ended sql.NullInt64
	if err := row.Scan(&s.SessionID, &s.SensorID, &started, &ended, &s.Notes); err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	s.StartedAt = time.Unix(0, started)
	if ended.Valid {
		s.EndedAt = time.Unix(0, ended.Int64)
	}
	return &s, nil
}

// InsertFrame records one frame under a session, body encoded in the
// stream wire format.
func (db *CaptureDB) InsertFrame(sessionID string, frame *sim.OutputFrame) error {
	body := sim.EncodeFrameBody(frame)
	_, err := db.Exec(
		`INSERT INTO capture_frames
		 (session_id, seq, captured_unix_nanos, horizontal_angle_deg, channels, point_count, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, frame.Seq, frame.CapturedAt.UnixNano(), frame.HorizontalAngleDeg,
		len(frame.PointsPerChannel), len(frame.Points), body,
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame %d: %w", frame.Seq, err)
	}
	return nil
}

// FrameRow is one stored frame's metadata plus its decoded contents.
type FrameRow struct {
	Seq                uint64
	CapturedAt         time.Time
	HorizontalAngleDeg float64
	Channels           int
	Points             []sim.SemanticDetection
	PointsPerChannel   []uint32
}

// GetFrame loads and decodes one frame of a session by sequence number.
func (db *CaptureDB) GetFrame(sessionID string, seq uint64) (*FrameRow, error) {
	row := db.QueryRow(
		`SELECT seq, captured_unix_nanos, horizontal_angle_deg, channels, body
		 FROM capture_frames WHERE session_id = ? AND seq = ?`, sessionID, seq)

	var fr FrameRow
	var captured int64
	var body []byte
	if err := row.Scan(&fr.Seq, &captured, &fr.HorizontalAngleDeg, &fr.Channels, &body); err != nil {
		return nil, fmt.Errorf("failed to load frame %d: %w", seq, err)
	}
	fr.CapturedAt = time.Unix(0, captured)

	points, counts, err := sim.DecodeFrameBody(body, fr.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %d: %w", seq, err)
	}
	fr.Points = points
	fr.PointsPerChannel = counts
	return &fr, nil
}

// SessionSummary aggregates a session's stored volume.
type SessionSummary struct {
	SessionID  string
	FrameCount int64
	PointCount int64
	FirstSeq   uint64
	LastSeq    uint64
}

// Summarize reports frame and point totals for a session.
func (db *CaptureDB) Summarize(sessionID string) (*SessionSummary, error) {
	row := db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(point_count), 0), COALESCE(MIN(seq), 0), COALESCE(MAX(seq), 0)
		 FROM capture_frames WHERE session_id = ?`, sessionID)

	s := &SessionSummary{SessionID: sessionID}
	if err := row.Scan(&s.FrameCount, &s.PointCount, &s.FirstSeq, &s.LastSeq); err != nil {
		return nil, fmt.Errorf("failed to summarize session %s: %w", sessionID, err)
	}
	return s, nil
}

// ListSessions returns sessions newest-first, capped at limit (0 means
// all).
func (db *CaptureDB) ListSessions(limit int) ([]Session, error) {
	q := `SELECT session_id, sensor_id, started_unix_nanos, ended_unix_nanos, notes
	      FROM capture_sessions ORDER BY started_unix_nanos DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var started int64
		var ended sql.NullInt64
		if err := rows.Scan(&s.SessionID, &s.SensorID, &started, &ended, &s.Notes); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(0, started)
		if ended.Valid {
			s.EndedAt = time.Unix(0, ended.Int64)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
