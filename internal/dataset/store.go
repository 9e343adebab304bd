// Package dataset is the local cache that serves imaging sessions to the
// analysis pipeline. Each session holds one running-speed trace and one ΔF/F
// trace per imaged cell, stored sample by sample in SQLite.
package dataset

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/locomotion.report/internal/monitoring"
	"github.com/banshee-data/locomotion.report/internal/timeutil"
	"github.com/banshee-data/locomotion.report/internal/trace"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Trace kinds as stored in trace_samples.kind.
const (
	KindRunningSpeed = "running_speed"
	KindDFF          = "dff"
)

var (
	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("dataset: session not found")
	// ErrCellNotFound is returned for a cell index the session does not have.
	ErrCellNotFound = errors.New("dataset: cell not found")
)

// Session describes one cached imaging session.
type Session struct {
	ID          string
	Description string
	// Source records where the session came from (a file path, "synthetic").
	Source     string
	CellCount  int
	ImportedAt time.Time
}

// Store is the SQLite-backed session cache.
type Store struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the cache at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	return OpenWithClock(path, timeutil.RealClock{})
}

// OpenWithClock is Open with an injected clock for import timestamps.
func OpenWithClock(path string, clock timeutil.Clock) (*Store, error) {
	s, err := openStore(path, clock)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenUnmigrated opens the cache without touching its schema, for explicit
// migrate up/down/version commands.
func OpenUnmigrated(path string) (*Store, error) {
	return openStore(path, timeutil.RealClock{})
}

func openStore(path string, clock timeutil.Clock) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}
	// A single connection keeps writes serialised and makes :memory: usable.
	db.SetMaxOpenConns(1)
	return &Store{DB: db, clock: clock}, nil
}

// MigrateUp runs all pending migrations up to the latest version.
// Returns nil if no migrations were needed (already at latest version).
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Note: m is not closed because that would close the underlying DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (s *Store) MigrateDown() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// PutSession stores a session, replacing any previous copy with the same ID.
// cells[i] becomes cell index i.
func (s *Store) PutSession(ctx context.Context, sess Session, running trace.Trace, cells []trace.Trace) error {
	if sess.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trace_samples WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("failed to clear samples: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	importedAt := s.clock.Now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, description, source, cell_count, imported_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Description, sess.Source, len(cells), importedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_samples (session_id, kind, channel, sample_index, timestamp, value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if err := insertTrace(ctx, stmt, sess.ID, KindRunningSpeed, 0, running); err != nil {
		return err
	}
	for i, c := range cells {
		if err := insertTrace(ctx, stmt, sess.ID, KindDFF, i, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", sess.ID, err)
	}
	monitoring.Logf("cached session %s: %d running samples, %d cells", sess.ID, running.Len(), len(cells))
	return nil
}

func insertTrace(ctx context.Context, stmt *sql.Stmt, id, kind string, channel int, tr trace.Trace) error {
	for i := 0; i < tr.Len(); i++ {
		t, v := tr.At(i)
		if _, err := stmt.ExecContext(ctx, id, kind, channel, i, nullable(t), nullable(v)); err != nil {
			return fmt.Errorf("failed to insert %s[%d] sample %d: %w", kind, channel, i, err)
		}
	}
	return nil
}

// nullable maps NaN to SQL NULL; SQLite has no NaN.
func nullable(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f)}
}

// Sessions lists cached sessions ordered by ID.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT session_id, description, source, cell_count, imported_at FROM sessions ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var importedAt int64
		if err := rows.Scan(&sess.ID, &sess.Description, &sess.Source, &sess.CellCount, &importedAt); err != nil {
			return nil, err
		}
		sess.ImportedAt = time.Unix(0, importedAt).UTC()
		out = append(out, sess)
	}
	return out, rows.Err()
}

// CellCount returns the number of ΔF/F traces stored for a session.
func (s *Store) CellCount(ctx context.Context, id string) (int, error) {
	var n int
	err := s.QueryRowContext(ctx, `SELECT cell_count FROM sessions WHERE session_id = ?`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return n, err
}

// DeleteSession removes a session and its samples.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trace_samples WHERE session_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) loadTrace(ctx context.Context, id, kind string, channel int) (trace.Trace, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT timestamp, value FROM trace_samples
		WHERE session_id = ? AND kind = ? AND channel = ?
		ORDER BY sample_index`, id, kind, channel)
	if err != nil {
		return trace.Trace{}, err
	}
	defer rows.Close()

	var ts, vs []float64
	for rows.Next() {
		var t, v sql.NullFloat64
		if err := rows.Scan(&t, &v); err != nil {
			return trace.Trace{}, err
		}
		ts = append(ts, orNaN(t))
		vs = append(vs, orNaN(v))
	}
	if err := rows.Err(); err != nil {
		return trace.Trace{}, err
	}
	return trace.New(ts, vs)
}

func orNaN(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// Source returns an analysis source reading one cell of a cached session.
func (s *Store) Source(sessionID string, cell int) *SessionSource {
	return &SessionSource{store: s, sessionID: sessionID, cell: cell}
}

// SessionSource reads the traces of one cell of a cached session.
type SessionSource struct {
	store     *Store
	sessionID string
	cell      int
}

// RunningSpeed loads the session's running-speed trace (cm/s).
func (src *SessionSource) RunningSpeed(ctx context.Context) (trace.Trace, error) {
	if _, err := src.store.CellCount(ctx, src.sessionID); err != nil {
		return trace.Trace{}, err
	}
	return src.store.loadTrace(ctx, src.sessionID, KindRunningSpeed, 0)
}

// ActivityTrace loads the ΔF/F trace of the selected cell.
func (src *SessionSource) ActivityTrace(ctx context.Context) (trace.Trace, error) {
	n, err := src.store.CellCount(ctx, src.sessionID)
	if err != nil {
		return trace.Trace{}, err
	}
	if src.cell < 0 || src.cell >= n {
		return trace.Trace{}, fmt.Errorf("%w: session %s has %d cells, asked for %d", ErrCellNotFound, src.sessionID, n, src.cell)
	}
	return src.store.loadTrace(ctx, src.sessionID, KindDFF, src.cell)
}

// Label names the session and cell for reports.
func (src *SessionSource) Label() string {
	return fmt.Sprintf("%s/cell%d", src.sessionID, src.cell)
}
