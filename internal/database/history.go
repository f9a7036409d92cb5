package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/reqprof/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "reqprof.db"

// HistoryDB persists profiling runs.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures how the database is opened.
type Options struct {
	// CreateIfNotExists creates the directory and file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions creates the database on demand with WAL enabled.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		mode = "rw"
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := h.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		hostname TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		total_requests INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		transport_errors INTEGER NOT NULL,
		success_rate REAL NOT NULL,
		median_ms INTEGER,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_hostname ON runs(hostname);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// RunRecord is the listing view of a stored run.
type RunRecord struct {
	ID              int64         `json:"id"`
	Target          string        `json:"target"`
	Hostname        string        `json:"hostname"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	TotalRequests   int           `json:"total_requests"`
	Succeeded       int           `json:"succeeded"`
	Failed          int           `json:"failed"`
	TransportErrors int           `json:"transport_errors"`
	SuccessRate     float64       `json:"success_rate"`
	MedianMillis    *uint64       `json:"median_ms,omitempty"`
}

// SaveProfileReport stores a finalized report and returns its run ID.
func (h *HistoryDB) SaveProfileReport(ctx context.Context, report *model.ProfileReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	s := model.NewSummary(report)
	var median sql.NullInt64
	if s.MedianMillis != nil {
		median = sql.NullInt64{Int64: int64(*s.MedianMillis), Valid: true} //nolint:gosec // latencies are far below MaxInt64
	}

	query := `
	INSERT INTO runs (target, hostname, started_at, duration_ms, total_requests, succeeded,
		failed, transport_errors, success_rate, median_ms, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := h.db.ExecContext(ctx, query,
		report.Target.URL(),
		report.Target.Hostname,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.Duration.Milliseconds(),
		s.TotalRequests,
		s.Succeeded,
		s.Failed,
		s.TransportErrors,
		s.SuccessRate,
		median,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save profiling run: %w", err)
	}
	return result.LastInsertId()
}

// ListRuns returns stored runs, newest first. An empty hostname lists every
// target. A limit of zero or less returns all rows.
func (h *HistoryDB) ListRuns(ctx context.Context, hostname string, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, target, hostname, started_at, duration_ms, total_requests, succeeded,
		failed, transport_errors, success_rate, median_ms
	FROM runs
	WHERE (? = '' OR hostname = ?)
	ORDER BY id DESC
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := h.db.QueryContext(ctx, query, hostname, hostname, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			startedAt  string
			durationMS int64
			median     sql.NullInt64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Target,
			&rec.Hostname,
			&startedAt,
			&durationMS,
			&rec.TotalRequests,
			&rec.Succeeded,
			&rec.Failed,
			&rec.TransportErrors,
			&rec.SuccessRate,
			&median,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartedAt = parseTimestamp(startedAt)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if median.Valid {
			v := uint64(median.Int64) //nolint:gosec // stored from a uint64
			rec.MedianMillis = &v
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetRunByID loads the full report of a stored run.
func (h *HistoryDB) GetRunByID(ctx context.Context, id int64) (*model.ProfileReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.ProfileReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	report.Restore()
	return &report, nil
}

// ListTargets returns the distinct hostnames with stored runs.
func (h *HistoryDB) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT hostname FROM runs ORDER BY hostname`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// DeleteRun removes a stored run.
func (h *HistoryDB) DeleteRun(ctx context.Context, id int64) error {
	result, err := h.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// timestampFormats are the layouts accepted when reading started_at.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time when s matches no known layout.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
