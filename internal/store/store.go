// Package store keeps the history of validation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no run matches
var ErrNotFound = errors.New("run not found")

// Run is one row of run history
type Run struct {
	ID          string        `json:"id"`
	Hypothesis  string        `json:"hypothesis"`
	Context     string        `json:"context,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	Verdict     model.Verdict `json:"verdict,omitempty"`
	Confidence  float64       `json:"confidence"`
	Iterations  int           `json:"iterations"`
	Interrupted bool          `json:"interrupted,omitempty"`
}

// IterationReport is the report produced by one iteration of a run
type IterationReport struct {
	Iteration int          `json:"iteration"`
	CreatedAt time.Time    `json:"created_at"`
	Report    model.Report `json:"report"`
}

// SqlStore records runs in a SQLite database
type SqlStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path. ":memory:" keeps it in memory.
func Open(path string) (*SqlStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SqlStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// StartRun records a new run
func (s *SqlStore) StartRun(ctx context.Context, runID string, h model.Hypothesis, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs(id, hypothesis, context, started_at) VALUES(?, ?, ?, ?)",
		runID, h.Text, nullable(h.Context), formatTime(startedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SaveReport records the report of one iteration. Saving an iteration again replaces it.
func (s *SqlStore) SaveReport(ctx context.Context, runID string, iteration int, report model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports(run_id, iteration, verdict, confidence, report_json, created_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, iteration) DO UPDATE SET
			verdict = excluded.verdict,
			confidence = excluded.confidence,
			report_json = excluded.report_json,
			created_at = excluded.created_at`,
		runID, iteration, string(report.Verdict), report.ConfidenceScore, string(data), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run
func (s *SqlStore) FinishRun(ctx context.Context, runID string, final model.Report, iterations int, interrupted bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, verdict = ?, confidence = ?, iterations = ?, interrupted = ?
		WHERE id = ?`,
		formatTime(s.now()), string(final.Verdict), final.ConfidenceScore, iterations, interrupted, runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish %s: %w", runID, ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (s *SqlStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID is id or starts with it. Ambiguous prefixes are an error.
func (s *SqlStore) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\\' ORDER BY id LIMIT 2",
		id, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if r.ID == id {
			return &r, nil
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	case 1:
		return &runs[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}
}

// GetReports returns the iteration reports of a run, oldest first
func (s *SqlStore) GetReports(ctx context.Context, runID string) ([]IterationReport, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT iteration, created_at, report_json FROM reports WHERE run_id = ? ORDER BY iteration",
		runID)
	if err != nil {
		return nil, fmt.Errorf("get reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []IterationReport
	for rows.Next() {
		var (
			r         IterationReport
			createdAt string
			data      string
		)
		if err := rows.Scan(&r.Iteration, &createdAt, &data); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		if err := json.Unmarshal([]byte(data), &r.Report); err != nil {
			return nil, fmt.Errorf("decode report %d: %w", r.Iteration, err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

const runColumns = "id, hypothesis, context, started_at, finished_at, verdict, confidence, iterations, interrupted"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r          Run
		context    sql.NullString
		startedAt  string
		finishedAt sql.NullString
		verdict    sql.NullString
		confidence sql.NullFloat64
	)
	if err := row.Scan(&r.ID, &r.Hypothesis, &context, &startedAt, &finishedAt, &verdict, &confidence, &r.Iterations, &r.Interrupted); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	r.Context = nullStr(context)
	r.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		r.FinishedAt = &t
	}
	r.Verdict = model.Verdict(nullStr(verdict))
	if confidence.Valid {
		r.Confidence = confidence.Float64
	}
	return r, nil
}

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// timeLayout sorts lexically in time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
