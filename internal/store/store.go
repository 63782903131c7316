// Package store persists generated report artifacts in SQLite.
package store

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

	"github.com/draftforge/draftforge/internal/schema"
)

// ErrNotFound is returned when no report exists for the requested ID.
var ErrNotFound = errors.New("store: report not found")

// Store is a SQLite-backed report repository.
type Store struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	case_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	study_type  TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	sections    TEXT NOT NULL,
	metadata    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_case ON reports(case_id);
`

// Open creates (or opens) the report database at path. Parent directories
// are created as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts a report, replacing any previous row with the same ID.
func (s *Store) Save(ctx context.Context, r *schema.Report) error {
	sections, err := json.Marshal(r.Sections)
	if err != nil {
		return fmt.Errorf("store: marshal sections: %w", err)
	}
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal metadata: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, case_id, title, study_type, status, error, sections, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			case_id = excluded.case_id,
			title = excluded.title,
			study_type = excluded.study_type,
			status = excluded.status,
			error = excluded.error,
			sections = excluded.sections,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		r.ID, r.CaseID, r.Title, string(r.Study), string(r.Status), r.Error,
		string(sections), string(metadata), now, now)
	if err != nil {
		return fmt.Errorf("store: save report: %w", err)
	}
	return nil
}

// Get loads one report by ID.
func (s *Store) Get(ctx context.Context, id string) (*schema.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, case_id, title, study_type, status, error, sections, metadata
		FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

// List returns all reports for a case, newest first.
func (s *Store) List(ctx context.Context, caseID string) ([]*schema.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, title, study_type, status, error, sections, metadata
		FROM reports WHERE case_id = ? ORDER BY updated_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("store: list reports: %w", err)
	}
	defer rows.Close()

	var reports []*schema.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate reports: %w", err)
	}
	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*schema.Report, error) {
	var r schema.Report
	var study, status, sections, metadata string
	err := row.Scan(&r.ID, &r.CaseID, &r.Title, &study, &status, &r.Error, &sections, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan report: %w", err)
	}
	r.Study = schema.StudyType(study)
	r.Status = schema.ReportStatus(status)
	if err := json.Unmarshal([]byte(sections), &r.Sections); err != nil {
		return nil, fmt.Errorf("store: unmarshal sections: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
		return nil, fmt.Errorf("store: unmarshal metadata: %w", err)
	}
	return &r, nil
}
