package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catering-allocation-service/internal/domain"
)

// SQLite-backed implementation of the AttemptStore port. Rows are
// insert-only; the (run_id, attempt_number) primary key rejects
// accidental rewrites of audit history.
type SqliteAttemptStore struct{ DB *sql.DB }

func NewSqliteAttemptStore(db *sql.DB) *SqliteAttemptStore {
	return &SqliteAttemptStore{DB: db}
}

// Append one attempt record to the run's trail.
func (s *SqliteAttemptStore) AppendAttempt(ctx context.Context, rec *domain.AttemptRecord) error {
	if s.DB == nil {
		return errors.New("sqlite attempt store: DB is nil")
	}
	if rec == nil {
		return errors.New("append attempt: record is nil")
	}

	var candidate any
	if rec.Candidate != nil {
		b, err := json.Marshal(rec.Candidate)
		if err != nil {
			return fmt.Errorf("append attempt: marshal candidate: %w", err)
		}
		candidate = string(b)
	}

	violations, err := json.Marshal(rec.Violations)
	if err != nil {
		return fmt.Errorf("append attempt: marshal violations: %w", err)
	}

	query := `
	INSERT INTO attempts (
		run_id, attempt_number, prompt, raw_response, candidate,
		parse_failed, parse_reason, violations, score, accepted, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`

	_, err = s.DB.ExecContext(ctx, query,
		rec.RunID, rec.Number, rec.Prompt, rec.RawResponse, candidate,
		rec.ParseFailed, rec.ParseReason, string(violations), rec.Score, rec.Accepted,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append attempt: run %q attempt %d: %w", rec.RunID, rec.Number, err)
	}

	return nil
}

// Return all attempts for a run in attempt order.
func (s *SqliteAttemptStore) ListAttempts(ctx context.Context, runID string) ([]*domain.AttemptRecord, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite attempt store: DB is nil")
	}

	query := `
	SELECT
		run_id, attempt_number, prompt, raw_response, candidate,
		parse_failed, parse_reason, violations, score, accepted, created_at
	FROM attempts
	WHERE run_id = ?
	ORDER BY attempt_number;
	`

	rows, err := s.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: query attempts table: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.AttemptRecord, 0, 8)
	for rows.Next() {
		rec, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("list attempts: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: row iteration: %w", err)
	}

	return records, nil
}

func scanAttempt(rows *sql.Rows) (*domain.AttemptRecord, error) {
	var rec domain.AttemptRecord
	var candidate, parseReason sql.NullString
	var violations, createdAt string

	if err := rows.Scan(
		&rec.RunID, &rec.Number, &rec.Prompt, &rec.RawResponse, &candidate,
		&rec.ParseFailed, &parseReason, &violations, &rec.Score, &rec.Accepted, &createdAt,
	); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	if candidate.Valid {
		var c domain.CandidateAllocation
		if err := json.Unmarshal([]byte(candidate.String), &c); err != nil {
			return nil, fmt.Errorf("attempt %d: unmarshal candidate: %w", rec.Number, err)
		}
		rec.Candidate = &c
	}
	rec.ParseReason = parseReason.String

	if err := json.Unmarshal([]byte(violations), &rec.Violations); err != nil {
		return nil, fmt.Errorf("attempt %d: unmarshal violations: %w", rec.Number, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("attempt %d: parse created_at: %w", rec.Number, err)
	}
	rec.CreatedAt = ts

	return &rec, nil
}
