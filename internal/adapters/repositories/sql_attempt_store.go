package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catering-allocation-service/internal/domain"
	"catering-allocation-service/internal/platform/obs"
)

// SQLAttemptStore is a Postgres-backed implementation of the
// AttemptStore port, for deployments where the audit trail is shared
// across hosts.
type SQLAttemptStore struct{ DB *sql.DB }

func NewSQLAttemptStore(db *sql.DB) *SQLAttemptStore {
	return &SQLAttemptStore{DB: db}
}

// InitSQLSchema creates the attempts table in Postgres.
func InitSQLSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init sql schema: DB is nil")
	}

	query := `
	CREATE TABLE IF NOT EXISTS attempts (
		run_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		raw_response TEXT NOT NULL,
		candidate JSONB,
		parse_failed BOOLEAN NOT NULL,
		parse_reason TEXT,
		violations JSONB NOT NULL,
		score INTEGER NOT NULL,
		accepted BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, attempt_number)
	);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("init sql schema: create attempts table: %w", err)
	}

	return nil
}

// Append one attempt record to the run's trail.
func (s *SQLAttemptStore) AppendAttempt(ctx context.Context, rec *domain.AttemptRecord) (err error) {
	defer obs.Time(ctx, "attempts.Append")(&err)

	if s.DB == nil {
		return errors.New("sql attempt store: DB is nil")
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
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`

	_, err = s.DB.ExecContext(ctx, query,
		rec.RunID, rec.Number, rec.Prompt, rec.RawResponse, candidate,
		rec.ParseFailed, rec.ParseReason, string(violations), rec.Score, rec.Accepted,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append attempt: run %q attempt %d: %w", rec.RunID, rec.Number, err)
	}

	return nil
}

// Return all attempts for a run in attempt order.
func (s *SQLAttemptStore) ListAttempts(ctx context.Context, runID string) (_ []*domain.AttemptRecord, err error) {
	defer obs.Time(ctx, "attempts.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql attempt store: DB is nil")
	}

	query := `
	SELECT
		run_id, attempt_number, prompt, raw_response, candidate,
		parse_failed, parse_reason, violations, score, accepted, created_at
	FROM attempts
	WHERE run_id = $1
	ORDER BY attempt_number;
	`

	rows, err := s.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: query attempts table: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.AttemptRecord, 0, 8)
	for rows.Next() {
		var rec domain.AttemptRecord
		var candidate, parseReason sql.NullString
		var violations string
		var createdAt time.Time

		if err := rows.Scan(
			&rec.RunID, &rec.Number, &rec.Prompt, &rec.RawResponse, &candidate,
			&rec.ParseFailed, &parseReason, &violations, &rec.Score, &rec.Accepted, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("list attempts: scan row: %w", err)
		}

		if candidate.Valid {
			var c domain.CandidateAllocation
			if err := json.Unmarshal([]byte(candidate.String), &c); err != nil {
				return nil, fmt.Errorf("list attempts: attempt %d: unmarshal candidate: %w", rec.Number, err)
			}
			rec.Candidate = &c
		}
		rec.ParseReason = parseReason.String
		rec.CreatedAt = createdAt

		if err := json.Unmarshal([]byte(violations), &rec.Violations); err != nil {
			return nil, fmt.Errorf("list attempts: attempt %d: unmarshal violations: %w", rec.Number, err)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: row iteration: %w", err)
	}

	return records, nil
}
