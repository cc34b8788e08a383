package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLite-backed cache for raw LLM completions keyed by prompt digest.
// Used by the CLI where a Redis instance is not available; keys are
// expected to be consistent (already hashed) by the caller.
type SqliteCompletionCache struct {
	DB *sql.DB
}

func NewSqliteCompletionCache(db *sql.DB) *SqliteCompletionCache {
	return &SqliteCompletionCache{DB: db}
}

// Look up a cached completion. ok is false on a miss.
func (s *SqliteCompletionCache) Get(ctx context.Context, promptDigest string) (string, bool, error) {
	if s.DB == nil {
		return "", false, errors.New("completion cache: db is nil")
	}
	if promptDigest == "" {
		return "", false, errors.New("get completion cache: digest must not be empty")
	}

	q := `
	SELECT content
	FROM completion_cache
	WHERE prompt_digest = ?;
	`

	var content string
	err := s.DB.QueryRowContext(ctx, q, promptDigest).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get completion cache: query completion_cache table: %w", err)
	}
	return content, true, nil
}

// Store a completion for the digest.
func (s *SqliteCompletionCache) Put(ctx context.Context, promptDigest string, content string) error {
	if s.DB == nil {
		return errors.New("completion cache: db is nil")
	}
	if promptDigest == "" {
		return errors.New("put completion cache: digest must not be empty")
	}

	q := `
	INSERT OR REPLACE INTO completion_cache (prompt_digest, content)
	VALUES (?, ?);
	`

	if _, err := s.DB.ExecContext(ctx, q, promptDigest, content); err != nil {
		return fmt.Errorf("put completion cache: %w", err)
	}
	return nil
}
