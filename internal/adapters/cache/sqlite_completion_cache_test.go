package cache

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func newSqliteCache(t *testing.T) *SqliteCompletionCache {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE completion_cache (
		prompt_digest TEXT PRIMARY KEY,
		content TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create table: %v", err)
	}

	return NewSqliteCompletionCache(db)
}

func TestSqliteCompletionCacheRoundTrip(t *testing.T) {
	c := newSqliteCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}

	if err := c.Put(ctx, "d1", "answer"); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Overwrite replaces silently.
	if err := c.Put(ctx, "d1", "newer answer"); err != nil {
		t.Fatalf("second put: %v", err)
	}

	content, ok, err := c.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || content != "newer answer" {
		t.Errorf("got %q ok=%v, want newest content", content, ok)
	}
}
