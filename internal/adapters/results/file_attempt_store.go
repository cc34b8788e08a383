package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"catering-allocation-service/internal/domain"
)

// FileAttemptStore writes one JSON file per attempt under
// <dir>/<run_id>/attempt_NN.json. Useful for inspecting prompts and
// raw completions after a run without a database.
type FileAttemptStore struct {
	Dir string

	mu sync.Mutex
}

func NewFileAttemptStore(dir string) *FileAttemptStore {
	return &FileAttemptStore{Dir: dir}
}

func (s *FileAttemptStore) AppendAttempt(ctx context.Context, rec *domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := filepath.Join(s.Dir, rec.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("append attempt: create run dir: %w", err)
	}

	path := filepath.Join(runDir, fmt.Sprintf("attempt_%02d.json", rec.Number))
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("append attempt: %s already recorded", path)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("append attempt: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

func (s *FileAttemptStore) ListAttempts(ctx context.Context, runID string) ([]*domain.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runDir := filepath.Join(s.Dir, runID)
	entries, err := os.ReadDir(runDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "attempt_") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	records := make([]*domain.AttemptRecord, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(runDir, name))
		if err != nil {
			return nil, fmt.Errorf("list attempts: read %s: %w", name, err)
		}
		var rec domain.AttemptRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("list attempts: decode %s: %w", name, err)
		}
		records = append(records, &rec)
	}
	return records, nil
}
