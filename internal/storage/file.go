package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"homeauto/internal/task"
	"homeauto/internal/task/history"
	logx "homeauto/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.tasks.json    (task set snapshot)
//   - <prefix>.history.json  (execution history snapshot)
//
// Snapshots are written atomically (temp file + rename).
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	tasksPath   string
	historyPath string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &fileStore{
		log:         log,
		tasksPath:   prefix + ".tasks.json",
		historyPath: prefix + ".history.json",
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) SaveTasks(ctx context.Context, tasks []task.Task) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.tasksPath, tasks)
}

func (s *fileStore) LoadTasks(ctx context.Context) ([]task.Task, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []task.Task
	if err := readJSON(s.tasksPath, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *fileStore) SaveHistory(ctx context.Context, records []history.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.historyPath, records)
}

func (s *fileStore) LoadHistory(ctx context.Context) ([]history.Record, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []history.Record
	if err := readJSON(s.historyPath, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func writeJSONAtomic(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// readJSON decodes path into v; a missing file yields an empty result.
func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
