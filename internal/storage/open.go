package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"homeauto/internal/task"
	"homeauto/internal/task/history"
	logx "homeauto/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API the scheduler depends on. Saves replace the
// previous snapshot wholesale; the persisted shape is opaque to callers.
type Store interface {
	SaveTasks(ctx context.Context, tasks []task.Task) error
	LoadTasks(ctx context.Context) ([]task.Task, error)
	SaveHistory(ctx context.Context, records []history.Record) error
	LoadHistory(ctx context.Context) ([]history.Record, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
