// Package history keeps a bounded, append-only record of task execution
// outcomes. The schedule optimizer mines it for failure patterns.
package history

import (
	"sync"
	"time"
)

// DefaultCap bounds the log; the oldest record is evicted first.
const DefaultCap = 1000

// Record is one execution outcome.
type Record struct {
	TaskID    string        `json:"task_id"`
	TaskName  string        `json:"task_name"`
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Log is a bounded ring of Records, safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	cap     int
	records []Record
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Log{cap: capacity}
}

func (l *Log) Append(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	l.records = append(l.records, r)
	if len(l.records) > l.cap {
		l.records = l.records[len(l.records)-l.cap:]
	}
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Records returns a copy of the log, oldest first.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Replace swaps the log contents wholesale (restore from persistence).
// Input beyond capacity is trimmed to the newest entries.
func (l *Log) Replace(records []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(records) > l.cap {
		records = records[len(records)-l.cap:]
	}
	l.records = append([]Record(nil), records...)
}

// LastFailures returns up to n most recent failure records for the task,
// newest first.
func (l *Log) LastFailures(taskID string, n int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for i := len(l.records) - 1; i >= 0 && len(out) < n; i-- {
		r := l.records[i]
		if r.TaskID == taskID && !r.Success {
			out = append(out, r)
		}
	}
	return out
}
