package engine

import "time"

// Entry is one pending unit of work. It references the task by id; the
// entry itself is ephemeral and never persisted independently of the task.
type Entry struct {
	TaskID     string
	EnqueuedAt time.Time
	// Attempt is 0 for the first execution and increments per retry.
	Attempt int
}

// Queue is the FIFO holding area between "due" and "executed".
//
// It is deliberately not priority-ordered: due tasks are priority-sorted
// before being offered to the queue, but once enqueued they drain strictly
// FIFO. Callers serialize access (the scheduler holds its lock).
type Queue struct {
	entries []Entry
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Push(e Entry) {
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now()
	}
	q.entries = append(q.entries, e)
}

// Pop removes and returns the oldest entry.
func (q *Queue) Pop() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

// Remove drops every entry for the task id (cancellation path).
func (q *Queue) Remove(taskID string) bool {
	removed := false
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.TaskID == taskID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return removed
}

// Contains reports whether any entry references the task id.
func (q *Queue) Contains(taskID string) bool {
	for _, e := range q.entries {
		if e.TaskID == taskID {
			return true
		}
	}
	return false
}

func (q *Queue) Len() int { return len(q.entries) }

// Entries returns a copy, oldest first.
func (q *Queue) Entries() []Entry {
	return append([]Entry(nil), q.entries...)
}
