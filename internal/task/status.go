package task

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
	StatusCancelled Status = "cancelled"
)

// transitions is the task state machine.
//
//	pending  -> queued | cancelled
//	queued   -> running | cancelled
//	running  -> completed | retrying | failed | cancelled (cooperative: the
//	            in-flight action is not aborted, its outcome is discarded)
//	retrying -> queued | cancelled
//	completed/failed -> pending (recurring series reset)
//	cancelled is terminal
var transitions = map[Status][]Status{
	StatusPending:   {StatusQueued, StatusCancelled},
	StatusQueued:    {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusRetrying, StatusFailed, StatusCancelled},
	StatusRetrying:  {StatusQueued, StatusCancelled},
	StatusCompleted: {StatusPending},
	StatusFailed:    {StatusPending},
	StatusCancelled: nil,
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusQueued, StatusRunning, StatusCompleted,
		StatusFailed, StatusRetrying, StatusCancelled:
		return true
	}
	return false
}
