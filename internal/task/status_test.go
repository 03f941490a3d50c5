package task

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusQueued, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusRunning, false},
		{StatusQueued, StatusRunning, true},
		{StatusQueued, StatusCancelled, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusRetrying, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRetrying, StatusQueued, true},
		{StatusRetrying, StatusRunning, false},
		{StatusCompleted, StatusPending, true},
		{StatusFailed, StatusPending, true},
		{StatusCompleted, StatusRunning, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusQueued, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	t.Parallel()
	for _, s := range []Status{StatusPending, StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusRetrying, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s unexpectedly invalid", s)
		}
	}
	if Status("paused").Valid() {
		t.Error("unknown status unexpectedly valid")
	}
}
