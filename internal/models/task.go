package models

// TaskStatus tracks a scheduled evaluation task through its lifecycle:
// Pending -> Running -> {Completed, TimedOut, Failed}. Only Completed
// produces a durable record; the other terminal states leave the model
// pending for a future round.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskTimedOut  TaskStatus = "timed_out"
	TaskFailed    TaskStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskTimedOut, TaskFailed:
		return true
	}
	return false
}
