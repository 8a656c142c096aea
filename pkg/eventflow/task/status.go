package task

// Status is a task's lifecycle state.
type Status int

const (
	// Pending is the initial state.
	Pending Status = iota
	// Running means a pipeline has started the task.
	Running
	// Finished is terminal: the task produced a value.
	Finished
	// Failed is terminal: a step raised.
	Failed
	// Cancelled is terminal: the task stopped at a step boundary.
	Cancelled
)

// String returns the status word used in event labels.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case Finished, Failed, Cancelled:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to Status) bool {
	switch from {
	case Pending:
		return to == Running
	case Running:
		return to.IsTerminal()
	default:
		return false
	}
}
