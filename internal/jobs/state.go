package jobs

import "slices"

// Status is the lifecycle state of a job
type Status string

const (
	// StatusStarted is the initial state, before external work was submitted
	StatusStarted Status = "STARTED"
	// StatusRunning means the external work was submitted
	StatusRunning Status = "RUNNING"
	// StatusStopping means cancellation was requested
	StatusStopping Status = "STOPPING"
	// StatusStopped means the job was cancelled
	StatusStopped Status = "STOPPED"
	// StatusFailed means the job failed
	StatusFailed Status = "FAILED"
	// StatusSucceeded means the job completed
	StatusSucceeded Status = "SUCCEEDED"
)

// transitions lists the states reachable from each non-terminal state
var transitions = map[Status][]Status{
	StatusStarted:  {StatusRunning, StatusStopping, StatusFailed, StatusSucceeded},
	StatusRunning:  {StatusStopping, StatusFailed, StatusSucceeded},
	StatusStopping: {StatusStopped, StatusFailed},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusStarted, StatusRunning, StatusStopping, StatusStopped, StatusFailed, StatusSucceeded:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusFailed || s == StatusSucceeded
}

// CanTransition reports whether a job may move from one status to another
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}
