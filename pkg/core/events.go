package core

import "time"

// Event is the interface for all worker events.
type Event interface {
	eventMarker()
}

// JobStarted is emitted when a worker picks up a job.
type JobStarted struct {
	Job       Job
	Timestamp time.Time
}

func (*JobStarted) eventMarker() {}

// JobCompleted is emitted once a job's result has been applied.
type JobCompleted struct {
	Job       Job
	Result    *Result
	Duration  time.Duration
	Timestamp time.Time
}

func (*JobCompleted) eventMarker() {}

// JobFailed is emitted when a job fails.
type JobFailed struct {
	Job       Job
	Error     error
	Timestamp time.Time
}

func (*JobFailed) eventMarker() {}

// RunsReleased is emitted when the sweeper abandons stale runs.
type RunsReleased struct {
	Count     int64
	Timestamp time.Time
}

func (*RunsReleased) eventMarker() {}
