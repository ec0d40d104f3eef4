package scheduler

import (
	"time"

	"ncanimate/internal/daterange"
	"ncanimate/internal/timetable"
)

// Generated is one output finished during a run.
type Generated struct {
	Output timetable.Output
	Files  int
}

// Failure is an outdated output the run could not produce.
type Failure struct {
	Output timetable.Output
	Reason string
	Err    error
}

// Summary reports what a run did.
type Summary struct {
	ProductID       string
	Region          string
	UpToDate        int
	Outdated        int
	Rendered        []daterange.Range
	Generated       []Generated
	Failed          []Failure
	FramesReclaimed int
	Elapsed         time.Duration
}

// Succeeded reports whether every outdated output was generated.
func (s Summary) Succeeded() bool {
	return len(s.Failed) == 0
}
