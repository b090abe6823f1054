// Package metrics derives progress, health and workload figures from stored
// tasks and projects. Every function is pure; callers pass the clock.
package metrics

import (
	"math"
	"time"

	"github.com/huangang/taskpulse/backend/internal/models"
)

// Health classifies a project's progress against its schedule.
type Health string

const (
	OnTrack   Health = "on_track"
	AtRisk    Health = "at_risk"
	Delayed   Health = "delayed"
	Completed Health = "completed"
)

// statusWeight is the share of a task considered done in each status.
var statusWeight = map[models.TaskStatus]float64{
	models.TaskTodo:       0,
	models.TaskInProgress: 25,
	models.TaskInReview:   50,
	models.TaskApproved:   75,
	models.TaskCompleted:  100,
}

const (
	onTrackGap = 10
	atRiskGap  = 30
)

// StatusWeight returns the weight of s; unknown statuses weigh 0.
func StatusWeight(s models.TaskStatus) float64 {
	return statusWeight[s]
}

// WeightedProgress is the rounded mean status weight, 0 for no tasks.
func WeightedProgress(tasks []models.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	var total float64
	for _, t := range tasks {
		total += StatusWeight(t.Status)
	}
	return int(round(total / float64(len(tasks))))
}

// ExpectedProgress is how far along a project should be at now, as the share
// of time elapsed between createdAt and dueDate, clamped to [0,100]. A zero
// createdAt falls back to one month before the due date. A due date that is
// unparseable or not after the start expects 100.
func ExpectedProgress(dueDate string, createdAt, now time.Time) int {
	due, ok := ParseDate(dueDate)
	if !ok {
		return 100
	}
	start := createdAt
	if start.IsZero() {
		start = due.AddDate(0, -1, 0)
	}

	total := due.Sub(start)
	if total <= 0 {
		return 100
	}
	expected := round(float64(now.Sub(start)) / float64(total) * 100)
	return int(math.Max(0, math.Min(100, expected)))
}

// ClassifyHealth compares weighted progress with expected progress.
// A project without tasks is delayed; one whose tasks are all completed is
// completed regardless of dates.
func ClassifyHealth(tasks []models.Task, dueDate string, createdAt, now time.Time) Health {
	if len(tasks) == 0 {
		return Delayed
	}
	progress := WeightedProgress(tasks)
	if progress == 100 {
		return Completed
	}

	gap := ExpectedProgress(dueDate, createdAt, now) - progress
	switch {
	case gap <= onTrackGap:
		return OnTrack
	case gap <= atRiskGap:
		return AtRisk
	default:
		return Delayed
	}
}

// ParseDate accepts a YYYY-MM-DD date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Today is the UTC calendar date of now in dueDate layout.
func Today(now time.Time) string {
	return now.UTC().Format(models.DateLayout)
}

// round rounds half up, toward positive infinity.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}
