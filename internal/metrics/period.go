package metrics

import (
	"time"

	"github.com/huangang/taskpulse/backend/internal/models"
)

// Period names a dashboard reporting window.
type Period string

const (
	Period7Days   Period = "7days"
	Period1Month  Period = "1month"
	Period3Months Period = "3months"
	Period6Months Period = "6months"
	Period1Year   Period = "1year"
)

type periodSpec struct {
	months int
	days   int
}

var periods = map[Period]periodSpec{
	Period7Days:   {days: 7},
	Period1Month:  {months: 1},
	Period3Months: {months: 3},
	Period6Months: {months: 6},
	Period1Year:   {months: 12},
}

// ParsePeriod maps raw to a known period, falling back to 1month.
func ParsePeriod(raw string) Period {
	if _, ok := periods[Period(raw)]; ok {
		return Period(raw)
	}
	return Period1Month
}

// Window is the current reporting window and the equal-length one before it.
type Window struct {
	Period    Period    `json:"period"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	PrevStart time.Time `json:"prevStart"`
	PrevEnd   time.Time `json:"prevEnd"`
	// Months is the window length in months; day-based periods count 30 days
	// per month.
	Months float64 `json:"months"`
}

// WindowFor computes the window of p ending at now.
func WindowFor(p Period, now time.Time) Window {
	p = ParsePeriod(string(p))
	spec := periods[p]

	back := func(t time.Time) time.Time {
		if spec.days > 0 {
			return t.AddDate(0, 0, -spec.days)
		}
		return t.AddDate(0, -spec.months, 0)
	}

	start := back(now)
	months := float64(spec.months)
	if months == 0 {
		months = float64(spec.days) / 30
	}
	return Window{
		Period:    p,
		Start:     start,
		End:       now,
		PrevStart: back(start),
		PrevEnd:   start,
		Months:    months,
	}
}

// Contains reports whether t falls in the current window. The lower bound is
// inclusive and there is no upper bound.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start)
}

// ContainsPrevious reports whether t falls in [PrevStart, PrevEnd).
func (w Window) ContainsPrevious(t time.Time) bool {
	return !t.Before(w.PrevStart) && t.Before(w.PrevEnd)
}

// TasksIn splits tasks by creation time into the current and previous window.
func (w Window) TasksIn(tasks []models.Task) (current, previous []models.Task) {
	for _, t := range tasks {
		switch {
		case w.Contains(t.CreatedAt):
			current = append(current, t)
		case w.ContainsPrevious(t.CreatedAt):
			previous = append(previous, t)
		}
	}
	return current, previous
}

// ProjectsIn splits projects by creation time into the current and previous window.
func (w Window) ProjectsIn(projects []models.Project) (current, previous []models.Project) {
	for _, p := range projects {
		switch {
		case w.Contains(p.CreatedAt):
			current = append(current, p)
		case w.ContainsPrevious(p.CreatedAt):
			previous = append(previous, p)
		}
	}
	return current, previous
}
