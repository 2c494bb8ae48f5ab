// Package progress computes homework obligations, test attempt quotas and
// progress statistics from ledger snapshots. Everything here is a pure
// function of its arguments; callers fetch the ledgers.
package progress

import (
	"slices"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// Timeline is the set of distinct lesson dates of a student or group,
// kept in ascending order.
type Timeline struct {
	dates []model.Date
}

// BuildTimeline collects lesson dates from attendance records and from
// feedback entries that are tied to a lesson.
func BuildTimeline(attendance []model.AttendanceRecord, feedback []model.FeedbackEntry) Timeline {
	seen := make(map[model.Date]struct{}, len(attendance)+len(feedback))
	var dates []model.Date
	add := func(d model.Date) {
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	for _, a := range attendance {
		add(a.LessonDate)
	}
	for _, f := range feedback {
		if f.LessonDate != nil {
			add(*f.LessonDate)
		}
	}
	slices.SortFunc(dates, model.Date.Compare)
	return Timeline{dates: dates}
}

// Len returns the number of distinct lesson dates.
func (t Timeline) Len() int { return len(t.dates) }

// Ascending returns the dates oldest first.
func (t Timeline) Ascending() []model.Date {
	return slices.Clone(t.dates)
}

// Descending returns the dates newest first.
func (t Timeline) Descending() []model.Date {
	out := slices.Clone(t.dates)
	slices.Reverse(out)
	return out
}

// NextAfter returns the first lesson date strictly later than d.
func (t Timeline) NextAfter(d model.Date) (model.Date, bool) {
	i, found := slices.BinarySearchFunc(t.dates, d, model.Date.Compare)
	if found {
		i++
	}
	if i >= len(t.dates) {
		return model.Date{}, false
	}
	return t.dates[i], true
}
