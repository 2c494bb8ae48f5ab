package progress

import (
	"slices"
	"strings"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// assignedHomework reports whether e is a homework_next entry that
// participates in pending/closed resolution: it must be tied to a lesson and
// carry a non-blank text.
func assignedHomework(e model.FeedbackEntry) bool {
	m, ok := e.Mark.(model.NarrativeMark)
	if !ok || m.Kind() != model.KindHomeworkNext || e.LessonDate == nil {
		return false
	}
	return strings.TrimSpace(m.Text) != ""
}

// homeworkChecks indexes the lesson dates on which a student's homework
// was marked (oral or written).
type homeworkChecks map[int64]map[model.Date]struct{}

func indexHomeworkChecks(feedback []model.FeedbackEntry) homeworkChecks {
	idx := make(homeworkChecks)
	for _, e := range feedback {
		if e.LessonDate == nil || !e.Kind().ClosesHomework() {
			continue
		}
		days, ok := idx[e.StudentID]
		if !ok {
			days = make(map[model.Date]struct{})
			idx[e.StudentID] = days
		}
		days[*e.LessonDate] = struct{}{}
	}
	return idx
}

func (c homeworkChecks) has(studentID int64, d model.Date) bool {
	_, ok := c[studentID][d]
	return ok
}

// isPending resolves one assigned homework against the timeline. The
// homework is closed only by a homework mark on exactly the next lesson;
// without one it stays pending no matter how many lessons follow.
func isPending(hw model.FeedbackEntry, timeline Timeline, checks homeworkChecks) bool {
	next, ok := timeline.NextAfter(*hw.LessonDate)
	if !ok {
		return true
	}
	return !checks.has(hw.StudentID, next)
}

// PendingHomeworks returns the homework_next entries of a student that are
// still outstanding, ordered by the date they were assigned.
func PendingHomeworks(attendance []model.AttendanceRecord, feedback []model.FeedbackEntry) []model.FeedbackEntry {
	pending, _ := resolveHomeworks(attendance, feedback)
	return pending
}

// resolveHomeworks splits the qualifying homework_next entries into pending
// and closed ones.
func resolveHomeworks(attendance []model.AttendanceRecord, feedback []model.FeedbackEntry) (pending, closed []model.FeedbackEntry) {
	var assigned []model.FeedbackEntry
	for _, e := range feedback {
		if assignedHomework(e) {
			assigned = append(assigned, e)
		}
	}
	if len(assigned) == 0 {
		return nil, nil
	}

	timeline := BuildTimeline(attendance, feedback)
	checks := indexHomeworkChecks(feedback)
	for _, hw := range assigned {
		if isPending(hw, timeline, checks) {
			pending = append(pending, hw)
		} else {
			closed = append(closed, hw)
		}
	}
	slices.SortStableFunc(pending, func(a, b model.FeedbackEntry) int {
		return a.LessonDate.Compare(*b.LessonDate)
	})
	return pending, closed
}
