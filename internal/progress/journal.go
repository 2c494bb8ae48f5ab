package progress

import (
	"github.com/pavelanni/kidsjournal/internal/model"
)

// Journal lays out a student's lessons newest first, with attendance and
// feedback of each lesson. Feedback without a lesson date is left out.
func Journal(attendance []model.AttendanceRecord, feedback []model.FeedbackEntry) []model.JournalDay {
	timeline := BuildTimeline(attendance, feedback)
	byDate := make(map[model.Date]*model.JournalDay, timeline.Len())
	days := make([]model.JournalDay, 0, timeline.Len())
	for _, d := range timeline.Descending() {
		days = append(days, model.JournalDay{LessonDate: d})
	}
	for i := range days {
		byDate[days[i].LessonDate] = &days[i]
	}

	for _, a := range attendance {
		present := a.Present
		byDate[a.LessonDate].Present = &present
	}
	for _, e := range feedback {
		if e.LessonDate == nil {
			continue
		}
		day := byDate[*e.LessonDate]
		switch m := e.Mark.(type) {
		case model.NumericMark:
			day.Marks = append(day.Marks, e.View())
		case model.NarrativeMark:
			if m.Kind() == model.KindHomeworkNext {
				day.Homework = append(day.Homework, m.Text)
			} else {
				day.Comments = append(day.Comments, m.Text)
			}
		}
	}
	return days
}
