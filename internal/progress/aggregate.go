package progress

import (
	"math"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// TestHistory pairs a test with one student's submissions to it.
type TestHistory struct {
	Test        model.TestDefinition
	Submissions []model.TestSubmission
}

// StudentLedger is the snapshot needed to compute one student's statistics.
// Homeworks and Tests are the assignments of the student's group programs.
type StudentLedger struct {
	StudentID           int64
	Attendance          []model.AttendanceRecord
	Feedback            []model.FeedbackEntry
	Homeworks           []model.Homework
	HomeworkSubmissions []model.HomeworkSubmission
	Tests               []TestHistory
}

// MemberStatistics is a group member with computed statistics.
type MemberStatistics struct {
	Student model.Student
	Stats   model.StudentStatistics
}

// StudentStatistics rolls a student's ledgers into a progress summary.
func StudentStatistics(l StudentLedger) model.StudentStatistics {
	st := model.StudentStatistics{StudentID: l.StudentID}

	st.TotalLessons = len(l.Attendance)
	for _, a := range l.Attendance {
		if a.Present {
			st.AttendedLessons++
		}
	}
	st.AttendanceRate = percent(st.AttendedLessons, st.TotalLessons)

	var sum int
	for _, e := range l.Feedback {
		if m, ok := e.Mark.(model.NumericMark); ok {
			sum += m.Value
			st.TotalGrades++
		}
	}
	if st.TotalGrades > 0 {
		avg := round2(float64(sum) / float64(st.TotalGrades))
		st.AverageGrade = &avg
	}

	st.TotalHomeworks, st.CompletedHomeworks = homeworkCompletion(l)
	st.TotalTests, st.CompletedTests, st.AverageTestScore = testCompletion(l.StudentID, l.Tests)
	return st
}

// homeworkCompletion counts program homeworks plus homework_next entries.
// A program homework is done when the student submitted a non-null answer;
// a homework_next entry is done when it is no longer pending.
func homeworkCompletion(l StudentLedger) (total, completed int) {
	answered := make(map[int64]bool)
	for _, s := range l.HomeworkSubmissions {
		if s.StudentID == l.StudentID && s.AnswerText != nil {
			answered[s.HomeworkID] = true
		}
	}
	for _, hw := range l.Homeworks {
		total++
		if answered[hw.ID] {
			completed++
		}
	}

	pending, closed := resolveHomeworks(l.Attendance, l.Feedback)
	total += len(pending) + len(closed)
	completed += len(closed)
	return total, completed
}

// testCompletion uses each test's authoritative result. Tests without
// submissions count toward total only.
func testCompletion(studentID int64, tests []TestHistory) (total, completed int, average *float64) {
	var (
		ratioSum float64
		scored   int
	)
	for _, th := range tests {
		total++
		var own []model.TestSubmission
		for _, s := range th.Submissions {
			if s.StudentID == studentID {
				own = append(own, s)
			}
		}
		best, ok := BestSubmission(own)
		if !ok {
			continue
		}
		completed++
		if best.Score == nil || best.MaxScore == nil || *best.MaxScore == 0 {
			continue
		}
		ratioSum += float64(*best.Score) / float64(*best.MaxScore) * 100
		scored++
	}
	if scored > 0 {
		avg := round2(ratioSum / float64(scored))
		average = &avg
	}
	return total, completed, average
}

// TeacherGroupStatistics summarizes a group from its members' statistics.
// The lesson count comes from the group-wide timeline.
func TeacherGroupStatistics(group model.Group, timeline Timeline, members []MemberStatistics) model.TeacherGroupStatistics {
	gs := model.TeacherGroupStatistics{
		GroupID:       group.ID,
		GroupName:     group.Name,
		TotalStudents: len(members),
		TotalLessons:  timeline.Len(),
	}
	if len(members) == 0 {
		return gs
	}

	var (
		rateSum  int
		gradeSum float64
		graded   int
	)
	for _, m := range members {
		rateSum += m.Stats.AttendanceRate
		if m.Stats.AverageGrade != nil {
			gradeSum += *m.Stats.AverageGrade
			graded++
		}
	}
	gs.AverageAttendanceRate = round2(float64(rateSum) / float64(len(members)))
	if graded > 0 {
		avg := round2(gradeSum / float64(graded))
		gs.AverageGrade = &avg
	}
	return gs
}

// TeacherStatistics totals the per-group summaries of one teacher.
func TeacherStatistics(teacherID int64, groups []model.TeacherGroupStatistics) model.TeacherStatistics {
	ts := model.TeacherStatistics{
		TeacherID:   teacherID,
		TotalGroups: len(groups),
		Groups:      groups,
	}
	if ts.Groups == nil {
		ts.Groups = []model.TeacherGroupStatistics{}
	}
	for _, g := range groups {
		ts.TotalStudents += g.TotalStudents
	}
	return ts
}

// GroupOverview lists members of a group with their attendance and grades.
func GroupOverview(group model.Group, timeline Timeline, members []MemberStatistics) model.GroupOverview {
	ov := model.GroupOverview{
		GroupID:       group.ID,
		GroupName:     group.Name,
		TotalStudents: len(members),
		TotalLessons:  timeline.Len(),
		Students:      make([]model.GroupStudentRow, 0, len(members)),
	}
	for _, m := range members {
		ov.Students = append(ov.Students, model.GroupStudentRow{
			StudentID:      m.Student.ID,
			FullName:       m.Student.FullName,
			AttendanceRate: m.Stats.AttendanceRate,
			AverageGrade:   m.Stats.AverageGrade,
			TotalGrades:    m.Stats.TotalGrades,
		})
	}
	return ov
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
