package model

import "time"

// StudentStatistics is the progress summary of one student.
type StudentStatistics struct {
	StudentID          int64    `json:"student_id"`
	TotalLessons       int      `json:"total_lessons"`
	AttendedLessons    int      `json:"attended_lessons"`
	AttendanceRate     int      `json:"attendance_rate"`
	AverageGrade       *float64 `json:"average_grade"`
	TotalGrades        int      `json:"total_grades"`
	CompletedHomeworks int      `json:"completed_homeworks"`
	TotalHomeworks     int      `json:"total_homeworks"`
	CompletedTests     int      `json:"completed_tests"`
	TotalTests         int      `json:"total_tests"`
	AverageTestScore   *float64 `json:"average_test_score"`
}

// TeacherGroupStatistics summarizes one group of a teacher.
type TeacherGroupStatistics struct {
	GroupID               int64    `json:"group_id"`
	GroupName             string   `json:"group_name"`
	TotalStudents         int      `json:"total_students"`
	AverageAttendanceRate float64  `json:"average_attendance_rate"`
	AverageGrade          *float64 `json:"average_grade"`
	TotalLessons          int      `json:"total_lessons"`
}

// TeacherStatistics is the progress summary across a teacher's groups.
type TeacherStatistics struct {
	TeacherID     int64                    `json:"teacher_id"`
	TotalGroups   int                      `json:"total_groups"`
	TotalStudents int                      `json:"total_students"`
	Groups        []TeacherGroupStatistics `json:"groups"`
}

// GroupStudentRow is one line of a group overview.
type GroupStudentRow struct {
	StudentID      int64    `json:"student_id"`
	FullName       string   `json:"full_name"`
	AttendanceRate int      `json:"attendance_rate"`
	AverageGrade   *float64 `json:"average_grade"`
	TotalGrades    int      `json:"total_grades"`
}

// GroupOverview lists per-student progress for one group.
type GroupOverview struct {
	GroupID       int64             `json:"group_id"`
	GroupName     string            `json:"group_name"`
	TotalStudents int               `json:"total_students"`
	TotalLessons  int               `json:"total_lessons"`
	Students      []GroupStudentRow `json:"students"`
}

// JournalDay is one lesson in a student's chronological journal.
type JournalDay struct {
	LessonDate Date           `json:"lesson_date"`
	Present    *bool          `json:"present,omitempty"`
	Marks      []FeedbackView `json:"marks,omitempty"`
	Comments   []string       `json:"comments,omitempty"`
	Homework   []string       `json:"homework,omitempty"`
}

// GroupExport is the top-level JSON structure for statistics export.
type GroupExport struct {
	GroupID    int64           `json:"group_id"`
	GroupName  string          `json:"group_name"`
	ExportedAt time.Time       `json:"exported_at"`
	Students   []StudentExport `json:"students"`
}

// StudentExport holds one student's statistics for export.
type StudentExport struct {
	FullName   string            `json:"full_name"`
	Statistics StudentStatistics `json:"statistics"`
}

// TestResult is the authoritative result of one student at one test.
// Best is nil when the student has not attempted the test.
type TestResult struct {
	TestID   int64           `json:"test_id"`
	Title    string          `json:"title"`
	Attempts int             `json:"attempts"`
	Best     *TestSubmission `json:"best"`
}
