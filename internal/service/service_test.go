package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/kidsjournal/internal/model"
	"github.com/pavelanni/kidsjournal/internal/progress"
	"github.com/pavelanni/kidsjournal/internal/store"
)

type world struct {
	st        *store.Store
	svc       *Service
	teacherID int64
	groupID   int64
	programID int64
	masha     int64
	petya     int64
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	w := &world{st: st, svc: New(st, 2)}
	w.teacherID, err = st.CreateTeacher(ctx, model.Teacher{FullName: "Anna Petrova"})
	require.NoError(t, err)
	w.groupID, err = st.CreateGroup(ctx, model.Group{Name: "Starters", TeacherID: &w.teacherID})
	require.NoError(t, err)
	w.programID, err = st.CreateProgram(ctx, model.Program{GroupID: w.groupID, Name: "Colours"})
	require.NoError(t, err)
	w.masha, err = st.CreateStudent(ctx, model.Student{FullName: "Masha", GroupID: &w.groupID})
	require.NoError(t, err)
	w.petya, err = st.CreateStudent(ctx, model.Student{FullName: "Petya", GroupID: &w.groupID})
	require.NoError(t, err)
	return w
}

func (w *world) attend(t *testing.T, studentID int64, date string, present bool) {
	t.Helper()
	_, err := w.st.UpsertAttendance(context.Background(), model.AttendanceRecord{
		StudentID: studentID, GroupID: w.groupID, LessonDate: model.MustDate(date), Present: present,
	})
	require.NoError(t, err)
}

func (w *world) mark(t *testing.T, studentID int64, date string, kind model.FeedbackKind, value int, comment string) int64 {
	t.Helper()
	d := model.MustDate(date)
	id, err := w.st.AddFeedback(context.Background(), model.FeedbackEntry{
		StudentID: studentID, GroupID: w.groupID, LessonDate: &d, Mark: model.MustParseMark(kind, value, comment),
	})
	require.NoError(t, err)
	return id
}

func (w *world) test(t *testing.T, maxAttempts *int) model.TestDefinition {
	t.Helper()
	ctx := context.Background()
	id, err := w.st.InsertTest(ctx, model.TestDefinition{
		ProgramID:   w.programID,
		Title:       "Colours",
		MaxAttempts: maxAttempts,
		Questions: []model.TestQuestion{
			{Type: model.QuestionMultipleChoice, Text: "Warm colours", Answers: []model.TestAnswer{
				{Text: "red", IsCorrect: true}, {Text: "blue"}, {Text: "orange", IsCorrect: true},
			}},
			{Type: model.QuestionText, Text: "Your favourite colour"},
		},
	})
	require.NoError(t, err)
	def, err := w.st.GetTest(ctx, id)
	require.NoError(t, err)
	return def
}

func selection(t *testing.T, ids ...int64) *string {
	t.Helper()
	b, err := json.Marshal(ids)
	require.NoError(t, err)
	s := string(b)
	return &s
}

func TestPendingHomeworks(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	hw := w.mark(t, w.masha, "2024-01-05", model.KindHomeworkNext, 0, "стр.10")
	got, err := w.svc.PendingHomeworks(ctx, w.masha)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hw, got[0].ID)

	w.mark(t, w.masha, "2024-01-12", model.KindClasswork, 5, "")
	got, err = w.svc.PendingHomeworks(ctx, w.masha)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	w.mark(t, w.masha, "2024-01-12", model.KindOralHomework, 4, "")
	got, err = w.svc.PendingHomeworks(ctx, w.masha)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = w.svc.PendingHomeworks(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordAttemptQuota(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	two := 2
	def := w.test(t, &two)
	q := def.Questions[0]
	answers := []model.SubmittedAnswer{{QuestionID: q.ID, SelectedAnswerIDs: selection(t, q.Answers[0].ID, q.Answers[2].ID)}}

	first, err := w.svc.RecordAttempt(ctx, w.masha, def.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 1, first.AttemptNo)
	require.NotNil(t, first.Score)
	assert.Equal(t, 1, *first.Score)
	assert.Equal(t, 1, *first.MaxScore)

	second, err := w.svc.RecordAttempt(ctx, w.masha, def.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNo)
	assert.Equal(t, 0, *second.Score)

	_, err = w.svc.RecordAttempt(ctx, w.masha, def.ID, answers)
	assert.ErrorIs(t, err, progress.ErrAttemptLimitExceeded)

	status, err := w.svc.AttemptStatus(ctx, w.masha, def.ID)
	require.NoError(t, err)
	assert.False(t, status.CanAttempt)
	assert.Equal(t, 2, status.AttemptsUsed)

	require.NoError(t, w.svc.ApproveRetake(ctx, first.ID))
	require.NoError(t, w.svc.ApproveRetake(ctx, first.ID))
	status, err = w.svc.AttemptStatus(ctx, w.masha, def.ID)
	require.NoError(t, err)
	require.NotNil(t, status.AllowedAttempts)
	assert.Equal(t, 3, *status.AllowedAttempts)
	assert.True(t, status.CanAttempt)

	third, err := w.svc.RecordAttempt(ctx, w.masha, def.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 3, third.AttemptNo)

	// Other students keep their own quota.
	status, err = w.svc.AttemptStatus(ctx, w.petya, def.ID)
	require.NoError(t, err)
	assert.True(t, status.CanAttempt)

	assert.ErrorIs(t, w.svc.ApproveRetake(ctx, 9999), progress.ErrSubmissionNotFound)
}

// racingLedger lets another attempt slip in before the first append.
type racingLedger struct {
	*store.Store
	raced bool
}

func (l *racingLedger) AppendSubmission(ctx context.Context, sub model.TestSubmission) (model.TestSubmission, error) {
	if !l.raced {
		l.raced = true
		if _, err := l.Store.AppendSubmission(ctx, sub); err != nil {
			return sub, err
		}
	}
	return l.Store.AppendSubmission(ctx, sub)
}

func TestRecordAttemptRetriesOnConflict(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	def := w.test(t, nil)

	svc := New(&racingLedger{Store: w.st}, 1)
	sub, err := svc.RecordAttempt(ctx, w.masha, def.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.AttemptNo)

	subs, err := w.st.ListSubmissions(ctx, w.masha, def.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestRecordAttemptConflictRespectsQuota(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	one := 1
	def := w.test(t, &one)

	svc := New(&racingLedger{Store: w.st}, 1)
	_, err := svc.RecordAttempt(ctx, w.masha, def.ID, nil)
	assert.ErrorIs(t, err, progress.ErrAttemptLimitExceeded)
}

func TestStudentStatistics(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	for day := 1; day <= 10; day++ {
		w.attend(t, w.masha, model.NewDate(2024, 2, day).String(), day <= 8)
	}
	w.mark(t, w.masha, "2024-02-01", model.KindClasswork, 4, "")
	w.mark(t, w.masha, "2024-02-02", model.KindDictation, 5, "")
	w.mark(t, w.masha, "2024-02-03", model.KindClasswork, 3, "")

	def := w.test(t, nil)
	q := def.Questions[0]
	_, err := w.svc.RecordAttempt(ctx, w.masha, def.ID, nil)
	require.NoError(t, err)
	_, err = w.svc.RecordAttempt(ctx, w.masha, def.ID,
		[]model.SubmittedAnswer{{QuestionID: q.ID, SelectedAnswerIDs: selection(t, q.Answers[2].ID, q.Answers[0].ID)}})
	require.NoError(t, err)
	w.test(t, nil)

	hwID, err := w.st.CreateHomework(ctx, model.Homework{ProgramID: w.programID, Title: "Colour the rainbow"})
	require.NoError(t, err)
	answer := "done"
	_, err = w.st.SaveHomeworkAnswer(ctx, model.HomeworkSubmission{HomeworkID: hwID, StudentID: w.masha, AnswerText: &answer})
	require.NoError(t, err)

	stats, err := w.svc.StudentStatistics(ctx, w.masha)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalLessons)
	assert.Equal(t, 80, stats.AttendanceRate)
	require.NotNil(t, stats.AverageGrade)
	assert.Equal(t, 4.0, *stats.AverageGrade)
	assert.Equal(t, 2, stats.TotalTests)
	assert.Equal(t, 1, stats.CompletedTests)
	require.NotNil(t, stats.AverageTestScore)
	assert.Equal(t, 100.0, *stats.AverageTestScore)
	assert.Equal(t, 1, stats.TotalHomeworks)
	assert.Equal(t, 1, stats.CompletedHomeworks)

	results, err := w.svc.BestResults(ctx, w.masha)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotNil(t, results[0].Best)
	assert.Equal(t, 2, results[0].Best.AttemptNo)
	assert.Equal(t, 2, results[0].Attempts)
	assert.Nil(t, results[1].Best)
}

func TestTeacherStatistics(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.attend(t, w.masha, "2024-01-05", true)
	w.attend(t, w.masha, "2024-01-12", true)
	w.attend(t, w.petya, "2024-01-05", true)
	w.attend(t, w.petya, "2024-01-12", false)
	w.mark(t, w.masha, "2024-01-05", model.KindClasswork, 5, "")
	w.mark(t, w.petya, "2024-01-19", model.KindTeacherComment, 0, "missed class")

	stats, err := w.svc.TeacherStatistics(ctx, w.teacherID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalGroups)
	assert.Equal(t, 2, stats.TotalStudents)
	require.Len(t, stats.Groups, 1)
	g := stats.Groups[0]
	assert.Equal(t, 75.0, g.AverageAttendanceRate)
	require.NotNil(t, g.AverageGrade)
	assert.Equal(t, 5.0, *g.AverageGrade)
	assert.Equal(t, 3, g.TotalLessons)

	ov, err := w.svc.GroupOverview(ctx, w.groupID)
	require.NoError(t, err)
	require.Len(t, ov.Students, 2)
	assert.Equal(t, "Petya", ov.Students[1].FullName)
	assert.Nil(t, ov.Students[1].AverageGrade)

	_, err = w.svc.TeacherStatistics(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	lonely, err := w.st.CreateTeacher(ctx, model.Teacher{FullName: "New Teacher"})
	require.NoError(t, err)
	empty, err := w.svc.TeacherStatistics(ctx, lonely)
	require.NoError(t, err)
	assert.NotNil(t, empty.Groups)
	assert.Zero(t, empty.TotalStudents)
}

func TestStudentJournal(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.attend(t, w.masha, "2024-01-05", true)
	w.mark(t, w.masha, "2024-01-05", model.KindHomeworkNext, 0, "p. 10")
	w.mark(t, w.masha, "2024-01-12", model.KindOralHomework, 5, "")

	days, err := w.svc.StudentJournal(ctx, w.masha)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, model.MustDate("2024-01-12"), days[0].LessonDate)
	assert.Len(t, days[0].Marks, 1)
	assert.Equal(t, []string{"p. 10"}, days[1].Homework)
}

func TestExportGroup(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	w.attend(t, w.petya, "2024-01-05", true)

	export, err := w.svc.ExportGroup(ctx, w.groupID)
	require.NoError(t, err)
	assert.Equal(t, "Starters", export.GroupName)
	assert.Equal(t, 2024, export.ExportedAt.Year())
	require.Len(t, export.Students, 2)
	assert.Equal(t, "Masha", export.Students[0].FullName)
	assert.Equal(t, 100, export.Students[1].Statistics.AttendanceRate)
}

func TestImportTests(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	data := []byte(`[{"program_id": ` + strconv.FormatInt(w.programID, 10) + `, "title": "Animals", "max_attempts": 2,
		"questions": [
			{"type": "single_choice", "text": "Cat is", "answers": [{"text": "кошка", "is_correct": true}, {"text": "собака"}]},
			{"type": "text", "text": "Describe your pet"}
		]}]`)

	res, err := ImportTests(ctx, w.st, "animals.json", data)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	require.Len(t, res.TestIDs, 1)

	def, err := w.st.GetTest(ctx, res.TestIDs[0])
	require.NoError(t, err)
	assert.Len(t, def.Questions, 2)
	require.NotNil(t, def.MaxAttempts)
	assert.Equal(t, 2, *def.MaxAttempts)

	res, err = ImportTests(ctx, w.st, "animals.json", data)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "unchanged", res.Reason)

	res, err = ImportTests(ctx, w.st, "animals.json", append(data, ' '))
	require.NoError(t, err)
	assert.Equal(t, "changed", res.Reason)

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"no program", `[{"title": "x", "questions": [{"type": "text"}]}]`},
		{"unknown type", `[{"program_id": 1, "title": "x", "questions": [{"type": "essay"}]}]`},
		{"choice without answers", `[{"program_id": 1, "title": "x", "questions": [{"type": "single_choice"}]}]`},
		{"zero attempts", `[{"program_id": 1, "title": "x", "max_attempts": 0, "questions": [{"type": "text"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportTests(ctx, w.st, tt.name+".json", []byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidTestFile)
		})
	}
}
