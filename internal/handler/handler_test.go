package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/kidsjournal/internal/i18n"
	"github.com/pavelanni/kidsjournal/internal/llm"
	"github.com/pavelanni/kidsjournal/internal/model"
	"github.com/pavelanni/kidsjournal/internal/service"
	"github.com/pavelanni/kidsjournal/internal/store"
)

const testPassword = "correct-horse"

type fakeReviewer struct {
	gotAnswer string
	err       error
}

func (f *fakeReviewer) ReviewTextAnswer(_ context.Context, _ model.TestQuestion, answer string) (*llm.Review, error) {
	f.gotAnswer = answer
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Review{SuggestedMark: 4, Feedback: "Good, mind the spelling."}, nil
}

type env struct {
	t        *testing.T
	st       *store.Store
	router   http.Handler
	groupID  int64
	teacher  int64
	student  int64
	other    int64
	test     model.TestDefinition
	reviewer *fakeReviewer
}

func newEnv(t *testing.T, withReviewer bool) *env {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))
	ctx := context.Background()

	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e := &env{t: t, st: st}
	e.teacher, err = st.CreateTeacher(ctx, model.Teacher{FullName: "Anna Petrova"})
	require.NoError(t, err)
	e.groupID, err = st.CreateGroup(ctx, model.Group{Name: "Starters", TeacherID: &e.teacher})
	require.NoError(t, err)
	programID, err := st.CreateProgram(ctx, model.Program{GroupID: e.groupID, Name: "Animals"})
	require.NoError(t, err)
	e.student, err = st.CreateStudent(ctx, model.Student{FullName: "Masha", GroupID: &e.groupID})
	require.NoError(t, err)
	e.other, err = st.CreateStudent(ctx, model.Student{FullName: "Petya", GroupID: &e.groupID})
	require.NoError(t, err)

	one := 1
	testID, err := st.InsertTest(ctx, model.TestDefinition{
		ProgramID:   programID,
		Title:       "Pets",
		MaxAttempts: &one,
		Questions: []model.TestQuestion{
			{Type: model.QuestionSingleChoice, Text: "Which one says meow?", Answers: []model.TestAnswer{
				{Text: "cat", IsCorrect: true}, {Text: "dog"},
			}},
			{Type: model.QuestionText, Text: "Describe your pet."},
		},
	})
	require.NoError(t, err)
	e.test, err = st.GetTest(ctx, testID)
	require.NoError(t, err)

	e.addUser("admin", model.UserRoleAdmin, nil, nil)
	e.addUser("anna", model.UserRoleTeacher, nil, &e.teacher)
	e.addUser("masha", model.UserRoleStudent, &e.student, nil)

	var reviewer Reviewer
	if withReviewer {
		e.reviewer = &fakeReviewer{}
		reviewer = e.reviewer
	}
	h := New(st, service.New(st, 2), reviewer, model.ServerConfig{})
	r := chi.NewRouter()
	r.Use(appI18n.Middleware())
	h.Routes(r)
	e.router = r
	return e
}

func (e *env) addUser(username string, role model.UserRole, studentID, teacherID *int64) {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(e.t, err)
	_, err = e.st.CreateUser(context.Background(), model.User{
		Username: username, DisplayName: username, PasswordHash: string(hash),
		Role: role, StudentID: studentID, TeacherID: teacherID, Active: true,
	})
	require.NoError(e.t, err)
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) login(username string) loginResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/login", "", loginRequest{Username: username, Password: testPassword})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func (e *env) answers(correct bool, text string) submitTestRequest {
	choice := e.test.Questions[0]
	pick := choice.Answers[1].ID
	if correct {
		pick = choice.Answers[0].ID
	}
	sel := "[" + strconv.FormatInt(pick, 10) + "]"
	return submitTestRequest{Answers: []model.SubmittedAnswer{
		{QuestionID: choice.ID, SelectedAnswerIDs: &sel},
		{QuestionID: e.test.Questions[1].ID, AnswerText: &text},
	}}
}

func TestLogin(t *testing.T) {
	e := newEnv(t, false)

	rec := e.do(http.MethodPost, "/api/login", "", loginRequest{Username: "masha", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "InvalidCredentials", decodeError(t, rec).Error)

	rec = e.do(http.MethodPost, "/api/login", "", map[string]string{"username": "masha"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationFailed", decodeError(t, rec).Error)

	resp := e.login("masha")
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.CSRFToken)
	assert.Equal(t, model.UserRoleStudent, resp.User.Role)

	rec = e.do(http.MethodGet, "/api/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "masha", me.Username)
	require.NotNil(t, me.StudentID)
	assert.Equal(t, e.student, *me.StudentID)

	rec = e.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please log in first.", decodeError(t, rec).Message)

	rec = e.do(http.MethodPost, "/api/logout", resp.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(http.MethodGet, "/api/me", resp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCSRFForCookieSessions(t *testing.T) {
	e := newEnv(t, false)
	resp := e.login("anna")

	post := func(csrf string) int {
		d := "2024-09-02"
		body, _ := json.Marshal(attendanceRequest{
			StudentID: e.student, GroupID: e.groupID, LessonDate: model.MustDate(d), Present: true,
		})
		req := httptest.NewRequest(http.MethodPost, "/api/attendance", bytes.NewReader(body))
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: resp.Token})
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: resp.CSRFToken})
		if csrf != "" {
			req.Header.Set(csrfHeaderName, csrf)
		}
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, post(""))
	assert.Equal(t, http.StatusForbidden, post("forged"))
	assert.Equal(t, http.StatusOK, post(resp.CSRFToken))
}

func TestSubmitUntilLimitAndRetake(t *testing.T) {
	e := newEnv(t, false)
	student := e.login("masha").Token
	teacher := e.login("anna").Token
	path := "/api/tests/" + strconv.FormatInt(e.test.ID, 10)

	rec := e.do(http.MethodPost, path+"/submissions", student, e.answers(false, "I have a dog."))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first model.TestSubmission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, 1, first.AttemptNo)
	require.NotNil(t, first.Score)
	assert.Equal(t, 0, *first.Score)
	assert.Equal(t, 1, *first.MaxScore)

	rec = e.do(http.MethodPost, path+"/submissions", student, e.answers(true, "I have a cat."))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "AttemptLimitExceeded", errResp.Error)
	assert.Equal(t, "No attempts left, ask your teacher.", errResp.Message)

	approve := "/api/submissions/" + strconv.FormatInt(first.ID, 10) + "/approve-retake"
	rec = e.do(http.MethodPost, approve, student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(http.MethodPost, approve, teacher, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(http.MethodPost, "/api/submissions/9999/approve-retake", teacher, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodGet, path+"/attempts", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status model.AttemptStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.CanAttempt)
	require.NotNil(t, status.AllowedAttempts)
	assert.Equal(t, 2, *status.AllowedAttempts)

	rec = e.do(http.MethodPost, path+"/submissions", student, e.answers(true, "I have a cat."))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var second model.TestSubmission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, 2, second.AttemptNo)
	assert.Equal(t, 1, *second.Score)

	rec = e.do(http.MethodGet, "/api/students/"+strconv.FormatInt(e.student, 10)+"/results", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []model.TestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Attempts)
	require.NotNil(t, results[0].Best)
	assert.Equal(t, second.ID, results[0].Best.ID)
}

func TestAttemptStatusRequiresStudent(t *testing.T) {
	e := newEnv(t, false)
	teacher := e.login("anna").Token
	path := "/api/tests/" + strconv.FormatInt(e.test.ID, 10) + "/attempts"

	rec := e.do(http.MethodGet, path, teacher, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, path+"?student_id="+strconv.FormatInt(e.other, 10), teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status model.AttemptStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 0, status.AttemptsUsed)
	assert.Equal(t, e.other, status.StudentID)
}

func TestStudentReadsOnlyOwnData(t *testing.T) {
	e := newEnv(t, false)
	student := e.login("masha").Token

	for _, suffix := range []string{"statistics", "pending-homeworks", "journal", "results"} {
		t.Run(suffix, func(t *testing.T) {
			own := e.do(http.MethodGet, "/api/students/"+strconv.FormatInt(e.student, 10)+"/"+suffix, student, nil)
			assert.Equal(t, http.StatusOK, own.Code, own.Body.String())
			other := e.do(http.MethodGet, "/api/students/"+strconv.FormatInt(e.other, 10)+"/"+suffix, student, nil)
			assert.Equal(t, http.StatusForbidden, other.Code)
		})
	}

	rec := e.do(http.MethodGet, "/api/teachers/"+strconv.FormatInt(e.teacher, 10)+"/statistics", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(http.MethodGet, "/api/students/0/statistics", student, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedbackAndPendingHomeworks(t *testing.T) {
	e := newEnv(t, false)
	teacher := e.login("anna").Token
	d := model.MustDate("2024-09-02")

	tests := []struct {
		name    string
		req     feedbackRequest
		status  int
		errCode string
	}{
		{"mark out of range", feedbackRequest{StudentID: e.student, GroupID: e.groupID, LessonDate: &d, Type: "oral_hw", Value: 7}, http.StatusBadRequest, "InvalidMark"},
		{"unknown type", feedbackRequest{StudentID: e.student, GroupID: e.groupID, LessonDate: &d, Type: "essay", Value: 5}, http.StatusBadRequest, "ValidationFailed"},
		{"missing student", feedbackRequest{GroupID: e.groupID, LessonDate: &d, Type: "classwork", Value: 5}, http.StatusBadRequest, "ValidationFailed"},
		{"homework assigned", feedbackRequest{StudentID: e.student, GroupID: e.groupID, LessonDate: &d, Type: "homework_next", Comment: "Learn ten animals"}, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodPost, "/api/feedback", teacher, tt.req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decodeError(t, rec).Error)
			}
		})
	}

	rec := e.do(http.MethodPost, "/api/attendance", teacher, attendanceRequest{
		StudentID: e.student, GroupID: e.groupID, LessonDate: d, Present: true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/students/"+strconv.FormatInt(e.student, 10)+"/pending-homeworks", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []model.FeedbackView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, model.KindHomeworkNext, pending[0].Type)
	assert.Equal(t, "Learn ten animals", pending[0].Comment)

	student := e.login("masha").Token
	rec = e.do(http.MethodPost, "/api/feedback", student, tests[3].req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttendanceRequiresLessonDate(t *testing.T) {
	e := newEnv(t, false)
	teacher := e.login("anna").Token

	rec := e.do(http.MethodPost, "/api/attendance", teacher, map[string]any{
		"student_id": e.student, "group_id": e.groupID, "present": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Field lesson_date is invalid.", decodeError(t, rec).Message)
}

func TestGroupViews(t *testing.T) {
	e := newEnv(t, false)
	teacher := e.login("anna").Token
	admin := e.login("admin").Token

	rec := e.do(http.MethodGet, "/api/teachers/"+strconv.FormatInt(e.teacher, 10)+"/statistics", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.TeacherStatistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalGroups)
	assert.Equal(t, 2, stats.TotalStudents)

	rec = e.do(http.MethodGet, "/api/teachers/999/statistics", teacher, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/api/groups/"+strconv.FormatInt(e.groupID, 10)+"/overview", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview model.GroupOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Equal(t, 2, overview.TotalStudents)

	rec = e.do(http.MethodGet, "/api/groups/999/overview", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewAnswer(t *testing.T) {
	e := newEnv(t, true)
	student := e.login("masha").Token
	teacher := e.login("anna").Token

	rec := e.do(http.MethodPost, "/api/tests/"+strconv.FormatInt(e.test.ID, 10)+"/submissions", student, e.answers(true, "My cat is called Murka."))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub model.TestSubmission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))

	base := "/api/submissions/" + strconv.FormatInt(sub.ID, 10) + "/questions/"
	textQ := strconv.FormatInt(e.test.Questions[1].ID, 10)
	choiceQ := strconv.FormatInt(e.test.Questions[0].ID, 10)

	rec = e.do(http.MethodPost, base+textQ+"/review", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var review llm.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	assert.Equal(t, 4, review.SuggestedMark)
	assert.Equal(t, "My cat is called Murka.", e.reviewer.gotAnswer)

	rec = e.do(http.MethodPost, base+choiceQ+"/review", teacher, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NotATextQuestion", decodeError(t, rec).Error)

	e.reviewer.err = errors.New("endpoint down")
	rec = e.do(http.MethodPost, base+textQ+"/review", teacher, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The suggestion never touches the stored score.
	stored, err := e.st.GetSubmission(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, *stored.Score)
	assert.Equal(t, 1, *stored.MaxScore)
}

func TestReviewUnavailable(t *testing.T) {
	e := newEnv(t, false)
	teacher := e.login("anna").Token
	rec := e.do(http.MethodPost, "/api/submissions/1/questions/1/review", teacher, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ReviewUnavailable", decodeError(t, rec).Error)
}

func TestAdminUsers(t *testing.T) {
	e := newEnv(t, false)
	admin := e.login("admin").Token

	rec := e.do(http.MethodPost, "/api/admin/users", admin, createUserRequest{
		Username: "petya", Password: testPassword, Role: "student", StudentID: &e.other,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "petya", created.DisplayName)

	rec = e.do(http.MethodPost, "/api/admin/users", admin, createUserRequest{
		Username: "petya", Password: testPassword, Role: "student", StudentID: &e.other,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPost, "/api/admin/users", admin, createUserRequest{
		Username: "nobody", Password: testPassword, Role: "student",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/admin/users", admin, createUserRequest{
		Username: "short", Password: "123", Role: "teacher",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	petya := e.login("petya").Token
	rec = e.do(http.MethodPost, "/api/admin/users/"+strconv.FormatInt(created.ID, 10)+"/toggle", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.False(t, toggled.Active)

	rec = e.do(http.MethodGet, "/api/me", petya, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = e.do(http.MethodPost, "/api/login", "", loginRequest{Username: "petya", Password: testPassword})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 4)

	teacher := e.login("anna").Token
	rec = e.do(http.MethodGet, "/api/admin/users", teacher, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRosterAndHomework(t *testing.T) {
	e := newEnv(t, false)
	admin := e.login("admin").Token

	created := func(path string, body any) int64 {
		t.Helper()
		rec := e.do(http.MethodPost, path, admin, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp createdResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.ID
	}
	teacherID := created("/api/admin/teachers", createTeacherRequest{FullName: "Olga Ivanova"})
	groupID := created("/api/admin/groups", createGroupRequest{Name: "Movers", TeacherID: &teacherID})
	created("/api/admin/students", createStudentRequest{FullName: "Vanya", GroupID: &groupID})
	programID := created("/api/admin/programs", createProgramRequest{GroupID: e.groupID, Name: "Food"})
	homeworkID := created("/api/admin/homeworks", createHomeworkRequest{ProgramID: programID, Title: "My lunch"})

	rec := e.do(http.MethodPost, "/api/admin/groups", admin, createGroupRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	student := e.login("masha").Token
	answer := "I eat soup."
	rec = e.do(http.MethodPost, "/api/homeworks/"+strconv.FormatInt(homeworkID, 10)+"/answer", student, homeworkAnswerRequest{AnswerText: &answer})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(http.MethodPost, "/api/homeworks/999/answer", student, homeworkAnswerRequest{AnswerText: &answer})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodGet, "/api/students/"+strconv.FormatInt(e.student, 10)+"/statistics", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.StudentStatistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalHomeworks)
	assert.Equal(t, 1, stats.CompletedHomeworks)
}

func TestUploadTests(t *testing.T) {
	e := newEnv(t, false)
	admin := e.login("admin").Token

	upload := func(content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("tests_file", "colours.json")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/admin/tests", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+admin)
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		return rec
	}

	valid := `[{"program_id": ` + strconv.FormatInt(e.test.ProgramID, 10) + `, "title": "Colours",
		"questions": [{"type": "single_choice", "text": "Sky colour?",
			"answers": [{"text": "blue", "is_correct": true}, {"text": "green"}]}]}]`

	rec := upload(valid)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res service.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.TestIDs, 1)

	rec = upload(valid)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Skipped)
	assert.Equal(t, "unchanged", res.Reason)

	rec = upload(`{"not": "an array"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "changed content under the same name is skipped")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("tests_file", "broken.json")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(`[{"title": "no program"}]`))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/admin/tests", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TestFileInvalid", decodeError(t, rec).Error)
}
