package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// studentParam parses {studentID} and checks the caller may read that
// student's data.
func studentParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := idParam(w, r, "studentID")
	if !ok {
		return 0, false
	}
	if !model.UserFromContext(r.Context()).CanViewStudent(id) {
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return 0, false
	}
	return id, true
}

func (h *Handler) handlePendingHomeworks(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentParam(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.PendingHomeworks(r.Context(), studentID)
	if err != nil {
		fail(w, r, err)
		return
	}
	views := make([]model.FeedbackView, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.View())
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleStudentStatistics(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentParam(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.StudentStatistics(r.Context(), studentID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleStudentJournal(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentParam(w, r)
	if !ok {
		return
	}
	days, err := h.svc.StudentJournal(r.Context(), studentID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if days == nil {
		days = []model.JournalDay{}
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *Handler) handleBestResults(w http.ResponseWriter, r *http.Request) {
	studentID, ok := studentParam(w, r)
	if !ok {
		return
	}
	results, err := h.svc.BestResults(r.Context(), studentID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if results == nil {
		results = []model.TestResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// handleAttemptStatus reports remaining attempts. Students always get their
// own status; teachers pass ?student_id=.
func (h *Handler) handleAttemptStatus(w http.ResponseWriter, r *http.Request) {
	testID, ok := idParam(w, r, "testID")
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())

	var studentID int64
	if s := r.URL.Query().Get("student_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, http.StatusBadRequest, "BadRequest")
			return
		}
		studentID = id
	} else if user.StudentID != nil {
		studentID = *user.StudentID
	} else {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "ValidationFailed",
			Message: validationMessage(r, "student_id"),
		})
		return
	}
	if !user.CanViewStudent(studentID) {
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return
	}

	status, err := h.svc.AttemptStatus(r.Context(), studentID, testID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type submitTestRequest struct {
	Answers []model.SubmittedAnswer `json:"answers" validate:"dive"`
}

func (h *Handler) handleSubmitTest(w http.ResponseWriter, r *http.Request) {
	testID, ok := idParam(w, r, "testID")
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())
	if user.StudentID == nil {
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return
	}
	var req submitTestRequest
	if !h.decode(w, r, &req) {
		return
	}

	sub, err := h.svc.RecordAttempt(r.Context(), *user.StudentID, testID, req.Answers)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleApproveRetake(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := idParam(w, r, "submissionID")
	if !ok {
		return
	}
	if err := h.svc.ApproveRetake(r.Context(), submissionID); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTeacherStatistics(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := idParam(w, r, "teacherID")
	if !ok {
		return
	}
	if !model.UserFromContext(r.Context()).CanViewTeacher(teacherID) {
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return
	}
	stats, err := h.svc.TeacherStatistics(r.Context(), teacherID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGroupOverview(w http.ResponseWriter, r *http.Request) {
	groupID, ok := idParam(w, r, "groupID")
	if !ok {
		return
	}
	group, err := h.svc.Group(r.Context(), groupID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if group.TeacherID != nil && !model.UserFromContext(r.Context()).CanViewTeacher(*group.TeacherID) {
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return
	}
	overview, err := h.svc.GroupOverview(r.Context(), groupID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// handleReviewAnswer asks the reviewer for a suggested mark on a free-text
// answer. The suggestion is returned to the teacher and never stored.
func (h *Handler) handleReviewAnswer(w http.ResponseWriter, r *http.Request) {
	if h.reviewer == nil {
		writeError(w, r, http.StatusServiceUnavailable, "ReviewUnavailable")
		return
	}
	submissionID, ok := idParam(w, r, "submissionID")
	if !ok {
		return
	}
	questionID, ok := idParam(w, r, "questionID")
	if !ok {
		return
	}

	sub, err := h.svc.Submission(r.Context(), submissionID)
	if err != nil {
		fail(w, r, err)
		return
	}
	def, err := h.svc.Test(r.Context(), sub.TestID)
	if err != nil {
		fail(w, r, err)
		return
	}
	q, found := def.Question(questionID)
	if !found {
		writeError(w, r, http.StatusNotFound, "NotFound")
		return
	}
	if q.Type != model.QuestionText {
		writeError(w, r, http.StatusBadRequest, "NotATextQuestion")
		return
	}

	var answer string
	for _, a := range sub.Answers {
		if a.QuestionID == questionID && a.AnswerText != nil {
			answer = *a.AnswerText
			break
		}
	}

	review, err := h.reviewer.ReviewTextAnswer(r.Context(), q, answer)
	if err != nil {
		slog.Error("answer review failed", "submission_id", submissionID, "question_id", questionID, "error", err)
		writeError(w, r, http.StatusBadGateway, "ReviewFailed")
		return
	}
	writeJSON(w, http.StatusOK, review)
}
