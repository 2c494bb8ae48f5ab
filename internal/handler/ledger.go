package handler

import (
	"log/slog"
	"net/http"

	"github.com/pavelanni/kidsjournal/internal/model"
)

type attendanceRequest struct {
	StudentID  int64      `json:"student_id" validate:"required,gt=0"`
	GroupID    int64      `json:"group_id" validate:"required,gt=0"`
	LessonDate model.Date `json:"lesson_date"`
	Present    bool       `json:"present"`
	ProgramID  *int64     `json:"program_id" validate:"omitempty,gt=0"`
}

func (h *Handler) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.LessonDate.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "ValidationFailed",
			Message: validationMessage(r, "lesson_date"),
		})
		return
	}

	id, err := h.store.UpsertAttendance(r.Context(), model.AttendanceRecord{
		StudentID:  req.StudentID,
		GroupID:    req.GroupID,
		LessonDate: req.LessonDate,
		Present:    req.Present,
		ProgramID:  req.ProgramID,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createdResponse{ID: id})
}

type feedbackRequest struct {
	StudentID  int64       `json:"student_id" validate:"required,gt=0"`
	GroupID    int64       `json:"group_id" validate:"required,gt=0"`
	LessonDate *model.Date `json:"lesson_date"`
	Type       string      `json:"type" validate:"required,oneof=oral_hw written_hw dictation classwork homework_next teacher_comment"`
	Value      int         `json:"value"`
	Comment    string      `json:"comment" validate:"max=2000"`
	ProgramID  *int64      `json:"program_id" validate:"omitempty,gt=0"`
}

func (h *Handler) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !h.decode(w, r, &req) {
		return
	}
	mark, err := model.ParseMark(req.Type, req.Value, req.Comment)
	if err != nil {
		fail(w, r, err)
		return
	}

	entry := model.FeedbackEntry{
		StudentID:  req.StudentID,
		GroupID:    req.GroupID,
		LessonDate: req.LessonDate,
		Mark:       mark,
		ProgramID:  req.ProgramID,
	}
	id, err := h.store.AddFeedback(r.Context(), entry)
	if err != nil {
		fail(w, r, err)
		return
	}
	entry.ID = id
	writeJSON(w, http.StatusCreated, entry.View())
}

type homeworkAnswerRequest struct {
	AnswerText *string `json:"answer_text" validate:"omitempty,max=10000"`
}

func (h *Handler) handleHomeworkAnswer(w http.ResponseWriter, r *http.Request) {
	homeworkID, ok := idParam(w, r, "homeworkID")
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())
	if user.StudentID == nil {
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return
	}
	var req homeworkAnswerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.store.GetHomework(r.Context(), homeworkID); err != nil {
		fail(w, r, err)
		return
	}

	id, err := h.store.SaveHomeworkAnswer(r.Context(), model.HomeworkSubmission{
		HomeworkID: homeworkID,
		StudentID:  *user.StudentID,
		AnswerText: req.AnswerText,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	slog.Info("homework answered", "homework_id", homeworkID, "student_id", *user.StudentID)
	writeJSON(w, http.StatusOK, createdResponse{ID: id})
}
