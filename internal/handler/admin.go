package handler

import (
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/kidsjournal/internal/model"
	"github.com/pavelanni/kidsjournal/internal/service"
)

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, userView(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"max=128"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        string `json:"role" validate:"required,oneof=student teacher admin"`
	StudentID   *int64 `json:"student_id" validate:"omitempty,gt=0"`
	TeacherID   *int64 `json:"teacher_id" validate:"omitempty,gt=0"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	if model.UserRole(req.Role) == model.UserRoleStudent && req.StudentID == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "ValidationFailed",
			Message: validationMessage(r, "student_id"),
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	u := model.User{
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         model.UserRole(req.Role),
		StudentID:    req.StudentID,
		TeacherID:    req.TeacherID,
		Active:       true,
	}
	id, err := h.store.CreateUser(r.Context(), u)
	if err != nil {
		fail(w, r, err)
		return
	}
	u.ID = id
	writeJSON(w, http.StatusCreated, userView(&u))
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "userID")
	if !ok {
		return
	}

	if err := h.store.ToggleUserActive(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	// Deactivated users lose their open sessions.
	if err := h.store.DeleteUserSessions(r.Context(), id); err != nil {
		slog.Error("failed to drop user sessions", "user_id", id, "error", err)
	}

	u, err := h.store.GetUserByID(r.Context(), id)
	if err != nil || u == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, userView(u))
}

func (h *Handler) handleUploadTests(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "BadRequest")
		return
	}

	file, header, err := r.FormFile("tests_file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BadRequest")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := service.ImportTests(r.Context(), h.store, header.Filename, data)
	if err != nil {
		fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Skipped {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

type createTeacherRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
}

func (h *Handler) handleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req createTeacherRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateTeacher(r.Context(), model.Teacher{FullName: req.FullName})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

type createGroupRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	TeacherID *int64 `json:"teacher_id" validate:"omitempty,gt=0"`
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateGroup(r.Context(), model.Group{Name: req.Name, TeacherID: req.TeacherID})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

type createStudentRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	GroupID  *int64 `json:"group_id" validate:"omitempty,gt=0"`
}

func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateStudent(r.Context(), model.Student{FullName: req.FullName, GroupID: req.GroupID})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

type createProgramRequest struct {
	GroupID int64  `json:"group_id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"required,max=200"`
}

func (h *Handler) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	var req createProgramRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateProgram(r.Context(), model.Program{GroupID: req.GroupID, Name: req.Name})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

type createHomeworkRequest struct {
	ProgramID int64  `json:"program_id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"required,max=200"`
}

func (h *Handler) handleCreateHomework(w http.ResponseWriter, r *http.Request) {
	var req createHomeworkRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.store.CreateHomework(r.Context(), model.Homework{ProgramID: req.ProgramID, Title: req.Title})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}
