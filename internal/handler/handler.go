package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	appI18n "github.com/pavelanni/kidsjournal/internal/i18n"
	"github.com/pavelanni/kidsjournal/internal/llm"
	"github.com/pavelanni/kidsjournal/internal/model"
	"github.com/pavelanni/kidsjournal/internal/progress"
	"github.com/pavelanni/kidsjournal/internal/service"
	"github.com/pavelanni/kidsjournal/internal/store"
)

// Reviewer suggests a mark for a free-text test answer.
type Reviewer interface {
	ReviewTextAnswer(ctx context.Context, question model.TestQuestion, answer string) (*llm.Review, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	svc      *service.Service
	reviewer Reviewer
	config   model.ServerConfig
	validate *validator.Validate
}

// New creates a new Handler. reviewer may be nil, which disables answer
// review suggestions.
func New(s *store.Store, svc *service.Service, reviewer Reviewer, cfg model.ServerConfig) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{store: s, svc: svc, reviewer: reviewer, config: cfg, validate: v}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(h.csrfMiddleware)

		r.Post("/api/logout", h.handleLogout)
		r.Get("/api/me", h.handleMe)

		r.Get("/api/students/{studentID}/pending-homeworks", h.handlePendingHomeworks)
		r.Get("/api/students/{studentID}/statistics", h.handleStudentStatistics)
		r.Get("/api/students/{studentID}/journal", h.handleStudentJournal)
		r.Get("/api/students/{studentID}/results", h.handleBestResults)
		r.Get("/api/tests/{testID}/attempts", h.handleAttemptStatus)

		r.With(requireRole(model.UserRoleStudent)).Post("/api/tests/{testID}/submissions", h.handleSubmitTest)
		r.With(requireRole(model.UserRoleStudent)).Post("/api/homeworks/{homeworkID}/answer", h.handleHomeworkAnswer)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
			r.Get("/api/teachers/{teacherID}/statistics", h.handleTeacherStatistics)
			r.Get("/api/groups/{groupID}/overview", h.handleGroupOverview)
			r.Post("/api/submissions/{submissionID}/approve-retake", h.handleApproveRetake)
			r.Post("/api/submissions/{submissionID}/questions/{questionID}/review", h.handleReviewAnswer)
			r.Post("/api/attendance", h.handleMarkAttendance)
			r.Post("/api/feedback", h.handleAddFeedback)
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Post("/users/{userID}/toggle", h.handleToggleUserActive)
			r.Post("/tests", h.handleUploadTests)
			r.Post("/teachers", h.handleCreateTeacher)
			r.Post("/groups", h.handleCreateGroup)
			r.Post("/students", h.handleCreateStudent)
			r.Post("/programs", h.handleCreateProgram)
			r.Post("/homeworks", h.handleCreateHomework)
		})
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError responds with a localized message for msgID.
func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorResponse{Error: msgID, Message: appI18n.T(r.Context(), msgID)})
}

// fail maps an error from the service or store to an HTTP response.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, progress.ErrAttemptLimitExceeded):
		writeError(w, r, http.StatusForbidden, "AttemptLimitExceeded")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, progress.ErrSubmissionNotFound):
		writeError(w, r, http.StatusNotFound, "NotFound")
	case errors.Is(err, store.ErrUsernameTaken):
		writeError(w, r, http.StatusConflict, "UsernameTaken")
	case errors.Is(err, service.ErrInvalidTestFile):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "TestFileInvalid",
			Message: appI18n.Td(r.Context(), "TestFileInvalid", map[string]any{"Reason": err.Error()}),
		})
	case errors.Is(err, model.ErrMarkOutOfRange), errors.Is(err, model.ErrUnknownFeedbackKind):
		writeError(w, r, http.StatusBadRequest, "InvalidMark")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError")
	}
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		slog.Debug("bad request body", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusBadRequest, "BadRequest")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		field := ""
		if errors.As(err, &ve) && len(ve) > 0 {
			field = ve[0].Field()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "ValidationFailed",
			Message: validationMessage(r, field),
		})
		return false
	}
	return true
}

func validationMessage(r *http.Request, field string) string {
	return appI18n.Td(r.Context(), "ValidationFailed", map[string]any{"Field": field})
}

// idParam parses a positive integer URL parameter.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "BadRequest")
		return 0, false
	}
	return id, true
}

type createdResponse struct {
	ID int64 `json:"id"`
}
