package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/kidsjournal/internal/model"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
)

type cookieAuthCtxKey struct{}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter) (string, error) {
	token, err := generateCSRFToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// csrfMiddleware enforces the double-submit check on state-changing
// requests that were authenticated by the session cookie. Bearer-token
// clients are not exposed to CSRF and skip the check.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		if viaCookie, _ := r.Context().Value(cookieAuthCtxKey{}).(bool); !viaCookie {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing", "path", r.URL.Path)
			writeError(w, r, http.StatusForbidden, "CSRFInvalid")
			return
		}
		headerToken := r.Header.Get(csrfHeaderName)
		if headerToken == "" {
			slog.Warn("CSRF header missing", "path", r.URL.Path)
			writeError(w, r, http.StatusForbidden, "CSRFInvalid")
			return
		}
		if len(headerToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch", "path", r.URL.Path)
			writeError(w, r, http.StatusForbidden, "CSRFInvalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionToken returns the auth token from the Authorization header or the
// session cookie, and whether it came from the cookie.
func sessionToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if ok {
			return strings.TrimSpace(token), false
		}
		return "", false
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value, true
	}
	return "", false
}

// requireAuth is middleware that checks for a valid session.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, viaCookie := sessionToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		authSess, err := h.store.GetAuthSession(r.Context(), token)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if authSess == nil {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := h.store.GetUserByID(r.Context(), authSess.UserID)
		if err != nil || user == nil || !user.Active {
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		ctx = context.WithValue(ctx, cookieAuthCtxKey{}, viaCookie)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeError(w, r, http.StatusUnauthorized, "Unauthorized")
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, http.StatusForbidden, "Forbidden")
		})
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Role        model.UserRole `json:"role"`
	StudentID   *int64         `json:"student_id,omitempty"`
	TeacherID   *int64         `json:"teacher_id,omitempty"`
	Active      bool           `json:"active"`
}

func userView(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		StudentID:   u.StudentID,
		TeacherID:   u.TeacherID,
		Active:      u.Active,
	}
}

type loginResponse struct {
	Token     string       `json:"token"`
	CSRFToken string       `json:"csrf_token"`
	User      userResponse `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if user == nil {
		writeError(w, r, http.StatusUnauthorized, "InvalidCredentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, r, http.StatusUnauthorized, "InvalidCredentials")
		return
	}
	if !user.Active {
		writeError(w, r, http.StatusForbidden, "AccountDisabled")
		return
	}

	token, err := h.store.CreateAuthSession(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	csrf, err := h.setCSRFCookie(w)
	if err != nil {
		slog.Error("failed to generate CSRF token", "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, CSRFToken: csrf, User: userView(user)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, _ := sessionToken(r); token != "" {
		if err := h.store.DeleteAuthSession(r.Context(), token); err != nil {
			slog.Warn("failed to delete auth session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userView(model.UserFromContext(r.Context())))
}
