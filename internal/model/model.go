package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user. Students and teachers are linked to
// their ledger identities through StudentID and TeacherID.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	StudentID    *int64
	TeacherID    *int64
	Active       bool
	CreatedAt    time.Time
}

// CanViewStudent reports whether u may read the given student's data.
func (u *User) CanViewStudent(studentID int64) bool {
	switch u.Role {
	case UserRoleAdmin, UserRoleTeacher:
		return true
	case UserRoleStudent:
		return u.StudentID != nil && *u.StudentID == studentID
	}
	return false
}

// CanViewTeacher reports whether u may read the given teacher's statistics.
// Teachers without a linked teacher record act as moderators and see everything.
func (u *User) CanViewTeacher(teacherID int64) bool {
	switch u.Role {
	case UserRoleAdmin:
		return true
	case UserRoleTeacher:
		return u.TeacherID == nil || *u.TeacherID == teacherID
	}
	return false
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// ServerConfig holds runtime server parameters set via CLI flags.
type ServerConfig struct {
	BasePath      string // URL prefix for sub-path deployments (e.g. "/kids")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	ReviewVariant string // Text answer review prompt variant (strict, standard, lenient)
	StatsWorkers  int    // Parallel ledger reads per teacher statistics request
}
