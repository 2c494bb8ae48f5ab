package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// UpsertAttendance records presence for a student at one lesson. A second
// call for the same lesson date replaces the earlier record.
func (s *Store) UpsertAttendance(ctx context.Context, a model.AttendanceRecord) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO attendance (student_id, group_id, lesson_date, present, program_id)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(student_id, lesson_date) DO UPDATE SET
		 	group_id = excluded.group_id, present = excluded.present, program_id = excluded.program_id
		 RETURNING id`,
		a.StudentID, a.GroupID, a.LessonDate, a.Present, a.ProgramID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert attendance: %w", err)
	}
	return id, nil
}

// ListAttendanceByStudent returns a student's attendance ordered by lesson date.
func (s *Store) ListAttendanceByStudent(ctx context.Context, studentID int64) ([]model.AttendanceRecord, error) {
	return s.queryAttendance(ctx,
		`SELECT id, student_id, group_id, lesson_date, present, program_id
		 FROM attendance WHERE student_id = ? ORDER BY lesson_date, id`, studentID)
}

// ListAttendanceByGroup returns the attendance of every member of a group.
func (s *Store) ListAttendanceByGroup(ctx context.Context, groupID int64) ([]model.AttendanceRecord, error) {
	return s.queryAttendance(ctx,
		`SELECT id, student_id, group_id, lesson_date, present, program_id
		 FROM attendance WHERE group_id = ? ORDER BY lesson_date, id`, groupID)
}

func (s *Store) queryAttendance(ctx context.Context, query string, args ...any) ([]model.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.AttendanceRecord
	for rows.Next() {
		var a model.AttendanceRecord
		if err := rows.Scan(&a.ID, &a.StudentID, &a.GroupID, &a.LessonDate, &a.Present, &a.ProgramID); err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

// AddFeedback stores a grade or comment.
func (s *Store) AddFeedback(ctx context.Context, e model.FeedbackEntry) (int64, error) {
	kind, value, comment := e.Raw()
	if kind == "" {
		return 0, fmt.Errorf("add feedback: %w", model.ErrUnknownFeedbackKind)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (student_id, group_id, lesson_date, type, value, comment, program_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.StudentID, e.GroupID, e.LessonDate, kind, value, comment, e.ProgramID,
	)
	if err != nil {
		return 0, fmt.Errorf("add feedback: %w", err)
	}
	return res.LastInsertId()
}

// ListFeedbackByStudent returns a student's feedback in insertion order.
// Rows whose type or value do not form a valid mark are skipped.
func (s *Store) ListFeedbackByStudent(ctx context.Context, studentID int64) ([]model.FeedbackEntry, error) {
	return s.queryFeedback(ctx,
		`SELECT id, student_id, group_id, lesson_date, type, value, comment, program_id
		 FROM feedback WHERE student_id = ? ORDER BY id`, studentID)
}

// ListFeedbackByGroup returns the feedback given within a group.
func (s *Store) ListFeedbackByGroup(ctx context.Context, groupID int64) ([]model.FeedbackEntry, error) {
	return s.queryFeedback(ctx,
		`SELECT id, student_id, group_id, lesson_date, type, value, comment, program_id
		 FROM feedback WHERE group_id = ? ORDER BY id`, groupID)
}

func (s *Store) queryFeedback(ctx context.Context, query string, args ...any) ([]model.FeedbackEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.FeedbackEntry
	for rows.Next() {
		var (
			e       model.FeedbackEntry
			kind    string
			value   sql.NullInt64
			comment sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.StudentID, &e.GroupID, &e.LessonDate, &kind, &value, &comment, &e.ProgramID); err != nil {
			return nil, err
		}
		mark, err := model.ParseMark(kind, int(value.Int64), comment.String)
		if err != nil {
			slog.Warn("skipping invalid feedback row", "id", e.ID, "student_id", e.StudentID, "error", err)
			continue
		}
		e.Mark = mark
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
