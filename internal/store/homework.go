package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// CreateHomework stores a program homework.
func (s *Store) CreateHomework(ctx context.Context, hw model.Homework) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO homeworks (program_id, title) VALUES (?, ?)`, hw.ProgramID, hw.Title)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetHomework returns a homework by ID.
func (s *Store) GetHomework(ctx context.Context, id int64) (model.Homework, error) {
	var hw model.Homework
	err := s.db.QueryRowContext(ctx,
		`SELECT id, program_id, title FROM homeworks WHERE id = ?`, id,
	).Scan(&hw.ID, &hw.ProgramID, &hw.Title)
	return hw, notFound(err)
}

// ListHomeworksByGroup returns the homeworks of every program of a group.
func (s *Store) ListHomeworksByGroup(ctx context.Context, groupID int64) ([]model.Homework, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.program_id, h.title
		 FROM homeworks h JOIN programs p ON p.id = h.program_id
		 WHERE p.group_id = ? ORDER BY h.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hws []model.Homework
	for rows.Next() {
		var hw model.Homework
		if err := rows.Scan(&hw.ID, &hw.ProgramID, &hw.Title); err != nil {
			return nil, err
		}
		hws = append(hws, hw)
	}
	return hws, rows.Err()
}

// SaveHomeworkAnswer stores or replaces a student's answer to a homework.
// A nil answer keeps the submission but marks it as not done.
func (s *Store) SaveHomeworkAnswer(ctx context.Context, sub model.HomeworkSubmission) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO homework_submissions (homework_id, student_id, answer_text) VALUES (?, ?, ?)
		 ON CONFLICT(homework_id, student_id) DO UPDATE SET answer_text = excluded.answer_text
		 RETURNING id`,
		sub.HomeworkID, sub.StudentID, sub.AnswerText,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save homework answer: %w", err)
	}
	return id, nil
}

// ListHomeworkSubmissionsByStudent returns all of a student's homework answers.
func (s *Store) ListHomeworkSubmissionsByStudent(ctx context.Context, studentID int64) ([]model.HomeworkSubmission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, homework_id, student_id, answer_text
		 FROM homework_submissions WHERE student_id = ? ORDER BY id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.HomeworkSubmission
	for rows.Next() {
		var hs model.HomeworkSubmission
		if err := rows.Scan(&hs.ID, &hs.HomeworkID, &hs.StudentID, &hs.AnswerText); err != nil {
			return nil, err
		}
		subs = append(subs, hs)
	}
	return subs, rows.Err()
}
