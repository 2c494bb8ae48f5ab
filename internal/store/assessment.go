package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// InsertTest stores a test definition with its questions and answers and
// returns the new test ID.
func (s *Store) InsertTest(ctx context.Context, def model.TestDefinition) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tests (program_id, title, max_attempts) VALUES (?, ?, ?)`,
		def.ProgramID, def.Title, def.MaxAttempts,
	)
	if err != nil {
		return 0, fmt.Errorf("insert test: %w", err)
	}
	testID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, q := range def.Questions {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO test_questions (test_id, type, text) VALUES (?, ?, ?)`,
			testID, q.Type, q.Text,
		)
		if err != nil {
			return 0, fmt.Errorf("insert question: %w", err)
		}
		questionID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		for _, a := range q.Answers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO test_answers (question_id, text, is_correct) VALUES (?, ?, ?)`,
				questionID, a.Text, a.IsCorrect,
			); err != nil {
				return 0, fmt.Errorf("insert answer: %w", err)
			}
		}
	}

	return testID, tx.Commit()
}

// GetTest returns a test with its questions and answer key.
func (s *Store) GetTest(ctx context.Context, id int64) (model.TestDefinition, error) {
	var def model.TestDefinition
	err := s.db.QueryRowContext(ctx,
		`SELECT id, program_id, title, max_attempts FROM tests WHERE id = ?`, id,
	).Scan(&def.ID, &def.ProgramID, &def.Title, &def.MaxAttempts)
	if err != nil {
		return def, notFound(err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.type, q.text, a.id, a.text, a.is_correct
		 FROM test_questions q LEFT JOIN test_answers a ON a.question_id = q.id
		 WHERE q.test_id = ? ORDER BY q.id, a.id`, id)
	if err != nil {
		return def, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			q         model.TestQuestion
			answerID  *int64
			text      *string
			isCorrect *bool
		)
		if err := rows.Scan(&q.ID, &q.Type, &q.Text, &answerID, &text, &isCorrect); err != nil {
			return def, err
		}
		if n := len(def.Questions); n == 0 || def.Questions[n-1].ID != q.ID {
			def.Questions = append(def.Questions, q)
		}
		if answerID == nil {
			continue
		}
		last := &def.Questions[len(def.Questions)-1]
		a := model.TestAnswer{ID: *answerID}
		if text != nil {
			a.Text = *text
		}
		if isCorrect != nil {
			a.IsCorrect = *isCorrect
		}
		last.Answers = append(last.Answers, a)
	}
	return def, rows.Err()
}

// ListTestsByGroup returns the tests of every program assigned to a group,
// without questions.
func (s *Store) ListTestsByGroup(ctx context.Context, groupID int64) ([]model.TestDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.program_id, t.title, t.max_attempts
		 FROM tests t JOIN programs p ON p.id = t.program_id
		 WHERE p.group_id = ? ORDER BY t.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tests []model.TestDefinition
	for rows.Next() {
		var def model.TestDefinition
		if err := rows.Scan(&def.ID, &def.ProgramID, &def.Title, &def.MaxAttempts); err != nil {
			return nil, err
		}
		tests = append(tests, def)
	}
	return tests, rows.Err()
}

// TestCount returns the number of tests in the database.
func (s *Store) TestCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests`).Scan(&count)
	return count, err
}

const submissionColumns = `id, test_id, student_id, attempt_no, score, max_score, is_approved_for_retake, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(r rowScanner) (model.TestSubmission, error) {
	var sub model.TestSubmission
	err := r.Scan(&sub.ID, &sub.TestID, &sub.StudentID, &sub.AttemptNo,
		&sub.Score, &sub.MaxScore, &sub.IsApprovedForRetake, &sub.CreatedAt)
	return sub, err
}

// AppendSubmission stores a scored attempt and its answers. It fails with
// ErrAttemptConflict when the attempt number is already taken for the
// student and test.
func (s *Store) AppendSubmission(ctx context.Context, sub model.TestSubmission) (model.TestSubmission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sub, err
	}
	defer tx.Rollback()

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO test_submissions (test_id, student_id, attempt_no, score, max_score, is_approved_for_retake, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.TestID, sub.StudentID, sub.AttemptNo, sub.Score, sub.MaxScore, sub.IsApprovedForRetake, sub.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sub, ErrAttemptConflict
		}
		return sub, fmt.Errorf("insert submission: %w", err)
	}
	if sub.ID, err = res.LastInsertId(); err != nil {
		return sub, err
	}

	for _, a := range sub.Answers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_submission_answers (submission_id, question_id, selected_answer_ids, answer_text)
			 VALUES (?, ?, ?, ?)`,
			sub.ID, a.QuestionID, a.SelectedAnswerIDs, a.AnswerText,
		); err != nil {
			return sub, fmt.Errorf("insert submission answer: %w", err)
		}
	}

	return sub, tx.Commit()
}

// ListSubmissions returns a student's attempts at a test in attempt order.
// Answers are not loaded.
func (s *Store) ListSubmissions(ctx context.Context, studentID, testID int64) ([]model.TestSubmission, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM test_submissions
		 WHERE student_id = ? AND test_id = ? ORDER BY attempt_no`, studentID, testID)
}

// ListSubmissionsByStudent returns every attempt of a student.
func (s *Store) ListSubmissionsByStudent(ctx context.Context, studentID int64) ([]model.TestSubmission, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM test_submissions
		 WHERE student_id = ? ORDER BY test_id, attempt_no`, studentID)
}

func (s *Store) querySubmissions(ctx context.Context, query string, args ...any) ([]model.TestSubmission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.TestSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// GetSubmission returns a submission with its answers.
func (s *Store) GetSubmission(ctx context.Context, id int64) (model.TestSubmission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM test_submissions WHERE id = ?`, id))
	if err != nil {
		return sub, notFound(err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, selected_answer_ids, answer_text
		 FROM test_submission_answers WHERE submission_id = ? ORDER BY id`, id)
	if err != nil {
		return sub, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.SubmittedAnswer
		if err := rows.Scan(&a.QuestionID, &a.SelectedAnswerIDs, &a.AnswerText); err != nil {
			return sub, err
		}
		sub.Answers = append(sub.Answers, a)
	}
	return sub, rows.Err()
}

// ApproveRetake flags a submission as approved for retake. Approving twice
// is a no-op; there is no way to revoke an approval.
func (s *Store) ApproveRetake(ctx context.Context, submissionID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE test_submissions SET is_approved_for_retake = 1 WHERE id = ?`, submissionID)
	if err != nil {
		return fmt.Errorf("approve retake: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
