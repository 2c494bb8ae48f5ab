// Package service fetches ledger snapshots and runs the progress engine
// over them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/kidsjournal/internal/model"
	"github.com/pavelanni/kidsjournal/internal/progress"
	"github.com/pavelanni/kidsjournal/internal/store"
)

// Ledger is the storage the service reads snapshots from and records
// attempts in. *store.Store implements it.
type Ledger interface {
	GetStudent(ctx context.Context, id int64) (model.Student, error)
	GetGroup(ctx context.Context, id int64) (model.Group, error)
	GetTeacher(ctx context.Context, id int64) (model.Teacher, error)
	ListGroupsByTeacher(ctx context.Context, teacherID int64) ([]model.Group, error)
	ListStudentsByGroup(ctx context.Context, groupID int64) ([]model.Student, error)

	ListAttendanceByStudent(ctx context.Context, studentID int64) ([]model.AttendanceRecord, error)
	ListAttendanceByGroup(ctx context.Context, groupID int64) ([]model.AttendanceRecord, error)
	ListFeedbackByStudent(ctx context.Context, studentID int64) ([]model.FeedbackEntry, error)
	ListFeedbackByGroup(ctx context.Context, groupID int64) ([]model.FeedbackEntry, error)

	ListHomeworksByGroup(ctx context.Context, groupID int64) ([]model.Homework, error)
	ListHomeworkSubmissionsByStudent(ctx context.Context, studentID int64) ([]model.HomeworkSubmission, error)

	GetTest(ctx context.Context, id int64) (model.TestDefinition, error)
	ListTestsByGroup(ctx context.Context, groupID int64) ([]model.TestDefinition, error)
	ListSubmissions(ctx context.Context, studentID, testID int64) ([]model.TestSubmission, error)
	ListSubmissionsByStudent(ctx context.Context, studentID int64) ([]model.TestSubmission, error)
	GetSubmission(ctx context.Context, id int64) (model.TestSubmission, error)
	AppendSubmission(ctx context.Context, sub model.TestSubmission) (model.TestSubmission, error)
	ApproveRetake(ctx context.Context, submissionID int64) error
}

var _ Ledger = (*store.Store)(nil)

// Service answers progress queries. It holds no state between calls.
type Service struct {
	ledger  Ledger
	workers int
	now     func() time.Time
}

// New returns a service over ledger. workers bounds the number of members
// whose ledgers are read in parallel; values below 1 mean 4.
func New(ledger Ledger, workers int) *Service {
	if workers < 1 {
		workers = 4
	}
	return &Service{ledger: ledger, workers: workers, now: time.Now}
}

// PendingHomeworks returns the homework_next entries a student still owes.
func (s *Service) PendingHomeworks(ctx context.Context, studentID int64) ([]model.FeedbackEntry, error) {
	if _, err := s.ledger.GetStudent(ctx, studentID); err != nil {
		return nil, fmt.Errorf("get student %d: %w", studentID, err)
	}
	attendance, err := s.ledger.ListAttendanceByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	feedback, err := s.ledger.ListFeedbackByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return progress.PendingHomeworks(attendance, feedback), nil
}

func (s *Service) tracker(ctx context.Context, studentID, testID int64) (*progress.Tracker, error) {
	def, err := s.ledger.GetTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test %d: %w", testID, err)
	}
	history, err := s.ledger.ListSubmissions(ctx, studentID, testID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return progress.NewTracker(def, history), nil
}

// AttemptStatus reports how many attempts a student has left at a test.
func (s *Service) AttemptStatus(ctx context.Context, studentID, testID int64) (model.AttemptStatus, error) {
	t, err := s.tracker(ctx, studentID, testID)
	if err != nil {
		return model.AttemptStatus{}, err
	}
	return t.Status(studentID), nil
}

// RecordAttempt scores and stores a new attempt. It returns
// progress.ErrAttemptLimitExceeded when no attempts are left. If a
// concurrent submission takes the same attempt number, the history is
// reloaded and the quota checked again once.
func (s *Service) RecordAttempt(ctx context.Context, studentID, testID int64, answers []model.SubmittedAnswer) (model.TestSubmission, error) {
	if _, err := s.ledger.GetStudent(ctx, studentID); err != nil {
		return model.TestSubmission{}, fmt.Errorf("get student %d: %w", studentID, err)
	}
	for try := 0; ; try++ {
		t, err := s.tracker(ctx, studentID, testID)
		if err != nil {
			return model.TestSubmission{}, err
		}
		sub, err := t.Record(studentID, answers, s.now())
		if err != nil {
			slog.Info("attempt refused", "student_id", studentID, "test_id", testID, "attempts_used", t.AttemptsUsed())
			return model.TestSubmission{}, err
		}
		stored, err := s.ledger.AppendSubmission(ctx, sub)
		if errors.Is(err, store.ErrAttemptConflict) && try == 0 {
			slog.Warn("attempt number taken, retrying", "student_id", studentID, "test_id", testID, "attempt_no", sub.AttemptNo)
			continue
		}
		if err != nil {
			return model.TestSubmission{}, fmt.Errorf("append submission: %w", err)
		}
		slog.Info("attempt recorded", "student_id", studentID, "test_id", testID,
			"attempt_no", stored.AttemptNo, "score", *stored.Score, "max_score", *stored.MaxScore)
		return stored, nil
	}
}

// ApproveRetake grants one more attempt by approving a prior submission.
func (s *Service) ApproveRetake(ctx context.Context, submissionID int64) error {
	if err := s.ledger.ApproveRetake(ctx, submissionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("submission %d: %w", submissionID, progress.ErrSubmissionNotFound)
		}
		return err
	}
	slog.Info("retake approved", "submission_id", submissionID)
	return nil
}

// Submission returns a stored submission with its answers.
func (s *Service) Submission(ctx context.Context, submissionID int64) (model.TestSubmission, error) {
	sub, err := s.ledger.GetSubmission(ctx, submissionID)
	if err != nil {
		return sub, fmt.Errorf("get submission %d: %w", submissionID, err)
	}
	return sub, nil
}

// Test returns a test definition with its answer key.
func (s *Service) Test(ctx context.Context, testID int64) (model.TestDefinition, error) {
	def, err := s.ledger.GetTest(ctx, testID)
	if err != nil {
		return def, fmt.Errorf("get test %d: %w", testID, err)
	}
	return def, nil
}

// Student returns a student by ID.
func (s *Service) Student(ctx context.Context, studentID int64) (model.Student, error) {
	st, err := s.ledger.GetStudent(ctx, studentID)
	if err != nil {
		return st, fmt.Errorf("get student %d: %w", studentID, err)
	}
	return st, nil
}

// Group returns a group by ID.
func (s *Service) Group(ctx context.Context, groupID int64) (model.Group, error) {
	g, err := s.ledger.GetGroup(ctx, groupID)
	if err != nil {
		return g, fmt.Errorf("get group %d: %w", groupID, err)
	}
	return g, nil
}
