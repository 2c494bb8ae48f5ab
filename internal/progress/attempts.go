package progress

import (
	"errors"
	"slices"
	"time"

	"github.com/pavelanni/kidsjournal/internal/model"
)

var (
	// ErrAttemptLimitExceeded is returned when a student has used every
	// allowed attempt. A retake approval makes the student eligible again.
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	// ErrSubmissionNotFound is returned when a submission is not part of
	// the tracked history.
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Tracker holds one student's attempt history at one test.
type Tracker struct {
	def     model.TestDefinition
	history []model.TestSubmission
}

// NewTracker returns a tracker over a copy of history, ordered by attempt number.
func NewTracker(def model.TestDefinition, history []model.TestSubmission) *Tracker {
	h := slices.Clone(history)
	slices.SortStableFunc(h, func(a, b model.TestSubmission) int {
		return a.AttemptNo - b.AttemptNo
	})
	return &Tracker{def: def, history: h}
}

// History returns the submissions in attempt order.
func (t *Tracker) History() []model.TestSubmission {
	return slices.Clone(t.history)
}

// AttemptsUsed is the number of submissions made.
func (t *Tracker) AttemptsUsed() int { return len(t.history) }

// ApprovedRetakes is the number of submissions a teacher approved for retake.
func (t *Tracker) ApprovedRetakes() int {
	n := 0
	for _, s := range t.history {
		if s.IsApprovedForRetake {
			n++
		}
	}
	return n
}

// AllowedAttempts returns the attempt quota; ok is false when unlimited.
func (t *Tracker) AllowedAttempts() (allowed int, ok bool) {
	if t.def.MaxAttempts == nil {
		return 0, false
	}
	return *t.def.MaxAttempts + t.ApprovedRetakes(), true
}

// CanAttempt reports whether another attempt may be recorded.
func (t *Tracker) CanAttempt() bool {
	allowed, limited := t.AllowedAttempts()
	return !limited || t.AttemptsUsed() < allowed
}

// Status summarizes the quota for studentID.
func (t *Tracker) Status(studentID int64) model.AttemptStatus {
	st := model.AttemptStatus{
		StudentID:       studentID,
		TestID:          t.def.ID,
		AttemptsUsed:    t.AttemptsUsed(),
		ApprovedRetakes: t.ApprovedRetakes(),
		CanAttempt:      t.CanAttempt(),
	}
	if allowed, ok := t.AllowedAttempts(); ok {
		st.AllowedAttempts = &allowed
	} else {
		st.Unlimited = true
	}
	return st
}

// Record scores answers and appends a new submission to the history. It
// does not grant attempts; once the quota is used up it fails with
// ErrAttemptLimitExceeded.
func (t *Tracker) Record(studentID int64, answers []model.SubmittedAnswer, now time.Time) (model.TestSubmission, error) {
	if !t.CanAttempt() {
		return model.TestSubmission{}, ErrAttemptLimitExceeded
	}
	res := Score(t.def, answers)
	sub := model.TestSubmission{
		TestID:    t.def.ID,
		StudentID: studentID,
		AttemptNo: t.nextAttemptNo(),
		Score:     &res.Score,
		MaxScore:  &res.MaxScore,
		CreatedAt: now,
		Answers:   slices.Clone(answers),
	}
	t.history = append(t.history, sub)
	return sub, nil
}

func (t *Tracker) nextAttemptNo() int {
	if len(t.history) == 0 {
		return 1
	}
	return t.history[len(t.history)-1].AttemptNo + 1
}

// ApproveRetake marks a prior submission as approved for retake. Approving
// an already approved submission changes nothing.
func (t *Tracker) ApproveRetake(submissionID int64) error {
	for i := range t.history {
		if t.history[i].ID == submissionID {
			t.history[i].IsApprovedForRetake = true
			return nil
		}
	}
	return ErrSubmissionNotFound
}

// Authoritative returns the best-scoring submission. Ties go to the earliest
// attempt; unscored submissions lose to any scored one.
func (t *Tracker) Authoritative() (model.TestSubmission, bool) {
	return BestSubmission(t.history)
}

// BestSubmission picks the authoritative result from one student's
// submissions at one test.
func BestSubmission(subs []model.TestSubmission) (model.TestSubmission, bool) {
	var (
		best  model.TestSubmission
		found bool
	)
	for _, s := range subs {
		if !found || better(s, best) {
			best, found = s, true
		}
	}
	return best, found
}

func better(a, b model.TestSubmission) bool {
	as, bs := scoreOrMinus(a), scoreOrMinus(b)
	if as != bs {
		return as > bs
	}
	return a.AttemptNo < b.AttemptNo
}

func scoreOrMinus(s model.TestSubmission) int {
	if s.Score == nil {
		return -1
	}
	return *s.Score
}
