package model

import "time"

// QuestionType is the answer format of a test question.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionText           QuestionType = "text"
)

// AutoGradable reports whether questions of this type are scored automatically.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionSingleChoice || t == QuestionMultipleChoice
}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t.AutoGradable() || t == QuestionText
}

// TestAnswer is one answer option of a choice question.
type TestAnswer struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// TestQuestion is a single question of a test.
type TestQuestion struct {
	ID      int64        `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Answers []TestAnswer `json:"answers"`
}

// TestDefinition is a test with its questions and answer key.
// MaxAttempts nil means unlimited attempts.
type TestDefinition struct {
	ID          int64          `json:"id"`
	ProgramID   int64          `json:"program_id"`
	Title       string         `json:"title"`
	MaxAttempts *int           `json:"max_attempts,omitempty"`
	Questions   []TestQuestion `json:"questions"`
}

// Question returns the question with the given id.
func (d TestDefinition) Question(id int64) (TestQuestion, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return TestQuestion{}, false
}

// SubmittedAnswer is a student's answer to one question. SelectedAnswerIDs
// holds a JSON array of answer ids as sent by the client.
type SubmittedAnswer struct {
	QuestionID        int64   `json:"question_id" validate:"required,gt=0"`
	SelectedAnswerIDs *string `json:"selected_answer_ids,omitempty"`
	AnswerText        *string `json:"answer_text,omitempty"`
}

// TestSubmission is one attempt of a student at a test. AttemptNo is the
// 1-based position of the attempt in the student's history for the test.
type TestSubmission struct {
	ID                  int64             `json:"id"`
	TestID              int64             `json:"test_id"`
	StudentID           int64             `json:"student_id"`
	AttemptNo           int               `json:"attempt_no"`
	Score               *int              `json:"score,omitempty"`
	MaxScore            *int              `json:"max_score,omitempty"`
	IsApprovedForRetake bool              `json:"is_approved_for_retake"`
	CreatedAt           time.Time         `json:"created_at"`
	Answers             []SubmittedAnswer `json:"answers,omitempty"`
}

// AttemptStatus summarizes a student's remaining attempts at a test.
// AllowedAttempts is nil when the test has no attempt limit.
type AttemptStatus struct {
	StudentID       int64 `json:"student_id"`
	TestID          int64 `json:"test_id"`
	AttemptsUsed    int   `json:"attempts_used"`
	ApprovedRetakes int   `json:"approved_retakes"`
	AllowedAttempts *int  `json:"allowed_attempts"`
	Unlimited       bool  `json:"unlimited"`
	CanAttempt      bool  `json:"can_attempt"`
}

// TestImport is used for loading test definitions from JSON.
type TestImport struct {
	ProgramID   int64  `json:"program_id"`
	Title       string `json:"title"`
	MaxAttempts *int   `json:"max_attempts,omitempty"`
	Questions   []struct {
		Type    QuestionType `json:"type"`
		Text    string       `json:"text"`
		Answers []struct {
			Text      string `json:"text"`
			IsCorrect bool   `json:"is_correct"`
		} `json:"answers"`
	} `json:"questions"`
}

// Definition converts the import to a definition without ids.
func (ti TestImport) Definition() TestDefinition {
	def := TestDefinition{
		ProgramID:   ti.ProgramID,
		Title:       ti.Title,
		MaxAttempts: ti.MaxAttempts,
	}
	for _, qi := range ti.Questions {
		q := TestQuestion{Type: qi.Type, Text: qi.Text}
		for _, ai := range qi.Answers {
			q.Answers = append(q.Answers, TestAnswer{Text: ai.Text, IsCorrect: ai.IsCorrect})
		}
		def.Questions = append(def.Questions, q)
	}
	return def
}
