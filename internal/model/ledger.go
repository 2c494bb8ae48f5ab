package model

import (
	"errors"
	"fmt"
	"strings"
)

// Teacher is a group leader.
type Teacher struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

// Group is a class of students led by one teacher.
type Group struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	TeacherID *int64 `json:"teacher_id,omitempty"`
}

// Student is a group member.
type Student struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	GroupID  *int64 `json:"group_id,omitempty"`
}

// Program is a learning program (topic) assigned to a group.
type Program struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id"`
	Name    string `json:"name"`
}

// AttendanceRecord marks whether a student was present at one lesson.
type AttendanceRecord struct {
	ID         int64  `json:"id"`
	StudentID  int64  `json:"student_id"`
	GroupID    int64  `json:"group_id"`
	LessonDate Date   `json:"lesson_date"`
	Present    bool   `json:"present"`
	ProgramID  *int64 `json:"program_id,omitempty"`
}

// FeedbackKind tags a feedback entry.
type FeedbackKind string

const (
	KindOralHomework    FeedbackKind = "oral_hw"
	KindWrittenHomework FeedbackKind = "written_hw"
	KindDictation       FeedbackKind = "dictation"
	KindClasswork       FeedbackKind = "classwork"
	KindHomeworkNext    FeedbackKind = "homework_next"
	KindTeacherComment  FeedbackKind = "teacher_comment"
)

// IsNumeric reports whether entries of this kind carry a 1..5 mark.
func (k FeedbackKind) IsNumeric() bool {
	switch k {
	case KindOralHomework, KindWrittenHomework, KindDictation, KindClasswork:
		return true
	}
	return false
}

// IsNarrative reports whether entries of this kind carry free text.
func (k FeedbackKind) IsNarrative() bool {
	return k == KindHomeworkNext || k == KindTeacherComment
}

// ClosesHomework reports whether a mark of this kind, given on the lesson
// after a homework_next assignment, closes that assignment.
func (k FeedbackKind) ClosesHomework() bool {
	return k == KindOralHomework || k == KindWrittenHomework
}

const (
	MinMarkValue = 1
	MaxMarkValue = 5
)

var (
	ErrUnknownFeedbackKind = errors.New("unknown feedback kind")
	ErrMarkOutOfRange      = errors.New("mark value out of range")
)

// Mark is the payload of a feedback entry: either a NumericMark or a
// NarrativeMark. The interface is sealed.
type Mark interface {
	Kind() FeedbackKind
	mark()
}

// NumericMark is a 1..5 grade for a lesson activity.
type NumericMark struct {
	kind  FeedbackKind
	Value int
}

// Kind returns the feedback kind.
func (m NumericMark) Kind() FeedbackKind { return m.kind }
func (NumericMark) mark()                 {}

// NarrativeMark is a teacher's text: a comment or next-lesson homework.
type NarrativeMark struct {
	kind FeedbackKind
	Text string
}

// Kind returns the feedback kind.
func (m NarrativeMark) Kind() FeedbackKind { return m.kind }
func (NarrativeMark) mark()                 {}

// ParseMark validates a raw (kind, value, comment) triple as stored in the
// ledger and returns the typed mark. Numeric kinds ignore comment; narrative
// kinds ignore value.
func ParseMark(kind string, value int, comment string) (Mark, error) {
	k := FeedbackKind(strings.TrimSpace(kind))
	switch {
	case k.IsNumeric():
		if value < MinMarkValue || value > MaxMarkValue {
			return nil, fmt.Errorf("%w: %s=%d", ErrMarkOutOfRange, k, value)
		}
		return NumericMark{kind: k, Value: value}, nil
	case k.IsNarrative():
		return NarrativeMark{kind: k, Text: comment}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFeedbackKind, kind)
}

// MustParseMark is like ParseMark but panics on error.
func MustParseMark(kind FeedbackKind, value int, comment string) Mark {
	m, err := ParseMark(string(kind), value, comment)
	if err != nil {
		panic(err)
	}
	return m
}

// FeedbackEntry is one grade or comment given to a student. LessonDate is
// nil for entries not tied to a lesson.
type FeedbackEntry struct {
	ID         int64
	StudentID  int64
	GroupID    int64
	LessonDate *Date
	Mark       Mark
	ProgramID  *int64
}

// Kind is shorthand for e.Mark.Kind().
func (e FeedbackEntry) Kind() FeedbackKind {
	if e.Mark == nil {
		return ""
	}
	return e.Mark.Kind()
}

// Raw flattens the mark back to its ledger columns.
func (e FeedbackEntry) Raw() (kind string, value int, comment string) {
	switch m := e.Mark.(type) {
	case NumericMark:
		return string(m.kind), m.Value, ""
	case NarrativeMark:
		return string(m.kind), 0, m.Text
	}
	return "", 0, ""
}

// FeedbackView is the JSON shape of a feedback entry.
type FeedbackView struct {
	ID         int64        `json:"id"`
	StudentID  int64        `json:"student_id"`
	GroupID    int64        `json:"group_id"`
	LessonDate *Date        `json:"lesson_date,omitempty"`
	Type       FeedbackKind `json:"type"`
	Value      *int         `json:"value,omitempty"`
	Comment    string       `json:"comment,omitempty"`
	ProgramID  *int64       `json:"program_id,omitempty"`
}

// View converts the entry to its JSON shape.
func (e FeedbackEntry) View() FeedbackView {
	v := FeedbackView{
		ID:         e.ID,
		StudentID:  e.StudentID,
		GroupID:    e.GroupID,
		LessonDate: e.LessonDate,
		Type:       e.Kind(),
		ProgramID:  e.ProgramID,
	}
	switch m := e.Mark.(type) {
	case NumericMark:
		value := m.Value
		v.Value = &value
	case NarrativeMark:
		v.Comment = m.Text
	}
	return v
}

// Homework is a program assignment a student answers online.
type Homework struct {
	ID        int64  `json:"id"`
	ProgramID int64  `json:"program_id"`
	Title     string `json:"title"`
}

// HomeworkSubmission is a student's answer to a program homework.
type HomeworkSubmission struct {
	ID         int64   `json:"id"`
	HomeworkID int64   `json:"homework_id"`
	StudentID  int64   `json:"student_id"`
	AnswerText *string `json:"answer_text,omitempty"`
}
