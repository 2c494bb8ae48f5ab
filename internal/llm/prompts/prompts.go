package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// Templates holds the built-in review prompts.
//
//go:embed templates/review_*.txt
var Templates embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 4000

// PromptVariant represents a review prompt variant.
type PromptVariant string

const (
	// PromptStrict marks every mistake, for exam preparation groups.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default review variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient rewards effort, for beginner groups.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

var (
	loadOnce        sync.Once
	loadErr         error
	reviewTemplates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// ReviewData holds template data for review prompts.
type ReviewData struct {
	QuestionText string
	Answer       string
	MinMark      int
	MaxMark      int
}

// Load parses the review templates from fsys, which must contain
// templates/review_<variant>.txt for every variant. Only the first call
// has an effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		reviewTemplates = make(map[PromptVariant]*template.Template)
		for _, v := range []PromptVariant{PromptStrict, PromptStandard, PromptLenient} {
			file := "templates/review_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New("review").Option("missingkey=error").Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			reviewTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildReviewPrompt renders the review prompt for a free-text answer.
func BuildReviewPrompt(variant PromptVariant, question model.TestQuestion, answer string) (string, error) {
	if reviewTemplates == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := reviewTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data := ReviewData{
		QuestionText: strings.TrimSpace(question.Text),
		Answer:       sanitizeAnswer(answer),
		MinMark:      model.MinMarkValue,
		MaxMark:      model.MaxMarkValue,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeAnswer strips the prompt's delimiter tags from the student text
// and caps its length.
func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
