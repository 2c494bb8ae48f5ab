package progress

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pavelanni/kidsjournal/internal/model"
)

// ScoreResult is the auto-graded outcome of one submission. Text questions
// contribute to neither field.
type ScoreResult struct {
	Score    int `json:"score"`
	MaxScore int `json:"max_score"`
}

// Score grades answers against the test's answer key. A choice question is
// correct only when the selected ids equal the set of correct answer ids.
func Score(def model.TestDefinition, answers []model.SubmittedAnswer) ScoreResult {
	byQuestion := make(map[int64]model.SubmittedAnswer, len(answers))
	for _, a := range answers {
		if _, dup := byQuestion[a.QuestionID]; !dup {
			byQuestion[a.QuestionID] = a
		}
	}

	var res ScoreResult
	for _, q := range def.Questions {
		if !q.Type.AutoGradable() {
			continue
		}
		res.MaxScore++
		var selected map[int64]struct{}
		if a, ok := byQuestion[q.ID]; ok {
			selected = parseSelection(a.SelectedAnswerIDs)
		}
		if sameSet(selected, correctAnswerIDs(q)) {
			res.Score++
		}
	}
	return res
}

func correctAnswerIDs(q model.TestQuestion) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids[a.ID] = struct{}{}
		}
	}
	return ids
}

func sameSet(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// parseSelection decodes a JSON array of answer ids. Ids may be numbers or
// numeric strings. Anything undecodable counts as an empty selection.
func parseSelection(raw *string) map[int64]struct{} {
	ids := make(map[int64]struct{})
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return ids
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(*raw), &items); err != nil {
		slog.Warn("malformed answer selection, treating as empty", "raw", *raw, "error", err)
		return ids
	}
	for _, item := range items {
		id, err := decodeAnswerID(item)
		if err != nil {
			slog.Warn("malformed answer selection, treating as empty", "raw", *raw, "error", err)
			return make(map[int64]struct{})
		}
		ids[id] = struct{}{}
	}
	return ids
}

func decodeAnswerID(item json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(item, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(item, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
