package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/kidsjournal/internal/llm/prompts"
	"github.com/pavelanni/kidsjournal/internal/model"
)

// ErrBadReview is returned when the model's reply cannot be used as a review.
var ErrBadReview = errors.New("unusable review response")

// Review is an advisory assessment of a free-text answer. It never
// changes a submission's score.
type Review struct {
	SuggestedMark int    `json:"suggested_mark"`
	Feedback      string `json:"feedback"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new LLM client using the given review prompt variant.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if !prompts.IsValidVariant(variant) {
		return nil, fmt.Errorf("invalid prompt variant %q", variant)
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.PromptVariant(variant),
	}, nil
}

// Ping checks that the endpoint answers and serves the configured model.
func (c *Client) Ping(ctx context.Context) error {
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range models.Models {
		if m.ID == c.model {
			return nil
		}
	}
	slog.Warn("configured model not listed by endpoint", "model", c.model)
	return nil
}

// ReviewTextAnswer asks the model to suggest a mark for a free-text answer.
func (c *Client) ReviewTextAnswer(ctx context.Context, question model.TestQuestion, answer string) (*Review, error) {
	prompt, err := prompts.BuildReviewPrompt(c.variant, question, answer)
	if err != nil {
		return nil, fmt.Errorf("build review prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM review call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrBadReview)
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM review response", "question_id", question.ID, "raw", raw)
	return parseReview(raw)
}

func parseReview(raw string) (*Review, error) {
	var r Review
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", ErrBadReview, err, raw)
	}
	if r.SuggestedMark < model.MinMarkValue || r.SuggestedMark > model.MaxMarkValue {
		return nil, fmt.Errorf("%w: mark %d out of range", ErrBadReview, r.SuggestedMark)
	}
	return &r, nil
}
