// Package explain drafts missing answer explanations with an
// OpenAI-compatible model.
package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/examportal/internal/model"
)

const defaultMaxWords = 80

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api      *openai.Client
	model    string
	language string
	maxWords int
}

// New creates a new drafting client.
func New(baseURL, apiKey, modelName, language string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:      openai.NewClientWithConfig(config),
		model:    modelName,
		language: language,
		maxWords: defaultMaxWords,
	}
}

type draft struct {
	Explanation string `json:"explanation"`
}

// Draft asks the model for an explanation of q's correct option.
func (c *Client) Draft(ctx context.Context, q model.Question) (string, error) {
	prompt, err := BuildPrompt(q, c.language, c.maxWords)
	if err != nil {
		return "", err
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
		return "", model.Transient("draft explanation", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return parseDraft(raw)
}

func parseDraft(raw string) (string, error) {
	var d draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return "", fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	text := strings.TrimSpace(d.Explanation)
	if text == "" {
		return "", fmt.Errorf("LLM returned an empty explanation (raw: %s)", raw)
	}
	return text, nil
}

// FillMissing drafts an explanation for every question of t that has none
// and returns how many it filled. Questions whose draft fails are left
// without an explanation; the first failure is returned after all attempts.
func (c *Client) FillMissing(ctx context.Context, t *model.Test) (int, error) {
	filled := 0
	var firstErr error
	for i := range t.Questions {
		q := &t.Questions[i]
		if q.Explanation != "" {
			continue
		}
		text, err := c.Draft(ctx, *q)
		if err != nil {
			slog.Warn("failed to draft explanation", "question", i+1, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		q.Explanation = text
		filled++
	}
	return filled, firstErr
}
