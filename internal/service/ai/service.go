// Package ai wraps the OpenAI-compatible mentor backend: turn replies,
// session titles, tag extraction, and the weekly summary.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/echomentor/backend/internal/config"
	"github.com/echomentor/backend/internal/model/session"
)

// Service encapsulates every language-model call the system makes.
type Service struct {
	client *openai.Client
	cfg    config.AIConfig
}

// NewService builds the client against the configured base URL.
func NewService(cfg config.AIConfig) (*Service, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("mentor backend credential missing: set GOODFIRE_API_KEY")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.RequestTimeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Service{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

// ProcessText sends one user utterance to the mentor backend configured for
// the given variant and returns the reply text.
func (s *Service) ProcessText(ctx context.Context, input, variantName string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("input text is required")
	}

	req := openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPromptFor(variantName)},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
		MaxTokens: s.cfg.MaxReplyTokens,
	}
	if s.cfg.Temperature != nil {
		req.Temperature = *s.cfg.Temperature
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mentor backend request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("mentor backend returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Printf("[ai] generated reply variant=%s length=%d", variantName, len(output))
	return output, nil
}

// GenerateTitle produces a short label (3-4 words) for a finished
// transcript. Surrounding quotes the model likes to add are stripped.
func (s *Service) GenerateTitle(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("transcript is required")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant that creates short, descriptive titles for conversation transcripts. " +
					"Create a concise title (3-4 words maximum) that captures the essence of the conversation. " +
					"The title should be engaging but not overly clever. Focus on the main topic or theme discussed.",
			},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		MaxTokens: s.cfg.MaxTitleTokens,
	})
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("title generation returned no choices")
	}

	title := strings.TrimSpace(resp.Choices[0].Message.Content)
	title = strings.Trim(title, `"'`)
	return title, nil
}

// GenerateTags extracts topical tags from what the user said in the
// transcript. Assistant turns are ignored so the tags describe the user's
// concerns, not the mentor's vocabulary.
func (s *Service) GenerateTags(ctx context.Context, transcript string) ([]string, error) {
	turns := session.Transcript(transcript).UserTurns()
	if len(turns) == 0 {
		return []string{}, nil
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Extract 2-5 short topical tags from the user's messages. " +
					`Reply with only a JSON array of lowercase strings, for example ["stress","career"].`,
			},
			{Role: openai.ChatMessageRoleUser, Content: strings.Join(turns, "\n")},
		},
		MaxTokens: 50,
	})
	if err != nil {
		return nil, fmt.Errorf("tag generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("tag generation returned no choices")
	}

	return parseTags(resp.Choices[0].Message.Content), nil
}

// parseTags accepts either a JSON array or a comma-separated string; the
// model does not reliably stick to one.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return cleanTags(tags)
		}
	}

	return cleanTags(strings.Split(raw, ","))
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.Trim(strings.TrimSpace(tag), `"'`))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// WeeklySummary condenses a week of completed sessions into a short
// reflection for the dashboard.
func (s *Service) WeeklySummary(ctx context.Context, sessions []session.Session) (string, error) {
	if len(sessions) == 0 {
		return "No sessions found for the past week.", nil
	}

	payload, err := json.Marshal(sessions)
	if err != nil {
		return "", fmt.Errorf("failed to encode sessions: %w", err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You summarize a week of mentoring sessions. Given session records as JSON, " +
					"write a short plain-text summary (3-5 sentences) of the themes the user worked through " +
					"and any visible progress. Address the user directly.",
			},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary generation returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
