// Package reply – reply generation backends.
//
// Generator is the narrow plug-in point for reply text. The rule-based stage
// suggestion in rules.go stays authoritative regardless of which backend is
// configured; a backend only decorates the wording. Backend failures of any
// kind (timeout, auth, malformed response) degrade silently to DefaultReply;
// an end user must never see an error because an LLM was slow.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Generator produces a one-line reply for an inbound message. contactName
// may be empty. Implementations must honor ctx for cancellation.
type Generator interface {
	Generate(ctx context.Context, messageText, contactName string) (string, error)
}

// Service pairs the authoritative rules with an optional backend and owns
// the mandatory sanitization step.
type Service struct {
	// Backend is optional; nil means scripted replies only.
	Backend Generator
	// Timeout bounds one backend call. Zero falls back to a conservative default.
	Timeout time.Duration
}

// Reply computes (reply text, suggested stage) for an inbound message.
//
// The suggested stage always comes from SuggestStage. Reply text comes from
// the backend when one is configured and answers in time; otherwise from
// DefaultReply. Both paths pass through Sanitize.
func (s *Service) Reply(ctx context.Context, messageText, contactName string) (string, string) {
	stage := SuggestStage(messageText)

	text := DefaultReply
	if s.Backend != nil {
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		bctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if got, err := s.Backend.Generate(bctx, messageText, contactName); err == nil && got != "" {
			text = got
		}
	}
	return Sanitize(text), stage
}

// systemPrompt steers the backend toward short, channel-safe answers.
const systemPrompt = "You are a sales assistant for a fashion brand. " +
	"Keep replies short, polite, and in simple English. Use only ASCII punctuation."

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
// Any non-200 response, transport error, or empty choice list is an error;
// the caller (Service.Reply) treats all of them as a silent fallback.
type OpenAIGenerator struct {
	BaseURL string // e.g. "https://api.openai.com/v1"
	APIKey  string
	Model   string

	// HTTPClient is overridable for tests; nil uses http.DefaultClient.
	HTTPClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the backend for a one-line reply to the customer message.
func (g *OpenAIGenerator) Generate(ctx context.Context, messageText, contactName string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Customer: %s\nName: %s\nReply in one line.", messageText, contactName)},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reply backend: unexpected status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("reply backend: empty completion")
	}
	return out.Choices[0].Message.Content, nil
}
