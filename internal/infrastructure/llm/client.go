package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsPulse/internal/config"
	"NewsPulse/internal/domain"
	"NewsPulse/internal/ports"
)

// defaultSystemPrompt enforces the output contract the parser expects.
const defaultSystemPrompt = `You are a news editor for an AI-industry feed. Rewrite the article below into a structured summary.

Respond with ONLY a valid JSON object. No markdown, no code fences, no extra text. Exact field set:
{
  "title": "rewritten headline, max 80 chars",
  "bullets": ["2-4 short bullet points"],
  "why_it_matters": "one sentence on why this matters",
  "topic_id": "SHORT_SLUG identifying the underlying story, e.g. GPT5_RELEASE",
  "importance": 1-10 integer
}`

// Client calls an OpenAI-compatible chat-completions endpoint.
//
// Several API keys can be configured to spread the provider rate limit; the
// key for each call is chosen by the cursor the caller passes in, and the
// advanced cursor is handed back with the result so rotation state never
// lives in this package.
type Client struct {
	endpoint     string
	model        string
	apiKeys      []string
	maxTokens    int
	temperature  float64
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Extractor = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig) *Client {
	prompt := strings.TrimSpace(cfg.SystemPrompt)
	if prompt == "" {
		prompt = defaultSystemPrompt
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	return &Client{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKeys:      cfg.APIKeys,
		maxTokens:    maxTokens,
		temperature:  cfg.Temperature,
		systemPrompt: prompt,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract issues one generation request for the item and returns the raw
// response text untouched; recovery of the JSON inside it is the parser's
// job. No retry here: a failed call skips the item.
func (c *Client) Extract(ctx context.Context, item domain.RawItem, sourceName string, cursor int) (string, int, error) {
	if len(c.apiKeys) == 0 || c.endpoint == "" || c.model == "" {
		return "", cursor, fmt.Errorf("llm client misconfigured")
	}

	key := c.apiKeys[cursor%len(c.apiKeys)]
	next := cursor + 1

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: userContent(item, sourceName)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", next, fmt.Errorf("marshal llm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", next, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", next, fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", next, fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", next, fmt.Errorf("decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", next, fmt.Errorf("empty llm response")
	}

	return parsed.Choices[0].Message.Content, next, nil
}

func userContent(item domain.RawItem, sourceName string) string {
	date := "Unknown"
	if !item.PublishedAt.IsZero() {
		date = item.PublishedAt.Format(time.RFC1123)
	}

	snippet := item.Snippet
	if snippet == "" {
		snippet = "No content available"
	}

	return fmt.Sprintf("Title: %s\nSource: %s\nDate: %s\nSummary: %s",
		item.Title, sourceName, date, snippet)
}
