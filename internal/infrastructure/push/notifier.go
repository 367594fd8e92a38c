package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"NewsPulse/internal/domain"
	"NewsPulse/internal/ports"
)

// Providers cap bulk pushes; 100 per request matches the Expo limit.
const chunkSize = 100

// Notifier delivers article pushes to subscriber devices through an
// Expo-compatible push gateway.
type Notifier struct {
	endpoint    string
	subscribers ports.SubscriberStore
	client      *http.Client
	logger      *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wires the gateway endpoint and the subscriber lookup.
func NewNotifier(endpoint string, subscribers ports.SubscriberStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		endpoint:    endpoint,
		subscribers: subscribers,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

type pushMessage struct {
	To    []string       `json:"to"`
	Sound string         `json:"sound"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// NotifyTiers resolves the subscriber tokens for the given tiers and fans the
// article out in chunks. It returns how many tokens were delivered to; a
// partial failure delivers the remaining chunks anyway.
func (n *Notifier) NotifyTiers(ctx context.Context, tiers []domain.Tier, title, articleID string) (int, error) {
	if n.endpoint == "" || n.subscribers == nil {
		return 0, fmt.Errorf("push notifier misconfigured")
	}

	tokens, err := n.subscribers.TokensForTiers(ctx, tiers)
	if err != nil {
		return 0, fmt.Errorf("load subscribers: %w", err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	breaking := false
	for _, tier := range tiers {
		if tier == domain.TierBreaking {
			breaking = true
		}
	}

	notifTitle := "New in AI"
	if breaking {
		notifTitle = "Breaking AI News"
	}

	delivered := 0
	var lastErr error
	for start := 0; start < len(tokens); start += chunkSize {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		chunk := tokens[start:end]
		if err := n.send(ctx, pushMessage{
			To:    chunk,
			Sound: "default",
			Title: notifTitle,
			Body:  title,
			Data: map[string]any{
				"type":       "news",
				"articleId":  articleID,
				"isBreaking": breaking,
			},
		}); err != nil {
			lastErr = err
			n.log("push chunk failed", "error", err, "chunk_size", len(chunk))
			continue
		}
		delivered += len(chunk)
	}

	return delivered, lastErr
}

func (n *Notifier) send(ctx context.Context, msg pushMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push gateway %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return nil
}

func (n *Notifier) log(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}
