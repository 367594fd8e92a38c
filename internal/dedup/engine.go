// Package dedup decides whether an incoming item is a re-publication of a
// story that is already stored. Three layers run in increasing cost order:
// exact URL, case-insensitive title, and topic id within a trailing window.
// The first two need nothing but the feed entry and run before the
// generation call; the topic layer needs the normalized record.
package dedup

import (
	"context"
	"fmt"
	"time"

	"NewsPulse/internal/ports"
)

// Engine evaluates the three duplicate layers against stored articles.
type Engine struct {
	repo   ports.ArticleRepository
	window time.Duration
	now    func() time.Time
}

// New builds an engine. The window scopes the topic layer; now is injectable
// so tests can drive a synthetic clock.
func New(repo ports.ArticleRepository, window time.Duration, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Engine{repo: repo, window: window, now: now}
}

// SeenURL is layer 1: exact match on the original URL.
func (e *Engine) SeenURL(ctx context.Context, url string) (bool, error) {
	existing, err := e.repo.FindByURL(ctx, url)
	if err != nil {
		return false, fmt.Errorf("lookup by url: %w", err)
	}
	return existing != nil, nil
}

// SeenTitle is layer 2: case-insensitive exact match on the original title.
func (e *Engine) SeenTitle(ctx context.Context, title string) (bool, error) {
	existing, err := e.repo.FindByTitleFold(ctx, title)
	if err != nil {
		return false, fmt.Errorf("lookup by title: %w", err)
	}
	return existing != nil, nil
}

// SeenTopic is layer 3: exact topic-id match against articles stored inside
// the trailing window. Articles older than the window are never compared,
// so the same story id is accepted again once the window has elapsed.
// An empty topic id never matches anything.
func (e *Engine) SeenTopic(ctx context.Context, topicID string) (bool, error) {
	if topicID == "" {
		return false, nil
	}

	since := e.now().Add(-e.window)
	topics, err := e.repo.TopicsSince(ctx, since)
	if err != nil {
		return false, fmt.Errorf("load recent topics: %w", err)
	}

	for _, t := range topics {
		if t == topicID {
			return true, nil
		}
	}
	return false, nil
}
