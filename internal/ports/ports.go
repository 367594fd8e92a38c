package ports

import (
	"context"
	"time"

	"NewsPulse/internal/domain"
)

// FeedFetcher pulls the newest entries of one configured feed.
// A failed fetch returns an error and no items; other feeds are unaffected.
type FeedFetcher interface {
	Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawItem, error)
}

// Extractor issues one structured-generation request and returns the raw text
// response. The cursor selects the API key for this call; the rotated cursor
// is returned so the caller owns rotation state.
type Extractor interface {
	Extract(ctx context.Context, item domain.RawItem, sourceName string, cursor int) (text string, next int, err error)
}

// ArticleRepository is the storage contract used by dedup and persistence.
type ArticleRepository interface {
	FindByURL(ctx context.Context, url string) (*domain.StoredArticle, error)
	FindByTitleFold(ctx context.Context, title string) (*domain.StoredArticle, error)
	TopicsSince(ctx context.Context, since time.Time) ([]string, error)
	// Insert persists the article and returns its id. A unique-constraint
	// collision on original_url surfaces as storage.ErrConflict.
	Insert(ctx context.Context, article domain.StoredArticle) (string, error)
}

// SubscriberStore resolves device tokens for a set of subscription tiers.
type SubscriberStore interface {
	TokensForTiers(ctx context.Context, tiers []domain.Tier) ([]string, error)
}

// Notifier fans a stored article out to its subscriber tiers.
// Delivery is best-effort: the caller logs errors and moves on.
type Notifier interface {
	NotifyTiers(ctx context.Context, tiers []domain.Tier, title, articleID string) (delivered int, err error)
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
