package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"NewsPulse/internal/classify"
	"NewsPulse/internal/dedup"
	"NewsPulse/internal/domain"
	"NewsPulse/internal/infrastructure/storage"
	"NewsPulse/internal/normalize"
	"NewsPulse/internal/ports"
)

// RunReport aggregates the counters of one pipeline run. It is the only
// user-visible output; individual item failures stay in the logs.
type RunReport struct {
	NewArticles int
	Processed   int
	Errors      int
}

// PipelineDeps wires all driven adapters into the aggregation pipeline.
type PipelineDeps struct {
	Fetcher    ports.FeedFetcher
	Extractor  ports.Extractor
	Repository ports.ArticleRepository
	Dedup      *dedup.Engine
	Notifier   ports.Notifier
	Sources    []domain.FeedSource
	Delay      time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
	Sleep      func(time.Duration)
}

// Pipeline implements the ingestion-normalization-deduplication workflow.
// One run walks every configured source sequentially, and within a source
// every item sequentially: the shared constraint is the generation API rate
// limit, so there is nothing to win by going parallel.
type Pipeline struct {
	fetcher    ports.FeedFetcher
	extractor  ports.Extractor
	repository ports.ArticleRepository
	dedup      *dedup.Engine
	notifier   ports.Notifier
	sources    []domain.FeedSource
	delay      time.Duration
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(time.Duration)

	mu      sync.Mutex
	running bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	delay := deps.Delay
	if delay < 0 {
		delay = 0
	}

	return &Pipeline{
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		repository: deps.Repository,
		dedup:      deps.Dedup,
		notifier:   deps.Notifier,
		sources:    deps.Sources,
		delay:      delay,
		logger:     deps.Logger,
		now:        now,
		sleep:      sleep,
	}
}

// ErrRunInProgress is returned when a run is triggered while one is active.
var ErrRunInProgress = errors.New("aggregation run already in progress")

// Run executes one full aggregation pass and reports its counters. Only one
// run executes at a time in this process; the unique index on original_url
// remains the backstop against a second process racing this one.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return RunReport{}, ErrRunInProgress
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	var report RunReport
	cursor := 0

	p.info("aggregation run started", "sources", len(p.sources))

	for _, source := range p.sources {
		items, err := p.fetcher.Fetch(ctx, source)
		if err != nil {
			// Source-level failure: skip this feed, keep going.
			report.Errors++
			p.warn("feed fetch failed", "source", source.Name, "error", err)
			continue
		}

		for _, item := range items {
			var outcome itemOutcome
			outcome, cursor = p.processItem(ctx, source, item, cursor)
			switch outcome {
			case itemStored:
				report.NewArticles++
				report.Processed++
			case itemDuplicate:
				report.Processed++
			case itemFailed:
				report.Errors++
			}

			if ctx.Err() != nil {
				p.warn("aggregation run cancelled", "error", ctx.Err())
				return report, ctx.Err()
			}
		}
	}

	p.info("aggregation run complete",
		"new_articles", report.NewArticles,
		"processed", report.Processed,
		"errors", report.Errors)

	return report, nil
}

type itemOutcome int

const (
	itemStored itemOutcome = iota
	itemDuplicate
	itemFailed
)

// processItem pushes one feed entry through the full chain: cheap dedup
// layers, throttled extraction, recovery parse, topic dedup, classification,
// persistence, fan-out. Any failure aborts only this item.
func (p *Pipeline) processItem(ctx context.Context, source domain.FeedSource, item domain.RawItem, cursor int) (itemOutcome, int) {
	// Layers 1 and 2 run before the generation call so a known duplicate
	// never spends an external request.
	if seen, err := p.dedup.SeenURL(ctx, item.Link); err != nil {
		p.warn("url dedup failed", "source", source.Name, "link", item.Link, "error", err)
		return itemFailed, cursor
	} else if seen {
		p.debug("duplicate url", "source", source.Name, "link", item.Link)
		return itemDuplicate, cursor
	}

	if seen, err := p.dedup.SeenTitle(ctx, item.Title); err != nil {
		p.warn("title dedup failed", "source", source.Name, "title", item.Title, "error", err)
		return itemFailed, cursor
	} else if seen {
		p.debug("duplicate title", "source", source.Name, "title", item.Title)
		return itemDuplicate, cursor
	}

	// Cooperative throttle: one fixed pause before every generation call.
	if p.delay > 0 {
		p.sleep(p.delay)
	}

	raw, cursor, err := p.extractor.Extract(ctx, item, source.Name, cursor)
	if err != nil {
		p.warn("extractor call failed", "source", source.Name, "title", item.Title, "error", err)
		return itemFailed, cursor
	}

	article, err := normalize.Parse(raw)
	if err != nil {
		p.warn("unrecoverable generator output", "source", source.Name, "title", item.Title, "error", err)
		return itemFailed, cursor
	}

	// Layer 3 needs the generated topic id, so it can only run now.
	if seen, err := p.dedup.SeenTopic(ctx, article.TopicID); err != nil {
		p.warn("topic dedup failed", "source", source.Name, "topic", article.TopicID, "error", err)
		return itemFailed, cursor
	} else if seen {
		// Two genuinely distinct stories can collide on a generated topic
		// id; logged so the recall loss is auditable.
		p.debug("duplicate topic", "source", source.Name, "topic", article.TopicID, "title", item.Title)
		return itemDuplicate, cursor
	}

	stored := domain.StoredArticle{
		SourceName:    source.Name,
		SourceURL:     source.URL,
		OriginalTitle: item.Title,
		OriginalURL:   item.Link,
		Title:         article.Title,
		Bullets:       article.Bullets,
		WhyItMatters:  article.WhyItMatters,
		TopicID:       article.TopicID,
		Importance:    article.Importance,
		Category:      classify.FromTopic(article.TopicID),
		IsBreaking:    article.IsBreaking(),
		PublishedAt:   item.PublishedAt,
		CreatedAt:     p.now().UTC(),
	}

	id, err := p.repository.Insert(ctx, stored)
	if errors.Is(err, storage.ErrConflict) {
		// A concurrent run won the race; same outcome as a dedup hit.
		p.debug("insert conflict", "source", source.Name, "link", item.Link)
		return itemDuplicate, cursor
	}
	if err != nil {
		p.warn("insert failed", "source", source.Name, "link", item.Link, "error", err)
		return itemFailed, cursor
	}

	p.info("article stored",
		"source", source.Name,
		"title", article.Title,
		"topic", article.TopicID,
		"importance", article.Importance,
		"category", string(stored.Category))

	p.fanOut(ctx, article, id)
	return itemStored, cursor
}

// fanOut is strictly best-effort: the article is already committed and a
// delivery error never rolls it back.
func (p *Pipeline) fanOut(ctx context.Context, article *domain.NormalizedArticle, id string) {
	if p.notifier == nil {
		return
	}

	tiers := domain.TiersFor(article.Importance)
	delivered, err := p.notifier.NotifyTiers(ctx, tiers, article.Title, id)
	if err != nil {
		p.warn("notification delivery failed", "article_id", id, "error", err)
	}
	if delivered > 0 {
		p.debug("notifications sent", "article_id", id, "delivered", delivered)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
