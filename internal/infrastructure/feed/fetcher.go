package feed

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsPulse/internal/domain"
	"NewsPulse/internal/ports"
)

const snippetLimit = 500

// Fetcher retrieves and parses one RSS/Atom feed per call.
type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
	limit   int
}

var _ ports.FeedFetcher = (*Fetcher)(nil)

// NewFetcher builds a fetcher bounded to the newest limit items per feed.
func NewFetcher(userAgent string, timeout time.Duration, limit int) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if limit <= 0 {
		limit = 5
	}

	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}

	return &Fetcher{parser: parser, timeout: timeout, limit: limit}
}

// Fetch returns the newest items of the source, newest first. Entries without
// a link or a title are useless to every dedup layer and are dropped here.
func (f *Fetcher) Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", source.Name, err)
	}

	now := time.Now()
	items := make([]domain.RawItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Link == "" || entry.Title == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		snippet := entry.Description
		if snippet == "" {
			snippet = entry.Content
		}

		items = append(items, domain.RawItem{
			Link:        entry.Link,
			Title:       strings.TrimSpace(entry.Title),
			PublishedAt: published,
			Snippet:     truncate(stripHTML(snippet), snippetLimit),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	if len(items) > f.limit {
		items = items[:f.limit]
	}
	return items, nil
}

// stripHTML reduces a feed description to plain text. Descriptions routinely
// carry markup, entities and nested tags, so this goes through a real parser
// instead of a tag-stripping loop.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
