package domain

import "time"

// FeedSource is one configured RSS/Atom endpoint. Built at startup, never mutated.
type FeedSource struct {
	Name     string
	URL      string
	Priority int
}

// RawItem is a single feed entry as fetched. It only lives for one pipeline pass.
type RawItem struct {
	Link        string
	Title       string
	PublishedAt time.Time
	Snippet     string
}

// BreakingImportance is the threshold at which the breaking tier is notified.
const BreakingImportance = 9

// DefaultImportance is used when the generator omits the field.
const DefaultImportance = 5

// FallbackTopicID is assigned when the generator output had no recoverable topic id.
const FallbackTopicID = "GENERAL_NEWS"

// NormalizedArticle is the structured record recovered from the generation call.
// Title is mandatory; everything else has a defined default.
type NormalizedArticle struct {
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	WhyItMatters string   `json:"why_it_matters"`
	TopicID      string   `json:"topic_id"`
	Importance   int      `json:"importance"`
}

// IsBreaking reports whether the article belongs to the breaking tier.
func (n NormalizedArticle) IsBreaking() bool {
	return n.Importance >= BreakingImportance
}

// StoredArticle is the persisted, deduplicated record. Rows are append-only;
// the read counter on the serving side never touches this pipeline.
type StoredArticle struct {
	ID            string
	SourceName    string
	SourceURL     string
	OriginalTitle string
	OriginalURL   string
	Title         string
	Bullets       []string
	WhyItMatters  string
	TopicID       string
	Importance    int
	Category      Category
	IsBreaking    bool
	PublishedAt   time.Time
	CreatedAt     time.Time
}

// Category is the coarse topical bucket derived from the topic id.
type Category string

const (
	CategoryModels   Category = "models"
	CategoryResearch Category = "research"
	CategoryTools    Category = "tools"
	CategoryBusiness Category = "business"
	CategoryGeneral  Category = "general"
)

// Tier selects a push-subscription level.
type Tier string

const (
	TierAll      Tier = "all"
	TierBreaking Tier = "breaking"
)

// TiersFor returns the subscription levels to notify for a given importance.
func TiersFor(importance int) []Tier {
	if importance >= BreakingImportance {
		return []Tier{TierBreaking, TierAll}
	}
	return []Tier{TierAll}
}
