package normalize

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"NewsPulse/internal/domain"
)

func TestParseCleanObject(t *testing.T) {
	t.Parallel()

	raw := `{"title":"OpenAI Ships GPT-5","bullets":["new flagship model","rolling out today"],"why_it_matters":"Biggest capability jump in a year.","topic_id":"GPT5_RELEASE","importance":9}`

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if article.Title != "OpenAI Ships GPT-5" {
		t.Fatalf("unexpected title: %s", article.Title)
	}
	if len(article.Bullets) != 2 {
		t.Fatalf("expected 2 bullets, got %d", len(article.Bullets))
	}
	if article.TopicID != "GPT5_RELEASE" {
		t.Fatalf("unexpected topic id: %s", article.TopicID)
	}
	if article.Importance != 9 {
		t.Fatalf("unexpected importance: %d", article.Importance)
	}
	if !article.IsBreaking() {
		t.Fatalf("importance 9 should be breaking")
	}
}

func TestParseLabeledFence(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"title\":\"T\",\"bullets\":[],\"why_it_matters\":\"w\",\"topic_id\":\"X\",\"importance\":4}\n```"

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if article.Title != "T" || article.Importance != 4 {
		t.Fatalf("unexpected article: %+v", article)
	}
}

func TestParseUnlabeledFenceWithProse(t *testing.T) {
	t.Parallel()

	raw := "Sure! Here is the summary you asked for:\n```\n{\"title\":\"T\",\"topic_id\":\"X\"}\n```\nLet me know if you need anything else."

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if article.Title != "T" {
		t.Fatalf("unexpected title: %s", article.Title)
	}
	if article.Importance != domain.DefaultImportance {
		t.Fatalf("missing importance should default to %d, got %d", domain.DefaultImportance, article.Importance)
	}
	if article.Bullets == nil || len(article.Bullets) != 0 {
		t.Fatalf("missing bullets should default to empty slice, got %#v", article.Bullets)
	}
}

func TestParseTruncatedArray(t *testing.T) {
	t.Parallel()

	// Output cut off by the provider token limit, closing brackets never sent.
	raw := "```json\n{\"title\":\"X\",\"bullets\":[\"a\",\"b\""

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if article.Title != "X" {
		t.Fatalf("unexpected title: %s", article.Title)
	}
	if len(article.Bullets) == 0 || article.Bullets[0] != "a" {
		t.Fatalf("expected at least bullet %q, got %#v", "a", article.Bullets)
	}
}

func TestParseTruncatedMidString(t *testing.T) {
	t.Parallel()

	raw := `{"title":"X","bullets":["first point","second poi`

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if article.Title != "X" {
		t.Fatalf("unexpected title: %s", article.Title)
	}
	if len(article.Bullets) != 1 || article.Bullets[0] != "first point" {
		t.Fatalf("dangling fragment should be trimmed, got %#v", article.Bullets)
	}
}

func TestParseEmbeddedNewline(t *testing.T) {
	t.Parallel()

	raw := "{\"title\":\"Line one\nline two\",\"topic_id\":\"X\"}"

	if _, err := unmarshalStrict(raw); err == nil {
		t.Fatalf("fixture is supposed to break a naive parse")
	}

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if article.Title != "Line one\nline two" {
		t.Fatalf("unexpected title: %q", article.Title)
	}
}

func TestParseDeletesStrayControlChars(t *testing.T) {
	t.Parallel()

	raw := "{\"title\":\"be\x07fore\",\"topic_id\":\"X\"}"

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if article.Title != "before" {
		t.Fatalf("unexpected title: %q", article.Title)
	}
}

func TestParseFieldScrapeFallback(t *testing.T) {
	t.Parallel()

	// Trailing comma inside the array defeats both parse stages; the
	// per-field scrape still has everything it needs.
	raw := `{"title": "X", "bullets": ["a", "b",], "topic_id": "T1"}`

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if article.Title != "X" {
		t.Fatalf("unexpected title: %s", article.Title)
	}
	if !reflect.DeepEqual(article.Bullets, []string{"a", "b"}) {
		t.Fatalf("unexpected bullets: %#v", article.Bullets)
	}
	if article.TopicID != "T1" {
		t.Fatalf("unexpected topic id: %s", article.TopicID)
	}
	if article.Importance != domain.DefaultImportance {
		t.Fatalf("unexpected importance: %d", article.Importance)
	}
}

func TestParseFieldScrapeDefaultsTopic(t *testing.T) {
	t.Parallel()

	raw := `{"title": "X", "bullets": [1,2,], "importance": 7,}`

	article, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if article.TopicID != domain.FallbackTopicID {
		t.Fatalf("expected fallback topic id, got %s", article.TopicID)
	}
	if article.Importance != 7 {
		t.Fatalf("unexpected importance: %d", article.Importance)
	}
}

func TestParseUnrecoverable(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no json at all":    "Sorry, I cannot help with that.",
		"no title field":    `{"headline":"X","topic_id":"Y"}`,
		"empty title":       `{"title":"","topic_id":"Y"}`,
		"empty input":       "",
		"fence without obj": "```json\nnot json\n```",
	}

	for name, raw := range cases {
		if _, err := Parse(raw); !errors.Is(err, ErrUnrecoverable) {
			t.Fatalf("%s: expected ErrUnrecoverable, got %v", name, err)
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"title\":\"A \\\"quoted\\\" headline\",\"bullets\":[\"one\",\"two\""

	first, err := Parse(raw)
	if err != nil {
		t.Fatalf("first Parse error: %v", err)
	}

	reserialized, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal recovered article: %v", err)
	}

	second, err := Parse(string(reserialized))
	if err != nil {
		t.Fatalf("second Parse error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-parse changed the record:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func unmarshalStrict(raw string) (*domain.NormalizedArticle, error) {
	var article domain.NormalizedArticle
	if err := json.Unmarshal([]byte(raw), &article); err != nil {
		return nil, err
	}
	return &article, nil
}
