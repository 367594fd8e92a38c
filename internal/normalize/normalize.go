// Package normalize recovers a structured article from the raw text the
// generation API returns. The provider is asked for a bare JSON object but in
// practice wraps it in prose or code fences, truncates it mid-token when it
// hits the output limit, and leaks raw control characters into string values.
// Recovery is an ordered cascade of strategies over the cleaned text; the
// first one to produce a usable record wins.
package normalize

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"

	"NewsPulse/internal/domain"
)

// ErrUnrecoverable means no strategy found even a title in the output.
var ErrUnrecoverable = errors.New("no usable article in generator output")

// strategy attempts to pull a NormalizedArticle out of cleaned generator text.
type strategy struct {
	name    string
	attempt func(text string) (*domain.NormalizedArticle, bool)
}

var strategies = []strategy{
	{name: "strict", attempt: attemptStrict},
	{name: "repaired", attempt: attemptRepaired},
	{name: "fields", attempt: attemptFieldScrape},
}

// Parse runs the recovery cascade over the raw generator response.
func Parse(raw string) (*domain.NormalizedArticle, error) {
	span, ok := braceSpan(stripCodeFence(raw))
	if !ok {
		return nil, ErrUnrecoverable
	}

	text := sanitizeControls(span)
	for _, s := range strategies {
		if article, ok := s.attempt(text); ok {
			return article, nil
		}
	}

	return nil, ErrUnrecoverable
}

// wireArticle mirrors the field set the system prompt demands.
type wireArticle struct {
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	WhyItMatters string   `json:"why_it_matters"`
	TopicID      string   `json:"topic_id"`
	Importance   *int     `json:"importance"`
}

func (w wireArticle) toDomain() (*domain.NormalizedArticle, bool) {
	if w.Title == "" {
		return nil, false
	}

	article := &domain.NormalizedArticle{
		Title:        w.Title,
		Bullets:      w.Bullets,
		WhyItMatters: w.WhyItMatters,
		TopicID:      w.TopicID,
		Importance:   domain.DefaultImportance,
	}
	if article.Bullets == nil {
		article.Bullets = []string{}
	}
	if w.Importance != nil && *w.Importance > 0 {
		article.Importance = *w.Importance
	}
	return article, true
}

func attemptStrict(text string) (*domain.NormalizedArticle, bool) {
	var wire wireArticle
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, false
	}
	return wire.toDomain()
}

func attemptRepaired(text string) (*domain.NormalizedArticle, bool) {
	var wire wireArticle
	if err := json.Unmarshal([]byte(repairBalance(text)), &wire); err != nil {
		return nil, false
	}
	return wire.toDomain()
}

var (
	titleExpr      = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	whyExpr        = regexp.MustCompile(`"why_it_matters"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	topicExpr      = regexp.MustCompile(`"topic_id"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	importanceExpr = regexp.MustCompile(`"importance"\s*:\s*(\d+)`)
	bulletsExpr    = regexp.MustCompile(`"bullets"\s*:\s*\[([^\]]*)`)
	quotedExpr     = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// attemptFieldScrape extracts each field independently from text no JSON
// parser will take. Title is the only requirement; everything else defaults.
func attemptFieldScrape(text string) (*domain.NormalizedArticle, bool) {
	title, ok := scrapeString(titleExpr, text)
	if !ok || title == "" {
		return nil, false
	}

	article := &domain.NormalizedArticle{
		Title:        title,
		Bullets:      []string{},
		WhyItMatters: "",
		TopicID:      domain.FallbackTopicID,
		Importance:   domain.DefaultImportance,
	}

	if why, ok := scrapeString(whyExpr, text); ok {
		article.WhyItMatters = why
	}
	if topic, ok := scrapeString(topicExpr, text); ok && topic != "" {
		article.TopicID = topic
	}
	if m := importanceExpr.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			article.Importance = n
		}
	}
	if m := bulletsExpr.FindStringSubmatch(text); m != nil {
		for _, q := range quotedExpr.FindAllStringSubmatch(m[1], -1) {
			if bullet, ok := unquote(q[1]); ok && bullet != "" {
				article.Bullets = append(article.Bullets, bullet)
			}
		}
	}

	return article, true
}

func scrapeString(expr *regexp.Regexp, text string) (string, bool) {
	m := expr.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return unquote(m[1])
}

// unquote decodes the escape sequences of a captured JSON string body.
func unquote(body string) (string, bool) {
	var s string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &s); err != nil {
		return "", false
	}
	return s, true
}
