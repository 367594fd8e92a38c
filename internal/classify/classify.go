package classify

import (
	"strings"

	"NewsPulse/internal/domain"
)

// categoryKeywords maps each bucket to the substrings that select it.
// Order of evaluation is fixed; the first bucket with a hit wins.
var categoryKeywords = []struct {
	category domain.Category
	keywords []string
}{
	{domain.CategoryModels, []string{
		"gpt", "llm", "claude", "gemini", "llama", "mistral", "model-release",
		"model_launch", "foundation-model",
	}},
	{domain.CategoryResearch, []string{
		"paper", "study", "research", "benchmark", "arxiv",
	}},
	{domain.CategoryTools, []string{
		"sdk", "api", "library", "framework", "tool", "plugin", "open-source",
	}},
	{domain.CategoryBusiness, []string{
		"funding", "acquisition", "startup", "valuation", "ipo", "revenue",
		"partnership", "lawsuit",
	}},
}

// FromTopic derives the coarse category from a generated topic id.
// Pure function: no state, no side effects.
func FromTopic(topicID string) domain.Category {
	topic := strings.ToLower(topicID)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(topic, kw) {
				return entry.category
			}
		}
	}
	return domain.CategoryGeneral
}
