package catalog

import (
	"sort"
	"strings"
)

// DefaultCategory is assigned when no keyword rule matches
const DefaultCategory = "productivity"

// categoryRules maps a category to the keywords that select it. Matching is
// case-insensitive substring search over name, description, and tags.
var categoryRules = map[string][]string{
	"development":   {"code", "git", "debug", "api", "programming", "developer", "compile", "lint"},
	"data":          {"data", "csv", "sql", "database", "analytics", "scraping", "scraper"},
	"writing":       {"write", "writing", "blog", "document", "summariz", "translat", "grammar"},
	"research":      {"research", "search", "paper", "academic", "arxiv", "citation"},
	"communication": {"email", "slack", "chat", "message", "notification", "discord"},
	"automation":    {"automat", "workflow", "schedule", "cron", "pipeline", "deploy"},
	"finance":       {"finance", "stock", "crypto", "trading", "budget", "invoice"},
	"media":         {"image", "video", "audio", "photo", "music", "podcast"},
	"security":      {"security", "vulnerab", "encrypt", "password", "audit", "pentest"},
}

// Categorize infers catalog categories for a skill from its name, description,
// and tags. It always returns at least one category.
func Categorize(name, description string, tags []string) []string {
	haystack := strings.ToLower(name + " " + description + " " + strings.Join(tags, " "))

	var matched []string
	for category, keywords := range categoryRules {
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				matched = append(matched, category)
				break
			}
		}
	}
	if len(matched) == 0 {
		return []string{DefaultCategory}
	}
	// Map iteration order is random; keep the output deterministic.
	sort.Strings(matched)
	return matched
}
