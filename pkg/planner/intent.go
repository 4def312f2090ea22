package planner

import (
	"sort"
	"strings"
)

// Intent is the structured shape a QUERY's natural-language text is
// tagged into (spec.md §4.5). Tagging is deliberately simple keyword
// matching; the only requirements are determinism and
// case-insensitivity.
type Intent struct {
	Entities       []string
	TimeReferences []string
	MemoryTypes    []string
	Actions        []string
}

var timeKeywords = map[string]string{
	"today":      "today",
	"yesterday":  "yesterday",
	"last week":  "last_week",
	"this week":  "this_week",
	"last month": "last_month",
}

var memoryTypeKeywords = []string{"episodic", "semantic", "procedural"}

var actionKeywords = map[string]string{
	"connect":   "connect",
	"summarize": "summarize",
	"summarise": "summarize",
	"search":    "search",
	"find":      "search",
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "and": true, "is": true, "are": true,
	"was": true, "were": true, "me": true, "my": true, "about": true,
	"show": true, "please": true, "all": true, "from": true,
}

// ParseIntent tags text deterministically, case-insensitively.
func ParseIntent(text string) Intent {
	lower := strings.ToLower(text)

	var intent Intent
	for phrase, tag := range timeKeywords {
		if strings.Contains(lower, phrase) {
			intent.TimeReferences = append(intent.TimeReferences, tag)
		}
	}
	sort.Strings(intent.TimeReferences)

	for _, mt := range memoryTypeKeywords {
		if strings.Contains(lower, mt) {
			intent.MemoryTypes = append(intent.MemoryTypes, mt)
		}
	}

	actionSeen := make(map[string]bool)
	for phrase, tag := range actionKeywords {
		if strings.Contains(lower, phrase) && !actionSeen[tag] {
			intent.Actions = append(intent.Actions, tag)
			actionSeen[tag] = true
		}
	}
	sort.Strings(intent.Actions)
	if len(intent.Actions) == 0 {
		intent.Actions = []string{"search"}
	}

	intent.Entities = extractEntities(lower)
	return intent
}

func extractEntities(lower string) []string {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	})

	seen := make(map[string]bool)
	var entities []string
	for _, w := range fields {
		if len(w) <= 2 || stopwords[w] || memoryTypeKeyword(w) || actionKeywords[w] != "" {
			continue
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		entities = append(entities, w)
	}
	return entities
}

func memoryTypeKeyword(w string) bool {
	for _, mt := range memoryTypeKeywords {
		if w == mt {
			return true
		}
	}
	return false
}
