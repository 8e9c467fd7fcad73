package guardrail

import (
	"fmt"
	"strings"
)

// RelevanceCheck computes keyword overlap between query and response.
// An empty query short-circuits to pass.
type RelevanceCheck struct {
	MinScore float64
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "which": true, "who": true, "how": true, "why": true,
	"can": true, "you": true, "your": true, "this": true, "that": true,
	"with": true, "from": true, "have": true, "has": true, "does": true,
	"about": true, "please": true, "tell": true,
}

func NewRelevanceCheck() *RelevanceCheck {
	return &RelevanceCheck{MinScore: 0.1}
}

func (c *RelevanceCheck) Name() string { return "relevance" }

func (c *RelevanceCheck) Evaluate(query, response string) *Rejection {
	keywords := keywordSet(query)
	if len(keywords) == 0 {
		return nil
	}

	responseWords := keywordSet(response)
	matched := 0
	for kw := range keywords {
		if responseWords[kw] {
			matched++
		}
	}

	score := float64(matched) / float64(len(keywords))
	if score < c.MinScore {
		return &Rejection{
			Stage:  c.Name(),
			Code:   ReasonNotRelevant,
			Detail: fmt.Sprintf("relevance score %.2f", score),
		}
	}
	return nil
}

func keywordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()[]{}")
		if len(w) < 3 || stopwords[w] || !hasLetter(w) {
			continue
		}
		set[w] = true
	}
	return set
}

func hasLetter(w string) bool {
	for _, r := range w {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
