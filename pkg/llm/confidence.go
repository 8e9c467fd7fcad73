package llm

import "strings"

// Scorer estimates how trustworthy a generated answer is, in [0,1].
// Implementations must be deterministic; the value gates the fallback
// decision, it is not a calibrated probability.
type Scorer func(query, response string) float64

var hedgePhrases = []string{
	"i'm not sure",
	"i am not sure",
	"not sure",
	"i don't know",
	"i do not know",
	"might be",
	"perhaps",
	"maybe",
	"it's unclear",
	"hard to say",
	"cannot answer",
	"can't answer",
	"as an ai",
}

// HeuristicScore is the default Scorer. It is an APPROXIMATE signal built
// from surface features: hedging language lowers the score, very short
// answers lower it, longer and more specific answers raise it.
func HeuristicScore(query, response string) float64 {
	text := strings.TrimSpace(response)
	if text == "" {
		return 0
	}

	score := 0.75
	lower := strings.ToLower(text)

	for _, phrase := range hedgePhrases {
		if strings.Contains(lower, phrase) {
			score -= 0.25
			break
		}
	}

	runes := len([]rune(text))
	switch {
	case runes < 20:
		score -= 0.15
	case runes > 200:
		score += 0.15
	case runes > 80:
		score += 0.10
	}

	// Specificity: digits, proper structure
	if strings.ContainsAny(text, "0123456789") {
		score += 0.05
	}
	words := strings.Fields(text)
	if len(words) >= 15 {
		score += 0.05
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
