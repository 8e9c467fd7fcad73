package guardrail

import (
	"fmt"
	"strings"
)

// SafetyCheck scores text against a weighted toxicity pattern set.
// Score >= HardThreshold always rejects; score >= SoftThreshold rejects only
// in strict mode.
type SafetyCheck struct {
	HardThreshold float64
	SoftThreshold float64
	StrictMode    bool
	patterns      []toxicPattern
}

type toxicPattern struct {
	phrase string
	weight float64
}

// The pattern set is a coarse heuristic, not a trained classifier.
var defaultToxicPatterns = []toxicPattern{
	{"kill yourself", 0.9},
	{"hurt yourself", 0.8},
	{"how to make a bomb", 0.9},
	{"i hate you", 0.5},
	{"you are worthless", 0.6},
	{"go to hell", 0.4},
	{"idiot", 0.3},
	{"stupid", 0.2},
	{"shut up", 0.3},
}

func NewSafetyCheck(strictMode bool) *SafetyCheck {
	return &SafetyCheck{
		HardThreshold: 0.7,
		SoftThreshold: 0.4,
		StrictMode:    strictMode,
		patterns:      defaultToxicPatterns,
	}
}

func (c *SafetyCheck) Name() string { return "safety" }

func (c *SafetyCheck) Evaluate(query, response string) *Rejection {
	score := c.Score(response)

	if score >= c.HardThreshold || (c.StrictMode && score >= c.SoftThreshold) {
		return &Rejection{
			Stage:  c.Name(),
			Code:   ReasonUnsafe,
			Detail: fmt.Sprintf("toxicity score %.2f", score),
		}
	}
	return nil
}

// Score sums the weights of matched patterns, capped at 1.
func (c *SafetyCheck) Score(text string) float64 {
	lower := strings.ToLower(text)
	var total float64
	for _, p := range c.patterns {
		if strings.Contains(lower, p.phrase) {
			total += p.weight
		}
	}
	if total > 1 {
		return 1
	}
	return total
}
