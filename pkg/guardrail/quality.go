package guardrail

import (
	"fmt"
	"strings"
)

// QualityCheck enforces structural bounds on the response: character length,
// word count, and word-repetition ratio.
type QualityCheck struct {
	MinChars           int
	MaxChars           int
	MinWords           int
	MaxRepetitionRatio float64
}

func NewQualityCheck() *QualityCheck {
	return &QualityCheck{
		MinChars:           1,
		MaxChars:           20000,
		MinWords:           1,
		MaxRepetitionRatio: 0.5,
	}
}

func (c *QualityCheck) Name() string { return "quality" }

func (c *QualityCheck) Evaluate(query, response string) *Rejection {
	text := strings.TrimSpace(response)
	runes := len([]rune(text))

	if runes < c.MinChars {
		return &Rejection{Stage: c.Name(), Code: ReasonQuality, Detail: "response too short"}
	}
	if runes > c.MaxChars {
		return &Rejection{Stage: c.Name(), Code: ReasonQuality, Detail: "response too long"}
	}

	words := strings.Fields(text)
	if len(words) < c.MinWords {
		return &Rejection{Stage: c.Name(), Code: ReasonQuality, Detail: "too few words"}
	}

	// Repetition only matters with enough words to make the ratio meaningful;
	// a one-word answer is trivially "100% repeated" and must not reject.
	if len(words) >= 10 {
		counts := make(map[string]int, len(words))
		max := 0
		for _, w := range words {
			key := strings.ToLower(w)
			counts[key]++
			if counts[key] > max {
				max = counts[key]
			}
		}
		ratio := float64(max) / float64(len(words))
		if ratio > c.MaxRepetitionRatio {
			return &Rejection{
				Stage:  c.Name(),
				Code:   ReasonQuality,
				Detail: fmt.Sprintf("word repetition ratio %.2f", ratio),
			}
		}
	}
	return nil
}
