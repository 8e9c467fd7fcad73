package llm

import (
	"strings"
	"testing"
)

func TestHeuristicScore(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantMin  float64
		wantMax  float64
	}{
		{
			"empty response scores zero",
			"",
			0, 0,
		},
		{
			"hedging scores below threshold",
			"I'm not sure",
			0, 0.69,
		},
		{
			"short factual answer",
			"4",
			0, 0.69,
		},
		{
			"detailed answer scores high",
			"The French Revolution began in 1789 with the storming of the Bastille. " +
				"Over the following decade it abolished the monarchy, established a republic, " +
				"and reshaped European politics through war and the rise of Napoleon Bonaparte.",
			0.7, 1,
		},
		{
			"medium answer with specifics",
			"Paris has been the capital of France since 987 and has about 2.1 million residents.",
			0.7, 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicScore("", tt.response)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("HeuristicScore = %.2f, want in [%.2f, %.2f]", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestHeuristicScoreBounds(t *testing.T) {
	// Every surface feature stacked must still clamp to [0, 1].
	long := strings.Repeat("The detailed answer covers many specifics like 42 and 1789. ", 10)
	if got := HeuristicScore("", long); got > 1 {
		t.Errorf("score %.2f exceeds 1", got)
	}
	if got := HeuristicScore("", "I'm not sure, maybe"); got < 0 {
		t.Errorf("score %.2f below 0", got)
	}
}

func TestHeuristicScoreDeterministic(t *testing.T) {
	a := HeuristicScore("q", "Paris is the capital of France since 987.")
	b := HeuristicScore("q", "Paris is the capital of France since 987.")
	if a != b {
		t.Errorf("scorer not deterministic: %.4f vs %.4f", a, b)
	}
}
