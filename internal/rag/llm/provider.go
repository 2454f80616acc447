package llm

import (
	"context"
	"strings"
)

type Prompt struct {
	System string
	User   string
}

type Generation struct {
	Text   string
	Tokens int
	Cost   float64
	Model  string
}

type Provider interface {
	Generate(ctx context.Context, prompt Prompt) (Generation, error)
}

// ApproxTokens counts whitespace-separated words, used when a provider reports no usage.
func ApproxTokens(texts ...string) int {
	n := 0
	for _, t := range texts {
		n += len(strings.Fields(t))
	}
	return n
}

func Cost(tokens int, per1K float64) float64 {
	return float64(tokens) / 1000 * per1K
}
