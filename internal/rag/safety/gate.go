package safety

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/metrics"
)

// Verdict is the outcome of screening one query. A zero Verdict is not valid;
// use Evaluate.
type Verdict struct {
	Accepted bool
	Reason   ragErrors.ReasonCode
	Message  string
	Err      error
}

// Gate is a cheap pattern pre-filter run before any retrieval or generation.
// It is not a security boundary.
type Gate struct {
	maxLength int
	phrases   []string
	patterns  []*regexp.Regexp
}

func NewGate(settings config.SafetySettings) (*Gate, error) {
	if settings.MaxQueryLength <= 0 {
		return nil, fmt.Errorf("max query length must be positive, got %d", settings.MaxQueryLength)
	}
	g := &Gate{maxLength: settings.MaxQueryLength}
	for _, p := range settings.Phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			g.phrases = append(g.phrases, p)
		}
	}
	for _, expr := range settings.Patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling safety pattern %q: %w", expr, err)
		}
		g.patterns = append(g.patterns, re)
	}
	return g, nil
}

// Evaluate checks, in order: empty input, length in characters after trimming,
// then injection phrases and patterns. The first failing check decides.
func (g *Gate) Evaluate(raw string) Verdict {
	trimmed := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(trimmed)

	switch {
	case length == 0:
		return g.reject(ragErrors.ErrEmptyInput, "Please enter a question or request.")
	case length > g.maxLength:
		return g.reject(ragErrors.ErrTooLong, fmt.Sprintf("Query too long. Please keep it under %d characters.", g.maxLength))
	case g.injected(trimmed):
		return g.reject(ragErrors.ErrInjectionDetected,
			"Invalid input detected. Please ask legitimate study questions without attempting prompt injection or requesting exam answers.")
	}
	return Verdict{Accepted: true}
}

func (g *Gate) injected(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range g.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, re := range g.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (g *Gate) reject(err error, message string) Verdict {
	reason := ragErrors.Reason(err)
	metrics.CaptureSafetyRejection(string(reason))
	return Verdict{
		Reason:  reason,
		Message: message,
		Err:     err,
	}
}
