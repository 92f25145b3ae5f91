// Package provider issues generation calls to external text-generation backends
// and normalizes their responses to plain text.
package provider

import (
	"context"
	"time"
)

// InstructionPrefix is prepended to every user question.
const InstructionPrefix = "You are answering a simple question. Do not respond with any different formatting than regular plain text, no bold italics or anything. Do not respond with anything else other than the answer(s) to the question. This is the question:\n"

const defaultTimeout = 30 * time.Second

// Provider generates text for a fully built prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// BuildPrompt wraps the user text with the fixed instruction prefix.
func BuildPrompt(text string) string {
	return InstructionPrefix + text
}

// Gateway applies the instruction prefix and a per-call timeout before
// delegating to a Provider.
type Gateway struct {
	provider Provider
	timeout  time.Duration
}

// NewGateway constructs a Gateway. A non-positive timeout uses the default.
func NewGateway(p Provider, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{provider: p, timeout: timeout}
}

// Name reports the underlying provider name.
func (g *Gateway) Name() string {
	if g == nil || g.provider == nil {
		return ""
	}
	return g.provider.Name()
}

// Generate answers text. On success the result is never empty.
func (g *Gateway) Generate(ctx context.Context, text string) (string, error) {
	if g == nil || g.provider == nil {
		return "", &ProviderError{Message: "no provider configured"}
	}
	ctxCall, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.provider.Generate(ctxCall, BuildPrompt(text))
	if err != nil {
		return "", err
	}
	if out == "" {
		return NoTextSentinel, nil
	}
	return out, nil
}
