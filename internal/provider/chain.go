package provider

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Chain tries providers in order. Later providers are used only when fallback is enabled.
type Chain struct {
	providers []Provider
	fallback  bool
}

// NewChain constructs a Chain over providers in priority order.
func NewChain(fallback bool, providers ...Provider) *Chain {
	filtered := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			filtered = append(filtered, p)
		}
	}
	return &Chain{providers: filtered, fallback: fallback}
}

// Name joins the provider names.
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

// Generate returns the first successful result.
func (c *Chain) Generate(ctx context.Context, prompt string) (string, error) {
	if len(c.providers) == 0 {
		return "", &ProviderError{Message: "no provider configured"}
	}
	var lastErr error
	for i, p := range c.providers {
		if i > 0 && !c.fallback {
			break
		}
		out, err := p.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			break
		}
		if c.fallback && i+1 < len(c.providers) {
			log.WithError(err).Warnf("provider %s failed, trying %s", p.Name(), c.providers[i+1].Name())
		}
	}
	return "", lastErr
}
