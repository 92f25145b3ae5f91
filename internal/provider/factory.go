package provider

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/router-for-me/StudyGateway/internal/config"
	log "github.com/sirupsen/logrus"
)

// Backend types accepted in provider.backends[].type.
const (
	TypeGemini = "gemini"
	TypeOpenAI = "openai"
)

// FromConfig builds the provider chain described by cfg.
func FromConfig(cfg config.ProviderConfig, httpClient *http.Client) (*Chain, error) {
	if len(cfg.Backends) == 0 {
		return nil, fmt.Errorf("provider: no backends configured")
	}
	providers := make([]Provider, 0, len(cfg.Backends))
	for i, backend := range cfg.Backends {
		p, err := newBackend(backend, httpClient)
		if err != nil {
			return nil, fmt.Errorf("provider: backend %d: %w", i, err)
		}
		if strings.TrimSpace(backend.APIKey) == "" {
			log.Warnf("provider %s has no api key; generation calls will fail", p.Name())
		}
		providers = append(providers, p)
	}
	return NewChain(cfg.Fallback, providers...), nil
}

func newBackend(backend config.ProviderBackend, httpClient *http.Client) (Provider, error) {
	opts := []ClientOption{
		WithBaseURL(backend.BaseURL),
		WithModel(backend.Model),
		WithHTTPClient(httpClient),
	}
	switch strings.ToLower(strings.TrimSpace(backend.Type)) {
	case TypeGemini:
		p := NewGemini(backend.APIKey, opts...)
		if name := strings.TrimSpace(backend.Name); name != "" {
			p.name = name
		}
		return p, nil
	case TypeOpenAI:
		p := NewOpenAI(backend.APIKey, opts...)
		if name := strings.TrimSpace(backend.Name); name != "" {
			p.name = name
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown type %q", backend.Type)
	}
}
