package provider

import (
	"context"
	"net/url"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.5-flash"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// GeminiProvider calls the Gemini generateContent REST endpoint.
type GeminiProvider struct {
	client
}

// NewGemini constructs a Gemini provider.
func NewGemini(apiKey string, opts ...ClientOption) *GeminiProvider {
	return &GeminiProvider{client: newClient("gemini", apiKey, defaultGeminiBaseURL, DefaultGeminiModel, opts)}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return p.name }

// Generate sends prompt as a single user turn.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := p.baseURL + "/models/" + url.PathEscape(p.model) + ":generateContent"
	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	resp, err := p.postJSON(ctx, endpoint, map[string]string{"x-goog-api-key": p.apiKey}, payload)
	if err != nil {
		return "", err
	}
	return Extract(resp), nil
}
