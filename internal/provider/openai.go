package provider

import "context"

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// OpenAIProvider calls an OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	client
}

// NewOpenAI constructs an OpenAI-compatible provider.
func NewOpenAI(apiKey string, opts ...ClientOption) *OpenAIProvider {
	return &OpenAIProvider{client: newClient("openai", apiKey, defaultOpenAIBaseURL, DefaultOpenAIModel, opts)}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return p.name }

// Generate sends prompt as a single user message.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	payload := chatCompletionRequest{
		Model:    p.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	resp, err := p.postJSON(ctx, p.baseURL+"/chat/completions", map[string]string{"Authorization": "Bearer " + p.apiKey}, payload)
	if err != nil {
		return "", err
	}
	return Extract(resp), nil
}
