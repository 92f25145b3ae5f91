package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// ClientOption configures a backend client.
type ClientOption func(*client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimSuffix(trimmed, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithModel overrides the model name.
func WithModel(model string) ClientOption {
	return func(c *client) {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			c.model = trimmed
		}
	}
}

type client struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func newClient(name, apiKey, baseURL, model string, opts []ClientOption) client {
	c := client{
		name:       name,
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// postJSON sends payload and returns the decoded response on a 2xx status.
func (c *client) postJSON(ctx context.Context, url string, headers map[string]string, payload any) (Response, error) {
	if c.apiKey == "" {
		return Response{}, &ProviderError{Provider: c.name, Message: "missing api key"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, &ProviderError{Provider: c.name, Message: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, &ProviderError{Provider: c.name, Message: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, &ProviderError{Provider: c.name, Message: "request failed", Err: err}
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warnf("provider %s: close response body failed", c.name)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, &ProviderError{Provider: c.name, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Response{}, errorFromResponse(c.name, resp.StatusCode, respBody)
	}
	return DecodeResponse(respBody), nil
}
