package provider

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ProviderError reports a failed generation call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("provider")
	if e.Provider != "" {
		b.WriteString(" ")
		b.WriteString(e.Provider)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// errorFromResponse builds a ProviderError from a non-2xx upstream response.
// Both Gemini and OpenAI wrap the reason in error.message.
func errorFromResponse(provider string, status int, body []byte) *ProviderError {
	message := strings.TrimSpace(gjson.GetBytes(body, "error.message").String())
	if message == "" {
		message = http.StatusText(status)
	}
	return &ProviderError{Provider: provider, StatusCode: status, Message: message}
}
