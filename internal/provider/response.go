package provider

import (
	"github.com/tidwall/gjson"
)

// NoTextSentinel is returned when a provider response carries no usable text.
const NoTextSentinel = "(no text from provider)"

// Kind identifies which response shape a provider returned.
type Kind int

const (
	KindEmpty Kind = iota
	KindDirectText
	KindCandidates
	KindChoices
)

func (k Kind) String() string {
	switch k {
	case KindDirectText:
		return "direct_text"
	case KindCandidates:
		return "candidates"
	case KindChoices:
		return "choices"
	default:
		return "empty"
	}
}

// Candidate is one Gemini-style candidate with its text parts in order.
type Candidate struct {
	Parts []string
}

// Response is a decoded provider response. Only the fields for Kind are set.
type Response struct {
	Kind       Kind
	Text       string
	Candidates []Candidate
	Choices    []string
}

// DecodeResponse classifies a JSON response body. Shapes are tried in order:
// a top-level text field, Gemini candidates, then OpenAI-style choices.
func DecodeResponse(body []byte) Response {
	if !gjson.ValidBytes(body) {
		return Response{Kind: KindEmpty}
	}
	root := gjson.ParseBytes(body)

	if text := root.Get("text"); text.Type == gjson.String && text.String() != "" {
		return Response{Kind: KindDirectText, Text: text.String()}
	}

	if candidates := root.Get("candidates"); candidates.IsArray() && len(candidates.Array()) > 0 {
		resp := Response{Kind: KindCandidates}
		for _, item := range candidates.Array() {
			var candidate Candidate
			for _, part := range item.Get("content.parts").Array() {
				candidate.Parts = append(candidate.Parts, part.Get("text").String())
			}
			resp.Candidates = append(resp.Candidates, candidate)
		}
		return resp
	}

	if choices := root.Get("choices"); choices.IsArray() && len(choices.Array()) > 0 {
		resp := Response{Kind: KindChoices}
		for _, item := range choices.Array() {
			resp.Choices = append(resp.Choices, item.Get("message.content").String())
		}
		return resp
	}

	return Response{Kind: KindEmpty}
}

// Extract returns the answer text for resp. It never returns an empty string.
func Extract(resp Response) string {
	var text string
	switch resp.Kind {
	case KindDirectText:
		text = resp.Text
	case KindCandidates:
		if len(resp.Candidates) > 0 && len(resp.Candidates[0].Parts) > 0 {
			text = resp.Candidates[0].Parts[0]
		}
	case KindChoices:
		if len(resp.Choices) > 0 {
			text = resp.Choices[0]
		}
	}
	if text == "" {
		return NoTextSentinel
	}
	return text
}
