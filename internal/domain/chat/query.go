package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
)

// contentPart is one element of a multi-part message content.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Query extracts the text to search on: the content of the last chat message,
// or the prompt of a completion request. The result is trimmed; "" means nothing to search.
func Query(body Body, kind Kind) (string, error) {
	switch kind {
	case KindChat:
		list, err := body.messages()
		if err != nil {
			return "", err
		}
		if len(list) == 0 {
			return "", nil
		}
		last, err := decodeMessage(list[len(list)-1])
		if err != nil {
			return "", err
		}
		text, err := contentText(last["content"])
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	case KindCompletion:
		raw, ok := body.Field(PromptKey)
		if !ok || isNull(raw) {
			return "", nil
		}
		var prompt string
		if err := json.Unmarshal(raw, &prompt); err != nil {
			// Token-array and batched prompts carry no searchable text.
			return "", nil //nolint:nilerr // non-string prompts are skipped, not rejected
		}
		return strings.TrimSpace(prompt), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedRequest, kind)
	}
}

// contentText flattens string or multi-part content to text.
func contentText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: content: %w", domain.ErrMalformedRequest, err)
		}
		return s, nil
	case '[':
		var parts []contentPart
		if err := json.Unmarshal(raw, &parts); err != nil {
			return "", fmt.Errorf("%w: content parts: %w", domain.ErrMalformedRequest, err)
		}
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Type == "text" && p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, "\n"), nil
	default:
		return "", fmt.Errorf("%w: content must be a string or an array of parts", domain.ErrMalformedRequest)
	}
}
