package chat

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
)

// Inject merges a rendered block into the request and returns the new body.
//
// Chat requests: the block is appended to the first system message, or a new
// system message holding only the block is prepended. Completion requests: the
// block is prepended to the prompt. Nothing else in the body changes, and the
// input body is left untouched. An empty block returns the body as is.
func Inject(body Body, kind Kind, block string) (Body, error) {
	if block == "" {
		return body, nil
	}
	switch kind {
	case KindChat:
		return injectSystem(body, block)
	case KindCompletion:
		return injectPrompt(body, block)
	default:
		return Body{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedRequest, kind)
	}
}

func injectSystem(body Body, block string) (Body, error) {
	list, err := body.messages()
	if err != nil {
		return Body{}, err
	}

	for i, raw := range list {
		m, err := decodeMessage(raw)
		if err != nil {
			return Body{}, err
		}
		if m.role() != RoleSystem {
			continue
		}
		content, err := appendContent(m["content"], block)
		if err != nil {
			return Body{}, err
		}
		edited := make(message, len(m))
		for k, v := range m {
			edited[k] = v
		}
		edited["content"] = content
		encoded, err := marshal(edited)
		if err != nil {
			return Body{}, fmt.Errorf("encode system message: %w", err)
		}

		out := make([]json.RawMessage, len(list))
		copy(out, list)
		out[i] = encoded
		return withMessages(body, out)
	}

	system, err := marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: RoleSystem, Content: block})
	if err != nil {
		return Body{}, fmt.Errorf("encode system message: %w", err)
	}
	out := make([]json.RawMessage, 0, len(list)+1)
	out = append(out, system)
	out = append(out, list...)
	return withMessages(body, out)
}

func withMessages(body Body, list []json.RawMessage) (Body, error) {
	encoded, err := marshal(list)
	if err != nil {
		return Body{}, fmt.Errorf("encode messages: %w", err)
	}
	return body.with(MessagesKey, encoded), nil
}

// appendContent adds block to the end of a message content value.
func appendContent(raw json.RawMessage, block string) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return marshal(block)
	}
	switch raw[0] {
	case '"':
		var existing string
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, fmt.Errorf("%w: system content: %w", domain.ErrMalformedRequest, err)
		}
		return marshal(existing + block)
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("%w: system content parts: %w", domain.ErrMalformedRequest, err)
		}
		part, err := marshal(contentPart{Type: "text", Text: block})
		if err != nil {
			return nil, fmt.Errorf("encode content part: %w", err)
		}
		return marshal(append(parts, part))
	default:
		return nil, fmt.Errorf("%w: system content must be a string or an array of parts", domain.ErrMalformedRequest)
	}
}

func injectPrompt(body Body, block string) (Body, error) {
	var prompt string
	if raw, ok := body.Field(PromptKey); ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &prompt); err != nil {
			return Body{}, fmt.Errorf("%w: prompt must be a string: %w", domain.ErrMalformedRequest, err)
		}
	}
	encoded, err := marshal(block + prompt)
	if err != nil {
		return Body{}, fmt.Errorf("encode prompt: %w", err)
	}
	return body.with(PromptKey, encoded), nil
}
