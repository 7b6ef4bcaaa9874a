// Package chat reads and rewrites outbound chat and completion request bodies.
//
// A Body is an immutable value: every rewrite returns a new Body that shares the
// untouched fields with the original, so the caller's copy stays valid.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
)

// Kind is the request kind reported by the host gateway.
type Kind string

const (
	// KindChat is a chat completion request with a messages list.
	KindChat Kind = "chatComplete"
	// KindCompletion is a legacy completion request with a prompt string.
	KindCompletion Kind = "complete"
)

// IsSupported reports whether the pipeline handles this request kind.
func (k Kind) IsSupported() bool {
	return k == KindChat || k == KindCompletion
}

// Request body keys.
const (
	MessagesKey = "messages"
	PromptKey   = "prompt"
)

// Role values the injector cares about.
const (
	RoleSystem = "system"
)

// Body is a JSON object request body.
type Body struct {
	fields map[string]json.RawMessage
}

// ParseBody decodes a request body, which must be a JSON object.
func ParseBody(data []byte) (Body, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Body{}, fmt.Errorf("%w: request body must be a JSON object", domain.ErrMalformedRequest)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Body{}, fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
	}
	return Body{fields: fields}, nil
}

// Field returns the raw value stored under key.
func (b Body) Field(key string) (json.RawMessage, bool) {
	v, ok := b.fields[key]
	return v, ok
}

// Len returns the number of top-level fields.
func (b Body) Len() int { return len(b.fields) }

// MarshalJSON writes the body back as a JSON object.
func (b Body) MarshalJSON() ([]byte, error) {
	if b.fields == nil {
		return []byte("{}"), nil
	}
	return marshal(b.fields)
}

// marshal encodes without HTML escaping so injected tags like <positive_examples> stay readable.
func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// with returns a copy of the body with one field replaced.
func (b Body) with(key string, value json.RawMessage) Body {
	fields := make(map[string]json.RawMessage, len(b.fields)+1)
	for k, v := range b.fields {
		fields[k] = v
	}
	fields[key] = value
	return Body{fields: fields}
}

// message is one entry of the messages list, kept as raw fields so unknown keys survive.
type message map[string]json.RawMessage

func (m message) role() string {
	var role string
	if raw, ok := m["role"]; ok {
		_ = json.Unmarshal(raw, &role)
	}
	return role
}

// messages splits the messages field into raw entries.
func (b Body) messages() ([]json.RawMessage, error) {
	raw, ok := b.fields[MessagesKey]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: messages must be an array: %w", domain.ErrMalformedRequest, err)
	}
	return list, nil
}

func decodeMessage(raw json.RawMessage) (message, error) {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: message must be an object: %w", domain.ErrMalformedRequest, err)
	}
	return m, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
