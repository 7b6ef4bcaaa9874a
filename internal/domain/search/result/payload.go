package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field is one key of a structured payload. Value holds raw JSON.
type Field struct {
	Key   string
	Value json.RawMessage
}

// StringField builds a field holding a JSON string.
func StringField(key, value string) Field {
	raw, _ := marshalString(value) //nolint:errchkjson // strings always marshal
	return Field{Key: key, Value: raw}
}

// marshalString encodes s as a JSON string, leaving <, > and & as written.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Payload is the content stored with a point: either plain text or an ordered record.
// The zero value is an empty record.
type Payload struct {
	text   string
	fields []Field
	isText bool
}

// TextPayload creates a plain text payload.
func TextPayload(text string) Payload {
	return Payload{text: text, isText: true}
}

// StructuredPayload creates a record payload; field order is kept as given.
func StructuredPayload(fields ...Field) Payload {
	return Payload{fields: fields}
}

// IsText reports whether the payload is plain text.
func (p Payload) IsText() bool { return p.isText }

// Text returns the plain text of a text payload.
func (p Payload) Text() string { return p.text }

// Fields returns the record fields in stored order.
func (p Payload) Fields() []Field { return p.fields }

// Lookup returns the raw value of the first field with the given key.
func (p Payload) Lookup(key string) (json.RawMessage, bool) {
	for _, f := range p.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Render returns the field as display text. A field counts as present only when
// it exists and is neither null nor an empty string.
// String values are unquoted; any other JSON value is rendered compactly.
func (p Payload) Render(key string) (string, bool) {
	raw, ok := p.Lookup(key)
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw), true
	}
	return buf.String(), true
}

// MarshalJSON writes text payloads as a JSON string and records as an object in field order.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.isText {
		return marshalString(p.text)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(f.Key)
		if err != nil {
			return nil, fmt.Errorf("payload key %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		if err := json.Compact(&buf, f.Value); err != nil {
			return nil, fmt.Errorf("payload field %q: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a payload at the boundary.
// Objects become ordered records, strings become text, null becomes an empty record,
// and any other scalar or array is kept as its JSON text.
func (p *Payload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*p = StructuredPayload()
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		*p = TextPayload(s)
		return nil
	case data[0] == '{':
		fields, err := decodeOrdered(data)
		if err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		*p = StructuredPayload(fields...)
		return nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		*p = TextPayload(buf.String())
		return nil
	}
}

// decodeOrdered reads a JSON object keeping key order.
func decodeOrdered(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected object")
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}
