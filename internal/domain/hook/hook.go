// Package hook models the contract between the host gateway and the plugin:
// what an invocation carries in and the result shape the host merges back.
package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/chat"
)

// EventType is the lifecycle phase the host invokes the plugin in.
type EventType string

const (
	// BeforeRequest runs on the input phase, before the request is forwarded.
	BeforeRequest EventType = "beforeRequestHook"
	// AfterRequest runs on the output phase, after the provider answered.
	AfterRequest EventType = "afterRequestHook"
)

// Invocation is one call from the host.
// Parameters stay raw until DecodeParameters so a malformed option is reported
// through the hook result instead of rejecting the whole call.
type Invocation struct {
	Context    Context         `json:"context"`
	Parameters json.RawMessage `json:"parameters"`
	EventType  EventType       `json:"eventType"`
}

// DecodeParameters parses the plugin options. Absent or null parameters decode to the zero value.
func (inv Invocation) DecodeParameters() (Parameters, error) {
	var p Parameters
	raw := bytes.TrimSpace(inv.Parameters)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Parameters{}, fmt.Errorf("%w: %s", domain.ErrInvalidParameters, describeDecodeError(err))
	}
	return p, nil
}

// describeDecodeError names the offending field when the decoder reports one.
func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	return err.Error()
}

// Context carries the request the hook runs for.
type Context struct {
	RequestType chat.Kind `json:"requestType"`
	Request     Message   `json:"request"`
}

// Message wraps a JSON body. A nil JSON marshals as null.
type Message struct {
	JSON json.RawMessage `json:"json"`
}

// TransformedData holds the request/response deltas the host merges into the live request.
type TransformedData struct {
	Request  Message `json:"request"`
	Response Message `json:"response"`
}

// Error is the host-facing error: a message only, never a stack.
type Error struct {
	Message string `json:"message"`
}

// Result is the plugin's answer. Verdict is always true: retrieval never blocks a request.
type Result struct {
	Error           *Error          `json:"error"`
	Verdict         bool            `json:"verdict"`
	Data            any             `json:"data"`
	TransformedData TransformedData `json:"transformedData"`
	Transformed     bool            `json:"transformed"`
}

// Allow lets the request through unmodified.
func Allow(data any) Result {
	return Result{Verdict: true, Data: data}
}

// Fail reports err and still lets the request through unmodified.
func Fail(err error, data any) Result {
	return Result{Error: NewError(err), Verdict: true, Data: data}
}

// Transform lets the request through with a rewritten body.
func Transform(body json.RawMessage, data any) Result {
	return Result{
		Verdict:         true,
		Data:            data,
		TransformedData: TransformedData{Request: Message{JSON: body}},
		Transformed:     true,
	}
}

// NewError reduces err to its first line so no trace detail crosses the plugin boundary.
func NewError(err error) *Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return &Error{Message: strings.TrimSpace(msg)}
}
