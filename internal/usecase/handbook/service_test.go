package handbook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/chat"
	"github.com/kailas-cloud/skills-handbook/internal/domain/collection"
	"github.com/kailas-cloud/skills-handbook/internal/domain/hook"
	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
)

// --- Fakes ---

type fakeEmbedder struct {
	err    error
	calls  int
	gotKey string
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, apiKey string) (domain.EmbeddingResult, error) {
	f.calls++
	f.gotKey = apiKey
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 5}, nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	hits    map[string][]result.Result
	errs    map[string]error
	panics  map[string]bool
	queries []domain.SearchQuery
}

func (f *fakeSearcher) Search(_ context.Context, q domain.SearchQuery) ([]result.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.panics[q.Collection] {
		panic("index client bug")
	}
	if err := f.errs[q.Collection]; err != nil {
		return nil, err
	}
	return f.hits[q.Collection], nil
}

func (f *fakeSearcher) query(collection string) (domain.SearchQuery, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.queries {
		if q.Collection == collection {
			return q, true
		}
	}
	return domain.SearchQuery{}, false
}

// --- Helpers ---

const (
	positiveName = collection.DefaultPositiveName
	negativeName = collection.DefaultNegativeName
)

func authHit() result.Result {
	return result.New(result.NumericID(1), 0.95, result.StructuredPayload(
		result.StringField("tool", "api"),
		result.StringField("example", "Always validate authentication tokens"),
		result.StringField("reasoning", "security"),
	))
}

func avoidHit() result.Result {
	return result.New(result.StringID("b7c1"), 0.81, result.StructuredPayload(
		result.StringField("tool", "api"),
		result.StringField("example", "Hardcoding API keys in source"),
	))
}

func ptr[T any](v T) *T { return &v }

func chatInvocation(body string) hook.Invocation {
	return hook.Invocation{
		Context: hook.Context{
			RequestType: chat.KindChat,
			Request:     hook.Message{JSON: json.RawMessage(body)},
		},
		Parameters: params(),
		EventType:  hook.BeforeRequest,
	}
}

// params encodes the default test credentials with mutations applied.
func params(mutate ...func(*hook.Parameters)) json.RawMessage {
	p := hook.Parameters{
		Credentials: hook.Credentials{Endpoint: "http://qdrant:6333", APIKey: "qk", OpenAIAPIKey: "sk-test"},
	}
	for _, m := range mutate {
		m(&p)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return raw
}

const authChat = `{"model":"gpt-4o","messages":[` +
	`{"role":"system","content":"You are helpful."},` +
	`{"role":"user","content":"How should I handle API authentication?"}],"temperature":0.2}`

func newService(emb *fakeEmbedder, s *fakeSearcher) *Service {
	return New(emb, s, hook.BuiltinDefaults(), zap.NewNop())
}

func transformedMessages(t *testing.T, res hook.Result) []map[string]any {
	t.Helper()
	var body struct {
		Messages []map[string]any `json:"messages"`
	}
	if err := json.Unmarshal(res.TransformedData.Request.JSON, &body); err != nil {
		t.Fatalf("decode transformed body: %v", err)
	}
	return body.Messages
}

// --- Tests ---

func TestBeforeRequest_AuthenticationScenario(t *testing.T) {
	emb := &fakeEmbedder{}
	s := &fakeSearcher{hits: map[string][]result.Result{positiveName: {authHit()}}}
	inv := chatInvocation(authChat)
	inv.Parameters = params(func(p *hook.Parameters) { p.IncludeNegative = ptr(false) })

	res := newService(emb, s).BeforeRequest(context.Background(), inv)

	if res.Error != nil {
		t.Fatalf("unexpected error: %s", res.Error.Message)
	}
	if !res.Verdict || !res.Transformed {
		t.Fatalf("verdict=%v transformed=%v, want true/true", res.Verdict, res.Transformed)
	}

	msgs := transformedMessages(t, res)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	system, _ := msgs[0]["content"].(string)
	for _, want := range []string{
		"You are helpful.",
		"<positive_examples>",
		"1. [Tool: api] Always validate authentication tokens\n",
		"   Reasoning: security\n",
		"</positive_examples>",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("system content missing %q:\n%s", want, system)
		}
	}
	if strings.Contains(system, "<negative_examples>") {
		t.Error("negative block must not be injected when disabled")
	}
	if _, ok := s.query(negativeName); ok {
		t.Error("disabled negative collection must not be searched")
	}

	summary, ok := res.Data.(*Summary)
	if !ok {
		t.Fatalf("data = %T, want *Summary", res.Data)
	}
	if summary.Positive == nil || summary.Positive.Count != 1 || summary.Positive.Collection != positiveName {
		t.Errorf("positive summary = %+v", summary.Positive)
	}
	if summary.Negative != nil {
		t.Errorf("negative summary must be omitted, got %+v", summary.Negative)
	}
}

func TestBeforeRequest_BothCollectionsInjectedInOrder(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]result.Result{
		positiveName: {authHit()},
		negativeName: {avoidHit()},
	}}

	res := newService(&fakeEmbedder{}, s).BeforeRequest(context.Background(), chatInvocation(authChat))
	if !res.Transformed {
		t.Fatalf("expected transformed, error=%v", res.Error)
	}

	system, _ := transformedMessages(t, res)[0]["content"].(string)
	pos := strings.Index(system, "<positive_examples>")
	neg := strings.Index(system, "<negative_examples>")
	if pos < 0 || neg < 0 || pos > neg {
		t.Errorf("expected positive block before negative block:\n%s", system)
	}
	if !strings.Contains(system, "1. [Tool: api] Hardcoding API keys in source\n") {
		t.Errorf("negative hit line missing:\n%s", system)
	}
}

func TestBeforeRequest_ZeroHits(t *testing.T) {
	s := &fakeSearcher{}
	res := newService(&fakeEmbedder{}, s).BeforeRequest(context.Background(), chatInvocation(authChat))

	if res.Error != nil {
		t.Fatalf("unexpected error: %s", res.Error.Message)
	}
	if !res.Verdict || res.Transformed {
		t.Errorf("verdict=%v transformed=%v, want true/false", res.Verdict, res.Transformed)
	}
	if res.TransformedData.Request.JSON != nil {
		t.Errorf("request must be untouched, got %s", res.TransformedData.Request.JSON)
	}
	if res.Data != nil {
		t.Errorf("data = %v, want nil", res.Data)
	}
	if len(s.queries) != 2 {
		t.Errorf("expected both collections searched, got %d", len(s.queries))
	}
}

func TestBeforeRequest_MissingEmbeddingCredential(t *testing.T) {
	emb := &fakeEmbedder{}
	inv := chatInvocation(authChat)
	inv.Parameters = params(func(p *hook.Parameters) { p.Credentials.OpenAIAPIKey = "" })

	res := newService(emb, &fakeSearcher{}).BeforeRequest(context.Background(), inv)

	if res.Error == nil || !strings.Contains(res.Error.Message, "openaiApiKey") {
		t.Fatalf("expected error naming openaiApiKey, got %+v", res.Error)
	}
	if !res.Verdict || res.Transformed {
		t.Errorf("verdict=%v transformed=%v, want true/false", res.Verdict, res.Transformed)
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called without a credential")
	}
}

func TestBeforeRequest_MistypedParameter(t *testing.T) {
	emb := &fakeEmbedder{}
	inv := chatInvocation(authChat)
	inv.Parameters = json.RawMessage(`{"credentials":{"endpoint":"http://qdrant:6333","openaiApiKey":"sk"},"topK":"3"}`)

	res := newService(emb, &fakeSearcher{}).BeforeRequest(context.Background(), inv)

	if res.Error == nil || !strings.Contains(res.Error.Message, "topK") {
		t.Fatalf("expected error naming topK, got %+v", res.Error)
	}
	if !strings.HasPrefix(res.Error.Message, domain.ErrInvalidParameters.Error()) {
		t.Errorf("message = %q", res.Error.Message)
	}
	if !res.Verdict || res.Transformed {
		t.Errorf("verdict=%v transformed=%v, want true/false", res.Verdict, res.Transformed)
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called with invalid parameters")
	}
}

func TestBeforeRequest_MissingEndpoint(t *testing.T) {
	inv := chatInvocation(authChat)
	inv.Parameters = params(func(p *hook.Parameters) { p.Credentials.Endpoint = "" })

	res := newService(&fakeEmbedder{}, &fakeSearcher{}).BeforeRequest(context.Background(), inv)
	if res.Error == nil || !strings.Contains(res.Error.Message, "credentials.endpoint") {
		t.Fatalf("expected error naming credentials.endpoint, got %+v", res.Error)
	}
}

func TestBeforeRequest_ServerDefaultsFillCredentials(t *testing.T) {
	emb := &fakeEmbedder{}
	s := &fakeSearcher{}
	defaults := hook.BuiltinDefaults()
	defaults.Credentials = hook.Credentials{Endpoint: "http://default:6333", OpenAIAPIKey: "sk-default"}
	defaults.TopK = 5

	inv := chatInvocation(authChat)
	inv.Parameters = params(func(p *hook.Parameters) {
		p.Credentials = hook.Credentials{}
		p.ScoreThreshold = ptr(0.0)
		p.Timeout = ptr(2500)
	})

	res := New(emb, s, defaults, nil).BeforeRequest(context.Background(), inv)
	if res.Error != nil {
		t.Fatalf("unexpected error: %s", res.Error.Message)
	}
	if emb.gotKey != "sk-default" {
		t.Errorf("embed key = %q, want sk-default", emb.gotKey)
	}
	q, ok := s.query(positiveName)
	if !ok {
		t.Fatal("positive collection not searched")
	}
	if q.Endpoint != "http://default:6333" || q.TopK != 5 || q.ScoreThreshold != 0 || q.Timeout != 2500*time.Millisecond {
		t.Errorf("query = %+v", q)
	}
	if len(q.Vector) != 3 {
		t.Errorf("vector not passed through: %v", q.Vector)
	}
}

func TestBeforeRequest_EmbeddingFailure(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("embedding API error 401: bad key: embedding provider error")}
	s := &fakeSearcher{}

	res := newService(emb, s).BeforeRequest(context.Background(), chatInvocation(authChat))

	if res.Error == nil || !strings.Contains(res.Error.Message, "embed query") {
		t.Fatalf("expected embedding error, got %+v", res.Error)
	}
	if !res.Verdict || res.Transformed {
		t.Errorf("verdict=%v transformed=%v, want true/false", res.Verdict, res.Transformed)
	}
	if len(s.queries) != 0 {
		t.Error("no search may run after an embedding failure")
	}
}

func TestBeforeRequest_SearchFailureIsIsolated(t *testing.T) {
	s := &fakeSearcher{
		hits: map[string][]result.Result{positiveName: {authHit()}},
		errs: map[string]error{negativeName: errors.New("status 503: overloaded\n  at client.go:12")},
	}

	res := newService(&fakeEmbedder{}, s).BeforeRequest(context.Background(), chatInvocation(authChat))

	if res.Error != nil {
		t.Fatalf("per-collection failure must not surface as top-level error: %s", res.Error.Message)
	}
	if !res.Transformed {
		t.Fatal("positive results must still be injected")
	}
	summary := res.Data.(*Summary)
	msg := summary.Failures[collection.Negative]
	if !strings.Contains(msg, "overloaded") || strings.Contains(msg, "client.go") {
		t.Errorf("failure message = %q, want sanitized first line", msg)
	}
}

func TestBeforeRequest_SearchPanicIsIsolated(t *testing.T) {
	s := &fakeSearcher{
		hits:   map[string][]result.Result{positiveName: {authHit()}},
		panics: map[string]bool{negativeName: true},
	}

	res := newService(&fakeEmbedder{}, s).BeforeRequest(context.Background(), chatInvocation(authChat))

	if !res.Verdict || !res.Transformed {
		t.Fatalf("verdict=%v transformed=%v", res.Verdict, res.Transformed)
	}
	if _, ok := res.Data.(*Summary).Failures[collection.Negative]; !ok {
		t.Error("panicking collection must be reported as a failure")
	}
}

func TestBeforeRequest_AllSearchesFail(t *testing.T) {
	boom := errors.New("connection refused")
	s := &fakeSearcher{errs: map[string]error{positiveName: boom, negativeName: boom}}

	res := newService(&fakeEmbedder{}, s).BeforeRequest(context.Background(), chatInvocation(authChat))

	if res.Error != nil || res.Transformed {
		t.Fatalf("error=%v transformed=%v, want nil/false", res.Error, res.Transformed)
	}
	if len(res.Data.(*Summary).Failures) != 2 {
		t.Errorf("expected two failures, got %+v", res.Data)
	}
}

func TestBeforeRequest_EmptyCollectionName(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]result.Result{negativeName: {avoidHit()}}}
	inv := chatInvocation(authChat)
	inv.Parameters = params(func(p *hook.Parameters) { p.PositiveCollectionName = ptr("") })

	res := newService(&fakeEmbedder{}, s).BeforeRequest(context.Background(), inv)

	if !res.Transformed {
		t.Fatal("negative collection must still be injected")
	}
	msg := res.Data.(*Summary).Failures[collection.Positive]
	if !strings.Contains(msg, "missing collection name") {
		t.Errorf("failure = %q", msg)
	}
	if len(s.queries) != 1 {
		t.Errorf("only the named collection may be searched, got %d queries", len(s.queries))
	}
}

func TestBeforeRequest_CompletionPrompt(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]result.Result{positiveName: {authHit()}}}
	inv := chatInvocation(`{"model":"gpt-3.5-turbo-instruct","prompt":"How should I handle API authentication?"}`)
	inv.Context.RequestType = chat.KindCompletion
	inv.Parameters = params(func(p *hook.Parameters) { p.IncludeNegative = ptr(false) })

	res := newService(&fakeEmbedder{}, s).BeforeRequest(context.Background(), inv)
	if !res.Transformed {
		t.Fatalf("expected transformed, error=%v", res.Error)
	}

	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(res.TransformedData.Request.JSON, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body.Prompt, "\n\n<positive_examples>") ||
		!strings.HasSuffix(body.Prompt, "</positive_examples>\nHow should I handle API authentication?") {
		t.Errorf("prompt = %q, want block + original prompt", body.Prompt)
	}
}

func TestBeforeRequest_NotIdempotent(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]result.Result{positiveName: {authHit()}}}
	svc := newService(&fakeEmbedder{}, s)
	inv := chatInvocation(authChat)
	inv.Parameters = params(func(p *hook.Parameters) { p.IncludeNegative = ptr(false) })

	first := svc.BeforeRequest(context.Background(), inv)
	inv.Context.Request.JSON = first.TransformedData.Request.JSON
	second := svc.BeforeRequest(context.Background(), inv)

	system, _ := transformedMessages(t, second)[0]["content"].(string)
	if n := strings.Count(system, "<positive_examples>"); n != 2 {
		t.Errorf("expected block appended twice, found %d", n)
	}
}

func TestBeforeRequest_PassThrough(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*hook.Invocation)
	}{
		{"after request hook", func(inv *hook.Invocation) { inv.EventType = hook.AfterRequest }},
		{"unsupported kind", func(inv *hook.Invocation) { inv.Context.RequestType = "embed" }},
		{"empty query", func(inv *hook.Invocation) {
			inv.Context.Request.JSON = json.RawMessage(`{"messages":[{"role":"user","content":"   "}]}`)
		}},
		{"tool-only turn", func(inv *hook.Invocation) {
			inv.Context.Request.JSON = json.RawMessage(`{"messages":[{"role":"tool","tool_call_id":"x","content":null}]}`)
		}},
		{"no collections enabled", func(inv *hook.Invocation) {
			inv.Parameters = params(func(p *hook.Parameters) {
				p.IncludePositive = ptr(false)
				p.IncludeNegative = ptr(false)
			})
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			emb := &fakeEmbedder{}
			inv := chatInvocation(authChat)
			tc.mutate(&inv)

			res := newService(emb, &fakeSearcher{}).BeforeRequest(context.Background(), inv)

			if res.Error != nil || !res.Verdict || res.Transformed || res.Data != nil {
				t.Errorf("result = %+v, want plain allow", res)
			}
			if emb.calls != 0 {
				t.Error("embedder must not be called")
			}
		})
	}
}

func TestBeforeRequest_MalformedBody(t *testing.T) {
	inv := chatInvocation(`["not","an","object"]`)

	res := newService(&fakeEmbedder{}, &fakeSearcher{}).BeforeRequest(context.Background(), inv)

	if res.Error == nil || !res.Verdict || res.Transformed {
		t.Errorf("result = %+v, want reported error with allow", res)
	}
}

func TestSummary_JSONShape(t *testing.T) {
	var s Summary
	if s.data() != nil {
		t.Fatal("empty summary must report nil data")
	}
	s.addHits(collection.DefaultPositive(), []result.Result{authHit()})
	s.addFailure(collection.Negative, "similarity search failed: timeout")

	out, err := json.Marshal(s.data())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"positive":{"collection":"skills-handbook-positive","count":1,"memories":[` +
		`{"id":1,"score":0.95,"payload":{"tool":"api","example":"Always validate authentication tokens","reasoning":"security"}}]},` +
		`"failures":{"negative":"similarity search failed: timeout"}}`
	if string(out) != want {
		t.Errorf("got  %s\nwant %s", out, want)
	}
}
