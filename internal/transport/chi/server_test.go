package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/hook"
	openaitransport "github.com/kailas-cloud/skills-handbook/internal/transport/openai"
	"github.com/kailas-cloud/skills-handbook/internal/transport/qdrant"
	embeddinguc "github.com/kailas-cloud/skills-handbook/internal/usecase/embedding"
	handbookuc "github.com/kailas-cloud/skills-handbook/internal/usecase/handbook"
	healthuc "github.com/kailas-cloud/skills-handbook/internal/usecase/health"
)

// --- Fakes ---

type fakeRunner struct {
	got    hook.Invocation
	result hook.Result
	tokens int
	panics bool
}

func (f *fakeRunner) BeforeRequest(ctx context.Context, inv hook.Invocation) hook.Result {
	if f.panics {
		panic("boom")
	}
	f.got = inv
	domain.UsageFrom(ctx).Record(f.tokens)
	return f.result
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }

func newTestRouter(runner HookRunner, health *healthuc.Service) http.Handler {
	if health == nil {
		health = healthuc.New(nil, nil)
	}
	return NewRouter(NewServer(runner, health, zap.NewNop()), zap.NewNop())
}

const invocationBody = `{
  "context": {
    "requestType": "chatComplete",
    "request": {"json": {"model": "gpt-4o", "messages": [{"role": "user", "content": "How should I handle API authentication?"}]}}
  },
  "parameters": {
    "credentials": {"endpoint": "http://qdrant:6333", "openaiApiKey": "sk-test"},
    "topK": 5,
    "includeNegative": false
  },
  "eventType": "beforeRequestHook"
}`

// --- Tests ---

func TestRunHook_DecodesInvocation(t *testing.T) {
	runner := &fakeRunner{result: hook.Allow(nil), tokens: 9}
	rr := httptest.NewRecorder()
	newTestRouter(runner, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, HookPath, strings.NewReader(invocationBody)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if runner.got.EventType != hook.BeforeRequest || runner.got.Context.RequestType != "chatComplete" {
		t.Errorf("invocation = %+v", runner.got)
	}
	if p, err := runner.got.DecodeParameters(); err != nil || p.TopK == nil || *p.TopK != 5 {
		t.Errorf("topK not decoded: %+v, %v", p.TopK, err)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "9" {
		t.Errorf("X-Embedding-Tokens = %q, want 9", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	want := `{"error":null,"verdict":true,"data":null,"transformedData":{"request":{"json":null},"response":{"json":null}},"transformed":false}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Errorf("body = %s\nwant   %s", got, want)
	}
}

func TestRunHook_ErrorTravelsInOK(t *testing.T) {
	runner := &fakeRunner{result: hook.Fail(errors.New("missing credentials: credentials.openaiApiKey is required"), nil)}
	rr := httptest.NewRecorder()
	newTestRouter(runner, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, HookPath, strings.NewReader(invocationBody)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var res hook.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Error == nil || !res.Verdict {
		t.Errorf("result = %+v", res)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "" {
		t.Error("no token header expected when the embedder was not used")
	}
}

func TestRunHook_BadBody(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(&fakeRunner{}, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, HookPath, strings.NewReader(`{"context":`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Code != codeBadRequest {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestRunHook_PanicIsJSON500(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(&fakeRunner{panics: true}, nil).ServeHTTP(rr,
		httptest.NewRequest(http.MethodPost, HookPath, strings.NewReader(invocationBody)))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), codeInternalError) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestRoutes_NotFoundAndMethod(t *testing.T) {
	router := newTestRouter(&fakeRunner{}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/unknown", http.NoBody))
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), codeNotFound) {
		t.Errorf("unknown route: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, HookPath, http.NoBody))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET hook: status = %d, want 405", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		health     *healthuc.Service
		wantStatus int
		wantBody   string
	}{
		{"no probes", healthuc.New(nil, nil), http.StatusOK, `{"status":"ok","checks":{}}`},
		{"degraded", healthuc.New(fakeChecker{err: errors.New("down")}, fakeChecker{}), http.StatusOK,
			`{"status":"degraded","checks":{"embedding":"ok","vector_index":"error"}}`},
		{"unhealthy", healthuc.New(fakeChecker{err: errors.New("down")}, nil), http.StatusServiceUnavailable,
			`{"status":"error","checks":{"vector_index":"error"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newTestRouter(&fakeRunner{}, tc.health).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tc.wantBody {
				t.Errorf("body = %s, want %s", got, tc.wantBody)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&fakeRunner{result: hook.Allow(nil)}, nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "handbook_http_request_duration_seconds") {
		t.Error("expected http metrics in scrape output")
	}
}

// TestEndToEnd runs the real pipeline against fake OpenAI and Qdrant servers.
func TestEndToEnd(t *testing.T) {
	oai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-e2e" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],`+
			`"model":"text-embedding-3-small","usage":{"prompt_tokens":8,"total_tokens":8}}`)
	}))
	defer oai.Close()

	var (
		mu       sync.Mutex
		searched []string
	)
	qd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		searched = append(searched, r.URL.Path)
		mu.Unlock()
		if r.Header.Get("api-key") != "qd-key" {
			t.Errorf("api-key = %q", r.Header.Get("api-key"))
		}
		if strings.Contains(r.URL.Path, "positive") {
			_, _ = io.WriteString(w, `{"result":[{"id":1,"version":0,"score":0.95,"payload":`+
				`{"text":"Always validate authentication tokens","tool":"api","reasoning":"security",`+
				`"example":"Always validate authentication tokens"}}],"status":"ok","time":0.001}`)
			return
		}
		_, _ = io.WriteString(w, `{"result":[],"status":"ok","time":0.001}`)
	}))
	defer qd.Close()

	embedder := embeddinguc.NewInstrumentedEmbedder(
		openaitransport.NewEmbedder(&openaitransport.Config{BaseURL: oai.URL, Model: "text-embedding-3-small"}),
		"openai", "text-embedding-3-small", nil,
	)
	pipeline := handbookuc.New(embedder, qdrant.New(), hook.BuiltinDefaults(), zap.NewNop())
	router := newTestRouter(pipeline, nil)

	body := `{
	  "context": {"requestType": "chatComplete", "request": {"json": {"model": "gpt-4o", "messages": [
	    {"role": "system", "content": "You are a senior engineer."},
	    {"role": "user", "content": "How should I handle API authentication?"}
	  ]}}},
	  "parameters": {"credentials": {"endpoint": "` + qd.URL + `/", "apiKey": "qd-key", "openaiApiKey": "sk-e2e"}},
	  "eventType": "beforeRequestHook"
	}`

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, HookPath, strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Embedding-Tokens") != "8" {
		t.Errorf("X-Embedding-Tokens = %q, want 8", rr.Header().Get("X-Embedding-Tokens"))
	}
	if len(searched) != 2 {
		t.Errorf("expected 2 searches, got %v", searched)
	}

	raw := rr.Body.String()
	if !strings.Contains(raw, "<positive_examples>") {
		t.Errorf("memory tags must not be HTML-escaped: %s", raw)
	}

	var res struct {
		Error           *hook.Error `json:"error"`
		Verdict         bool        `json:"verdict"`
		Transformed     bool        `json:"transformed"`
		TransformedData struct {
			Request struct {
				JSON struct {
					Model    string `json:"model"`
					Messages []struct {
						Role    string `json:"role"`
						Content string `json:"content"`
					} `json:"messages"`
				} `json:"json"`
			} `json:"request"`
		} `json:"transformedData"`
		Data struct {
			Positive struct {
				Count int `json:"count"`
			} `json:"positive"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Error != nil || !res.Verdict || !res.Transformed {
		t.Fatalf("result: error=%v verdict=%v transformed=%v", res.Error, res.Verdict, res.Transformed)
	}
	msgs := res.TransformedData.Request.JSON.Messages
	if res.TransformedData.Request.JSON.Model != "gpt-4o" || len(msgs) != 2 {
		t.Fatalf("transformed request = %+v", res.TransformedData.Request.JSON)
	}
	wantSystem := "You are a senior engineer.\n\n<positive_examples>\n" +
		"Here are relevant examples of good practices to follow:\n" +
		"1. [Tool: api] Always validate authentication tokens\n" +
		"   Reasoning: security\n" +
		"</positive_examples>\n"
	if msgs[0].Content != wantSystem {
		t.Errorf("system content = %q\nwant %q", msgs[0].Content, wantSystem)
	}
	if msgs[1].Content != "How should I handle API authentication?" {
		t.Errorf("user message changed: %q", msgs[1].Content)
	}
	if res.Data.Positive.Count != 1 {
		t.Errorf("positive count = %d, want 1", res.Data.Positive.Count)
	}
}

func TestEndToEnd_BadEmbeddingKeyStillAllows(t *testing.T) {
	oai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer oai.Close()

	pipeline := handbookuc.New(
		openaitransport.NewEmbedder(&openaitransport.Config{BaseURL: oai.URL, Model: "m"}),
		qdrant.New(), hook.BuiltinDefaults(), nil,
	)

	rr := httptest.NewRecorder()
	newTestRouter(pipeline, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, HookPath, strings.NewReader(invocationBody)))

	var res hook.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Code != http.StatusOK || res.Error == nil || !res.Verdict || res.Transformed {
		t.Errorf("status=%d result=%+v", rr.Code, res)
	}
	if !strings.Contains(res.Error.Message, "401") {
		t.Errorf("error = %q", res.Error.Message)
	}
}

func TestRunHook_MistypedParameterStillAllows(t *testing.T) {
	tests := []struct {
		name   string
		params string
		field  string
	}{
		{"string topK", `{"credentials":{"endpoint":"http://qdrant:6333","openaiApiKey":"sk"},"topK":"3"}`, "topK"},
		{"string threshold", `{"credentials":{"endpoint":"http://qdrant:6333","openaiApiKey":"sk"},"scoreThreshold":"high"}`, "scoreThreshold"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := `{"context":{"requestType":"chatComplete","request":{"json":` +
				`{"messages":[{"role":"user","content":"How should I handle API authentication?"}]}}},` +
				`"parameters":` + tc.params + `,"eventType":"beforeRequestHook"}`
			pipeline := handbookuc.New(
				openaitransport.NewEmbedder(&openaitransport.Config{BaseURL: "http://127.0.0.1:1", Model: "m"}),
				qdrant.New(), hook.BuiltinDefaults(), nil,
			)

			rr := httptest.NewRecorder()
			newTestRouter(pipeline, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, HookPath, strings.NewReader(body)))

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			var res hook.Result
			if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Error == nil || !strings.Contains(res.Error.Message, tc.field) {
				t.Fatalf("expected error naming %s, got %+v", tc.field, res.Error)
			}
			if !res.Verdict || res.Transformed {
				t.Errorf("verdict=%v transformed=%v, want true/false", res.Verdict, res.Transformed)
			}
		})
	}
}
