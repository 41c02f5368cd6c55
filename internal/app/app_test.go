package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/scamdar/internal/scan"
)

const scamPage = `<!DOCTYPE html><html><head><title>Mega Sale</title>
<meta name="description" content="Luxury watches 95% off"></head>
<body>
<h1>Luxury watches at 95% off today only</h1>
<p style="display:none">hidden seo keywords stuffed here</p>
<a href="https://pay.elsewhere.example/checkout">Checkout now</a>
<form method="post" action="/pay"><input type="text" name="card_number"><input type="password" name="pin"></form>
</body></html>`

func newStubs(t *testing.T, reply string) (page *httptest.Server, llmSrv *httptest.Server, userPrompt *atomic.Value) {
	t.Helper()
	page = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(scamPage))
	}))
	t.Cleanup(page.Close)

	userPrompt = &atomic.Value{}
	llmSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Title") != "Scamdar" {
			http.Error(w, "missing title header", http.StatusBadRequest)
			return
		}
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			userPrompt.Store(req.Messages[1].Content)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			}},
		})
	}))
	t.Cleanup(llmSrv.Close)
	return page, llmSrv, userPrompt
}

func testConfig(llmURL string) Config {
	cfg := Config{Mode: ModeStatic, LLMBaseURL: llmURL + "/v1", LLMAPIKey: "test-key", Format: "json"}
	ApplyDefaults(&cfg)
	return cfg
}

func TestApp_StaticScanEndToEnd(t *testing.T) {
	page, llmSrv, userPrompt := newStubs(t, "Sure!\n```json\n{\"score\": 92, \"motivation\": \"Unrealistic discounts and card capture\"}\n```")
	a, err := New(context.Background(), testConfig(llmSrv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	o := a.Scan(context.Background(), page.URL)
	if !o.Success || o.Score == nil || *o.Score != 92 {
		t.Fatalf("unexpected outcome %+v", o)
	}
	prompt, _ := userPrompt.Load().(string)
	for _, want := range []string{"- Title: Mega Sale", "- External Links: 1", "- Forms: 1", "- Has Payment Forms: true"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "hidden seo keywords") {
		t.Fatalf("hidden text leaked into prompt")
	}

	var buf bytes.Buffer
	if err := a.WriteReport(&buf, o); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(buf.String(), `"band": "high"`) {
		t.Fatalf("unexpected report %s", buf.String())
	}
}

func TestApp_MissingKeyIsPrecondition(t *testing.T) {
	page, llmSrv, _ := newStubs(t, `{"score": 1}`)
	cfg := testConfig(llmSrv.URL)
	cfg.LLMAPIKey = ""
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o := a.Scan(context.Background(), page.URL)
	if o.Success || o.Stage != scan.StagePrecondition {
		t.Fatalf("unexpected outcome %+v", o)
	}
}

func TestApp_RefusesInternalPages(t *testing.T) {
	_, llmSrv, _ := newStubs(t, `{"score": 1}`)
	a, err := New(context.Background(), testConfig(llmSrv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o := a.Scan(context.Background(), "chrome://extensions")
	if o.Success || o.Stage != scan.StageExtraction {
		t.Fatalf("unexpected outcome %+v", o)
	}
}

func TestApp_ServerHandler(t *testing.T) {
	page, llmSrv, _ := newStubs(t, `{"score": 15, "motivation": "Looks fine"}`)
	a, err := New(context.Background(), testConfig(llmSrv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(a.Server().Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/scan", "application/json", strings.NewReader(`{"url":"`+page.URL+`"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["score"] != float64(15) {
		t.Fatalf("unexpected body %v", out)
	}
}
