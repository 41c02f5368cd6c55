package scan

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hyperifyio/scamdar/internal/extract"
	"github.com/hyperifyio/scamdar/internal/inflight"
	"github.com/hyperifyio/scamdar/internal/llm"
	"github.com/hyperifyio/scamdar/internal/metrics"
	"github.com/hyperifyio/scamdar/internal/prompt"
	"github.com/hyperifyio/scamdar/internal/reply"
	"github.com/hyperifyio/scamdar/internal/target"
)

type fakeTarget struct {
	mu        sync.Mutex
	installed bool
	injectErr error
	// stayMissing keeps Ping failing even after injection.
	stayMissing bool
	resp        target.ContentResponse
	contentErr  error
	pings       int
	injects     int
	// block, when set, is waited on inside Content.
	block chan struct{}
}

func (f *fakeTarget) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if !f.installed || f.stayMissing {
		return target.ErrNotInstalled
	}
	return nil
}

func (f *fakeTarget) Inject(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injects++
	if f.injectErr != nil {
		return f.injectErr
	}
	f.installed = true
	return nil
}

func (f *fakeTarget) Content(ctx context.Context) (target.ContentResponse, error) {
	if f.block != nil {
		<-f.block
	}
	return f.resp, f.contentErr
}

type fakeModel struct {
	mu     sync.Mutex
	text   string
	err    error
	calls  int
	system string
	user   string
}

func (m *fakeModel) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.system, m.user = system, user
	return m.text, m.err
}

func okContent() target.ContentResponse {
	return target.ContentResponse{Success: true, Content: extract.PageContent{
		URL:    "https://shop.example/",
		Domain: "shop.example",
		Title:  "Cheap Watches",
		Text:   "Limited offer, pay with gift cards only",
		Links:  []extract.LinkRecord{{Href: "https://other.example/", Text: "x", IsExternal: true}},
		Forms: []extract.FormRecord{{Method: "post", Inputs: []extract.InputRecord{
			{Type: "text", Name: "card_number"},
		}}},
		Metadata: map[string]string{},
	}}
}

func newScanner(model Completer) *Scanner {
	return &Scanner{
		Config: Config{APIKey: "k", Model: llm.DefaultModel},
		Model:  model,
		Guard:  inflight.NewMemory(),
	}
}

func TestScan_Success(t *testing.T) {
	tgt := &fakeTarget{installed: true, resp: okContent()}
	model := &fakeModel{text: "```json\n{\"score\": 87.5, \"motivation\": \"Gift card payments\"}\n```"}
	s := newScanner(model)

	res, err := s.Scan(context.Background(), NewRequest("https://shop.example/", tgt))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Score != 88 || res.Motivation != "Gift card payments" {
		t.Fatalf("unexpected result %+v", res)
	}
	if model.system != prompt.SystemMessage {
		t.Fatalf("system message not sent")
	}
	for _, want := range []string{"- Domain: shop.example", "- External Links: 1", "- Has Payment Forms: true"} {
		if !strings.Contains(model.user, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if tgt.injects != 0 {
		t.Fatalf("installed target must not be injected, got %d", tgt.injects)
	}
}

func TestScan_MissingKeyFailsBeforeAnything(t *testing.T) {
	tgt := &fakeTarget{installed: true, resp: okContent()}
	model := &fakeModel{text: `{"score": 1}`}
	s := newScanner(model)
	s.Config.APIKey = "  "

	_, err := s.Scan(context.Background(), NewRequest("k", tgt))
	var pe *PreconditionError
	if !errors.As(err, &pe) || StageOf(err) != StagePrecondition {
		t.Fatalf("want precondition error, got %v", err)
	}
	if tgt.pings != 0 || model.calls != 0 {
		t.Fatalf("nothing should run without a key: pings=%d calls=%d", tgt.pings, model.calls)
	}
}

func TestScan_InjectsOnceWhenMissing(t *testing.T) {
	tgt := &fakeTarget{resp: okContent()}
	s := newScanner(&fakeModel{text: `{"score": 5}`})

	if _, err := s.Scan(context.Background(), NewRequest("k", tgt)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if tgt.injects != 1 {
		t.Fatalf("want one injection, got %d", tgt.injects)
	}
}

func TestScan_InjectionFailure(t *testing.T) {
	tgt := &fakeTarget{injectErr: errors.New("cannot access page"), resp: okContent()}
	model := &fakeModel{text: `{"score": 5}`}
	s := newScanner(model)

	_, err := s.Scan(context.Background(), NewRequest("k", tgt))
	var ie *target.InjectionError
	if !errors.As(err, &ie) || StageOf(err) != StageExtraction {
		t.Fatalf("want injection error at extraction, got %v", err)
	}
	if tgt.injects != 1 || model.calls != 0 {
		t.Fatalf("injects=%d calls=%d", tgt.injects, model.calls)
	}
}

func TestScan_StillMissingAfterInjection(t *testing.T) {
	tgt := &fakeTarget{stayMissing: true, resp: okContent()}
	s := newScanner(&fakeModel{text: `{"score": 5}`})

	_, err := s.Scan(context.Background(), NewRequest("k", tgt))
	var ee *extract.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("want extraction error, got %v", err)
	}
	if tgt.injects != 1 {
		t.Fatalf("must inject at most once, got %d", tgt.injects)
	}
}

func TestScan_ContentFailure(t *testing.T) {
	tgt := &fakeTarget{installed: true, resp: target.ContentResponse{Success: false, Error: "document unavailable"}}
	model := &fakeModel{text: `{"score": 5}`}
	s := newScanner(model)

	_, err := s.Scan(context.Background(), NewRequest("k", tgt))
	var ee *extract.ExtractionError
	if !errors.As(err, &ee) || !strings.Contains(err.Error(), "document unavailable") {
		t.Fatalf("want extraction error, got %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("model must not be called after extraction failure")
	}
}

func TestScan_TransportFailure(t *testing.T) {
	tgt := &fakeTarget{installed: true, resp: okContent()}
	model := &fakeModel{err: &llm.TransportError{Status: 401, Message: "Unauthorized"}}
	s := newScanner(model)

	_, err := s.Scan(context.Background(), NewRequest("k", tgt))
	var te *llm.TransportError
	if !errors.As(err, &te) || te.Status != 401 || StageOf(err) != StageTransport {
		t.Fatalf("want transport error with status, got %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("want exactly one model call, got %d", model.calls)
	}
}

func TestScan_PlainErrorFromModelBecomesTransportError(t *testing.T) {
	tgt := &fakeTarget{installed: true, resp: okContent()}
	s := newScanner(&fakeModel{err: errors.New("connection reset")})

	_, err := s.Scan(context.Background(), NewRequest("k", tgt))
	var te *llm.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want transport error, got %v", err)
	}
}

func TestScan_ParsingFailures(t *testing.T) {
	cases := []struct {
		text string
		want any
	}{
		{`{"score": 80, "motivation": "cut`, &reply.MalformedResponseError{}},
		{`{"motivation": "no score"}`, &reply.ValidationError{}},
	}
	for _, c := range cases {
		tgt := &fakeTarget{installed: true, resp: okContent()}
		s := newScanner(&fakeModel{text: c.text})
		_, err := s.Scan(context.Background(), NewRequest("k", tgt))
		if StageOf(err) != StageParsing {
			t.Fatalf("%q: want parsing stage, got %v", c.text, err)
		}
		switch c.want.(type) {
		case *reply.MalformedResponseError:
			var me *reply.MalformedResponseError
			if !errors.As(err, &me) {
				t.Fatalf("%q: want malformed, got %v", c.text, err)
			}
		case *reply.ValidationError:
			var ve *reply.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("%q: want validation, got %v", c.text, err)
			}
		}
	}
}

func TestScan_ConcurrentSameKeyIsRejected(t *testing.T) {
	block := make(chan struct{})
	slow := &fakeTarget{installed: true, resp: okContent(), block: block}
	s := newScanner(&fakeModel{text: `{"score": 5}`})

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(context.Background(), NewRequest("same", slow))
		done <- err
	}()
	// Wait until the first scan holds the key.
	for {
		slow.mu.Lock()
		p := slow.pings
		slow.mu.Unlock()
		if p > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	_, err := s.Scan(context.Background(), NewRequest("same", &fakeTarget{installed: true, resp: okContent()}))
	if !errors.Is(err, inflight.ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if _, err := s.Scan(context.Background(), NewRequest("same", &fakeTarget{installed: true, resp: okContent()})); err != nil {
		t.Fatalf("key should be free after completion: %v", err)
	}
}

func TestScan_BusyKeyNeverOpensPage(t *testing.T) {
	s := newScanner(&fakeModel{text: `{"score": 5}`})
	release, err := s.Guard.Acquire(context.Background(), "held")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	var opens, closes int
	open := func(ctx context.Context) (target.Target, func(), error) {
		opens++
		return &fakeTarget{installed: true, resp: okContent()}, func() { closes++ }, nil
	}
	_, err = s.Scan(context.Background(), Request{Key: "held", Open: open})
	if !errors.Is(err, inflight.ErrBusy) || StageOf(err) != StagePrecondition {
		t.Fatalf("want busy precondition error, got %v", err)
	}
	if opens != 0 {
		t.Fatalf("busy key must not load the page, opened %d times", opens)
	}

	release()
	if _, err := s.Scan(context.Background(), Request{Key: "held", Open: open}); err != nil {
		t.Fatalf("scan after release: %v", err)
	}
	if opens != 1 || closes != 1 {
		t.Fatalf("opens=%d closes=%d, want 1 and 1", opens, closes)
	}
}

func TestScan_OpenFailureIsExtraction(t *testing.T) {
	s := newScanner(&fakeModel{text: `{"score": 5}`})
	open := func(ctx context.Context) (target.Target, func(), error) {
		return nil, nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	_, err := s.Scan(context.Background(), Request{Key: "k", Open: open})
	var ee *extract.ExtractionError
	if !errors.As(err, &ee) || StageOf(err) != StageExtraction {
		t.Fatalf("want extraction error, got %v", err)
	}
	// The key is released after a failed open.
	if _, err := s.Scan(context.Background(), NewRequest("k", &fakeTarget{installed: true, resp: okContent()})); err != nil {
		t.Fatalf("key should be free: %v", err)
	}
}

func TestScan_RecordsMetrics(t *testing.T) {
	rec := metrics.New(prometheus.NewRegistry())
	s := newScanner(&fakeModel{text: `{"score": 5}`})
	s.Metrics = rec

	_, _ = s.Scan(context.Background(), NewRequest("a", &fakeTarget{installed: true, resp: okContent()}))
	s.Config.APIKey = ""
	_, _ = s.Scan(context.Background(), NewRequest("b", &fakeTarget{installed: true, resp: okContent()}))

	if got := testutil.ToFloat64(rec.ScansTotal.WithLabelValues("success", "")); got != 1 {
		t.Fatalf("success = %v", got)
	}
	if got := testutil.ToFloat64(rec.ScansTotal.WithLabelValues("failure", "precondition")); got != 1 {
		t.Fatalf("failure = %v", got)
	}
}

func TestRun_OutcomeContract(t *testing.T) {
	s := newScanner(&fakeModel{text: `{"score": 0}`})
	o := s.Run(context.Background(), NewRequest("https://a.example/", &fakeTarget{installed: true, resp: okContent()}))
	if !o.Success || o.Score == nil || *o.Score != 0 || o.Motivation != reply.DefaultMotivation {
		t.Fatalf("unexpected outcome %+v", o)
	}
	b, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"score":0`) || strings.Contains(string(b), `"error"`) {
		t.Fatalf("unexpected json %s", b)
	}

	s.Config.APIKey = ""
	o = s.Run(context.Background(), NewRequest("https://a.example/", &fakeTarget{}))
	if o.Success || o.Score != nil || o.Stage != StagePrecondition {
		t.Fatalf("unexpected failure outcome %+v", o)
	}
	if o.Error != "Analysis failed: API key not configured" {
		t.Fatalf("unexpected message %q", o.Error)
	}
}
