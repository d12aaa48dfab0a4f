package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scout-hq/scout/internal/domain"
	"github.com/scout-hq/scout/internal/metrics"
	"github.com/scout-hq/scout/internal/transport/pipeline"
	healthuc "github.com/scout-hq/scout/internal/usecase/health"
	"github.com/scout-hq/scout/internal/usecase/relay"
)

func TestMain(m *testing.M) {
	metrics.RegisterProviderMetrics()
	os.Exit(m.Run())
}

// --- Fakes ---

type fakeSearcher struct {
	resp domain.SearchResponse
	err  error
	got  domain.Query
}

func (f *fakeSearcher) Search(_ context.Context, q domain.Query) (domain.SearchResponse, error) {
	f.got = q
	return f.resp, f.err
}

type fakeEmail struct {
	text string
	err  error
}

func (f *fakeEmail) Draft(_ context.Context, _ domain.Attributes, _ string) (string, error) {
	return f.text, f.err
}

type fakeHealth struct {
	report healthuc.Report
	debug  healthuc.DebugInfo
	err    error
}

func (f *fakeHealth) Check(_ context.Context) healthuc.Report { return f.report }
func (f *fakeHealth) Debug(_ context.Context) (healthuc.DebugInfo, error) {
	return f.debug, f.err
}

type fakePipeline struct {
	result    *pipeline.ProcessResult
	err       error
	stream    io.ReadCloser
	status    int
	streamErr error
	gotBatch  int
	gotMax    int
}

func (f *fakePipeline) ProcessProfile(_ context.Context, _ string) (*pipeline.ProcessResult, error) {
	return f.result, f.err
}

func (f *fakePipeline) OpenProfileStream(_ context.Context, _ string) (io.ReadCloser, int, error) {
	return f.stream, f.status, f.streamErr
}

func (f *fakePipeline) OpenBulkStream(_ context.Context, batchSize, maxConcurrent int) (io.ReadCloser, int, error) {
	f.gotBatch = batchSize
	f.gotMax = maxConcurrent
	return f.stream, f.status, f.streamErr
}

func newTestServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	r := chirouter.NewRouter()
	s.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func defaultServer(search Searcher, email EmailDrafter, health HealthChecker, p PipelineClient) *Server {
	if search == nil {
		search = &fakeSearcher{}
	}
	if email == nil {
		email = &fakeEmail{}
	}
	if health == nil {
		health = &fakeHealth{}
	}
	if p == nil {
		p = &fakePipeline{}
	}
	return NewServer(search, email, health, relay.New(), p, zap.NewNop())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// --- Search ---

func TestHandleSearch(t *testing.T) {
	search := &fakeSearcher{resp: domain.SearchResponse{
		Analysis: "two strong matches",
		Matches: []domain.EnrichedCandidate{
			{
				Candidate: domain.Candidate{
					ID:    "profile:1",
					Score: 0.91,
					Attrs: domain.Attributes{FullName: "Ada Lovelace", Location: "London"},
				},
				ConciseSummary: "Pioneer of computing.",
				CurrentRole:    "CTO at Acme",
				PastRoles:      []string{"Engineer at Globex"},
			},
		},
		Pagination: domain.Pagination{Page: 0, PageSize: 20, TotalResults: 2, HasMore: false},
	}}
	srv := newTestServer(t, defaultServer(search, nil, nil, nil))

	resp := postJSON(t, srv.URL+"/api/search", `{"query":"ai pioneers","location":"London","page":0,"pageSize":20}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if search.got.Text != "ai pioneers" || search.got.Location != "London" {
		t.Errorf("query passed through wrong: %+v", search.got)
	}

	var body struct {
		Analysis string `json:"analysis"`
		Matches  []struct {
			ID       string  `json:"id"`
			Score    float64 `json:"score"`
			Metadata struct {
				FullName       string   `json:"full_name"`
				ConciseSummary string   `json:"concise_summary"`
				CurrentRole    string   `json:"current_role"`
				PastRoles      []string `json:"past_roles"`
			} `json:"metadata"`
		} `json:"matches"`
		Pagination domain.Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Analysis != "two strong matches" {
		t.Errorf("analysis = %q", body.Analysis)
	}
	if len(body.Matches) != 1 {
		t.Fatalf("matches = %d", len(body.Matches))
	}
	m := body.Matches[0]
	if m.ID != "profile:1" || m.Metadata.FullName != "Ada Lovelace" {
		t.Errorf("match = %+v", m)
	}
	if m.Metadata.ConciseSummary != "Pioneer of computing." || m.Metadata.CurrentRole != "CTO at Acme" {
		t.Errorf("metadata = %+v", m.Metadata)
	}
	if body.Pagination.TotalResults != 2 {
		t.Errorf("pagination = %+v", body.Pagination)
	}
}

func TestHandleSearch_EmptyQuery400(t *testing.T) {
	search := &fakeSearcher{err: domain.ErrEmptyQuery}
	srv := newTestServer(t, defaultServer(search, nil, nil, nil))

	resp := postJSON(t, srv.URL+"/api/search", `{"query":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleSearch_UpstreamFailure502(t *testing.T) {
	for _, sentinel := range []error{domain.ErrEmbeddingProviderError, domain.ErrVectorIndexUnavailable} {
		search := &fakeSearcher{err: sentinel}
		srv := newTestServer(t, defaultServer(search, nil, nil, nil))

		resp := postJSON(t, srv.URL+"/api/search", `{"query":"q"}`)
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("%v: status = %d, want 502", sentinel, resp.StatusCode)
		}
	}
}

func TestHandleSearch_UnknownError500(t *testing.T) {
	search := &fakeSearcher{err: errors.New("something broke")}
	srv := newTestServer(t, defaultServer(search, nil, nil, nil))

	resp := postJSON(t, srv.URL+"/api/search", `{"query":"q"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(body.Message, "something broke") {
		t.Error("internal error details leaked to client")
	}
}

// --- Email ---

func TestHandleGenerateEmail(t *testing.T) {
	srv := newTestServer(t, defaultServer(nil, &fakeEmail{text: "Hi Ada, ..."}, nil, nil))

	resp := postJSON(t, srv.URL+"/api/generate-email",
		`{"profile":{"full_name":"Ada Lovelace"},"searchQuery":"computing pioneers"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["email"] != "Hi Ada, ..." {
		t.Errorf("email = %q", body["email"])
	}
}

func TestHandleGenerateEmail_Invalid400(t *testing.T) {
	srv := newTestServer(t, defaultServer(nil, &fakeEmail{err: domain.ErrInvalidRequest}, nil, nil))

	resp := postJSON(t, srv.URL+"/api/generate-email", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// --- Add record ---

func TestHandleAddRecord(t *testing.T) {
	p := &fakePipeline{result: &pipeline.ProcessResult{
		StatusCode: http.StatusOK,
		OK:         true,
		Data:       map[string]any{"profile_id": "p1"},
	}}
	srv := newTestServer(t, defaultServer(nil, nil, nil, p))

	resp := postJSON(t, srv.URL+"/api/add-record?linkedin_url=https%3A%2F%2Flinkedin.com%2Fin%2Fada", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success {
		t.Error("expected success")
	}
	if len(body.Logs) != 2 || body.Logs[1].Kind != domain.EventSuccess {
		t.Errorf("logs = %+v", body.Logs)
	}
}

func TestHandleAddRecord_MissingURL400(t *testing.T) {
	srv := newTestServer(t, defaultServer(nil, nil, nil, nil))

	resp := postJSON(t, srv.URL+"/api/add-record", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || len(body.Logs) != 1 || body.Logs[0].Kind != domain.EventError {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleAddRecord_PipelineDown502(t *testing.T) {
	p := &fakePipeline{err: domain.ErrPipelineUnavailable}
	srv := newTestServer(t, defaultServer(nil, nil, nil, p))

	resp := postJSON(t, srv.URL+"/api/add-record?linkedin_url=u", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestHandleAddRecord_UpstreamRejection(t *testing.T) {
	p := &fakePipeline{result: &pipeline.ProcessResult{
		StatusCode: http.StatusUnprocessableEntity,
		OK:         false,
		Data:       map[string]any{},
	}}
	srv := newTestServer(t, defaultServer(nil, nil, nil, p))

	resp := postJSON(t, srv.URL+"/api/add-record?linkedin_url=u", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want upstream status forwarded", resp.StatusCode)
	}

	var body triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Error("expected failure")
	}
}

func TestHandleAddRecord_EventStreamVariant(t *testing.T) {
	upstream := "data: {\"message\":\"scraping profile\",\"type\":\"info\"}\n"
	p := &fakePipeline{
		stream: io.NopCloser(strings.NewReader(upstream)),
		status: http.StatusOK,
	}
	srv := newTestServer(t, defaultServer(nil, nil, nil, p))

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/add-record?linkedin_url=u", http.NoBody)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}

	data, _ := io.ReadAll(resp.Body)
	events := parseSSE(t, string(data))
	if len(events) != 2 {
		t.Fatalf("got %d events, want relayed + terminal: %s", len(events), data)
	}
	if events[0].Message != "scraping profile" || events[1].Kind != domain.EventSuccess {
		t.Errorf("events = %+v", events)
	}
}

// --- Update contacts (SSE relay) ---

func TestHandleUpdateContacts(t *testing.T) {
	upstream := "data: {\"message\":\"started\",\"type\":\"info\"}\n" +
		"data: {\"message\":\"processed 10 records\",\"type\":\"success\"}\n"
	p := &fakePipeline{
		stream: io.NopCloser(strings.NewReader(upstream)),
		status: http.StatusOK,
	}
	srv := newTestServer(t, defaultServer(nil, nil, nil, p))

	resp := postJSON(t, srv.URL+"/api/update-contacts", `{"batchSize":25,"maxConcurrent":3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}
	if p.gotBatch != 25 || p.gotMax != 3 {
		t.Errorf("batch params = %d/%d", p.gotBatch, p.gotMax)
	}

	data, _ := io.ReadAll(resp.Body)
	events := parseSSE(t, string(data))
	if len(events) != 3 {
		t.Fatalf("got %d events, want 2 relayed + terminal: %s", len(events), data)
	}
	if events[0].Message != "started" || events[1].Message != "processed 10 records" {
		t.Errorf("events = %+v", events)
	}
	if events[2].Kind != domain.EventSuccess {
		t.Errorf("terminal = %+v", events[2])
	}
}

func TestHandleUpdateContacts_Defaults(t *testing.T) {
	p := &fakePipeline{
		stream: io.NopCloser(strings.NewReader("")),
		status: http.StatusOK,
	}
	srv := newTestServer(t, defaultServer(nil, nil, nil, p))

	resp := postJSON(t, srv.URL+"/api/update-contacts", "")
	io.Copy(io.Discard, resp.Body)

	if p.gotBatch != defaultBatchSize || p.gotMax != defaultMaxConcurrent {
		t.Errorf("batch params = %d/%d, want defaults", p.gotBatch, p.gotMax)
	}
}

func TestHandleUpdateContacts_UpstreamFailure(t *testing.T) {
	p := &fakePipeline{
		stream: io.NopCloser(strings.NewReader("oops")),
		status: http.StatusInternalServerError,
	}
	srv := newTestServer(t, defaultServer(nil, nil, nil, p))

	resp := postJSON(t, srv.URL+"/api/update-contacts", `{}`)
	// The stream is committed before the upstream answers; failures arrive as
	// a terminal error event, not an HTTP error.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	data, _ := io.ReadAll(resp.Body)
	events := parseSSE(t, string(data))
	if len(events) != 1 || events[0].Kind != domain.EventError {
		t.Errorf("events = %+v", events)
	}
}

func parseSSE(t *testing.T, body string) []domain.LogEvent {
	t.Helper()
	var events []domain.LogEvent
	for _, line := range strings.Split(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev domain.LogEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			t.Fatalf("bad event line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

// --- Debug / health ---

func TestHandleDebug(t *testing.T) {
	h := &fakeHealth{debug: healthuc.DebugInfo{
		Status:      "success",
		Message:     "Vector index connection successful",
		IndexName:   "idx:profiles",
		VectorCount: 5000,
		Dimensions:  1536,
	}}
	srv := newTestServer(t, defaultServer(nil, nil, h, nil))

	resp, err := http.Get(srv.URL + "/api/debug")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body healthuc.DebugInfo
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.IndexName != "idx:profiles" || body.VectorCount != 5000 || body.Dimensions != 1536 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleDebug_Failure500(t *testing.T) {
	h := &fakeHealth{err: errors.New("no such index")}
	srv := newTestServer(t, defaultServer(nil, nil, h, nil))

	resp, err := http.Get(srv.URL + "/api/debug")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHandleHealth(t *testing.T) {
	h := &fakeHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK},
	}}
	srv := newTestServer(t, defaultServer(nil, nil, h, nil))

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHandleHealth_Degraded503(t *testing.T) {
	h := &fakeHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckError},
	}}
	srv := newTestServer(t, defaultServer(nil, nil, h, nil))

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}
