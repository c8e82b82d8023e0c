package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sqlgym/sqlgym/pkg/api"
	"github.com/sqlgym/sqlgym/pkg/generator"
	"github.com/sqlgym/sqlgym/pkg/ratelimit"
	"github.com/sqlgym/sqlgym/pkg/sandbox"
	"github.com/sqlgym/sqlgym/pkg/session"
)

type fakeSessions struct {
	session    *session.Session
	generateErr error
	checkOutcome *api.CheckOutcome
	checkErr   error
	revealed   int
	deleteErr  error
	deleted    []string
}

func (f *fakeSessions) Generate(context.Context, generator.Params) (*session.Session, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.session, nil
}

func (f *fakeSessions) Check(_ context.Context, id, _ string) (*api.CheckOutcome, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return f.checkOutcome, nil
}

func (f *fakeSessions) RevealHint(_ context.Context, id string) (int, []string, error) {
	if f.session == nil || f.session.ID != id {
		return 0, nil, api.NewSessionNotFoundError(id)
	}
	hints := f.session.Question.Hints
	if f.revealed < len(hints) {
		f.revealed++
	}
	return f.revealed, hints[:f.revealed], nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSessions) Get(id string) (*session.Session, error) {
	if f.session == nil || f.session.ID != id {
		return nil, api.NewSessionNotFoundError(id)
	}
	return f.session, nil
}

type fakeExecutor struct {
	result   *api.ExecutionResult
	err      error
	lastNS   string
	lastStmt string
}

func (f *fakeExecutor) Execute(_ context.Context, ns, stmt string, _ sandbox.ExecOptions) (*api.ExecutionResult, error) {
	f.lastNS = ns
	f.lastStmt = stmt
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &api.ExecutionResult{Success: true, RowCount: 0}, nil
}

type fakeHealth struct{ err error }

func (f *fakeHealth) Ping(context.Context) error      { return f.err }
func (f *fakeHealth) Available(context.Context) error { return f.err }

func testSession() *session.Session {
	return &session.Session{
		ID:        api.NewSessionID(),
		Namespace: "practice_0123456789ab",
		Question: &api.Question{
			Title:       "Order Totals",
			Description: "Sum order values per customer.",
			Difficulty:  api.DifficultyMedium,
			Hints:       []string{"group by customer", "use SUM"},
		},
		CreatedAt: time.Now(),
	}
}

func newTestServer(t *testing.T, sessions *fakeSessions, exec *fakeExecutor, limiter ratelimit.Limiter) *httptest.Server {
	t.Helper()
	if exec == nil {
		exec = &fakeExecutor{}
	}
	h := NewHandler(HandlerConfig{
		Sessions: sessions,
		Executor: exec,
		DB:       &fakeHealth{},
		Backend:  &fakeHealth{},
		Limiter:  limiter,
	})
	srv := httptest.NewServer(NewRouter(h, RouterConfig{MetricsEnabled: true}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func assertErrorType(t *testing.T, resp *http.Response, wantStatus int, wantType api.ErrorType) {
	t.Helper()
	if resp.StatusCode != wantStatus {
		t.Errorf("status = %d, want %d", resp.StatusCode, wantStatus)
	}
	body := decodeBody[api.ErrorResponse](t, resp)
	if body.Error == nil || body.Error.Type != wantType {
		t.Errorf("error = %+v, want type %q", body.Error, wantType)
	}
}

func TestGenerate(t *testing.T) {
	s := testSession()
	srv := newTestServer(t, &fakeSessions{session: s}, nil, nil)

	resp := postJSON(t, srv.URL+"/practice/generate", `{"difficulty":"easy"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decodeBody[api.SessionResponse](t, resp)
	if got.SessionID != s.ID || got.Title != "Order Totals" || got.HintCount != 2 {
		t.Errorf("response = %+v", got)
	}
}

func TestGenerateInvalidDifficulty(t *testing.T) {
	srv := newTestServer(t, &fakeSessions{session: testSession()}, nil, nil)

	resp := postJSON(t, srv.URL+"/practice/generate", `{"difficulty":"impossible"}`)
	assertErrorType(t, resp, http.StatusBadRequest, api.ErrorTypeInvalidRequest)
}

func TestGenerateMalformedBody(t *testing.T) {
	srv := newTestServer(t, &fakeSessions{session: testSession()}, nil, nil)

	resp := postJSON(t, srv.URL+"/practice/generate", `{"difficulty":`)
	assertErrorType(t, resp, http.StatusBadRequest, api.ErrorTypeInvalidRequest)
}

func TestGenerateBackendUnavailable(t *testing.T) {
	srv := newTestServer(t, &fakeSessions{
		generateErr: api.NewGenerationUnavailableError("model backend unreachable"),
	}, nil, nil)

	resp := postJSON(t, srv.URL+"/practice/generate", `{}`)
	assertErrorType(t, resp, http.StatusServiceUnavailable, api.ErrorTypeGenerationUnavailable)
}

func TestGenerateInternalErrorMasked(t *testing.T) {
	srv := newTestServer(t, &fakeSessions{
		generateErr: errors.New("pool exhausted: secret dsn"),
	}, nil, nil)

	resp := postJSON(t, srv.URL+"/practice/generate", `{}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	body := decodeBody[api.ErrorResponse](t, resp)
	if body.Error == nil || strings.Contains(body.Error.Message, "secret") {
		t.Errorf("internal detail leaked: %+v", body.Error)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	limiter := ratelimit.NewSlidingWindowLimiter(1, time.Minute)
	srv := newTestServer(t, &fakeSessions{session: testSession()}, nil, limiter)

	req := func() *http.Response {
		r, err := http.NewRequest(http.MethodPost, srv.URL+"/practice/generate", strings.NewReader(`{}`))
		if err != nil {
			t.Fatal(err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Client-ID", "learner-1")
		resp, err := http.DefaultClient.Do(r)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	if resp := req(); resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", resp.StatusCode)
	}
	assertErrorType(t, req(), http.StatusTooManyRequests, api.ErrorTypeRateLimited)
}

func TestGenerateCustom(t *testing.T) {
	srv := newTestServer(t, &fakeSessions{session: testSession()}, nil, nil)

	resp := postJSON(t, srv.URL+"/practice/generate-custom", `{"prompt":"window functions over sensor data"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/practice/generate-custom", `{"prompt":"  "}`)
	assertErrorType(t, resp, http.StatusBadRequest, api.ErrorTypeInvalidRequest)
}

func TestCheck(t *testing.T) {
	s := testSession()
	srv := newTestServer(t, &fakeSessions{
		session:      s,
		checkOutcome: &api.CheckOutcome{Correct: true},
	}, nil, nil)

	resp := postJSON(t, srv.URL+"/practice/check",
		`{"session_id":"`+s.ID+`","sql":"SELECT 1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decodeBody[api.CheckOutcome](t, resp)
	if !got.Correct {
		t.Errorf("outcome = %+v, want correct", got)
	}
}

func TestCheckUnknownSession(t *testing.T) {
	id := api.NewSessionID()
	srv := newTestServer(t, &fakeSessions{
		checkErr: api.NewSessionNotFoundError(id),
	}, nil, nil)

	resp := postJSON(t, srv.URL+"/practice/check",
		`{"session_id":"`+id+`","sql":"SELECT 1"}`)
	assertErrorType(t, resp, http.StatusNotFound, api.ErrorTypeSessionNotFound)
}

func TestHintProgression(t *testing.T) {
	s := testSession()
	srv := newTestServer(t, &fakeSessions{session: s}, nil, nil)

	get := func() api.HintResponse {
		resp, err := http.Get(srv.URL + "/practice/hint/" + s.ID)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		return decodeBody[api.HintResponse](t, resp)
	}

	first := get()
	if len(first.Hints) != 1 || first.Hints[0] != "group by customer" || first.RevealedCount != 1 || first.TotalHints != 2 {
		t.Errorf("first hint = %+v", first)
	}

	// Each call carries every hint revealed so far, so a client that lost
	// state gets the full list back.
	second := get()
	if len(second.Hints) != 2 || second.Hints[1] != "use SUM" || second.RevealedCount != 2 {
		t.Errorf("second hint = %+v", second)
	}

	// Past the cap the full list repeats with the count unchanged.
	third := get()
	if third.RevealedCount != 2 || len(third.Hints) != 2 {
		t.Errorf("capped hint = %+v", third)
	}
}

func TestHintMalformedID(t *testing.T) {
	srv := newTestServer(t, &fakeSessions{}, nil, nil)

	resp, err := http.Get(srv.URL + "/practice/hint/not-a-session")
	if err != nil {
		t.Fatal(err)
	}
	assertErrorType(t, resp, http.StatusBadRequest, api.ErrorTypeInvalidRequest)
}

func TestDeleteSession(t *testing.T) {
	s := testSession()
	sessions := &fakeSessions{session: s}
	srv := newTestServer(t, sessions, nil, nil)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/practice/session/"+s.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decodeBody[api.DeleteResponse](t, resp)
	if !got.Deleted || got.SessionID != s.ID {
		t.Errorf("response = %+v", got)
	}
	if len(sessions.deleted) != 1 {
		t.Errorf("deleted = %v", sessions.deleted)
	}
}

func TestExecuteScratchpadBlocklist(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(t, &fakeSessions{}, exec, nil)

	for _, stmt := range []string{
		"DROP TABLE users",
		"  delete from users",
		"Insert INTO t VALUES (1)",
		"create table t (v int)",
	} {
		resp := postJSON(t, srv.URL+"/sql/execute", `{"sql":`+mustJSON(stmt)+`}`)
		assertErrorType(t, resp, http.StatusBadRequest, api.ErrorTypeInvalidRequest)
	}

	resp := postJSON(t, srv.URL+"/sql/execute", `{"sql":"SELECT version()"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("plain SELECT should pass: status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestExecuteInsideNamespaceAllowsDML(t *testing.T) {
	exec := &fakeExecutor{result: &api.ExecutionResult{Success: true, RowCount: 1}}
	srv := newTestServer(t, &fakeSessions{}, exec, nil)

	resp := postJSON(t, srv.URL+"/sql/execute",
		`{"sql":"INSERT INTO orders VALUES (1)","namespace":"practice_0123456789ab"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if exec.lastNS != "practice_0123456789ab" {
		t.Errorf("namespace = %q", exec.lastNS)
	}
}

func TestExecuteFailedStatementIsData(t *testing.T) {
	exec := &fakeExecutor{result: &api.ExecutionResult{
		Success: false,
		Error:   `relation "missing" does not exist`,
	}}
	srv := newTestServer(t, &fakeSessions{}, exec, nil)

	resp := postJSON(t, srv.URL+"/sql/execute", `{"sql":"SELECT * FROM missing"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("SQL failures travel as 200 + result: status = %d", resp.StatusCode)
	}
	got := decodeBody[api.ExecutionResult](t, resp)
	if got.Success || got.Error == "" {
		t.Errorf("result = %+v", got)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeSessions{}, nil, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthzDegraded(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Sessions: &fakeSessions{},
		Executor: &fakeExecutor{},
		DB:       &fakeHealth{err: errors.New("connection refused")},
		Backend:  &fakeHealth{},
	})
	srv := httptest.NewServer(NewRouter(h, RouterConfig{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["status"] != "degraded" {
		t.Errorf("body = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeSessions{}, nil, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
