package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/sqlgym/sqlgym/pkg/api"
	"github.com/sqlgym/sqlgym/pkg/sandbox"
)

func TestPracticeRoundTrip(t *testing.T) {
	e := setupEnv(t, 0)

	s := createSession(t, e)
	if s.SessionID == "" || s.Namespace == "" {
		t.Fatalf("session response = %+v", s)
	}
	if s.Title != "High Value Orders" || s.HintCount != 3 || len(s.Tables) != 2 {
		t.Errorf("question = %+v", s)
	}
	if len(s.Tables[0].SampleRows) != 2 {
		t.Errorf("sample rows = %v, want the question's sample data exposed", s.Tables[0].SampleRows)
	}

	// A wrong answer: valid SQL, different result set.
	resp := postJSON(t, e.Server.URL+"/practice/check", api.CheckRequest{
		SessionID: s.SessionID,
		SQL:       "SELECT name FROM customers ORDER BY name",
	})
	var wrong api.CheckOutcome
	decodeJSON(t, resp, &wrong)
	if wrong.Correct {
		t.Error("superset of customers should not be correct")
	}
	if wrong.RowDiff != 1 {
		t.Errorf("RowDiff = %d, want 1 (3 customers vs 2 qualifying)", wrong.RowDiff)
	}

	// The reference answer, written differently: same multiset, so correct.
	resp = postJSON(t, e.Server.URL+"/practice/check", api.CheckRequest{
		SessionID: s.SessionID,
		SQL:       "SELECT c.name FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.amount > 100",
	})
	var right api.CheckOutcome
	decodeJSON(t, resp, &right)
	if !right.Correct {
		t.Errorf("equivalent query should be correct: %+v", right)
	}
}

func TestPracticeCandidateSyntaxError(t *testing.T) {
	e := setupEnv(t, 0)
	s := createSession(t, e)

	resp := postJSON(t, e.Server.URL+"/practice/check", api.CheckRequest{
		SessionID: s.SessionID,
		SQL:       "SELEC * FRM customers",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("syntax errors are outcome data: status = %d", resp.StatusCode)
	}
	var outcome api.CheckOutcome
	decodeJSON(t, resp, &outcome)
	if outcome.Correct || outcome.Error == "" {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestPracticeHints(t *testing.T) {
	e := setupEnv(t, 0)
	s := createSession(t, e)

	wantHints := []string{"Join customers to orders.", "Filter on the order amount.", "Sort the names."}

	// Reveal all hints, then keep asking: every response carries the full
	// revealed prefix and the count stops at the total.
	for i := 0; i < len(wantHints)+2; i++ {
		resp := getURL(t, e.Server.URL+"/practice/hint/"+s.SessionID)
		var h api.HintResponse
		decodeJSON(t, resp, &h)

		want := i + 1
		if want > len(wantHints) {
			want = len(wantHints)
		}
		if h.RevealedCount != want || len(h.Hints) != want || h.TotalHints != 3 {
			t.Errorf("call %d: hint = %+v", i+1, h)
			continue
		}
		if h.Hints[want-1] != wantHints[want-1] {
			t.Errorf("call %d: newest hint = %q, want %q", i+1, h.Hints[want-1], wantHints[want-1])
		}
	}
}

func TestPracticeDelete(t *testing.T) {
	e := setupEnv(t, 0)
	s := createSession(t, e)

	resp := deleteURL(t, e.Server.URL+"/practice/session/"+s.SessionID)
	var del api.DeleteResponse
	decodeJSON(t, resp, &del)
	if !del.Deleted {
		t.Errorf("delete response = %+v", del)
	}

	// Deleting again is still fine.
	resp = deleteURL(t, e.Server.URL+"/practice/session/"+s.SessionID)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The session and its namespace are gone.
	resp = postJSON(t, e.Server.URL+"/practice/check", api.CheckRequest{
		SessionID: s.SessionID,
		SQL:       "SELECT 1",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("check after delete status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	result, err := e.Sandbox.Execute(context.Background(), "",
		"SELECT 1 FROM information_schema.schemata WHERE schema_name = '"+s.Namespace+"'",
		sandbox.ExecOptions{})
	if err != nil {
		t.Fatalf("querying schemata: %v", err)
	}
	if result.RowCount != 0 {
		t.Errorf("schema %s still exists after delete", s.Namespace)
	}
}

func TestScratchpadExecute(t *testing.T) {
	e := setupEnv(t, 0)

	resp := postJSON(t, e.Server.URL+"/sql/execute", api.ExecuteRequest{SQL: "SELECT 1 AS one"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var result api.ExecutionResult
	decodeJSON(t, resp, &result)
	if !result.Success || result.RowCount != 1 {
		t.Errorf("result = %+v", result)
	}

	// Mutations are refused outside a namespace.
	resp = postJSON(t, e.Server.URL+"/sql/execute", api.ExecuteRequest{SQL: "DROP TABLE customers"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("DROP outside namespace status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	// Inside a session namespace the learner may mutate freely.
	s := createSession(t, e)
	resp = postJSON(t, e.Server.URL+"/sql/execute", api.ExecuteRequest{
		SQL:       "INSERT INTO customers VALUES (99, 'Barbara')",
		Namespace: s.Namespace,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("namespaced INSERT status = %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &result)
	if !result.Success {
		t.Errorf("namespaced INSERT failed: %+v", result)
	}
}

func TestSessionIsolation(t *testing.T) {
	e := setupEnv(t, 0)

	a := createSession(t, e)
	b := createSession(t, e)
	if a.Namespace == b.Namespace {
		t.Fatalf("sessions share namespace %s", a.Namespace)
	}

	// Mutating session A's data must not affect session B's check.
	resp := postJSON(t, e.Server.URL+"/sql/execute", api.ExecuteRequest{
		SQL:       "DELETE FROM orders",
		Namespace: a.Namespace,
	})
	resp.Body.Close()

	resp = postJSON(t, e.Server.URL+"/practice/check", api.CheckRequest{
		SessionID: b.SessionID,
		SQL:       "SELECT c.name FROM customers c JOIN orders o ON o.customer_id = c.id WHERE o.amount > 100 ORDER BY c.name",
	})
	var outcome api.CheckOutcome
	decodeJSON(t, resp, &outcome)
	if !outcome.Correct {
		t.Errorf("session B affected by session A's mutation: %+v", outcome)
	}
}

func TestGenerationRateLimit(t *testing.T) {
	e := setupEnv(t, 2)

	for i := 0; i < 2; i++ {
		resp := postJSON(t, e.Server.URL+"/practice/generate", map[string]any{})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := postJSON(t, e.Server.URL+"/practice/generate", map[string]any{})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("over-limit status = %d, want 429", resp.StatusCode)
	}
	var errResp api.ErrorResponse
	decodeJSON(t, resp, &errResp)
	if errResp.Error == nil || errResp.Error.Type != api.ErrorTypeRateLimited {
		t.Errorf("error = %+v", errResp.Error)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := setupEnv(t, 0)

	resp := getURL(t, e.Server.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, resp, &health)
	if health.Status != "ok" || health.Checks["database"] != "ok" || health.Checks["generator"] != "ok" {
		t.Errorf("health = %+v", health)
	}

	resp = getURL(t, e.Server.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}
