// Package integration provides end-to-end tests for the practice API.
//
// Tests run the full stack in-process: a real PostgreSQL (via
// testcontainers) hosts the sandbox namespaces, and an httptest server
// mimics the Ollama API with a deterministic question payload.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sqlgym/sqlgym/pkg/api"
	"github.com/sqlgym/sqlgym/pkg/generator"
	"github.com/sqlgym/sqlgym/pkg/provider/ollama"
	"github.com/sqlgym/sqlgym/pkg/ratelimit"
	"github.com/sqlgym/sqlgym/pkg/sandbox"
	"github.com/sqlgym/sqlgym/pkg/session"
	"github.com/sqlgym/sqlgym/pkg/transport"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// questionPayload is the deterministic model answer the fake backend
// serves: a small two-table question with a known reference query.
const questionPayload = `{
  "title": "High Value Orders",
  "description": "List the names of customers who placed an order worth more than 100, ordered by name.",
  "tables": [
    {"name": "customers", "columns": ["id INT PRIMARY KEY", "name TEXT"], "sample_data": [[1, "Ada"], [2, "Grace"]]},
    {"name": "orders", "columns": ["id INT PRIMARY KEY", "customer_id INT", "amount NUMERIC"], "sample_data": [[1, 1, 250.00]]}
  ],
  "setup_sql": "CREATE TABLE customers (id INT PRIMARY KEY, name TEXT); CREATE TABLE orders (id INT PRIMARY KEY, customer_id INT, amount NUMERIC); INSERT INTO customers VALUES (1, 'Ada'), (2, 'Grace'), (3, 'Edsger'); INSERT INTO orders VALUES (1, 1, 250.00), (2, 2, 50.00), (3, 3, 120.50);",
  "expected_query": "SELECT c.name FROM customers c JOIN orders o ON o.customer_id = c.id WHERE o.amount > 100 ORDER BY c.name",
  "expected_columns": ["name"],
  "hints": ["Join customers to orders.", "Filter on the order amount.", "Sort the names."]
}`

// env holds the full in-process stack for one test.
type env struct {
	Server   *httptest.Server
	Sessions *session.Manager
	Sandbox  *sandbox.Postgres
}

// startFakeOllama serves /api/generate with the canned payload and
// /api/tags listing the test model.
func startFakeOllama(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"response": questionPayload,
			"done":     true,
		})
	})
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "test-model:latest"}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setupEnv starts PostgreSQL, the fake model backend, and the full
// practice stack. Tests are skipped if no container runtime is available.
func setupEnv(t *testing.T, rateLimit int) *env {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("sqlgym_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	sb, err := sandbox.New(ctx, sandbox.Config{
		DSN:              connStr,
		MaxConns:         5,
		MinConns:         1,
		StatementTimeout: 5 * time.Second,
		MaxRows:          1000,
		MigrateOnStart:   true,
	})
	if err != nil {
		t.Fatalf("creating sandbox: %v", err)
	}
	t.Cleanup(sb.Close)

	backend := startFakeOllama(t)
	prov, err := ollama.New(ollama.Config{
		BaseURL: backend.URL,
		Model:   "test-model",
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("creating provider: %v", err)
	}
	t.Cleanup(func() { prov.Close() })

	gen := generator.New(prov, sb, generator.Config{})
	sessions := session.NewManager(gen, sb, session.Config{})

	var limiter ratelimit.Limiter
	if rateLimit > 0 {
		limiter = ratelimit.NewSlidingWindowLimiter(rateLimit, time.Minute)
	}

	handler := transport.NewHandler(transport.HandlerConfig{
		Sessions: sessions,
		Executor: sb,
		DB:       sb,
		Backend:  prov,
		Limiter:  limiter,
	})
	server := httptest.NewServer(transport.NewRouter(handler, transport.RouterConfig{
		MetricsEnabled: true,
	}))
	t.Cleanup(server.Close)

	return &env{Server: server, Sessions: sessions, Sandbox: sb}
}

// --- HTTP helpers ---

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func deleteURL(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("creating DELETE request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

func createSession(t *testing.T, e *env) api.SessionResponse {
	t.Helper()
	resp := postJSON(t, e.Server.URL+"/practice/generate", map[string]any{"difficulty": "medium"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	var s api.SessionResponse
	decodeJSON(t, resp, &s)
	return s
}
