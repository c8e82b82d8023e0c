// Package generator turns generation parameters into a validated
// practice question materialized in a fresh sandbox namespace.
//
// The pipeline is: build prompt -> invoke the model backend (with
// bounded retries for transport failures) -> parse and repair the
// structured output -> validate it -> run the setup SQL in a new
// namespace -> run the reference query there and capture its result.
// A failure at any stage destroys whatever namespace was opened, so no
// namespace ever outlives a failed attempt.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sqlgym/sqlgym/pkg/api"
	"github.com/sqlgym/sqlgym/pkg/debug"
	"github.com/sqlgym/sqlgym/pkg/observability"
	"github.com/sqlgym/sqlgym/pkg/provider"
	"github.com/sqlgym/sqlgym/pkg/sandbox"
)

// Config holds generation tunables.
type Config struct {
	// Temperature for model sampling (default: 0.7).
	Temperature float64

	// MaxTokens caps model output length (default: 768).
	MaxTokens int

	// MaxRetries is the number of additional attempts after a transport
	// failure (default: 2). Malformed output is never retried: a model
	// that keeps emitting garbage is a configuration problem.
	MaxRetries int

	// RetryBackoff is the initial delay between attempts, doubled each
	// retry (default: 500ms).
	RetryBackoff time.Duration

	// MaxTables caps how many tables a generated question may declare
	// (default: 5).
	MaxTables int

	// MaxRows is the total sample-row budget stated in the prompt
	// (default: 100).
	MaxRows int

	// Logger receives generation pipeline events (default: slog.Default()).
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 768
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.MaxTables == 0 {
		c.MaxTables = 5
	}
	if c.MaxRows == 0 {
		c.MaxRows = 100
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Params select what kind of question to generate. CustomPrompt, when
// set, replaces the canned domain with a learner-described topic.
type Params struct {
	Difficulty   api.Difficulty
	Domain       string
	CustomPrompt string
}

// Result is a successful generation: the question, the namespace its
// dataset lives in, and the reference query's precomputed result.
type Result struct {
	Question  *api.Question
	Namespace string
	Expected  *api.ExecutionResult
}

// Generator drives the generation pipeline.
type Generator struct {
	provider provider.Provider
	sandbox  sandbox.Sandbox
	cfg      Config
	logger   *slog.Logger
}

// New creates a Generator on top of a model backend and a sandbox.
func New(p provider.Provider, sb sandbox.Sandbox, cfg Config) *Generator {
	cfg.defaults()
	return &Generator{provider: p, sandbox: sb, cfg: cfg, logger: cfg.Logger}
}

// Generate runs the full pipeline and returns a materialized question.
// Errors carry the api taxonomy: generation_unavailable when the
// backend stays unreachable, malformed_generation when its output can't
// be parsed or validated, setup_execution_error when the question's own
// SQL fails, provisioning_error when no namespace could be allocated.
func (g *Generator) Generate(ctx context.Context, params Params) (*Result, error) {
	difficulty := params.Difficulty.OrDefault()

	start := time.Now()
	res, err := g.generate(ctx, difficulty, params)

	status := "ok"
	if err != nil {
		status = errorStatus(err)
	}
	observability.GenerationsTotal.WithLabelValues(string(difficulty), status).Inc()
	observability.GenerationDuration.WithLabelValues(string(difficulty)).Observe(time.Since(start).Seconds())

	return res, err
}

func (g *Generator) generate(ctx context.Context, difficulty api.Difficulty, params Params) (*Result, error) {
	var prompt string
	if params.CustomPrompt != "" {
		prompt = buildCustomPrompt(params.CustomPrompt, difficulty, g.cfg.MaxRows)
	} else {
		domain := params.Domain
		if domain == "" {
			domain = domains[rand.IntN(len(domains))]
		}
		prompt = buildPrompt(difficulty, domain, g.cfg.MaxRows)
	}

	raw, err := g.invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}
	debug.Log("generator", "model responded", "bytes", len(raw))
	debug.Raw("generator", raw)

	question, err := g.parse(raw, difficulty)
	if err != nil {
		return nil, err
	}

	return g.materialize(ctx, question)
}

// invoke calls the model backend, retrying transport failures with
// doubling backoff. Exhausting the attempts means the backend is down.
func (g *Generator) invoke(ctx context.Context, prompt string) (string, error) {
	req := provider.GenerationRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
		JSONOnly:    true,
	}

	var lastErr error
	backoff := g.cfg.RetryBackoff

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("model call failed, retrying",
				"attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", api.NewGenerationUnavailableError(
					fmt.Sprintf("model backend unavailable: %s", ctx.Err()))
			}
			backoff *= 2
		}

		raw, err := g.provider.Generate(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}

	return "", api.NewGenerationUnavailableError(
		fmt.Sprintf("model backend unavailable after %d attempts: %s",
			g.cfg.MaxRetries+1, lastErr))
}

// questionPayload is the wire shape the prompt instructs the model to emit.
type questionPayload struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Tables          []tablePayload `json:"tables"`
	SetupSQL        string         `json:"setup_sql"`
	ExpectedQuery   string         `json:"expected_query"`
	ExpectedColumns []string       `json:"expected_columns"`
	Hints           []string       `json:"hints"`
}

type tablePayload struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	SampleData [][]any  `json:"sample_data"`
}

// parse repairs, decodes and validates raw model output into a Question.
func (g *Generator) parse(raw string, difficulty api.Difficulty) (*api.Question, error) {
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return nil, api.NewMalformedGenerationError(err.Error())
	}

	var payload questionPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, api.NewMalformedGenerationError(
			fmt.Sprintf("model output is not valid JSON: %s", err))
	}

	question := &api.Question{
		Title:           payload.Title,
		Description:     payload.Description,
		Difficulty:      difficulty,
		SetupSQL:        payload.SetupSQL,
		ExpectedQuery:   payload.ExpectedQuery,
		ExpectedColumns: payload.ExpectedColumns,
		Hints:           payload.Hints,
	}
	for _, tbl := range payload.Tables {
		question.Tables = append(question.Tables, api.TableSpec{
			Name:       tbl.Name,
			Columns:    tbl.Columns,
			SampleRows: tbl.SampleData,
		})
	}

	if err := g.validateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

// materialize allocates a namespace, loads the question's dataset into
// it and precomputes the reference query's result. Every failure path
// tears the namespace back down before returning.
func (g *Generator) materialize(ctx context.Context, question *api.Question) (*Result, error) {
	namespace, err := g.sandbox.CreateNamespace(ctx)
	if err != nil {
		return nil, err
	}

	setupRes, err := g.sandbox.ExecuteScript(ctx, namespace, question.SetupSQL)
	if err != nil {
		g.destroy(ctx, namespace)
		return nil, err
	}
	if !setupRes.Success {
		g.destroy(ctx, namespace)
		if setupRes.TimedOut {
			return nil, api.NewExecutionTimeoutError(
				fmt.Sprintf("question setup SQL timed out: %s", setupRes.Error))
		}
		return nil, api.NewSetupExecutionError(
			fmt.Sprintf("question setup SQL failed: %s", setupRes.Error))
	}

	expected, err := g.sandbox.Execute(ctx, namespace, question.ExpectedQuery, sandbox.ExecOptions{})
	if err != nil {
		g.destroy(ctx, namespace)
		return nil, err
	}
	if !expected.Success {
		g.destroy(ctx, namespace)
		if expected.TimedOut {
			return nil, api.NewExecutionTimeoutError(
				fmt.Sprintf("reference query timed out against its own dataset: %s", expected.Error))
		}
		return nil, api.NewSetupExecutionError(
			fmt.Sprintf("reference query failed against its own dataset: %s", expected.Error))
	}

	g.logger.Info("question generated",
		"title", question.Title,
		"difficulty", question.Difficulty,
		"namespace", namespace,
		"tables", len(question.Tables),
		"expected_rows", expected.RowCount)

	return &Result{Question: question, Namespace: namespace, Expected: expected}, nil
}

func (g *Generator) destroy(ctx context.Context, namespace string) {
	if err := g.sandbox.DestroyNamespace(ctx, namespace); err != nil {
		g.logger.Error("destroying namespace after failed generation",
			"namespace", namespace, "error", err)
	}
}

func errorStatus(err error) string {
	if apiErr, ok := err.(*api.APIError); ok {
		return string(apiErr.Type)
	}
	return "error"
}
