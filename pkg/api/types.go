package api

// Difficulty controls how elaborate a generated question is: how many
// tables it spans and which SQL features the reference query exercises.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// MaxTables returns the table budget for questions of this difficulty.
func (d Difficulty) MaxTables() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyHard:
		return 5
	default:
		return 3
	}
}

// TableSpec describes one table of a practice question: the table name,
// its column definitions as they appear in the setup SQL
// (e.g. "id SERIAL PRIMARY KEY", "name TEXT NOT NULL"), and a few
// sample rows so learners can see the data shape without querying.
type TableSpec struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	SampleRows [][]any  `json:"sample_data,omitempty"`
}

// Question is a fully materialized practice question. SetupSQL creates
// and populates the tables; ExpectedQuery is the reference solution run
// once at generation time to precompute the expected results. Hints are
// ordered from vaguest to most revealing.
type Question struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Difficulty      Difficulty  `json:"difficulty"`
	Tables          []TableSpec `json:"tables"`
	SetupSQL        string      `json:"setup_sql"`
	ExpectedQuery   string      `json:"expected_query"`
	ExpectedColumns []string    `json:"expected_columns"`
	Hints           []string    `json:"hints"`
}

// ExecutionResult is the outcome of running one SQL statement inside a
// sandbox. Rows hold serialized scalar values only. RowCount is the
// full result size even when Rows was truncated to the row limit.
// A failed execution carries the database error text in Error and
// leaves Columns and Rows empty; TimedOut marks failures caused by the
// statement timeout rather than by the SQL itself.
type ExecutionResult struct {
	Success    bool     `json:"success"`
	Columns    []string `json:"columns,omitempty"`
	Rows       [][]any  `json:"rows,omitempty"`
	RowCount   int      `json:"row_count"`
	Truncated  bool     `json:"truncated,omitempty"`
	TimedOut   bool     `json:"timed_out,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS float64  `json:"duration_ms,omitempty"`
}

// CheckOutcome is the verdict of checking a learner's answer. Both the
// candidate and expected sides are included so clients can render a
// diff. RowDiff is the size of the symmetric difference between the two
// row multisets, so zero means the result sets match exactly. When
// the candidate SQL failed to execute, Correct is false and Error
// carries the database error.
type CheckOutcome struct {
	Correct          bool     `json:"correct"`
	CandidateColumns []string `json:"candidate_columns,omitempty"`
	CandidateRows    [][]any  `json:"candidate_rows,omitempty"`
	ExpectedColumns  []string `json:"expected_columns,omitempty"`
	ExpectedRows     [][]any  `json:"expected_rows,omitempty"`
	RowDiff          int      `json:"row_diff"`
	Error            string   `json:"error,omitempty"`
}

// GenerateRequest asks for a new practice question. Difficulty defaults
// to medium; Domain optionally pins the business domain (otherwise one
// is picked at random).
type GenerateRequest struct {
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Domain     string     `json:"domain,omitempty"`
}

// GenerateCustomRequest asks for a practice question built around a
// learner-supplied topic instead of a canned domain.
type GenerateCustomRequest struct {
	Prompt     string     `json:"prompt"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// SessionResponse is the public view of a freshly created practice
// session. The reference query and expected results stay server-side.
type SessionResponse struct {
	SessionID   string      `json:"session_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Difficulty  Difficulty  `json:"difficulty"`
	Tables      []TableSpec `json:"tables"`
	HintCount   int         `json:"hint_count"`
	Namespace   string      `json:"namespace"`
}

// CheckRequest submits a learner's SQL for verification against the
// session's expected results.
type CheckRequest struct {
	SessionID string `json:"session_id"`
	SQL       string `json:"sql"`
}

// HintResponse carries every hint revealed so far, vaguest first, so a
// client that lost state gets the full list back. TotalHints lets
// clients show "2 of 3 hints used".
type HintResponse struct {
	Hints         []string `json:"hints"`
	RevealedCount int      `json:"revealed_count"`
	TotalHints    int      `json:"total_hints"`
}

// DeleteResponse acknowledges session teardown. Deleting an unknown or
// already-deleted session is not an error.
type DeleteResponse struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

// ExecuteRequest runs ad-hoc SQL, either inside an existing practice
// namespace or against a scratch sandbox when Namespace is empty.
type ExecuteRequest struct {
	SQL       string `json:"sql"`
	Namespace string `json:"namespace,omitempty"`
}
