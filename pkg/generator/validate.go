package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqlgym/sqlgym/pkg/api"
)

var (
	// FROM/JOIN targets; a trailing "(" marks a set-returning function
	// call, not a table reference.
	tableRefRe = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_.]*)(\s*\()?`)

	// CTE names declared as "name AS (".
	cteNameRe = regexp.MustCompile(`(?i)\b([a-zA-Z_][a-zA-Z0-9_]*)\s+as\s*\(`)
)

// validateQuestion checks the structural invariants the execution step
// can't defer: required fields present, table budget respected, and
// every table the reference query reads declared in the table list.
// Full SQL validity is deliberately left to execution. Zero tables and
// zero hints are valid — not every question needs either.
func (g *Generator) validateQuestion(q *api.Question) error {
	var missing []string
	if strings.TrimSpace(q.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(q.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(q.SetupSQL) == "" {
		missing = append(missing, "setup_sql")
	}
	if strings.TrimSpace(q.ExpectedQuery) == "" {
		missing = append(missing, "expected_query")
	}
	if len(missing) > 0 {
		return api.NewMalformedGenerationError(
			fmt.Sprintf("model output missing required fields: %s", strings.Join(missing, ", ")))
	}

	if len(q.Tables) > g.cfg.MaxTables {
		return api.NewMalformedGenerationError(
			fmt.Sprintf("model declared %d tables, limit is %d", len(q.Tables), g.cfg.MaxTables))
	}

	upper := strings.ToUpper(strings.TrimSpace(q.ExpectedQuery))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return api.NewMalformedGenerationError(
			fmt.Sprintf("expected_query does not look like a query: %.60q", q.ExpectedQuery))
	}

	if len(q.Tables) > 0 {
		if err := checkTableRefs(q); err != nil {
			return err
		}
	}

	return nil
}

// checkTableRefs verifies that every table the reference query reads
// from is declared in the question's table list, ignoring CTE names and
// schema-qualified references.
func checkTableRefs(q *api.Question) error {
	declared := make(map[string]bool, len(q.Tables))
	for _, t := range q.Tables {
		declared[strings.ToLower(t.Name)] = true
	}

	ctes := make(map[string]bool)
	for _, m := range cteNameRe.FindAllStringSubmatch(q.ExpectedQuery, -1) {
		ctes[strings.ToLower(m[1])] = true
	}

	for _, m := range tableRefRe.FindAllStringSubmatch(q.ExpectedQuery, -1) {
		name := strings.ToLower(m[1])
		if m[2] != "" || strings.Contains(name, ".") || ctes[name] {
			continue
		}
		if !declared[name] {
			return api.NewMalformedGenerationError(
				fmt.Sprintf("expected_query references table %q which is not in the table list", name))
		}
	}

	return nil
}
