// Package compare decides whether a learner's query results match the
// expected results of a practice question.
//
// Row order is ignored (SQL result order is unspecified without ORDER
// BY) but duplicates matter, so rows are compared as multisets. Column
// names are compared as case-insensitive sets. NULL is normalized to a
// sentinel so that two NULLs count as the same multiset member instead
// of inheriting SQL's NULL-never-equals-NULL semantics, which would
// make grading ambiguous.
package compare

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sqlgym/sqlgym/pkg/api"
)

// Compare grades a candidate ExecutionResult against the expected one
// and returns the full CheckOutcome: verdict, both result sets for
// display, and the row-diff count.
//
// A candidate that failed to execute is graded incorrect with the
// database error attached; no row comparison is attempted.
func Compare(candidate, expected *api.ExecutionResult) api.CheckOutcome {
	if !candidate.Success {
		return api.CheckOutcome{
			Correct:         false,
			Error:           candidate.Error,
			ExpectedColumns: expected.Columns,
			ExpectedRows:    expected.Rows,
		}
	}

	columnsMatch := equalColumnSets(candidate.Columns, expected.Columns)
	rowDiff := multisetDiff(candidate.Rows, expected.Rows)

	return api.CheckOutcome{
		Correct:          columnsMatch && rowDiff == 0,
		CandidateColumns: candidate.Columns,
		CandidateRows:    candidate.Rows,
		ExpectedColumns:  expected.Columns,
		ExpectedRows:     expected.Rows,
		RowDiff:          rowDiff,
	}
}

// equalColumnSets compares column name lists as case-insensitive sets.
// Positions are irrelevant; Postgres lowercases unquoted identifiers
// anyway, so "Name" and "name" are the same column.
func equalColumnSets(a, b []string) bool {
	normalize := func(cols []string) []string {
		out := make([]string, 0, len(cols))
		seen := make(map[string]bool, len(cols))
		for _, c := range cols {
			lc := strings.ToLower(c)
			if !seen[lc] {
				seen[lc] = true
				out = append(out, lc)
			}
		}
		sort.Strings(out)
		return out
	}

	na, nb := normalize(a), normalize(b)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

// multisetDiff returns the size of the symmetric difference between the
// two row multisets: rows present on one side but not the other, counted
// on both sides.
func multisetDiff(a, b [][]any) int {
	counts := make(map[string]int, len(a))
	for _, row := range a {
		counts[encodeRow(row)]++
	}
	for _, row := range b {
		counts[encodeRow(row)]--
	}

	diff := 0
	for _, n := range counts {
		if n < 0 {
			n = -n
		}
		diff += n
	}
	return diff
}

// encodeRow produces a canonical string key for one row so rows can be
// counted in a map. Cells are joined with an unit separator, which
// cannot appear in the per-cell encodings' type prefixes.
func encodeRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = encodeValue(v)
	}
	return strings.Join(parts, "\x1f")
}

// encodeValue canonicalizes one scalar. Type prefixes keep the string
// "true" distinct from the boolean true and NULL distinct from the
// string "NULL". Integral floats encode like integers so a SUM()
// returning 42.0 matches a COUNT() returning 42.
func encodeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00null"
	case bool:
		return "b:" + strconv.FormatBool(t)
	case int64:
		return "n:" + strconv.FormatInt(t, 10)
	case int:
		return "n:" + strconv.Itoa(t)
	case int32:
		return "n:" + strconv.FormatInt(int64(t), 10)
	case float64:
		return "n:" + formatFloat(t)
	case float32:
		return "n:" + formatFloat(float64(t))
	case string:
		return "s:" + t
	default:
		return "v:" + fmt.Sprint(t)
	}
}

// maxExactInt is the largest float64 magnitude at which every integer
// is still exactly representable.
const maxExactInt = 1 << 53

func formatFloat(f float64) string {
	if f == float64(int64(f)) && f > -maxExactInt && f < maxExactInt {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
