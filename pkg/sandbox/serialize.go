package sandbox

import (
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// serializeValue converts a driver value into a JSON-friendly scalar.
// Primitives pass through; dates render without a time component when
// the clock part is zero; everything else falls back to its string
// rendering, mirroring what a psql user would see.
func serializeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool, string, int64, float64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	case time.Time:
		return formatTime(t)
	case pgtype.Numeric:
		return serializeNumeric(t)
	case [16]byte: // uuid
		return fmt.Sprintf("%x-%x-%x-%x-%x", t[0:4], t[4:6], t[6:8], t[8:10], t[10:16])
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = serializeValue(e)
		}
		return out
	default:
		return fmt.Sprint(t)
	}
}

// formatTime renders DATE columns as plain dates and everything else as
// RFC 3339. pgx returns both as time.Time; a zero clock in UTC is how a
// DATE comes back.
func formatTime(t time.Time) string {
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// serializeNumeric converts NUMERIC/DECIMAL values to float64 so that
// aggregates over DECIMAL columns compare naturally against integer or
// float literals in learner queries. Values outside float64 range fall
// back to exact decimal text.
func serializeNumeric(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	if n.NaN {
		return "NaN"
	}

	f, err := n.Float64Value()
	if err == nil && f.Valid {
		return f.Float64
	}

	// big.Int coefficient with a decimal exponent; render exactly.
	return fmt.Sprintf("%se%d", new(big.Int).Set(n.Int).String(), n.Exp)
}
