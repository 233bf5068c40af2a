package sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Render inlines the statement's arguments into its SQL text using the
// canonical literal encoding:
//
//	text        $$value$$ (a tagged $q$ delimiter when the value contains $$)
//	[]int64     ARRAY[1, 2] or ARRAY[]::bigint[]
//	[]string    ARRAY[$$a$$, $$b$$] or ARRAY[]::text[]
//	time.Time   'YYYY-MM-DD' for dates, RFC 3339 otherwise
//	nil         NULL
func Render(s Statement) string {
	var b strings.Builder
	sqlText := s.SQL
	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]
		if c != '$' || i+1 >= len(sqlText) || !isDigit(sqlText[i+1]) {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(sqlText) && isDigit(sqlText[j]) {
			j++
		}
		n, _ := strconv.Atoi(sqlText[i+1 : j])
		if n < 1 || n > len(s.Args) {
			b.WriteString(sqlText[i:j])
		} else {
			b.WriteString(Literal(s.Args[n-1]))
		}
		i = j - 1
	}
	return b.String()
}

// Literal renders a single value the way Render does.
func Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return DollarQuote(val)
	case *string:
		if val == nil {
			return "NULL"
		}
		return DollarQuote(*val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case *int64:
		if val == nil {
			return "NULL"
		}
		return strconv.FormatInt(*val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + formatTime(val) + "'"
	case *time.Time:
		if val == nil {
			return "NULL"
		}
		return "'" + formatTime(*val) + "'"
	case []int64:
		if len(val) == 0 {
			return "ARRAY[]::bigint[]"
		}
		parts := make([]string, len(val))
		for i, n := range val {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return "ARRAY[" + strings.Join(parts, ", ") + "]"
	case []string:
		if len(val) == 0 {
			return "ARRAY[]::text[]"
		}
		parts := make([]string, len(val))
		for i, s := range val {
			parts[i] = DollarQuote(s)
		}
		return "ARRAY[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}

// DollarQuote wraps s in PostgreSQL dollar quotes, picking a tag that does not
// occur inside s.
func DollarQuote(s string) string {
	if !strings.Contains(s, "$$") && !strings.HasSuffix(s, "$") {
		return "$$" + s + "$$"
	}
	for n := 0; ; n++ {
		tag := "$q$"
		if n > 0 {
			tag = "$q" + strconv.Itoa(n) + "$"
		}
		if !strings.Contains(s, tag) {
			return tag + s + tag
		}
	}
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
