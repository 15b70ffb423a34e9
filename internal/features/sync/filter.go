package sync

import (
	"strings"
	"time"

	"go-bms/pkg/fieldpath"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EvaluateFilters reports whether the record passes every condition.
// An empty or absent condition list always includes the record.
func EvaluateFilters(record map[string]interface{}, conditions []FilterCondition) bool {
	for _, cond := range conditions {
		if !evaluateCondition(record, cond) {
			return false
		}
	}
	return true
}

// evaluateCondition is type-guarded: comparisons only happen between
// same-typed values, and a type mismatch makes the condition false
// rather than raising an error.
func evaluateCondition(record map[string]interface{}, cond FilterCondition) bool {
	value, _ := fieldpath.Get(record, cond.Field)

	switch cond.Operator {
	case "eq":
		return equalValues(value, cond.Value)
	case "neq", "ne":
		return comparableValues(value, cond.Value) && !equalValues(value, cond.Value)
	case "gt":
		return orderedCompare(value, cond.Value, func(c int) bool { return c > 0 })
	case "gte":
		return orderedCompare(value, cond.Value, func(c int) bool { return c >= 0 })
	case "lt":
		return orderedCompare(value, cond.Value, func(c int) bool { return c < 0 })
	case "lte":
		return orderedCompare(value, cond.Value, func(c int) bool { return c <= 0 })
	case "in":
		list, ok := toList(cond.Value)
		if !ok {
			return false
		}
		for _, item := range list {
			if equalValues(value, item) {
				return true
			}
		}
		return false
	case "contains":
		return containsValue(value, cond.Value)
	default:
		return false
	}
}

func equalValues(a, b interface{}) bool {
	if af, ok := toNumber(a); ok {
		bf, ok := toNumber(b)
		return ok && af == bf
	}
	if as, ok := a.(string); ok {
		// A string field may still be a date; prefer the date reading
		// when the comparison value is date-like.
		if at, aok := toDate(a); aok {
			if bt, bok := toDate(b); bok {
				return at.Equal(bt)
			}
		}
		bs, ok := b.(string)
		return ok && as == bs
	}
	if at, ok := toDate(a); ok {
		bt, ok := toDate(b)
		return ok && at.Equal(bt)
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	return false
}

func comparableValues(a, b interface{}) bool {
	if _, ok := toNumber(a); ok {
		_, ok := toNumber(b)
		return ok
	}
	if _, ok := toDate(a); ok {
		_, ok := toDate(b)
		return ok
	}
	if _, ok := a.(string); ok {
		_, ok := b.(string)
		return ok
	}
	if _, ok := a.(bool); ok {
		_, ok := b.(bool)
		return ok
	}
	return false
}

// orderedCompare handles gt/gte/lt/lte: number-to-number,
// date-to-date, then string-to-string lexically.
func orderedCompare(a, b interface{}, accept func(int) bool) bool {
	if af, ok := toNumber(a); ok {
		bf, ok := toNumber(b)
		if !ok {
			return false
		}
		switch {
		case af < bf:
			return accept(-1)
		case af > bf:
			return accept(1)
		default:
			return accept(0)
		}
	}

	if at, ok := toDate(a); ok {
		bt, ok := toDate(b)
		if !ok {
			return false
		}
		switch {
		case at.Before(bt):
			return accept(-1)
		case at.After(bt):
			return accept(1)
		default:
			return accept(0)
		}
	}

	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return false
		}
		return accept(strings.Compare(as, bs))
	}

	return false
}

// containsValue: case-insensitive substring for strings, element
// membership for lists.
func containsValue(field, value interface{}) bool {
	if fs, ok := field.(string); ok {
		vs, ok := value.(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(fs), strings.ToLower(vs))
	}

	if list, ok := toList(field); ok {
		for _, item := range list {
			if equalValues(item, value) {
				return true
			}
		}
	}
	return false
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toDate(v interface{}) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case primitive.DateTime:
		return d.Time(), true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func toList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case primitive.A:
		return []interface{}(l), true
	case []string:
		out := make([]interface{}, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
