package invalidate

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator compares a field's resolved value against a condition's
// comparison value.
type Operator int

const (
	OpEQ Operator = iota
	OpNE
	OpGT
	OpLT
	OpGTE
	OpLTE
	OpIN
	OpContains
	OpStartsWith
	OpEndsWith
)

// ChangeTypeField is the reserved field path compared against the
// triggering event's ChangeType.
const ChangeTypeField = "__changeType"

// ChangeType identifies the kind of mutation that triggered an
// entity-change invalidation.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Condition is one clause of a Rule's condition list. FieldPath uses
// dot notation to navigate nested maps within entity data.
type Condition struct {
	FieldPath string
	Operator  Operator
	Value     any
}

// evaluate resolves c.FieldPath against data (and changeType for the
// reserved __changeType field) and applies c.Operator.
func (c Condition) evaluate(data map[string]any, changeType ChangeType) bool {
	var actual any
	if c.FieldPath == ChangeTypeField {
		actual = string(changeType)
	} else {
		actual = resolvePath(data, c.FieldPath)
	}
	return compare(actual, c.Operator, c.Value)
}

// resolvePath walks dot-separated segments through nested maps.
func resolvePath(data map[string]any, path string) any {
	segments := strings.Split(path, ".")
	var cur any = data
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}

func compare(actual any, op Operator, want any) bool {
	if want == nil {
		switch op {
		case OpEQ:
			return actual == nil
		case OpNE:
			return actual != nil
		}
	}
	switch op {
	case OpEQ:
		return actual != nil && fmt.Sprint(actual) == fmt.Sprint(want)
	case OpNE:
		return actual == nil || fmt.Sprint(actual) != fmt.Sprint(want)
	case OpGT, OpLT, OpGTE, OpLTE:
		a, aok := asFloat(actual)
		b, bok := asFloat(want)
		if !aok || !bok {
			return false
		}
		switch op {
		case OpGT:
			return a > b
		case OpLT:
			return a < b
		case OpGTE:
			return a >= b
		default:
			return a <= b
		}
	case OpIN:
		list, ok := want.([]any)
		if !ok {
			return false
		}
		for _, v := range list {
			if fmt.Sprint(v) == fmt.Sprint(actual) {
				return true
			}
		}
		return false
	case OpContains:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		return strings.Contains(s, fmt.Sprint(want))
	case OpStartsWith:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		return strings.HasPrefix(s, fmt.Sprint(want))
	case OpEndsWith:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		return strings.HasSuffix(s, fmt.Sprint(want))
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
