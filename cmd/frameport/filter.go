package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/frame"
)

var opTokens = map[string]engine.Op{
	"==": engine.OpEq,
	"!=": engine.OpNe,
	"<":  engine.OpLt,
	"<=": engine.OpLe,
	">":  engine.OpGt,
	">=": engine.OpGe,
}

// parseFilter turns a "column op literal" expression into a predicate,
// coercing the literal to the column's schema type. Datetime literals
// accept RFC 3339 or raw milliseconds.
func parseFilter(expr string, sc *arrow.Schema) (engine.Predicate, error) {
	parts := strings.SplitN(strings.TrimSpace(expr), " ", 3)
	if len(parts) != 3 {
		return engine.Predicate{}, fmt.Errorf("filter %q: want \"column op literal\"", expr)
	}
	column, opTok, lit := parts[0], parts[1], strings.TrimSpace(parts[2])

	op, ok := opTokens[opTok]
	if !ok {
		return engine.Predicate{}, fmt.Errorf("filter %q: unknown operator %q", expr, opTok)
	}

	indices := sc.FieldIndices(column)
	if len(indices) == 0 {
		return engine.Predicate{}, fmt.Errorf("filter %q: no column %q", expr, column)
	}
	field := sc.Field(indices[0])

	value, err := coerceLiteral(lit, frame.TagOf(field.Type))
	if err != nil {
		return engine.Predicate{}, fmt.Errorf("filter %q: %w", expr, err)
	}
	return engine.Predicate{Column: column, Op: op, Value: value}, nil
}

func coerceLiteral(lit string, tag frame.TypeTag) (interface{}, error) {
	switch tag {
	case frame.TypeInt64:
		v, err := strconv.ParseInt(lit, 10, 64)
		return v, err
	case frame.TypeInt32:
		v, err := strconv.ParseInt(lit, 10, 32)
		return int32(v), err
	case frame.TypeUint64:
		v, err := strconv.ParseUint(lit, 10, 64)
		return v, err
	case frame.TypeFloat64:
		v, err := strconv.ParseFloat(lit, 64)
		return v, err
	case frame.TypeFloat32:
		v, err := strconv.ParseFloat(lit, 32)
		return float32(v), err
	case frame.TypeString:
		return strings.Trim(lit, `"'`), nil
	case frame.TypeBool:
		v, err := strconv.ParseBool(lit)
		return v, err
	case frame.TypeDateTime:
		if ms, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return arrow.Timestamp(ms), nil
		}
		t, err := time.Parse(time.RFC3339, lit)
		if err != nil {
			return nil, fmt.Errorf("datetime literal %q: want RFC 3339 or milliseconds", lit)
		}
		return arrow.Timestamp(t.UnixMilli()), nil
	default:
		return nil, fmt.Errorf("column type %s cannot be filtered", tag)
	}
}
