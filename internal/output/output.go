// Package output renders frames for the inspection CLI as tables, CSV or
// JSON lines, optionally compressed by destination file extension.
package output

import (
	"fmt"
	"time"

	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/frame"
)

// Formatter renders a whole frame to its destination
type Formatter interface {
	Format(f *frame.Frame) error
}

// columnValues reads one column as boxed values. Datetime columns come
// back as time.Time in UTC; unsupported columns as nils so a frame with
// exotic source types still renders.
func columnValues(f *frame.Frame, c frame.ColumnInfo) ([]interface{}, error) {
	box := func(n int, get func(i int) interface{}) []interface{} {
		out := make([]interface{}, n)
		for i := range out {
			out[i] = get(i)
		}
		return out
	}

	switch c.Type {
	case frame.TypeInt64:
		v, err := f.Int64s(c.Name)
		if err != nil {
			return nil, err
		}
		return box(len(v), func(i int) interface{} { return v[i] }), nil
	case frame.TypeInt32:
		v, err := f.Int32s(c.Name)
		if err != nil {
			return nil, err
		}
		return box(len(v), func(i int) interface{} { return v[i] }), nil
	case frame.TypeUint64:
		v, err := f.Uint64s(c.Name)
		if err != nil {
			return nil, err
		}
		return box(len(v), func(i int) interface{} { return v[i] }), nil
	case frame.TypeFloat64:
		v, err := f.Float64s(c.Name)
		if err != nil {
			return nil, err
		}
		return box(len(v), func(i int) interface{} { return v[i] }), nil
	case frame.TypeFloat32:
		v, err := f.Float32s(c.Name)
		if err != nil {
			return nil, err
		}
		return box(len(v), func(i int) interface{} { return v[i] }), nil
	case frame.TypeString:
		v, err := f.Strings(c.Name)
		if err != nil {
			return nil, err
		}
		return box(len(v), func(i int) interface{} { return v[i] }), nil
	case frame.TypeBool:
		v, err := f.Bools(c.Name)
		if err != nil {
			return nil, err
		}
		return box(len(v), func(i int) interface{} { return v[i] }), nil
	case frame.TypeDateTime:
		v, err := f.DateTimes(c.Name)
		if err != nil {
			return nil, err
		}
		return box(len(v), func(i int) interface{} {
			return time.UnixMilli(v[i]).UTC()
		}), nil
	case frame.TypeUnknown:
		return make([]interface{}, int(f.NumRows())), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q has unrenderable tag %d", c.Name, c.Type)
	}
}

// frameRows materializes the frame column by column and returns the header
// plus one boxed-value slice per row, in column order.
func frameRows(f *frame.Frame) ([]string, [][]interface{}, error) {
	cols := f.Columns()
	header := make([]string, len(cols))
	byCol := make([][]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.Name
		vals, err := columnValues(f, c)
		if err != nil {
			return nil, nil, err
		}
		byCol[i] = vals
	}

	rows := make([][]interface{}, int(f.NumRows()))
	for r := range rows {
		row := make([]interface{}, len(cols))
		for c := range cols {
			row[c] = byCol[c][r]
		}
		rows[r] = row
	}
	return header, rows, nil
}

// formatCell renders one boxed value for text destinations
func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case float32:
		return fmt.Sprintf("%g", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%d", val)
	}
}
