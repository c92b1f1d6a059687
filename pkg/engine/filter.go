package engine

import (
	"cmp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/frameport/frameport/pkg/errors"
)

// filter materializes the rows of tbl that satisfy every predicate, in
// order, truncated to limit when limit > 0. Predicates evaluate as a
// conjunction; a null cell fails every comparison.
func (e *Engine) filter(tbl arrow.Table, preds []Predicate, limit int64) (arrow.Table, error) {
	n := int(tbl.NumRows())
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}

	for _, p := range preds {
		if err := applyPredicate(tbl, p, mask); err != nil {
			return nil, err
		}
	}

	if limit > 0 {
		var kept int64
		for i := range mask {
			if !mask[i] {
				continue
			}
			kept++
			if kept > limit {
				mask[i] = false
			}
		}
	}

	return e.take(tbl, mask)
}

// applyPredicate ANDs one predicate's result into mask. The literal's type
// must match the column's type exactly; no coercion.
func applyPredicate(tbl arrow.Table, p Predicate, mask []bool) error {
	sc := tbl.Schema()
	idx := sc.FieldIndices(p.Column)
	if len(idx) == 0 {
		return errors.Newf(errors.ErrorTypeColumnNotFound, "filter column %q not found", p.Column)
	}
	chunked := tbl.Column(idx[0]).Data()

	mismatch := func() error {
		return errors.Newf(errors.ErrorTypeTypeMismatch,
			"filter literal %T does not match column %q of type %s",
			p.Value, p.Column, sc.Field(idx[0]).Type)
	}

	switch sc.Field(idx[0]).Type.ID() {
	case arrow.INT64:
		lit, ok := p.Value.(int64)
		if !ok {
			return mismatch()
		}
		evalChunks(chunked, mask, func(a arrow.Array, i int) bool {
			return cmpOrdered(p.Op, a.(*array.Int64).Value(i), lit)
		})
	case arrow.INT32:
		lit, ok := p.Value.(int32)
		if !ok {
			return mismatch()
		}
		evalChunks(chunked, mask, func(a arrow.Array, i int) bool {
			return cmpOrdered(p.Op, a.(*array.Int32).Value(i), lit)
		})
	case arrow.UINT64:
		lit, ok := p.Value.(uint64)
		if !ok {
			return mismatch()
		}
		evalChunks(chunked, mask, func(a arrow.Array, i int) bool {
			return cmpOrdered(p.Op, a.(*array.Uint64).Value(i), lit)
		})
	case arrow.FLOAT64:
		lit, ok := p.Value.(float64)
		if !ok {
			return mismatch()
		}
		evalChunks(chunked, mask, func(a arrow.Array, i int) bool {
			return cmpOrdered(p.Op, a.(*array.Float64).Value(i), lit)
		})
	case arrow.FLOAT32:
		lit, ok := p.Value.(float32)
		if !ok {
			return mismatch()
		}
		evalChunks(chunked, mask, func(a arrow.Array, i int) bool {
			return cmpOrdered(p.Op, a.(*array.Float32).Value(i), lit)
		})
	case arrow.STRING:
		lit, ok := p.Value.(string)
		if !ok {
			return mismatch()
		}
		evalChunks(chunked, mask, func(a arrow.Array, i int) bool {
			return cmpOrdered(p.Op, a.(*array.String).Value(i), lit)
		})
	case arrow.BOOL:
		lit, ok := p.Value.(bool)
		if !ok {
			return mismatch()
		}
		evalChunks(chunked, mask, func(a arrow.Array, i int) bool {
			return cmpOrdered(p.Op, boolOrd(a.(*array.Boolean).Value(i)), boolOrd(lit))
		})
	case arrow.TIMESTAMP:
		lit, ok := p.Value.(arrow.Timestamp)
		if !ok {
			return mismatch()
		}
		evalChunks(chunked, mask, func(a arrow.Array, i int) bool {
			return cmpOrdered(p.Op, a.(*array.Timestamp).Value(i), lit)
		})
	default:
		return errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q of type %s cannot be filtered", p.Column, sc.Field(idx[0]).Type)
	}
	return nil
}

// evalChunks walks every row of a chunked column, ANDing eval's result into
// mask. Null cells fail the comparison.
func evalChunks(chunked *arrow.Chunked, mask []bool, eval func(arrow.Array, int) bool) {
	row := 0
	for _, arr := range chunked.Chunks() {
		for i := 0; i < arr.Len(); i++ {
			if mask[row] {
				if arr.IsNull(i) {
					mask[row] = false
				} else {
					mask[row] = eval(arr, i)
				}
			}
			row++
		}
	}
}

func cmpOrdered[T cmp.Ordered](op Op, a, b T) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	default:
		return false
	}
}

// boolOrd orders booleans false < true
func boolOrd(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// take builds a new table holding the masked rows of tbl
func (e *Engine) take(tbl arrow.Table, mask []bool) (arrow.Table, error) {
	sc := tbl.Schema()
	kept := int64(0)
	for _, m := range mask {
		if m {
			kept++
		}
	}

	cols := make([]arrow.Column, 0, tbl.NumCols())
	release := func() {
		for i := range cols {
			cols[i].Release()
		}
	}

	for i := 0; i < int(tbl.NumCols()); i++ {
		field := sc.Field(i)
		chunked := tbl.Column(i).Data()

		arr, err := e.takeColumn(field.Type, chunked, mask)
		if err != nil {
			release()
			return nil, err
		}
		out := arrow.NewChunked(field.Type, []arrow.Array{arr})
		arr.Release()
		cols = append(cols, *arrow.NewColumn(field, out))
		out.Release()
	}

	result := array.NewTable(sc, cols, kept)
	release()
	return result, nil
}

func (e *Engine) takeColumn(dt arrow.DataType, chunked *arrow.Chunked, mask []bool) (arrow.Array, error) {
	switch dt.ID() {
	case arrow.INT64:
		b := array.NewInt64Builder(e.mem)
		defer b.Release()
		copyMasked(chunked, mask, func(a arrow.Array, i int) { b.Append(a.(*array.Int64).Value(i)) }, b.AppendNull)
		return b.NewArray(), nil
	case arrow.INT32:
		b := array.NewInt32Builder(e.mem)
		defer b.Release()
		copyMasked(chunked, mask, func(a arrow.Array, i int) { b.Append(a.(*array.Int32).Value(i)) }, b.AppendNull)
		return b.NewArray(), nil
	case arrow.UINT64:
		b := array.NewUint64Builder(e.mem)
		defer b.Release()
		copyMasked(chunked, mask, func(a arrow.Array, i int) { b.Append(a.(*array.Uint64).Value(i)) }, b.AppendNull)
		return b.NewArray(), nil
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(e.mem)
		defer b.Release()
		copyMasked(chunked, mask, func(a arrow.Array, i int) { b.Append(a.(*array.Float64).Value(i)) }, b.AppendNull)
		return b.NewArray(), nil
	case arrow.FLOAT32:
		b := array.NewFloat32Builder(e.mem)
		defer b.Release()
		copyMasked(chunked, mask, func(a arrow.Array, i int) { b.Append(a.(*array.Float32).Value(i)) }, b.AppendNull)
		return b.NewArray(), nil
	case arrow.STRING:
		b := array.NewStringBuilder(e.mem)
		defer b.Release()
		copyMasked(chunked, mask, func(a arrow.Array, i int) { b.Append(a.(*array.String).Value(i)) }, b.AppendNull)
		return b.NewArray(), nil
	case arrow.BOOL:
		b := array.NewBooleanBuilder(e.mem)
		defer b.Release()
		copyMasked(chunked, mask, func(a arrow.Array, i int) { b.Append(a.(*array.Boolean).Value(i)) }, b.AppendNull)
		return b.NewArray(), nil
	case arrow.TIMESTAMP:
		b := array.NewTimestampBuilder(e.mem, dt.(*arrow.TimestampType))
		defer b.Release()
		copyMasked(chunked, mask, func(a arrow.Array, i int) { b.Append(a.(*array.Timestamp).Value(i)) }, b.AppendNull)
		return b.NewArray(), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeEngine, "cannot materialize filtered column of type %s", dt)
	}
}

func copyMasked(chunked *arrow.Chunked, mask []bool, appendVal func(arrow.Array, int), appendNull func()) {
	row := 0
	for _, arr := range chunked.Chunks() {
		for i := 0; i < arr.Len(); i++ {
			if mask[row] {
				if arr.IsNull(i) {
					appendNull()
				} else {
					appendVal(arr, i)
				}
			}
			row++
		}
	}
}
