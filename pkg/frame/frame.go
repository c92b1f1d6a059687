// Package frame implements the owning table handle and its zero-copy chunk
// views.
//
// A Frame exclusively owns one loaded table. Chunks borrowed from it stay
// valid until the frame is closed or rechunked, whichever comes first; every
// chunk carries the generation it was issued under and Rechunk bumps the
// generation, so stale chunks are detectable. A Frame is not safe for
// concurrent mutation: callers must serialize Rechunk against any chunk
// read, or treat the frame as owned by a single goroutine.
package frame

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/logger"
)

// Frame exclusively owns one loaded table: a set of named, typed columns of
// equal length. Column names are unique; order is the source schema order,
// or projection order when projected.
type Frame struct {
	tbl    arrow.Table
	mem    memory.Allocator
	gen    uint64
	closed bool
}

// Open loads a parquet file into a frame using the default engine.
func Open(ctx context.Context, path string) (*Frame, error) {
	return OpenWith(ctx, engine.Default, path)
}

// OpenProjected loads only the named columns, in the requested order.
func OpenProjected(ctx context.Context, path string, columns []string) (*Frame, error) {
	return OpenProjectedWith(ctx, engine.Default, path, columns)
}

// OpenWith loads a parquet file through a specific engine.
func OpenWith(ctx context.Context, eng *engine.Engine, path string) (*Frame, error) {
	tbl, err := eng.Scan(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened frame", zap.String("path", path), zap.Int64("rows", tbl.NumRows()))
	return FromTable(tbl, eng.Allocator()), nil
}

// OpenProjectedWith loads only the named columns through a specific engine.
func OpenProjectedWith(ctx context.Context, eng *engine.Engine, path string, columns []string) (*Frame, error) {
	tbl, err := eng.Scan(ctx, path, columns)
	if err != nil {
		return nil, err
	}
	return FromTable(tbl, eng.Allocator()), nil
}

// FromTable wraps an arrow table in a frame. Ownership of the table moves
// into the frame; the caller must not release it.
func FromTable(tbl arrow.Table, mem memory.Allocator) *Frame {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Frame{tbl: tbl, mem: mem}
}

// Close releases the frame's storage, invalidating every chunk borrowed
// from it. Safe to call more than once.
func (f *Frame) Close() {
	if f.closed {
		return
	}
	f.closed = true
	f.gen++
	f.tbl.Release()
}

// NumRows returns the row count
func (f *Frame) NumRows() int64 {
	return f.tbl.NumRows()
}

// NumCols returns the column count
func (f *Frame) NumCols() int64 {
	return f.tbl.NumCols()
}

// Columns reports name and type for every column, in column order
func (f *Frame) Columns() []ColumnInfo {
	sc := f.tbl.Schema()
	infos := make([]ColumnInfo, sc.NumFields())
	for i := range infos {
		infos[i] = ColumnInfo{
			Name: sc.Field(i).Name,
			Type: TagOf(sc.Field(i).Type),
		}
	}
	return infos
}

// NullCount returns the number of absent values in a column. Typed
// extraction collapses absences into zero values, so callers that need the
// distinction check this first.
func (f *Frame) NullCount(name string) (int64, error) {
	chunked, _, err := f.column(name)
	if err != nil {
		return 0, err
	}
	var nulls int64
	for _, arr := range chunked.Chunks() {
		nulls += int64(arr.NullN())
	}
	return nulls, nil
}

// Rechunk compacts each column that is split across multiple chunks into a
// single contiguous chunk. It returns whether any compaction occurred. When
// it returns true the frame's generation advances and every previously
// issued chunk is invalid: compaction relocates backing storage. This is
// the frame's only mutating operation.
func (f *Frame) Rechunk() bool {
	sc := f.tbl.Schema()
	ncols := int(f.tbl.NumCols())
	changed := false

	cols := make([]arrow.Column, 0, ncols)
	for i := 0; i < ncols; i++ {
		field := sc.Field(i)
		chunks := f.tbl.Column(i).Data().Chunks()

		var chunked *arrow.Chunked
		if len(chunks) > 1 {
			merged, err := array.Concatenate(chunks, f.mem)
			if err != nil {
				// Concatenation failure leaves the column as-is.
				logger.Warn("rechunk failed for column",
					zap.String("column", field.Name), zap.Error(err))
				chunked = arrow.NewChunked(field.Type, chunks)
			} else {
				chunked = arrow.NewChunked(field.Type, []arrow.Array{merged})
				merged.Release()
				changed = true
			}
		} else {
			chunked = arrow.NewChunked(field.Type, chunks)
		}

		cols = append(cols, *arrow.NewColumn(field, chunked))
		chunked.Release()
	}

	if !changed {
		for i := range cols {
			cols[i].Release()
		}
		return false
	}

	next := array.NewTable(sc, cols, f.tbl.NumRows())
	for i := range cols {
		cols[i].Release()
	}
	f.tbl.Release()
	f.tbl = next
	f.gen++
	logger.Debug("rechunked frame", zap.Uint64("generation", f.gen))
	return true
}

// column resolves a name to its chunked storage and field index
func (f *Frame) column(name string) (*arrow.Chunked, int, error) {
	idx := f.tbl.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, 0, errors.Newf(errors.ErrorTypeColumnNotFound, "column %q not found", name)
	}
	return f.tbl.Column(idx[0]).Data(), idx[0], nil
}

// typedColumn resolves a name and rejects the lookup unless the column's
// reported type matches the requested tag. No coercion. Unknown is not an
// accessible tag, so columns outside the supported type set are unreachable
// through typed access even when the requested tag agrees.
func (f *Frame) typedColumn(name string, tag TypeTag) (*arrow.Chunked, error) {
	chunked, idx, err := f.column(name)
	if err != nil {
		return nil, err
	}
	if tag == TypeUnknown {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q: type %s has no typed access", name, f.tbl.Schema().Field(idx).Type)
	}
	actual := TagOf(f.tbl.Schema().Field(idx).Type)
	if actual != tag {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q is %s, not %s", name, actual, tag)
	}
	return chunked, nil
}
