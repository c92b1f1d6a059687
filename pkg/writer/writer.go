// Package writer implements the append-only column accumulator.
//
// Columns are added one at a time under a name; Finish assembles them into
// a single table in first-insertion order and hands it to the engine's
// persist operation. Adding the same name twice replaces the data but keeps
// the name's original position: the order list inserts only when absent
// while the backing map always upserts.
package writer

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/frame"
	"github.com/frameport/frameport/pkg/logger"
)

// Writer accumulates named columns and persists them as one parquet file.
// Not safe for concurrent use.
type Writer struct {
	eng      *engine.Engine
	mem      memory.Allocator
	path     string
	opts     engine.Options
	order    []string
	columns  map[string]arrow.Array
	finished bool
}

// New creates a writer targeting a parquet file path
func New(path string, opts engine.Options) *Writer {
	return NewWith(engine.Default, path, opts)
}

// NewWith creates a writer bound to a specific engine
func NewWith(eng *engine.Engine, path string, opts engine.Options) *Writer {
	return &Writer{
		eng:     eng,
		mem:     eng.Allocator(),
		path:    path,
		opts:    opts,
		columns: make(map[string]arrow.Array),
	}
}

// SetOptions replaces the write options. Options only take effect at
// Finish, so they may change at any point before it.
func (w *Writer) SetOptions(opts engine.Options) error {
	if w.finished {
		return errors.New(errors.ErrorTypeEngine, "writer already finished")
	}
	w.opts = opts
	return nil
}

// Options returns the writer's current write options
func (w *Writer) Options() engine.Options {
	return w.opts
}

// put stores a built array under name: upsert into the map, insert-if-absent
// into the order list.
func (w *Writer) put(name string, arr arrow.Array) error {
	if w.finished {
		arr.Release()
		return errors.New(errors.ErrorTypeEngine, "writer already finished")
	}
	if old, ok := w.columns[name]; ok {
		old.Release()
	} else {
		w.order = append(w.order, name)
	}
	w.columns[name] = arr
	return nil
}

// AddColumn adds a column of the given type. data must be the slice type
// matching the tag: []int64, []int32, []uint64, []float64, []float32,
// []string, []bool, or []int64 milliseconds for TypeDateTime.
func (w *Writer) AddColumn(name string, tag frame.TypeTag, data interface{}) error {
	switch tag {
	case frame.TypeInt64:
		if v, ok := data.([]int64); ok {
			return w.AddInt64s(name, v)
		}
	case frame.TypeInt32:
		if v, ok := data.([]int32); ok {
			return w.AddInt32s(name, v)
		}
	case frame.TypeUint64:
		if v, ok := data.([]uint64); ok {
			return w.AddUint64s(name, v)
		}
	case frame.TypeFloat64:
		if v, ok := data.([]float64); ok {
			return w.AddFloat64s(name, v)
		}
	case frame.TypeFloat32:
		if v, ok := data.([]float32); ok {
			return w.AddFloat32s(name, v)
		}
	case frame.TypeString:
		if v, ok := data.([]string); ok {
			return w.AddStrings(name, v)
		}
	case frame.TypeBool:
		if v, ok := data.([]bool); ok {
			return w.AddBools(name, v)
		}
	case frame.TypeDateTime:
		if v, ok := data.([]int64); ok {
			return w.AddDateTimes(name, v)
		}
	default:
		return errors.Newf(errors.ErrorTypeTypeMismatch, "unsupported column type %s", tag)
	}
	return errors.Newf(errors.ErrorTypeTypeMismatch,
		"column %q: data %T does not match type %s", name, data, tag)
}

// AddInt64s adds an int64 column
func (w *Writer) AddInt64s(name string, values []int64) error {
	b := array.NewInt64Builder(w.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.put(name, b.NewArray())
}

// AddInt32s adds an int32 column
func (w *Writer) AddInt32s(name string, values []int32) error {
	b := array.NewInt32Builder(w.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.put(name, b.NewArray())
}

// AddUint64s adds a uint64 column
func (w *Writer) AddUint64s(name string, values []uint64) error {
	b := array.NewUint64Builder(w.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.put(name, b.NewArray())
}

// AddFloat64s adds a float64 column
func (w *Writer) AddFloat64s(name string, values []float64) error {
	b := array.NewFloat64Builder(w.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.put(name, b.NewArray())
}

// AddFloat32s adds a float32 column
func (w *Writer) AddFloat32s(name string, values []float32) error {
	b := array.NewFloat32Builder(w.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.put(name, b.NewArray())
}

// AddStrings adds a string column
func (w *Writer) AddStrings(name string, values []string) error {
	b := array.NewStringBuilder(w.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.put(name, b.NewArray())
}

// AddBools adds a bool column
func (w *Writer) AddBools(name string, values []bool) error {
	b := array.NewBooleanBuilder(w.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return w.put(name, b.NewArray())
}

// AddDateTimes adds a datetime column from milliseconds since the epoch
func (w *Writer) AddDateTimes(name string, ms []int64) error {
	b := array.NewTimestampBuilder(w.mem, &arrow.TimestampType{Unit: arrow.Millisecond})
	defer b.Release()
	ts := make([]arrow.Timestamp, len(ms))
	for i, m := range ms {
		ts[i] = arrow.Timestamp(m)
	}
	b.AppendValues(ts, nil)
	return w.put(name, b.NewArray())
}

// Finish assembles the accumulated columns in first-insertion order and
// persists them, consuming the writer. A writer with no columns fails with
// a dedicated error and produces no output file. Columns must all have the
// same length.
func (w *Writer) Finish(ctx context.Context) error {
	if w.finished {
		return errors.New(errors.ErrorTypeEngine, "writer already finished")
	}
	w.finished = true
	defer w.release()

	if len(w.order) == 0 {
		return errors.New(errors.ErrorTypeEngine, "no columns to write")
	}

	rows := w.columns[w.order[0]].Len()
	fields := make([]arrow.Field, 0, len(w.order))
	cols := make([]arrow.Column, 0, len(w.order))
	releaseCols := func() {
		for i := range cols {
			cols[i].Release()
		}
	}

	for _, name := range w.order {
		arr := w.columns[name]
		if arr.Len() != rows {
			releaseCols()
			return errors.Newf(errors.ErrorTypeEngine,
				"column %q has %d rows, expected %d", name, arr.Len(), rows)
		}
		field := arrow.Field{Name: name, Type: arr.DataType()}
		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		cols = append(cols, *arrow.NewColumn(field, chunked))
		chunked.Release()
		fields = append(fields, field)
	}

	tbl := array.NewTable(arrow.NewSchema(fields, nil), cols, int64(rows))
	releaseCols()
	defer tbl.Release()

	if err := w.eng.Write(ctx, w.path, tbl, w.opts); err != nil {
		return err
	}
	logger.Debug("finished writer",
		zap.String("path", w.path),
		zap.Int("columns", len(w.order)),
		zap.Int("rows", rows))
	return nil
}

// Discard drops the accumulated columns without writing anything. The
// writer accepts no further columns afterwards. Safe to call more than once.
func (w *Writer) Discard() {
	w.finished = true
	w.release()
}

// release drops every accumulated array
func (w *Writer) release() {
	for name, arr := range w.columns {
		arr.Release()
		delete(w.columns, name)
	}
	w.order = nil
}
