package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameport/frameport/pkg/errors"
)

// buildTable assembles a two-column table of sequential ids with labels,
// for writing fixtures without going through the accumulator.
func buildTable(t *testing.T, mem memory.Allocator, ids []int64, labels []string) arrow.Table {
	t.Helper()

	ib := array.NewInt64Builder(mem)
	defer ib.Release()
	ib.AppendValues(ids, nil)
	idArr := ib.NewArray()
	defer idArr.Release()

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.AppendValues(labels, nil)
	labelArr := sb.NewArray()
	defer labelArr.Release()

	fields := []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "label", Type: arrow.BinaryTypes.String},
	}
	cols := make([]arrow.Column, 0, 2)
	for i, arr := range []arrow.Array{idArr, labelArr} {
		chunked := arrow.NewChunked(fields[i].Type, []arrow.Array{arr})
		cols = append(cols, *arrow.NewColumn(fields[i], chunked))
		chunked.Release()
	}
	tbl := array.NewTable(arrow.NewSchema(fields, nil), cols, int64(len(ids)))
	for i := range cols {
		cols[i].Release()
	}
	return tbl
}

func writeFixture(t *testing.T, e *Engine, opts Options, ids []int64, labels []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.parquet")
	tbl := buildTable(t, e.Allocator(), ids, labels)
	defer tbl.Release()
	require.NoError(t, e.Write(context.Background(), path, tbl, opts))
	return path
}

func TestWriteScanRoundtrip(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(),
		[]int64{1, 2, 3}, []string{"a", "b", "c"})

	tbl, err := e.Scan(context.Background(), path, nil)
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(3), tbl.NumRows())
	assert.Equal(t, int64(2), tbl.NumCols())
	assert.Equal(t, "id", tbl.Schema().Field(0).Name)
}

func TestScanAllRowGroups(t *testing.T) {
	e := New()
	opts := DefaultOptions()
	opts.RowGroupSize = 2
	path := writeFixture(t, e, opts,
		[]int64{1, 2, 3, 4, 5}, []string{"a", "b", "c", "d", "e"})

	tbl, err := e.Scan(context.Background(), path, nil)
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(5), tbl.NumRows())
	assert.Equal(t, int64(2), tbl.NumCols())
}

func TestScanProjectionOrder(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(),
		[]int64{1, 2}, []string{"a", "b"})

	tbl, err := e.Scan(context.Background(), path, []string{"label", "id"})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(2), tbl.NumCols())
	assert.Equal(t, "label", tbl.Schema().Field(0).Name)
	assert.Equal(t, "id", tbl.Schema().Field(1).Name)
}

func TestScanUnknownColumn(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(), []int64{1}, []string{"a"})

	_, err := e.Scan(context.Background(), path, []string{"ghost"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnNotFound))
}

func TestSchema(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(), []int64{1}, []string{"a"})

	sc, err := e.Schema(path)
	require.NoError(t, err)
	assert.Equal(t, 2, sc.NumFields())
	assert.Equal(t, "id", sc.Field(0).Name)
}

func TestWriteEmptyTable(t *testing.T) {
	e := New()
	path := filepath.Join(t.TempDir(), "empty.parquet")
	tbl := array.NewTable(arrow.NewSchema(nil, nil), nil, 0)
	defer tbl.Release()

	err := e.Write(context.Background(), path, tbl, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEngine))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteUnknownCodec(t *testing.T) {
	e := New()
	path := filepath.Join(t.TempDir(), "bad.parquet")
	tbl := buildTable(t, e.Allocator(), []int64{1}, []string{"a"})
	defer tbl.Release()

	err := e.Write(context.Background(), path, tbl, Options{Compression: "lzma"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEngine))
}

func TestExecuteConjunction(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(),
		[]int64{1, 2, 3, 4, 5}, []string{"a", "b", "c", "d", "e"})

	tbl, err := e.Execute(context.Background(), Plan{
		Path: path,
		Predicates: []Predicate{
			{Column: "id", Op: OpGt, Value: int64(1)},
			{Column: "id", Op: OpLt, Value: int64(5)},
		},
	})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(3), tbl.NumRows())
}

func TestExecuteProjectionTrimsFilterColumn(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(),
		[]int64{1, 2, 3}, []string{"a", "b", "c"})

	tbl, err := e.Execute(context.Background(), Plan{
		Path:       path,
		Projection: []string{"label"},
		Predicates: []Predicate{{Column: "id", Op: OpGe, Value: int64(2)}},
	})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(2), tbl.NumRows())
	assert.Equal(t, int64(1), tbl.NumCols())
	assert.Equal(t, "label", tbl.Schema().Field(0).Name)
}

func TestExecuteLimit(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(),
		[]int64{1, 2, 3, 4, 5}, []string{"a", "b", "c", "d", "e"})

	tbl, err := e.Execute(context.Background(), Plan{Path: path, Limit: 2})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(2), tbl.NumRows())
}

func TestExecuteTypeMismatch(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(), []int64{1}, []string{"a"})

	_, err := e.Execute(context.Background(), Plan{
		Path:       path,
		Predicates: []Predicate{{Column: "id", Op: OpEq, Value: "one"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
}

func TestExecuteInvalidLiteral(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(), []int64{1}, []string{"a"})

	_, err := e.Execute(context.Background(), Plan{
		Path:       path,
		Predicates: []Predicate{{Column: "id", Op: OpEq, Value: int16(1)}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEngine))
}

func TestExecuteInvalidOp(t *testing.T) {
	e := New()
	path := writeFixture(t, e, DefaultOptions(), []int64{1}, []string{"a"})

	_, err := e.Execute(context.Background(), Plan{
		Path:       path,
		Predicates: []Predicate{{Column: "id", Op: Op(42), Value: int64(1)}},
	})
	require.Error(t, err)
}

func TestCmpOrdered(t *testing.T) {
	assert.True(t, cmpOrdered(OpEq, 3, 3))
	assert.True(t, cmpOrdered(OpNe, 3, 4))
	assert.True(t, cmpOrdered(OpLt, "apple", "banana"))
	assert.True(t, cmpOrdered(OpLe, 3.5, 3.5))
	assert.True(t, cmpOrdered(OpGt, 5, 4))
	assert.False(t, cmpOrdered(OpGe, 3, 4))
	assert.False(t, cmpOrdered(Op(42), 1, 1))
}

func TestBoolOrdering(t *testing.T) {
	assert.True(t, cmpOrdered(OpLt, boolOrd(false), boolOrd(true)))
	assert.False(t, cmpOrdered(OpLt, boolOrd(true), boolOrd(false)))
	assert.True(t, cmpOrdered(OpEq, boolOrd(true), boolOrd(true)))
}

func TestRangeCanMatch(t *testing.T) {
	// min=10, max=20
	assert.True(t, rangeCanMatch(OpEq, 10, 20, 15))
	assert.False(t, rangeCanMatch(OpEq, 10, 20, 25))
	assert.False(t, rangeCanMatch(OpGt, 10, 20, 20))
	assert.True(t, rangeCanMatch(OpGt, 10, 20, 19))
	assert.False(t, rangeCanMatch(OpLt, 10, 20, 10))
	assert.True(t, rangeCanMatch(OpLe, 10, 20, 10))
	assert.True(t, rangeCanMatch(OpNe, 10, 20, 15))
	assert.False(t, rangeCanMatch(OpNe, 7, 7, 7))
}

func TestPruneRowGroups(t *testing.T) {
	e := New()
	opts := DefaultOptions()
	opts.RowGroupSize = 2
	path := writeFixture(t, e, opts,
		[]int64{1, 2, 3, 4, 5, 6}, []string{"a", "b", "c", "d", "e", "f"})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	pf, err := file.NewParquetReader(f)
	require.NoError(t, err)
	defer pf.Close()
	require.Equal(t, 3, pf.NumRowGroups())

	keep, pruned := e.pruneRowGroups(pf, []Predicate{
		{Column: "id", Op: OpGt, Value: int64(4)},
	})
	assert.Equal(t, 2, pruned)
	assert.Equal(t, []int{2}, keep)

	// A predicate matching everything prunes nothing and reads all groups.
	keep, pruned = e.pruneRowGroups(pf, []Predicate{
		{Column: "id", Op: OpGe, Value: int64(1)},
	})
	assert.Zero(t, pruned)
	assert.Nil(t, keep)
}

func TestExecuteWithPrunedGroups(t *testing.T) {
	e := New()
	opts := DefaultOptions()
	opts.RowGroupSize = 2
	path := writeFixture(t, e, opts,
		[]int64{1, 2, 3, 4, 5, 6}, []string{"a", "b", "c", "d", "e", "f"})

	tbl, err := e.Execute(context.Background(), Plan{
		Path:       path,
		Predicates: []Predicate{{Column: "id", Op: OpGt, Value: int64(4)}},
	})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(2), tbl.NumRows())
}

func TestFilterNullsFailComparisons(t *testing.T) {
	e := New()
	mem := e.Allocator()

	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues([]int64{1, 0, 3}, []bool{true, false, true})
	arr := b.NewArray()
	defer arr.Release()

	field := arrow.Field{Name: "v", Type: arrow.PrimitiveTypes.Int64}
	chunked := arrow.NewChunked(field.Type, []arrow.Array{arr})
	col := arrow.NewColumn(field, chunked)
	chunked.Release()
	tbl := array.NewTable(arrow.NewSchema([]arrow.Field{field}, nil), []arrow.Column{*col}, 3)
	col.Release()
	defer tbl.Release()

	// v != 99 matches every present value but never the null.
	out, err := e.filter(tbl, []Predicate{{Column: "v", Op: OpNe, Value: int64(99)}}, 0)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, int64(2), out.NumRows())
}

func TestCodecMapping(t *testing.T) {
	for _, name := range []string{"", "zstd", "snappy", "gzip", "lz4", "brotli", "uncompressed"} {
		_, err := Options{Compression: name}.codec()
		assert.NoError(t, err, name)
	}
	_, err := Options{Compression: "bogus"}.codec()
	assert.Error(t, err)
}
