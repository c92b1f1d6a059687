package frame_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/frame"
	"github.com/frameport/frameport/pkg/testutil"
)

func openSample(t *testing.T) *frame.Frame {
	t.Helper()
	path := testutil.WriteSample(t, engine.DefaultOptions())
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	f, err := frame.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func TestOpen(t *testing.T) {
	f := openSample(t)
	assert.Equal(t, int64(5), f.NumRows())
	assert.Equal(t, int64(5), f.NumCols())
}

func TestOpenMissingFile(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	_, err := frame.Open(ctx, "/nonexistent/nope.parquet")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestColumns(t *testing.T) {
	f := openSample(t)
	cols := f.Columns()
	require.Len(t, cols, 5)

	assert.Equal(t, frame.ColumnInfo{Name: "id", Type: frame.TypeInt64}, cols[0])
	assert.Equal(t, frame.ColumnInfo{Name: "name", Type: frame.TypeString}, cols[1])
	assert.Equal(t, frame.ColumnInfo{Name: "score", Type: frame.TypeFloat64}, cols[2])
	assert.Equal(t, frame.ColumnInfo{Name: "active", Type: frame.TypeBool}, cols[3])
	assert.Equal(t, frame.ColumnInfo{Name: "ts", Type: frame.TypeDateTime}, cols[4])
}

func TestOpenProjected(t *testing.T) {
	path := testutil.WriteSample(t, engine.DefaultOptions())
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	f, err := frame.OpenProjected(ctx, path, []string{"score", "id"})
	require.NoError(t, err)
	defer f.Close()

	cols := f.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "score", cols[0].Name)
	assert.Equal(t, "id", cols[1].Name)
}

func TestOpenProjectedMissingColumn(t *testing.T) {
	path := testutil.WriteSample(t, engine.DefaultOptions())
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := frame.OpenProjected(ctx, path, []string{"id", "ghost"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnNotFound))
}

func TestTypedCopies(t *testing.T) {
	f := openSample(t)

	ids, err := f.Int64s("id")
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleIDs, ids)

	names, err := f.Strings("name")
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleNames, names)

	scores, err := f.Float64s("score")
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleScores, scores)

	active, err := f.Bools("active")
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleActive, active)

	ts, err := f.DateTimes("ts")
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleTimes, ts)
}

func TestTypedCopyMismatch(t *testing.T) {
	f := openSample(t)

	_, err := f.Int64s("score")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))

	_, err = f.Strings("id")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
}

func TestColumnNotFound(t *testing.T) {
	f := openSample(t)
	_, err := f.Int64s("ghost")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnNotFound))
}

func TestChunks(t *testing.T) {
	f := openSample(t)

	chunks, err := f.Chunks("id", frame.TypeInt64)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var total int
	for _, c := range chunks {
		assert.NotZero(t, c.Addr)
		assert.True(t, f.Valid(c))
		total += c.Len
	}
	assert.Equal(t, 5, total)
}

func TestChunksStringRejected(t *testing.T) {
	f := openSample(t)
	_, err := f.Chunks("name", frame.TypeString)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
}

func TestChunksTagMismatch(t *testing.T) {
	f := openSample(t)
	_, err := f.Chunks("id", frame.TypeFloat64)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
}

// unknownColumnFrame builds a frame whose only column carries a type outside
// the supported tag set.
func unknownColumnFrame(t *testing.T) *frame.Frame {
	t.Helper()
	mem := memory.NewGoAllocator()

	b := array.NewDate32Builder(mem)
	defer b.Release()
	b.AppendValues([]arrow.Date32{1, 2, 3}, nil)
	arr := b.NewArray()
	defer arr.Release()

	field := arrow.Field{Name: "d", Type: arrow.FixedWidthTypes.Date32}
	chunked := arrow.NewChunked(field.Type, []arrow.Array{arr})
	col := arrow.NewColumn(field, chunked)
	chunked.Release()
	tbl := array.NewTable(arrow.NewSchema([]arrow.Field{field}, nil), []arrow.Column{*col}, 3)
	col.Release()

	f := frame.FromTable(tbl, mem)
	t.Cleanup(f.Close)
	return f
}

func TestChunksUnknownTagRejected(t *testing.T) {
	f := unknownColumnFrame(t)
	_, err := f.Chunks("d", frame.TypeUnknown)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
}

func TestTypedCopyUnknownColumn(t *testing.T) {
	f := unknownColumnFrame(t)
	_, err := f.Int64s("d")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))
}

// multiChunkFrame builds a frame whose only column is split across two
// chunks, bypassing the file path.
func multiChunkFrame(t *testing.T) *frame.Frame {
	t.Helper()
	mem := memory.NewGoAllocator()

	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues([]int64{1, 2, 3}, nil)
	first := b.NewArray()
	defer first.Release()
	b.AppendValues([]int64{4, 5}, nil)
	second := b.NewArray()
	defer second.Release()

	field := arrow.Field{Name: "v", Type: arrow.PrimitiveTypes.Int64}
	chunked := arrow.NewChunked(field.Type, []arrow.Array{first, second})
	col := arrow.NewColumn(field, chunked)
	chunked.Release()
	tbl := array.NewTable(arrow.NewSchema([]arrow.Field{field}, nil), []arrow.Column{*col}, 5)
	col.Release()

	f := frame.FromTable(tbl, mem)
	t.Cleanup(f.Close)
	return f
}

func TestRechunk(t *testing.T) {
	f := multiChunkFrame(t)

	before, err := f.Chunks("v", frame.TypeInt64)
	require.NoError(t, err)
	require.Len(t, before, 2)

	assert.True(t, f.Rechunk())

	after, err := f.Chunks("v", frame.TypeInt64)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, 5, after[0].Len)

	vals, err := f.Int64s("v")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, vals)
}

func TestRechunkIdempotent(t *testing.T) {
	f := multiChunkFrame(t)
	assert.True(t, f.Rechunk())
	assert.False(t, f.Rechunk())
}

func TestRechunkInvalidatesChunks(t *testing.T) {
	f := multiChunkFrame(t)

	stale, err := f.Chunks("v", frame.TypeInt64)
	require.NoError(t, err)
	require.True(t, f.Valid(stale[0]))

	require.True(t, f.Rechunk())
	assert.False(t, f.Valid(stale[0]))

	fresh, err := f.Chunks("v", frame.TypeInt64)
	require.NoError(t, err)
	assert.True(t, f.Valid(fresh[0]))

	// A no-op rechunk keeps fresh chunks valid.
	require.False(t, f.Rechunk())
	assert.True(t, f.Valid(fresh[0]))
}

func TestRechunkSingleChunkNoop(t *testing.T) {
	f := openSample(t)
	chunks, err := f.Chunks("id", frame.TypeInt64)
	require.NoError(t, err)
	if len(chunks) != 1 {
		t.Skip("fixture loaded as multiple chunks")
	}
	assert.False(t, f.Rechunk())
	assert.True(t, f.Valid(chunks[0]))
}

func TestCloseInvalidatesChunks(t *testing.T) {
	f := multiChunkFrame(t)
	chunks, err := f.Chunks("v", frame.TypeInt64)
	require.NoError(t, err)

	f.Close()
	assert.False(t, f.Valid(chunks[0]))
	f.Close()
}

func TestNullCount(t *testing.T) {
	mem := memory.NewGoAllocator()

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

	f := frame.FromTable(tbl, mem)
	defer f.Close()

	nulls, err := f.NullCount("v")
	require.NoError(t, err)
	assert.Equal(t, int64(1), nulls)

	// The null collapses to the zero value on copy-out.
	vals, err := f.Int64s("v")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0, 3}, vals)
}
