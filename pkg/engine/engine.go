// Package engine adapts the parquet codec to the rest of frameport.
//
// It owns the four delegated operations: scanning a table from a path with
// optional projection, executing a deferred plan, persisting a table with
// pass-through write options, and nothing else. Column value readout belongs
// to pkg/frame; this package only produces and consumes arrow tables.
package engine

import (
	"context"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/logger"
)

const defaultBatchSize = 64 * 1024

// Options are pass-through parquet write options. They configure the codec
// and are never interpreted by the core.
type Options struct {
	// Compression is the codec name: zstd, snappy, gzip, lz4, brotli,
	// uncompressed. Empty means zstd.
	Compression string `mapstructure:"compression"`
	// RowGroupSize is the maximum rows per row group. 0 uses the codec default.
	RowGroupSize int64 `mapstructure:"row_group_size"`
	// DataPageSize is the data page size in bytes. 0 uses the codec default.
	DataPageSize int64 `mapstructure:"data_page_size"`
	// Statistics enables column min/max statistics, which later reads use
	// for predicate pushdown.
	Statistics bool `mapstructure:"statistics"`
	// Dictionary enables dictionary encoding.
	Dictionary bool `mapstructure:"dictionary"`
}

// DefaultOptions returns the default write options: zstd compression with
// statistics and dictionary encoding enabled.
func DefaultOptions() Options {
	return Options{
		Compression: "zstd",
		Statistics:  true,
		Dictionary:  true,
	}
}

func (o Options) codec() (compress.Compression, error) {
	switch o.Compression {
	case "", "zstd":
		return compress.Codecs.Zstd, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "uncompressed", "none":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed,
			errors.Newf(errors.ErrorTypeEngine, "unknown compression codec %q", o.Compression)
	}
}

// Engine wraps the parquet codec with a fixed allocator and logger.
type Engine struct {
	mem memory.Allocator
	log *zap.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithAllocator sets the arrow allocator used for all tables the engine
// produces. The C surface uses this to keep buffers in C-stable memory.
func WithAllocator(mem memory.Allocator) Option {
	return func(e *Engine) { e.mem = mem }
}

// WithLogger sets the engine's logger
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an engine
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.mem == nil {
		e.mem = memory.NewGoAllocator()
	}
	return e
}

// logger resolves lazily so Default, constructed at package init, picks up
// a logger configured after import.
func (e *Engine) logger() *zap.Logger {
	if e.log != nil {
		return e.log
	}
	return logger.Get()
}

// Default is the engine used by package-level constructors elsewhere.
var Default = New()

// Allocator returns the engine's arrow allocator
func (e *Engine) Allocator() memory.Allocator {
	return e.mem
}

// Schema reads the arrow schema of a parquet file from its footer without
// materializing any data.
func (e *Engine) Schema(path string) (*arrow.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "open parquet file")
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "read parquet footer")
	}
	defer pf.Close()

	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: defaultBatchSize}, e.mem)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEngine, "create arrow reader")
	}
	sc, err := rdr.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEngine, "convert parquet schema")
	}
	return sc, nil
}

// Scan reads a parquet file into an arrow table. A non-empty columns list
// restricts the read to those columns (projection pushdown) and the result
// preserves the requested order. The caller owns the returned table.
func (e *Engine) Scan(ctx context.Context, path string, columns []string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "open parquet file")
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "read parquet footer")
	}
	defer pf.Close()

	return e.readTable(ctx, pf, columns, nil)
}

// readTable reads the given columns (nil = all) of the given row groups
// (nil = all) into a table. Projected column order follows the request.
func (e *Engine) readTable(ctx context.Context, pf *file.Reader, columns []string, rowGroups []int) (arrow.Table, error) {
	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: defaultBatchSize}, e.mem)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEngine, "create arrow reader")
	}

	sc, err := rdr.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEngine, "convert parquet schema")
	}

	// ReadRowGroups reads exactly the listed columns and row groups, so
	// an omitted list must be expanded to the full range here.
	var indices []int
	if len(columns) > 0 {
		indices = make([]int, 0, len(columns))
		for _, name := range columns {
			idx := sc.FieldIndices(name)
			if len(idx) == 0 {
				return nil, errors.Newf(errors.ErrorTypeColumnNotFound, "column %q not found", name)
			}
			indices = append(indices, idx[0])
		}
	} else {
		indices = make([]int, pf.MetaData().Schema.NumColumns())
		for i := range indices {
			indices[i] = i
		}
	}

	if rowGroups == nil {
		rowGroups = make([]int, pf.NumRowGroups())
		for i := range rowGroups {
			rowGroups[i] = i
		}
	}

	tbl, err := rdr.ReadRowGroups(ctx, indices, rowGroups)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "read parquet data")
	}

	if len(columns) > 0 {
		// ReadRowGroups yields columns in schema order; restore the
		// requested order.
		reordered, err := selectColumns(tbl, columns)
		tbl.Release()
		if err != nil {
			return nil, err
		}
		tbl = reordered
	}

	e.logger().Debug("scanned parquet file",
		zap.Int64("rows", tbl.NumRows()),
		zap.Int64("cols", tbl.NumCols()))
	return tbl, nil
}

// Write persists a table to a parquet file with the given options.
func (e *Engine) Write(ctx context.Context, path string, tbl arrow.Table, opts Options) error {
	if tbl.NumCols() == 0 {
		return errors.New(errors.ErrorTypeEngine, "no columns to write")
	}

	codec, err := opts.codec()
	if err != nil {
		return err
	}

	props := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(opts.Dictionary),
		parquet.WithStats(opts.Statistics),
	}
	if opts.RowGroupSize > 0 {
		props = append(props, parquet.WithMaxRowGroupLength(opts.RowGroupSize))
	}
	if opts.DataPageSize > 0 {
		props = append(props, parquet.WithDataPageSize(opts.DataPageSize))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "create parquet file")
	}

	fw, err := pqarrow.NewFileWriter(tbl.Schema(), f,
		parquet.NewWriterProperties(props...),
		pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(e.mem)))
	if err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrorTypeEngine, "create parquet writer")
	}

	chunkSize := opts.RowGroupSize
	if chunkSize <= 0 {
		chunkSize = tbl.NumRows()
		if chunkSize == 0 {
			chunkSize = 1
		}
	}

	if err := fw.WriteTable(tbl, chunkSize); err != nil {
		fw.Close()
		return errors.Wrap(err, errors.ErrorTypeEngine, "write parquet data")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "close parquet file")
	}

	e.logger().Debug("wrote parquet file",
		zap.String("path", path),
		zap.Int64("rows", tbl.NumRows()),
		zap.String("compression", opts.Compression))
	return nil
}

// selectColumns builds a new table holding the named columns in the given
// order. The caller owns the returned table; the input is left untouched.
func selectColumns(tbl arrow.Table, names []string) (arrow.Table, error) {
	sc := tbl.Schema()
	fields := make([]arrow.Field, 0, len(names))
	cols := make([]arrow.Column, 0, len(names))
	for _, name := range names {
		idx := sc.FieldIndices(name)
		if len(idx) == 0 {
			return nil, errors.Newf(errors.ErrorTypeColumnNotFound, "column %q not found", name)
		}
		fields = append(fields, sc.Field(idx[0]))
		cols = append(cols, *tbl.Column(idx[0]))
	}
	out := array.NewTable(arrow.NewSchema(fields, nil), cols, tbl.NumRows())
	return out, nil
}
