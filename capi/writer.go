package capi

/*
#cgo CFLAGS: -I${SRCDIR}
#include <stdlib.h>
#include "frameport.h"
*/
import "C"

import (
	"context"
	"runtime/cgo"
	"unsafe"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/writer"
)

// frameport_writer_new creates a column accumulator targeting path, using
// the default write options. frameport_writer_finish consumes the handle;
// frameport_writer_free discards an unfinished one.
//
//export frameport_writer_new
func frameport_writer_new(path *C.char) (ret C.uintptr_t) {
	defer recoverHandle(&ret)
	p, err := goStr(path)
	if err != nil {
		return failNull(err)
	}
	w := writer.NewWith(eng, p, engine.DefaultOptions())
	return C.uintptr_t(cgo.NewHandle(w))
}

// frameport_writer_free discards an unfinished writer and its accumulated
// columns.
//
//export frameport_writer_free
func frameport_writer_free(h C.uintptr_t) {
	w, err := lookup[*writer.Writer](h)
	if err == nil {
		w.Discard()
	}
	drop(h)
}

func setOption(h C.uintptr_t, apply func(*engine.Options)) (ret C.int) {
	defer recoverStatus(&ret)
	w, err := lookup[*writer.Writer](h)
	if err != nil {
		return fail(err)
	}
	opts := w.Options()
	apply(&opts)
	if err := w.SetOptions(opts); err != nil {
		return fail(err)
	}
	return statusOK
}

// frameport_writer_set_compression selects the codec by name: zstd, snappy,
// gzip, lz4, brotli or uncompressed. Unknown names are rejected at finish.
//
//export frameport_writer_set_compression
func frameport_writer_set_compression(h C.uintptr_t, name *C.char) (ret C.int) {
	defer recoverStatus(&ret)
	n, err := goStr(name)
	if err != nil {
		return fail(err)
	}
	return setOption(h, func(o *engine.Options) { o.Compression = n })
}

// frameport_writer_set_row_group_size caps rows per row group; 0 restores
// the codec default.
//
//export frameport_writer_set_row_group_size
func frameport_writer_set_row_group_size(h C.uintptr_t, rows C.int64_t) C.int {
	return setOption(h, func(o *engine.Options) { o.RowGroupSize = int64(rows) })
}

// frameport_writer_set_data_page_size sets the data page size in bytes; 0
// restores the codec default.
//
//export frameport_writer_set_data_page_size
func frameport_writer_set_data_page_size(h C.uintptr_t, bytes C.int64_t) C.int {
	return setOption(h, func(o *engine.Options) { o.DataPageSize = int64(bytes) })
}

// frameport_writer_set_statistics toggles column min/max statistics.
//
//export frameport_writer_set_statistics
func frameport_writer_set_statistics(h C.uintptr_t, enabled C.uint8_t) C.int {
	return setOption(h, func(o *engine.Options) { o.Statistics = enabled != 0 })
}

// frameport_writer_set_dictionary toggles dictionary encoding.
//
//export frameport_writer_set_dictionary
func frameport_writer_set_dictionary(h C.uintptr_t, enabled C.uint8_t) C.int {
	return setOption(h, func(o *engine.Options) { o.Dictionary = enabled != 0 })
}

// addBuf copies n elements out of a borrowed C buffer and hands the copy to
// the writer. A null data pointer with n > 0 is rejected; n == 0 stores an
// empty column.
func addBuf[T any](h C.uintptr_t, name *C.char, data *T, n C.size_t, add func(w *writer.Writer, col string, values []T) error) (ret C.int) {
	defer recoverStatus(&ret)
	w, err := lookup[*writer.Writer](h)
	if err != nil {
		return fail(err)
	}
	col, err := goStr(name)
	if err != nil {
		return fail(err)
	}
	values := make([]T, int(n))
	if n > 0 {
		if data == nil {
			return fail(errNullBuffer)
		}
		copy(values, unsafe.Slice(data, int(n)))
	}
	if err := add(w, col, values); err != nil {
		return fail(err)
	}
	return statusOK
}

// frameport_writer_add_i64_column appends or replaces an int64 column.
// Replacing keeps the column's original position.
//
//export frameport_writer_add_i64_column
func frameport_writer_add_i64_column(h C.uintptr_t, name *C.char, data *C.int64_t, n C.size_t) C.int {
	return addBuf(h, name, (*int64)(unsafe.Pointer(data)), n, (*writer.Writer).AddInt64s)
}

// frameport_writer_add_i32_column appends or replaces an int32 column.
//
//export frameport_writer_add_i32_column
func frameport_writer_add_i32_column(h C.uintptr_t, name *C.char, data *C.int32_t, n C.size_t) C.int {
	return addBuf(h, name, (*int32)(unsafe.Pointer(data)), n, (*writer.Writer).AddInt32s)
}

// frameport_writer_add_u64_column appends or replaces a uint64 column.
//
//export frameport_writer_add_u64_column
func frameport_writer_add_u64_column(h C.uintptr_t, name *C.char, data *C.uint64_t, n C.size_t) C.int {
	return addBuf(h, name, (*uint64)(unsafe.Pointer(data)), n, (*writer.Writer).AddUint64s)
}

// frameport_writer_add_f64_column appends or replaces a float64 column.
//
//export frameport_writer_add_f64_column
func frameport_writer_add_f64_column(h C.uintptr_t, name *C.char, data *C.double, n C.size_t) C.int {
	return addBuf(h, name, (*float64)(unsafe.Pointer(data)), n, (*writer.Writer).AddFloat64s)
}

// frameport_writer_add_f32_column appends or replaces a float32 column.
//
//export frameport_writer_add_f32_column
func frameport_writer_add_f32_column(h C.uintptr_t, name *C.char, data *C.float, n C.size_t) C.int {
	return addBuf(h, name, (*float32)(unsafe.Pointer(data)), n, (*writer.Writer).AddFloat32s)
}

// frameport_writer_add_bool_column appends or replaces a bool column from a
// byte-per-value buffer where nonzero means true.
//
//export frameport_writer_add_bool_column
func frameport_writer_add_bool_column(h C.uintptr_t, name *C.char, data *C.uint8_t, n C.size_t) (ret C.int) {
	defer recoverStatus(&ret)
	w, err := lookup[*writer.Writer](h)
	if err != nil {
		return fail(err)
	}
	col, err := goStr(name)
	if err != nil {
		return fail(err)
	}
	values := make([]bool, int(n))
	if n > 0 {
		if data == nil {
			return fail(errNullBuffer)
		}
		for i, b := range unsafe.Slice((*uint8)(data), int(n)) {
			values[i] = b != 0
		}
	}
	if err := w.AddBools(col, values); err != nil {
		return fail(err)
	}
	return statusOK
}

// frameport_writer_add_datetime_column appends or replaces a datetime
// column from milliseconds since the epoch.
//
//export frameport_writer_add_datetime_column
func frameport_writer_add_datetime_column(h C.uintptr_t, name *C.char, ms *C.int64_t, n C.size_t) C.int {
	return addBuf(h, name, (*int64)(unsafe.Pointer(ms)), n, (*writer.Writer).AddDateTimes)
}

// frameport_writer_add_string_column appends or replaces a string column.
// Every element must be valid UTF-8; the buffers are borrowed for the
// duration of the call.
//
//export frameport_writer_add_string_column
func frameport_writer_add_string_column(h C.uintptr_t, name *C.char, data **C.char, n C.size_t) (ret C.int) {
	defer recoverStatus(&ret)
	w, err := lookup[*writer.Writer](h)
	if err != nil {
		return fail(err)
	}
	col, err := goStr(name)
	if err != nil {
		return fail(err)
	}
	values, err := goStrs(data, n)
	if err != nil {
		return fail(err)
	}
	if err := w.AddStrings(col, values); err != nil {
		return fail(err)
	}
	return statusOK
}

// frameport_writer_finish assembles the accumulated columns into a table
// and writes it to the target path. The writer handle is consumed whether
// or not the write succeeds; finishing with no columns fails without
// creating a file.
//
//export frameport_writer_finish
func frameport_writer_finish(h C.uintptr_t) (ret C.int) {
	defer recoverStatus(&ret)
	w, err := lookup[*writer.Writer](h)
	if err != nil {
		return fail(err)
	}
	drop(h)
	if err := w.Finish(context.Background()); err != nil {
		return fail(err)
	}
	return statusOK
}
