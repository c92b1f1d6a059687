package capi

/*
#cgo CFLAGS: -I${SRCDIR}
#include <stdlib.h>
#include "frameport.h"
*/
import "C"

import (
	"context"
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/frame"
)

// recoverStatus converts a panic into an engine status so no Go panic
// unwinds across the C boundary.
func recoverStatus(ret *C.int) {
	if r := recover(); r != nil {
		setLastError(fmt.Sprintf("internal fault: %v", r))
		*ret = statusEngine
	}
}

// recoverHandle is recoverStatus for handle-returning functions
func recoverHandle(ret *C.uintptr_t) {
	if r := recover(); r != nil {
		setLastError(fmt.Sprintf("internal fault: %v", r))
		*ret = 0
	}
}

// frameport_open loads a parquet file and returns an owning frame handle,
// or 0 on failure. Release with frameport_frame_free.
//
//export frameport_open
func frameport_open(path *C.char) (ret C.uintptr_t) {
	defer recoverHandle(&ret)
	p, err := goStr(path)
	if err != nil {
		return failNull(err)
	}
	f, err := frame.OpenWith(context.Background(), eng, p)
	if err != nil {
		return failNull(err)
	}
	return C.uintptr_t(cgo.NewHandle(f))
}

// frameport_open_projected loads only the named columns, in the given
// order. Returns 0 on failure.
//
//export frameport_open_projected
func frameport_open_projected(path *C.char, columns **C.char, n C.size_t) (ret C.uintptr_t) {
	defer recoverHandle(&ret)
	p, err := goStr(path)
	if err != nil {
		return failNull(err)
	}
	cols, err := goStrs(columns, n)
	if err != nil {
		return failNull(err)
	}
	f, err := frame.OpenProjectedWith(context.Background(), eng, p, cols)
	if err != nil {
		return failNull(err)
	}
	return C.uintptr_t(cgo.NewHandle(f))
}

// frameport_frame_free releases a frame and every chunk borrowed from it.
//
//export frameport_frame_free
func frameport_frame_free(h C.uintptr_t) {
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return
	}
	f.Close()
	drop(h)
}

// frameport_frame_num_rows returns the row count, or 0 for an invalid handle.
//
//export frameport_frame_num_rows
func frameport_frame_num_rows(h C.uintptr_t) C.int64_t {
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return 0
	}
	return C.int64_t(f.NumRows())
}

// frameport_frame_num_cols returns the column count, or 0 for an invalid handle.
//
//export frameport_frame_num_cols
func frameport_frame_num_cols(h C.uintptr_t) C.int64_t {
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return 0
	}
	return C.int64_t(f.NumCols())
}

// frameport_frame_columns reports name and type tag for every column, in
// column order. Free with frameport_column_info_free.
//
//export frameport_frame_columns
func frameport_frame_columns(h C.uintptr_t, out *C.fp_column_info_array) (ret C.int) {
	defer recoverStatus(&ret)
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return fail(err)
	}

	infos := f.Columns()
	ptr := cMalloc(len(infos) * int(unsafe.Sizeof(C.fp_column_info{})))
	cells := unsafe.Slice((*C.fp_column_info)(ptr), len(infos))
	for i, info := range infos {
		cells[i].name = C.CString(info.Name)
		cells[i].type_tag = C.int32_t(info.Type)
	}
	out.columns = (*C.fp_column_info)(ptr)
	out.len = C.size_t(len(infos))
	return statusOK
}

// frameport_column_info_free releases a column info array.
//
//export frameport_column_info_free
func frameport_column_info_free(arr *C.fp_column_info_array) {
	if arr == nil || arr.columns == nil {
		return
	}
	cells := unsafe.Slice(arr.columns, int(arr.len))
	for i := range cells {
		C.free(unsafe.Pointer(cells[i].name))
	}
	C.free(unsafe.Pointer(arr.columns))
	arr.columns = nil
	arr.len = 0
}

// frameport_frame_rechunk compacts each multi-chunk column into one
// contiguous chunk. Returns 1 when compaction occurred, invalidating every
// chunk previously obtained from this frame, and 0 otherwise.
//
//export frameport_frame_rechunk
func frameport_frame_rechunk(h C.uintptr_t) C.int {
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return 0
	}
	if f.Rechunk() {
		return 1
	}
	return 0
}

// frameport_frame_null_count writes the number of absent values in the
// named column.
//
//export frameport_frame_null_count
func frameport_frame_null_count(h C.uintptr_t, name *C.char, out *C.int64_t) (ret C.int) {
	defer recoverStatus(&ret)
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return fail(err)
	}
	col, err := goStr(name)
	if err != nil {
		return fail(err)
	}
	nulls, err := f.NullCount(col)
	if err != nil {
		return fail(err)
	}
	*out = C.int64_t(nulls)
	return statusOK
}

// frameport_frame_get_chunks returns borrowed address+length views over the
// named column's storage. The requested type tag must match the column's
// reported type. The chunk descriptors are owned by the caller (free with
// frameport_chunk_array_free); the addresses they point at are borrowed and
// valid only until the frame is rechunked or freed.
//
//export frameport_frame_get_chunks
func frameport_frame_get_chunks(h C.uintptr_t, name *C.char, typeTag C.int32_t, out *C.fp_chunk_array) (ret C.int) {
	defer recoverStatus(&ret)
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return fail(err)
	}
	col, err := goStr(name)
	if err != nil {
		return fail(err)
	}

	chunks, err := f.Chunks(col, frame.TypeTag(typeTag))
	if err != nil {
		return fail(err)
	}

	ptr := cMalloc(len(chunks) * int(unsafe.Sizeof(C.fp_chunk{})))
	cells := unsafe.Slice((*C.fp_chunk)(ptr), len(chunks))
	for i, c := range chunks {
		cells[i].addr = C.uintptr_t(c.Addr)
		cells[i].len = C.size_t(c.Len)
	}
	out.chunks = (*C.fp_chunk)(ptr)
	out.len = C.size_t(len(chunks))
	return statusOK
}

// frameport_chunk_array_free releases a chunk descriptor array. It never
// touches the borrowed buffers the chunks point at.
//
//export frameport_chunk_array_free
func frameport_chunk_array_free(arr *C.fp_chunk_array) {
	if arr == nil || arr.chunks == nil {
		return
	}
	C.free(unsafe.Pointer(arr.chunks))
	arr.chunks = nil
	arr.len = 0
}

// getColumn factors the shared shape of the typed copy getters: resolve
// the handle and name, extract with read, and hand the caller a malloc'd
// copy through store.
func getColumn[T any](h C.uintptr_t, name *C.char,
	read func(*frame.Frame, string) ([]T, error),
	store func(unsafe.Pointer, int)) (ret C.int) {
	defer recoverStatus(&ret)
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return fail(err)
	}
	col, err := goStr(name)
	if err != nil {
		return fail(err)
	}
	values, err := read(f, col)
	if err != nil {
		return fail(err)
	}
	store(copyOut(values), len(values))
	return statusOK
}

// frameport_frame_get_int64_column copies an int64 column. Absent values
// surface as 0. Free with frameport_int64_column_free.
//
//export frameport_frame_get_int64_column
func frameport_frame_get_int64_column(h C.uintptr_t, name *C.char, out *C.fp_int64_column) C.int {
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	return getColumn(h, name, (*frame.Frame).Int64s, func(p unsafe.Pointer, n int) {
		out.data = (*C.int64_t)(p)
		out.len = C.size_t(n)
	})
}

// frameport_int64_column_free releases an int64 column copy.
//
//export frameport_int64_column_free
func frameport_int64_column_free(col *C.fp_int64_column) {
	if col == nil || col.data == nil {
		return
	}
	C.free(unsafe.Pointer(col.data))
	col.data = nil
	col.len = 0
}

// frameport_frame_get_int32_column copies an int32 column. Absent values
// surface as 0. Free with frameport_int32_column_free.
//
//export frameport_frame_get_int32_column
func frameport_frame_get_int32_column(h C.uintptr_t, name *C.char, out *C.fp_int32_column) C.int {
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	return getColumn(h, name, (*frame.Frame).Int32s, func(p unsafe.Pointer, n int) {
		out.data = (*C.int32_t)(p)
		out.len = C.size_t(n)
	})
}

// frameport_int32_column_free releases an int32 column copy.
//
//export frameport_int32_column_free
func frameport_int32_column_free(col *C.fp_int32_column) {
	if col == nil || col.data == nil {
		return
	}
	C.free(unsafe.Pointer(col.data))
	col.data = nil
	col.len = 0
}

// frameport_frame_get_uint64_column copies a uint64 column. Absent values
// surface as 0. Free with frameport_uint64_column_free.
//
//export frameport_frame_get_uint64_column
func frameport_frame_get_uint64_column(h C.uintptr_t, name *C.char, out *C.fp_uint64_column) C.int {
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	return getColumn(h, name, (*frame.Frame).Uint64s, func(p unsafe.Pointer, n int) {
		out.data = (*C.uint64_t)(p)
		out.len = C.size_t(n)
	})
}

// frameport_uint64_column_free releases a uint64 column copy.
//
//export frameport_uint64_column_free
func frameport_uint64_column_free(col *C.fp_uint64_column) {
	if col == nil || col.data == nil {
		return
	}
	C.free(unsafe.Pointer(col.data))
	col.data = nil
	col.len = 0
}

// frameport_frame_get_float64_column copies a float64 column. Absent values
// surface as 0. Free with frameport_float64_column_free.
//
//export frameport_frame_get_float64_column
func frameport_frame_get_float64_column(h C.uintptr_t, name *C.char, out *C.fp_float64_column) C.int {
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	return getColumn(h, name, (*frame.Frame).Float64s, func(p unsafe.Pointer, n int) {
		out.data = (*C.double)(p)
		out.len = C.size_t(n)
	})
}

// frameport_float64_column_free releases a float64 column copy.
//
//export frameport_float64_column_free
func frameport_float64_column_free(col *C.fp_float64_column) {
	if col == nil || col.data == nil {
		return
	}
	C.free(unsafe.Pointer(col.data))
	col.data = nil
	col.len = 0
}

// frameport_frame_get_float32_column copies a float32 column. Absent values
// surface as 0. Free with frameport_float32_column_free.
//
//export frameport_frame_get_float32_column
func frameport_frame_get_float32_column(h C.uintptr_t, name *C.char, out *C.fp_float32_column) C.int {
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	return getColumn(h, name, (*frame.Frame).Float32s, func(p unsafe.Pointer, n int) {
		out.data = (*C.float)(p)
		out.len = C.size_t(n)
	})
}

// frameport_float32_column_free releases a float32 column copy.
//
//export frameport_float32_column_free
func frameport_float32_column_free(col *C.fp_float32_column) {
	if col == nil || col.data == nil {
		return
	}
	C.free(unsafe.Pointer(col.data))
	col.data = nil
	col.len = 0
}

// frameport_frame_get_datetime_column copies a datetime column as int64
// milliseconds since the epoch. Absent values surface as 0. Free with
// frameport_int64_column_free.
//
//export frameport_frame_get_datetime_column
func frameport_frame_get_datetime_column(h C.uintptr_t, name *C.char, out *C.fp_int64_column) C.int {
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	return getColumn(h, name, (*frame.Frame).DateTimes, func(p unsafe.Pointer, n int) {
		out.data = (*C.int64_t)(p)
		out.len = C.size_t(n)
	})
}

// frameport_frame_get_bool_column copies a bool column as one byte per
// element (0 or 1). Absent values surface as 0. Free with
// frameport_bool_column_free.
//
//export frameport_frame_get_bool_column
func frameport_frame_get_bool_column(h C.uintptr_t, name *C.char, out *C.fp_bool_column) C.int {
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	read := func(f *frame.Frame, col string) ([]uint8, error) {
		bs, err := f.Bools(col)
		if err != nil {
			return nil, err
		}
		bytes := make([]uint8, len(bs))
		for i, b := range bs {
			if b {
				bytes[i] = 1
			}
		}
		return bytes, nil
	}
	return getColumn(h, name, read, func(p unsafe.Pointer, n int) {
		out.data = (*C.uint8_t)(p)
		out.len = C.size_t(n)
	})
}

// frameport_bool_column_free releases a bool column copy.
//
//export frameport_bool_column_free
func frameport_bool_column_free(col *C.fp_bool_column) {
	if col == nil || col.data == nil {
		return
	}
	C.free(unsafe.Pointer(col.data))
	col.data = nil
	col.len = 0
}

// frameport_frame_get_string_column copies a string column as an array of
// C strings. Absent values surface as "". Free the array and every string
// with frameport_string_column_free.
//
//export frameport_frame_get_string_column
func frameport_frame_get_string_column(h C.uintptr_t, name *C.char, out *C.fp_string_column) (ret C.int) {
	defer recoverStatus(&ret)
	if out == nil {
		return fail(errors.New(errors.ErrorTypeNullPointer, "out argument is null"))
	}
	f, err := lookup[*frame.Frame](h)
	if err != nil {
		return fail(err)
	}
	col, err := goStr(name)
	if err != nil {
		return fail(err)
	}
	values, err := f.Strings(col)
	if err != nil {
		return fail(err)
	}

	ptr := cMalloc(len(values) * int(unsafe.Sizeof((*C.char)(nil))))
	cells := unsafe.Slice((**C.char)(ptr), len(values))
	for i, s := range values {
		cells[i] = C.CString(s)
	}
	out.data = (**C.char)(ptr)
	out.len = C.size_t(len(values))
	return statusOK
}

// frameport_string_column_free releases a string column copy: every string
// and the array holding them.
//
//export frameport_string_column_free
func frameport_string_column_free(col *C.fp_string_column) {
	if col == nil || col.data == nil {
		return
	}
	cells := unsafe.Slice(col.data, int(col.len))
	for i := range cells {
		C.free(unsafe.Pointer(cells[i]))
	}
	C.free(unsafe.Pointer(col.data))
	col.data = nil
	col.len = 0
}
