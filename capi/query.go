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

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/errors"
	"github.com/frameport/frameport/pkg/query"
)

// frameport_query_new creates a deferred query over a parquet file.
// Returns 0 when the source does not exist. An unexecuted query is
// released with frameport_query_free; frameport_query_collect consumes it.
//
//export frameport_query_new
func frameport_query_new(path *C.char) (ret C.uintptr_t) {
	defer recoverHandle(&ret)
	p, err := goStr(path)
	if err != nil {
		return failNull(err)
	}
	q, err := query.NewWith(eng, p)
	if err != nil {
		return failNull(err)
	}
	return C.uintptr_t(cgo.NewHandle(q))
}

// frameport_query_free releases an unexecuted query.
//
//export frameport_query_free
func frameport_query_free(h C.uintptr_t) {
	drop(h)
}

// frameport_query_select sets the projection, replacing any previous one.
// An empty selection reads every column.
//
//export frameport_query_select
func frameport_query_select(h C.uintptr_t, columns **C.char, n C.size_t) (ret C.int) {
	defer recoverStatus(&ret)
	q, err := lookup[*query.Query](h)
	if err != nil {
		return fail(err)
	}
	cols, err := goStrs(columns, n)
	if err != nil {
		return fail(err)
	}
	q.Select(cols...)
	return statusOK
}

// frameport_query_limit caps the number of result rows; 0 removes the cap.
//
//export frameport_query_limit
func frameport_query_limit(h C.uintptr_t, n C.int64_t) (ret C.int) {
	defer recoverStatus(&ret)
	q, err := lookup[*query.Query](h)
	if err != nil {
		return fail(err)
	}
	q.Limit(int64(n))
	return statusOK
}

// addFilter funnels every typed filter export through one path
func addFilter(h C.uintptr_t, column *C.char, op C.int32_t, value interface{}) (ret C.int) {
	defer recoverStatus(&ret)
	q, err := lookup[*query.Query](h)
	if err != nil {
		return fail(err)
	}
	col, err := goStr(column)
	if err != nil {
		return fail(err)
	}
	if err := q.AddFilter(col, engine.Op(op), value); err != nil {
		return fail(err)
	}
	return statusOK
}

// frameport_query_filter_i64 appends an int64 comparison to the conjunction.
//
//export frameport_query_filter_i64
func frameport_query_filter_i64(h C.uintptr_t, column *C.char, op C.int32_t, value C.int64_t) C.int {
	return addFilter(h, column, op, int64(value))
}

// frameport_query_filter_i32 appends an int32 comparison to the conjunction.
//
//export frameport_query_filter_i32
func frameport_query_filter_i32(h C.uintptr_t, column *C.char, op C.int32_t, value C.int32_t) C.int {
	return addFilter(h, column, op, int32(value))
}

// frameport_query_filter_u64 appends a uint64 comparison to the conjunction.
//
//export frameport_query_filter_u64
func frameport_query_filter_u64(h C.uintptr_t, column *C.char, op C.int32_t, value C.uint64_t) C.int {
	return addFilter(h, column, op, uint64(value))
}

// frameport_query_filter_f64 appends a float64 comparison to the conjunction.
//
//export frameport_query_filter_f64
func frameport_query_filter_f64(h C.uintptr_t, column *C.char, op C.int32_t, value C.double) C.int {
	return addFilter(h, column, op, float64(value))
}

// frameport_query_filter_f32 appends a float32 comparison to the conjunction.
//
//export frameport_query_filter_f32
func frameport_query_filter_f32(h C.uintptr_t, column *C.char, op C.int32_t, value C.float) C.int {
	return addFilter(h, column, op, float32(value))
}

// frameport_query_filter_str appends a string comparison to the conjunction.
// The value is borrowed for the duration of the call.
//
//export frameport_query_filter_str
func frameport_query_filter_str(h C.uintptr_t, column *C.char, op C.int32_t, value *C.char) (ret C.int) {
	defer recoverStatus(&ret)
	v, err := goStr(value)
	if err != nil {
		return fail(err)
	}
	return addFilter(h, column, op, v)
}

// frameport_query_filter_bool appends a bool comparison to the conjunction;
// false orders before true.
//
//export frameport_query_filter_bool
func frameport_query_filter_bool(h C.uintptr_t, column *C.char, op C.int32_t, value C.uint8_t) C.int {
	return addFilter(h, column, op, value != 0)
}

// frameport_query_filter_datetime appends a datetime comparison by
// milliseconds since the epoch.
//
//export frameport_query_filter_datetime
func frameport_query_filter_datetime(h C.uintptr_t, column *C.char, op C.int32_t, ms C.int64_t) C.int {
	return addFilter(h, column, op, arrow.Timestamp(ms))
}

// frameport_query_collect executes the accumulated plan and consumes the
// query: the handle is released whether or not execution succeeds. Returns
// an owning frame handle, or 0 on failure.
//
//export frameport_query_collect
func frameport_query_collect(h C.uintptr_t) (ret C.uintptr_t) {
	defer recoverHandle(&ret)
	q, err := lookup[*query.Query](h)
	if err != nil {
		return failNull(err)
	}
	drop(h)

	f, err := q.Collect(context.Background())
	if err != nil {
		return failNull(err)
	}
	if f == nil {
		return failNull(errors.New(errors.ErrorTypeEngine, "query produced no result"))
	}
	return C.uintptr_t(cgo.NewHandle(f))
}
