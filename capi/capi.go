// Package capi exposes frameport over a plain C ABI.
//
// Opaque handles cross the boundary as integers backed by cgo handle
// registries; every constructor pairs with exactly one destructor, every
// callee-allocated buffer with a typed free. Failures never unwind into C:
// each export returns a status code (or null sentinel) and records a
// message in the calling thread's error slot. Tables built for the C
// surface use a malloc-backed arrow allocator so chunk addresses stay in
// C-stable memory.
//
// Build as a shared library via cmd/frameport-c:
//
//	go build -buildmode=c-shared -o libframeport.so ./cmd/frameport-c
package capi

/*
#cgo CFLAGS: -I${SRCDIR}
#include <stdlib.h>
#include "frameport.h"
*/
import "C"

import (
	"runtime/cgo"
	"unicode/utf8"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/memory/mallocator"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/errors"
)

// Status codes mirrored from frameport.h
const (
	statusOK             = 0
	statusNullPointer    = -1
	statusInvalidUTF8    = -2
	statusIO             = -3
	statusColumnNotFound = -4
	statusTypeMismatch   = -5
	statusEngine         = -6
)

// eng backs every handle created through this surface. The mallocator
// keeps arrow buffers out of the Go heap, so chunk addresses handed to C
// remain stable and legal to dereference.
var eng = engine.New(engine.WithAllocator(mallocator.NewMallocator()))

var errNullBuffer = errors.New(errors.ErrorTypeNullPointer, "null buffer pointer")

// statusOf maps an error to its ABI status code
func statusOf(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeNullPointer:
		return statusNullPointer
	case errors.ErrorTypeInvalidUTF8:
		return statusInvalidUTF8
	case errors.ErrorTypeIO:
		return statusIO
	case errors.ErrorTypeColumnNotFound:
		return statusColumnNotFound
	case errors.ErrorTypeTypeMismatch:
		return statusTypeMismatch
	default:
		return statusEngine
	}
}

// fail records err in the thread's error slot and returns its status code
func fail(err error) C.int {
	setLastError(err.Error())
	return C.int(statusOf(err))
}

// failNull records err and returns the null handle sentinel
func failNull(err error) C.uintptr_t {
	setLastError(err.Error())
	return 0
}

// goStr converts a borrowed C string, rejecting null and invalid UTF-8
func goStr(s *C.char) (string, error) {
	if s == nil {
		return "", errors.New(errors.ErrorTypeNullPointer, "string argument is null")
	}
	out := C.GoString(s)
	if !utf8.ValidString(out) {
		return "", errors.New(errors.ErrorTypeInvalidUTF8, "string argument is not valid UTF-8")
	}
	return out, nil
}

// goStrs converts a borrowed array of C strings
func goStrs(arr **C.char, n C.size_t) ([]string, error) {
	if arr == nil && n > 0 {
		return nil, errors.New(errors.ErrorTypeNullPointer, "string array is null")
	}
	out := make([]string, 0, int(n))
	ptrs := unsafe.Slice(arr, int(n))
	for i, p := range ptrs {
		s, err := goStr(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err), "string array element").
				WithDetail("index", i)
		}
		out = append(out, s)
	}
	return out, nil
}

// lookup resolves a handle to its value. Invalid or stale handles surface
// as an engine error instead of a runtime panic.
func lookup[T any](h C.uintptr_t) (v T, err error) {
	if h == 0 {
		err = errors.New(errors.ErrorTypeNullPointer, "handle is null")
		return
	}
	defer func() {
		if recover() != nil {
			err = errors.New(errors.ErrorTypeEngine, "invalid handle")
		}
	}()
	val, ok := cgo.Handle(h).Value().(T)
	if !ok {
		err = errors.New(errors.ErrorTypeEngine, "handle has the wrong type")
		return
	}
	return val, nil
}

// drop deletes a handle, ignoring ones that are already gone
func drop(h C.uintptr_t) {
	if h == 0 {
		return
	}
	defer func() { _ = recover() }()
	cgo.Handle(h).Delete()
}

// cMalloc allocates n bytes of C memory, returning nil for n == 0
func cMalloc(n int) unsafe.Pointer {
	if n == 0 {
		return nil
	}
	return C.malloc(C.size_t(n))
}

// copyOut copies a Go slice of fixed-width values into freshly malloc'd C
// memory and returns the pointer.
func copyOut[T any](values []T) unsafe.Pointer {
	if len(values) == 0 {
		return nil
	}
	var zero T
	width := int(unsafe.Sizeof(zero))
	ptr := cMalloc(len(values) * width)
	dst := unsafe.Slice((*T)(ptr), len(values))
	copy(dst, values)
	return ptr
}
