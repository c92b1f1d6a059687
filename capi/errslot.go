package capi

/*
#cgo CFLAGS: -I${SRCDIR}
#include <stdlib.h>
#include "frameport.h"

extern void fp_err_store(char *msg);
extern char *fp_err_load(void);
extern void fp_err_clear(void);
*/
import "C"

// The last-error slot lives in C thread-local storage (errslot.c). Exported
// functions run locked to the C thread that invoked them, so the slot the
// store and the load touch is always the caller's own. Every failing call
// overwrites the slot; successful calls leave it stale, so callers must
// check each call's status rather than polling the slot.

func setLastError(msg string) {
	C.fp_err_store(C.CString(msg))
}

// frameport_last_error returns the calling thread's most recent error
// message, or NULL when the thread has never failed. The pointer stays
// valid until the thread's next failing call or frameport_clear_error.
//
//export frameport_last_error
func frameport_last_error() *C.char {
	return C.fp_err_load()
}

// frameport_clear_error discards the calling thread's error slot.
//
//export frameport_clear_error
func frameport_clear_error() {
	C.fp_err_clear()
}
