package main

/*
#include <stdint.h>
#include <stddef.h>
#include <stdlib.h>

// terminal_event_cb is the C function pointer type a host registers via
// pool_set_event_callback. kind mirrors headlessterm.TerminalEventKind;
// a and b carry the two integer payload fields relevant to that kind
// (row/exitcode/mark), text carries TerminalEvent.Text (NUL-terminated,
// valid only for the duration of the call), user_data is whatever the
// host passed to pool_set_event_callback.
typedef void (*terminal_event_cb)(int64_t term_id, int32_t kind, int64_t a, int64_t b, const char* text, void* user_data);

// invoke_event_cb exists because cgo cannot call a C function pointer
// value directly from Go -- it can only call named C functions. This is
// the standard cgo callback-dispatch shim.
static inline void invoke_event_cb(terminal_event_cb cb, int64_t term_id, int32_t kind, int64_t a, int64_t b, const char* text, void* user_data) {
	if (cb != NULL) {
		cb(term_id, kind, a, b, text, user_data);
	}
}
*/
import "C"

import (
	"unsafe"

	headlessterm "github.com/duskterm/engine"
)

// dispatchEvent adapts a TerminalEvent to invoke_event_cb's flat scalar
// shape, picking whichever of (a, b, text) that event kind's doc comment
// in events.go says is valid and leaving the rest zero/empty.
func dispatchEvent(cb C.terminal_event_cb, userData unsafe.Pointer, id headlessterm.TerminalId, ev headlessterm.TerminalEvent) {
	var a, b C.int64_t
	var text *C.char

	switch ev.Kind {
	case headlessterm.EventDamaged:
		a = C.int64_t(ev.Row)
	case headlessterm.EventExited:
		a = C.int64_t(ev.ExitCode)
	case headlessterm.EventTitleChanged, headlessterm.EventWorkingDirChanged:
		cs := C.CString(ev.Text)
		defer C.free(unsafe.Pointer(cs))
		text = cs
	case headlessterm.EventPromptMark:
		a = C.int64_t(ev.Mark)
	}

	C.invoke_event_cb(cb, C.int64_t(id), C.int32_t(ev.Kind), a, b, text, userData)
}
