package main

import "C"

import (
	"unsafe"

	headlessterm "github.com/duskterm/engine"
)

func main() {}

//export pool_create
func pool_create() C.uintptr_t {
	return registerPool(headlessterm.NewTerminalPool())
}

//export pool_destroy
func pool_destroy(handle C.uintptr_t) {
	entry, ok := unregisterPool(handle)
	if !ok {
		return
	}
	_ = entry.pool.CloseAll()
}

//export pool_open
func pool_open(handle C.uintptr_t, rows C.int32_t, cols C.int32_t, outID *C.int64_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	id, err := entry.pool.Open(int(rows), int(cols))
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	*outID = C.int64_t(id)
	return C.int32_t(headlessterm.ErrSuccess)
}

//export pool_close
func pool_close(handle C.uintptr_t, termID C.int64_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	id := headlessterm.TerminalId(termID)
	err := entry.pool.Close(id)
	entry.dropSnapshot(id)
	return C.int32_t(headlessterm.CodeFor(err))
}

//export pool_write_input
func pool_write_input(handle C.uintptr_t, termID C.int64_t, data *C.char, length C.size_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	bytes := C.GoBytes(unsafe.Pointer(data), C.int(length))
	err := entry.pool.InputAsync(headlessterm.TerminalId(termID), bytes)
	return C.int32_t(headlessterm.CodeFor(err))
}

//export pool_scroll
func pool_scroll(handle C.uintptr_t, termID C.int64_t, delta C.int32_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	err := entry.pool.ScrollAsync(headlessterm.TerminalId(termID), int(delta))
	return C.int32_t(headlessterm.CodeFor(err))
}

//export pool_resize
func pool_resize(handle C.uintptr_t, termID C.int64_t, rows C.int32_t, cols C.int32_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	err := entry.pool.ResizeAsync(headlessterm.TerminalId(termID), int(rows), int(cols))
	return C.int32_t(headlessterm.CodeFor(err))
}

//export pool_set_selection
func pool_set_selection(handle C.uintptr_t, termID C.int64_t, active C.int32_t, startRow, startCol, endRow, endCol C.int32_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	start := headlessterm.Position{Row: int(startRow), Col: int(startCol)}
	end := headlessterm.Position{Row: int(endRow), Col: int(endCol)}
	err := entry.pool.SelectionAsync(headlessterm.TerminalId(termID), active != 0, start, end)
	return C.int32_t(headlessterm.CodeFor(err))
}

//export pool_set_mode
func pool_set_mode(handle C.uintptr_t, termID C.int64_t, mode C.int32_t, on C.int32_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	err := entry.pool.ModeAsync(headlessterm.TerminalId(termID), headlessterm.TerminalMode(mode), on != 0)
	return C.int32_t(headlessterm.CodeFor(err))
}

//export pool_render
func pool_render(handle C.uintptr_t, termID C.int64_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	id := headlessterm.TerminalId(termID)
	snap, err := entry.pool.Render(id)
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	entry.storeSnapshot(id, snap)
	return C.int32_t(headlessterm.ErrSuccess)
}

//export pool_get_cursor
func pool_get_cursor(handle C.uintptr_t, termID C.int64_t, outRow, outCol *C.int32_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	info, err := entry.pool.GetCursor(headlessterm.TerminalId(termID))
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	*outRow = C.int32_t(info.Row)
	*outCol = C.int32_t(info.Col)
	return C.int32_t(headlessterm.ErrSuccess)
}

//export pool_get_selection_range
func pool_get_selection_range(handle C.uintptr_t, termID C.int64_t, outActive *C.int32_t, outStartRow, outStartCol, outEndRow, outEndCol *C.int32_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	info, active, err := entry.pool.GetSelection(headlessterm.TerminalId(termID))
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	if active {
		*outActive = 1
	} else {
		*outActive = 0
	}
	*outStartRow = C.int32_t(info.StartRow)
	*outStartCol = C.int32_t(info.StartCol)
	*outEndRow = C.int32_t(info.EndRow)
	*outEndCol = C.int32_t(info.EndCol)
	return C.int32_t(headlessterm.ErrSuccess)
}

//export pool_get_scroll_info
func pool_get_scroll_info(handle C.uintptr_t, termID C.int64_t, outDisplayOffset, outScrollbackSize, outTotalLines *C.int64_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	info, err := entry.pool.GetScrollInfo(headlessterm.TerminalId(termID))
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	*outDisplayOffset = C.int64_t(info.DisplayOffset)
	*outScrollbackSize = C.int64_t(info.ScrollbackSize)
	*outTotalLines = C.int64_t(info.TotalLines)
	return C.int32_t(headlessterm.ErrSuccess)
}

//export pool_get_title
func pool_get_title(handle C.uintptr_t, termID C.int64_t, buf *C.char, bufLen C.size_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	title, err := entry.pool.GetTitle(headlessterm.TerminalId(termID))
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	return writeCString(title, buf, bufLen)
}

//export pool_get_selection_text
func pool_get_selection_text(handle C.uintptr_t, termID C.int64_t, buf *C.char, bufLen C.size_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	var text string
	err := entry.pool.WithTerminal(headlessterm.TerminalId(termID), func(t *headlessterm.Terminal) {
		text = t.GetSelectedText()
	})
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	return writeCString(text, buf, bufLen)
}

//export pool_get_row_text
func pool_get_row_text(handle C.uintptr_t, termID C.int64_t, row C.int32_t, buf *C.char, bufLen C.size_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	snap, ok := entry.loadSnapshot(headlessterm.TerminalId(termID))
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	r := int(row)
	if r < 0 || r >= len(snap.Grid.Lines) {
		return C.int32_t(headlessterm.ErrOutOfBounds)
	}
	return writeCString(snap.Grid.Lines[r].Text(), buf, bufLen)
}

//export pool_search_set
func pool_search_set(handle C.uintptr_t, termID C.int64_t, pattern *C.char, patternLen C.size_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	goPattern := C.GoStringN(pattern, C.int(patternLen))
	err := entry.pool.WithTerminal(headlessterm.TerminalId(termID), func(t *headlessterm.Terminal) {
		t.SearchSet(goPattern)
	})
	return C.int32_t(headlessterm.CodeFor(err))
}

//export pool_search_next
func pool_search_next(handle C.uintptr_t, termID C.int64_t, outRow, outCol *C.int32_t) C.int32_t {
	return searchStep(handle, termID, outRow, outCol, true)
}

//export pool_search_prev
func pool_search_prev(handle C.uintptr_t, termID C.int64_t, outRow, outCol *C.int32_t) C.int32_t {
	return searchStep(handle, termID, outRow, outCol, false)
}

func searchStep(handle C.uintptr_t, termID C.int64_t, outRow, outCol *C.int32_t, next bool) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	var match headlessterm.MatchRange
	var found bool
	err := entry.pool.WithTerminal(headlessterm.TerminalId(termID), func(t *headlessterm.Terminal) {
		if next {
			match, found = t.SearchNext()
		} else {
			match, found = t.SearchPrev()
		}
	})
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	if !found {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	*outRow = C.int32_t(match.Start.Row)
	*outCol = C.int32_t(match.Start.Col)
	return C.int32_t(headlessterm.ErrSuccess)
}

//export pool_search_clear
func pool_search_clear(handle C.uintptr_t, termID C.int64_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	err := entry.pool.WithTerminal(headlessterm.TerminalId(termID), func(t *headlessterm.Terminal) {
		t.SearchClear()
	})
	return C.int32_t(headlessterm.CodeFor(err))
}

// placementRecord is the fixed-width C layout pool_get_image_placements
// writes per placement: matches headlessterm.ImagePlacement field for
// field, since the host needs every field to position and crop the
// texture it fetches separately via pool_get_image_data.
type placementRecord struct {
	id, imageID                 uint32
	row, col, cols, rows        int32
	srcX, srcY, srcW, srcH      uint32
	zIndex                      int32
	offsetX, offsetY            uint32
}

//export pool_get_image_placements
func pool_get_image_placements(handle C.uintptr_t, termID C.int64_t, out *C.uint8_t, outCap C.size_t, outCount *C.int32_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	var placements []*headlessterm.ImagePlacement
	err := entry.pool.WithTerminal(headlessterm.TerminalId(termID), func(t *headlessterm.Terminal) {
		placements = t.ImagePlacements()
	})
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}

	recordSize := int(unsafe.Sizeof(placementRecord{}))
	fit := int(outCap) / recordSize
	n := len(placements)
	if n > fit {
		n = fit
	}
	if n > 0 && out != nil {
		dst := unsafe.Slice((*placementRecord)(unsafe.Pointer(out)), n)
		for i := 0; i < n; i++ {
			p := placements[i]
			dst[i] = placementRecord{
				id: p.ID, imageID: p.ImageID,
				row: int32(p.Row), col: int32(p.Col), cols: int32(p.Cols), rows: int32(p.Rows),
				srcX: p.SrcX, srcY: p.SrcY, srcW: p.SrcW, srcH: p.SrcH,
				zIndex:  p.ZIndex,
				offsetX: p.OffsetX, offsetY: p.OffsetY,
			}
		}
	}
	*outCount = C.int32_t(len(placements))
	return C.int32_t(headlessterm.ErrSuccess)
}

//export pool_get_image_data
func pool_get_image_data(handle C.uintptr_t, termID C.int64_t, imageID C.uint32_t, out *C.uint8_t, outCap C.size_t, outWidth, outHeight *C.uint32_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	var img *headlessterm.ImageData
	err := entry.pool.WithTerminal(headlessterm.TerminalId(termID), func(t *headlessterm.Terminal) {
		img = t.Image(uint32(imageID))
	})
	if err != nil {
		return C.int32_t(headlessterm.CodeFor(err))
	}
	if img == nil {
		return C.int32_t(headlessterm.ErrNotFound)
	}

	*outWidth = C.uint32_t(img.Width)
	*outHeight = C.uint32_t(img.Height)

	n := len(img.Data)
	if n > int(outCap) {
		n = int(outCap)
	}
	if n > 0 && out != nil {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(out)), n)
		copy(dst, img.Data[:n])
	}
	return C.int32_t(len(img.Data))
}

//export pool_set_event_callback
func pool_set_event_callback(handle C.uintptr_t, cb C.terminal_event_cb, userData unsafe.Pointer) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}

	entry.cbMu.Lock()
	entry.eventCb = cb
	entry.userData = userData
	entry.cbMu.Unlock()

	entry.pool.SetEventCallback(func(id headlessterm.TerminalId, ev headlessterm.TerminalEvent) {
		entry.cbMu.Lock()
		fn, ud := entry.eventCb, entry.userData
		entry.cbMu.Unlock()
		if fn == nil {
			return
		}
		dispatchEvent(fn, ud, id, ev)
	})
	return C.int32_t(headlessterm.ErrSuccess)
}

//export pool_poll_events
func pool_poll_events(handle C.uintptr_t) C.int32_t {
	entry, ok := lookupPool(handle)
	if !ok {
		return C.int32_t(headlessterm.ErrNotFound)
	}
	entry.pool.PollEvents()
	return C.int32_t(headlessterm.ErrSuccess)
}

// writeCString copies s (plus a NUL terminator) into buf, which the host
// owns and sized to bufLen. Returns the number of bytes s needs
// (excluding the NUL) as a non-negative value; if that exceeds bufLen-1
// the string was truncated and the host should retry with a bigger
// buffer, mirroring the teacher's "string getters return into
// host-supplied slots" shape generalized from js.Value strings to raw
// C buffers.
func writeCString(s string, buf *C.char, bufLen C.size_t) C.int32_t {
	needed := len(s)
	if buf == nil || bufLen == 0 {
		return C.int32_t(needed)
	}
	max := int(bufLen) - 1
	if max < 0 {
		max = 0
	}
	n := needed
	if n > max {
		n = max
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(bufLen))
	if n > 0 {
		copy(dst, s[:n])
	}
	dst[n] = 0
	return C.int32_t(needed)
}
