package engine

import "github.com/teeforge/teeforge/backend-go/internal/design"

// HistoryState is what history observers receive after every change.
type HistoryState struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
	Cursor  int  `json:"cursor"`
	Len     int  `json:"length"`
}

// History is a linear undo/redo stack of deep scene snapshots. Entry 0 is
// the base state; the cursor always points at a valid entry.
type History struct {
	entries [][]design.Object
	cursor  int
	limit   int

	subs    map[int]func(HistoryState)
	nextSub int
}

// NewHistory starts a history at base. A positive limit bounds the number
// of entries; the oldest entries are dropped and the base moves forward.
func NewHistory(base []design.Object, limit int) *History {
	return &History{
		entries: [][]design.Object{cloneSnapshot(base)},
		limit:   limit,
		subs:    make(map[int]func(HistoryState)),
	}
}

// Push truncates any redo tail and appends snap as the new current entry.
func (h *History) Push(snap []design.Object) {
	h.entries = append(h.entries[:h.cursor+1], cloneSnapshot(snap))
	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append([][]design.Object(nil), h.entries[drop:]...)
	}
	h.cursor = len(h.entries) - 1
	h.notify()
}

// Undo moves back one entry and returns a copy of it.
func (h *History) Undo() ([]design.Object, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.cursor--
	h.notify()
	return h.Current(), true
}

// Redo moves forward one entry and returns a copy of it.
func (h *History) Redo() ([]design.Object, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.cursor++
	h.notify()
	return h.Current(), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }

// Current returns a copy of the entry under the cursor.
func (h *History) Current() []design.Object {
	return cloneSnapshot(h.entries[h.cursor])
}

// Matches reports whether snap equals the entry under the cursor.
func (h *History) Matches(snap []design.Object) bool {
	return design.ObjectsEqual(h.entries[h.cursor], snap)
}

// Reset discards every entry and starts over at base.
func (h *History) Reset(base []design.Object) {
	h.entries = [][]design.Object{cloneSnapshot(base)}
	h.cursor = 0
	h.notify()
}

func (h *History) State() HistoryState {
	return HistoryState{
		CanUndo: h.CanUndo(),
		CanRedo: h.CanRedo(),
		Cursor:  h.cursor,
		Len:     len(h.entries),
	}
}

// Subscribe registers fn to run after every push, undo, redo and reset.
// The returned function removes the subscription.
func (h *History) Subscribe(fn func(HistoryState)) (cancel func()) {
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() { delete(h.subs, id) }
}

func (h *History) notify() {
	if len(h.subs) == 0 {
		return
	}
	st := h.State()
	for _, fn := range h.subs {
		fn(st)
	}
}

func cloneSnapshot(objs []design.Object) []design.Object {
	out := design.CloneObjects(objs)
	if out == nil {
		out = []design.Object{}
	}
	return out
}
