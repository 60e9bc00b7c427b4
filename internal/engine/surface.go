package engine

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/typeid"
)

const (
	DefaultCanvasWidth  = 500
	DefaultCanvasHeight = 600
	DuplicateOffset     = 20
)

type ReorderAction string

const (
	ToFront  ReorderAction = "to-front"
	ToBack   ReorderAction = "to-back"
	Forward  ReorderAction = "forward"
	Backward ReorderAction = "backward"
)

// Limits is the clamp policy applied to gestures.
type Limits struct {
	MinScale float64
	MaxScale float64
	// DesignArea, when set, is the printable region moves are kept inside.
	DesignArea *Rect
}

func DefaultLimits() Limits {
	return Limits{MinScale: 0.1, MaxScale: 5}
}

func (l Limits) clampScale(s float64) float64 {
	return clamp(s, l.MinScale, l.MaxScale)
}

type SurfaceOption func(*Surface)

// WithMeasurer replaces the approximate text measurer.
func WithMeasurer(m Measurer) SurfaceOption {
	return func(s *Surface) { s.measurer = m }
}

func WithLimits(l Limits) SurfaceOption {
	return func(s *Surface) { s.limits = l }
}

func WithCanvasSize(w, h float64) SurfaceOption {
	return func(s *Surface) { s.width, s.height = w, h }
}

// WithHistoryLimit bounds each side's history. Zero means unbounded.
func WithHistoryLimit(n int) SurfaceOption {
	return func(s *Surface) { s.historyLimit = n }
}

func WithIDGenerator(fn func() string) SurfaceOption {
	return func(s *Surface) { s.newID = fn }
}

type sideState struct {
	scene   design.Scene
	history *History
}

// Surface owns the scenes of both garment sides, the selection and the
// per-side histories. It is not safe for concurrent use; its owner must
// serialise calls.
type Surface struct {
	width, height float64
	live          design.Side
	sides         map[design.Side]*sideState
	selection     string
	limits        Limits
	measurer      Measurer
	viewport      Viewport
	newID         func() string
	historyLimit  int

	listeners    map[int]func(design.Side, HistoryState)
	nextListener int

	// interrupt reverts an in-flight gesture draft. Set by NewGestures.
	interrupt func()

	loadSeq atomic.Uint64
}

func NewSurface(opts ...SurfaceOption) *Surface {
	s := &Surface{
		width:     DefaultCanvasWidth,
		height:    DefaultCanvasHeight,
		live:      design.SideFront,
		sides:     make(map[design.Side]*sideState, len(design.Sides)),
		limits:    DefaultLimits(),
		measurer:  ApproxMeasurer{},
		viewport:  DefaultViewport(),
		newID:     typeid.NewObjectID,
		listeners: make(map[int]func(design.Side, HistoryState)),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, side := range design.Sides {
		st := &sideState{
			scene:   design.Scene{Side: side, Objects: []design.Object{}},
			history: NewHistory(nil, s.historyLimit),
		}
		st.history.Subscribe(func(hs HistoryState) { s.emit(side, hs) })
		s.sides[side] = st
	}
	return s
}

// --- Queries ---

func (s *Surface) Side() design.Side { return s.live }

func (s *Surface) Size() (float64, float64) { return s.width, s.height }

func (s *Surface) Limits() Limits { return s.limits }

func (s *Surface) Measurer() Measurer { return s.measurer }

func (s *Surface) Viewport() Viewport { return s.viewport }

// Selection returns the selected object id, or "".
func (s *Surface) Selection() string { return s.selection }

// Selected returns a copy of the selected object.
func (s *Surface) Selected() (design.Object, bool) {
	if s.selection == "" {
		return design.Object{}, false
	}
	return s.Object(s.selection)
}

// Object returns a copy of a live-side object.
func (s *Surface) Object(id string) (design.Object, bool) {
	st := s.current()
	idx := st.scene.IndexOf(id)
	if idx < 0 {
		return design.Object{}, false
	}
	return st.scene.Objects[idx].Clone(), true
}

// Scene returns a deep copy of one side's scene.
func (s *Surface) Scene(side design.Side) design.Scene {
	st, ok := s.sides[side]
	if !ok {
		return design.Scene{Side: side}
	}
	return st.scene.Clone()
}

// Snapshot returns a deep copy of the live side's objects in paint order.
func (s *Surface) Snapshot() []design.Object {
	return cloneSnapshot(s.current().scene.Objects)
}

// SnapshotSide returns a deep copy of the given side's objects.
func (s *Surface) SnapshotSide(side design.Side) []design.Object {
	st, ok := s.sides[side]
	if !ok {
		return []design.Object{}
	}
	return cloneSnapshot(st.scene.Objects)
}

// Quad returns the rotated canvas-space box of a live-side object.
func (s *Surface) Quad(id string) (Quad, bool) {
	o, ok := s.Object(id)
	if !ok {
		return Quad{}, false
	}
	return ObjectQuad(o, s.measurer), true
}

// HitTest returns the topmost visible, unlocked object containing the
// canvas point, or "".
func (s *Surface) HitTest(p Point) string {
	objs := s.current().scene.Objects
	for i := len(objs) - 1; i >= 0; i-- {
		o := objs[i]
		if !o.Visible || o.Locked {
			continue
		}
		if containsPoint(o, s.measurer, p) {
			return o.ID
		}
	}
	return ""
}

func (s *Surface) Background(side design.Side) design.Background {
	if st, ok := s.sides[side]; ok {
		return st.scene.Background
	}
	return design.Background{}
}

// --- Mutations ---

func (s *Surface) SetBackground(side design.Side, bg design.Background) {
	if st, ok := s.sides[side]; ok {
		st.scene.Background = bg
	}
}

func (s *Surface) SetViewport(v Viewport) {
	s.viewport = v.WithZoom(v.zoom())
}

// ZoomBy multiplies the zoom by factor, clamped to [MinZoom, MaxZoom].
func (s *Surface) ZoomBy(factor float64) float64 {
	s.viewport = s.viewport.WithZoom(s.viewport.zoom() * factor)
	return s.viewport.Zoom
}

// SetSide makes side the live scene. The other side is kept intact and
// the selection is cleared.
func (s *Surface) SetSide(side design.Side) bool {
	st, ok := s.sides[side]
	if !ok || side == s.live {
		return false
	}
	s.interruptGesture()
	s.live = side
	s.selection = ""
	s.emit(side, st.history.State())
	return true
}

// AddObject appends obj at the top of the live scene and commits. A
// missing or duplicate id is replaced with a fresh one.
func (s *Surface) AddObject(obj design.Object) (string, bool) {
	obj = obj.Clone()
	if err := obj.Validate(); err != nil {
		slog.Debug("add object rejected", "error", err)
		return "", false
	}
	s.interruptGesture()
	st := s.current()
	if obj.ID == "" || st.scene.IndexOf(obj.ID) >= 0 {
		obj.ID = s.uniqueID(st)
	}
	st.scene.Objects = append(st.scene.Objects, obj)
	s.commit(st)
	return obj.ID, true
}

// RemoveObject deletes an unlocked object and commits.
func (s *Surface) RemoveObject(id string) bool {
	s.interruptGesture()
	st := s.current()
	idx := st.scene.IndexOf(id)
	if idx < 0 {
		return false
	}
	if st.scene.Objects[idx].Locked {
		slog.Debug("remove rejected", "object", id, "reason", "locked")
		return false
	}
	st.scene.Objects = slices.Delete(st.scene.Objects, idx, idx+1)
	if s.selection == id {
		s.selection = ""
	}
	s.commit(st)
	return true
}

// SetActiveObject selects id, replacing any prior selection. An empty id
// clears the selection. Locked, hidden and unknown objects are rejected
// and leave the selection unchanged.
func (s *Surface) SetActiveObject(id string) bool {
	if id == "" {
		s.selection = ""
		return true
	}
	o, ok := s.Object(id)
	if !ok || o.Locked || !o.Visible {
		slog.Debug("select rejected", "object", id)
		return false
	}
	s.selection = id
	return true
}

func (s *Surface) ClearSelection() { s.selection = "" }

// Reorder moves an object within the paint order. The background is not
// part of the object list, so no action can place an object beneath it.
func (s *Surface) Reorder(id string, action ReorderAction) bool {
	s.interruptGesture()
	st := s.current()
	idx := st.scene.IndexOf(id)
	if idx < 0 || st.scene.Objects[idx].Locked {
		return false
	}
	last := len(st.scene.Objects) - 1
	target := idx
	switch action {
	case ToFront:
		target = last
	case ToBack:
		target = 0
	case Forward:
		target = min(idx+1, last)
	case Backward:
		target = max(idx-1, 0)
	default:
		slog.Debug("unknown reorder action", "action", action)
		return false
	}
	if target == idx {
		return false
	}
	obj := st.scene.Objects[idx]
	st.scene.Objects = slices.Delete(st.scene.Objects, idx, idx+1)
	st.scene.Objects = slices.Insert(st.scene.Objects, target, obj)
	s.commit(st)
	return true
}

// Mutate applies a patch to an unlocked live-side object. Intermediate
// gesture frames pass commit=false; a commit pushes history only when the
// scene differs from the current history entry. A committing call first
// reverts any in-flight gesture draft.
func (s *Surface) Mutate(id string, p design.Patch, commit bool) bool {
	if commit {
		s.interruptGesture()
	}
	st := s.current()
	idx := st.scene.IndexOf(id)
	if idx < 0 {
		slog.Debug("mutate rejected", "object", id, "reason", "not found")
		return false
	}
	cur := st.scene.Objects[idx]
	if cur.Locked {
		slog.Debug("mutate rejected", "object", id, "reason", "locked")
		return false
	}
	next, err := p.Apply(cur)
	if err != nil {
		slog.Debug("mutate rejected", "object", id, "error", err)
		return false
	}
	st.scene.Objects[idx] = next
	if !next.Visible && s.selection == id {
		s.selection = ""
	}
	if commit {
		s.commit(st)
	}
	return true
}

// Commit records the live scene in history if it changed since the last
// entry. It reports whether an entry was pushed.
func (s *Surface) Commit() bool {
	return s.commit(s.current())
}

// SetLocked locks or unlocks an object. Locking the selection clears it.
func (s *Surface) SetLocked(id string, locked bool) bool {
	s.interruptGesture()
	st := s.current()
	idx := st.scene.IndexOf(id)
	if idx < 0 {
		return false
	}
	st.scene.Objects[idx].Locked = locked
	if locked && s.selection == id {
		s.selection = ""
	}
	s.commit(st)
	return true
}

// Duplicate copies an object, offsets it and selects the copy.
func (s *Surface) Duplicate(id string) (string, bool) {
	o, ok := s.Object(id)
	if !ok || o.Locked {
		return "", false
	}
	o.ID = ""
	o.Transform.X += DuplicateOffset
	o.Transform.Y += DuplicateOffset
	o.Transform = s.clampToArea(o, o.Transform)
	newID, ok := s.AddObject(o)
	if !ok {
		return "", false
	}
	s.SetActiveObject(newID)
	return newID, true
}

// Center moves an object to the center of the design area, or of the
// canvas when no area is configured.
func (s *Surface) Center(id string) bool {
	x, y := s.width/2, s.height/2
	if a := s.limits.DesignArea; a != nil {
		x, y = a.Center()
	}
	return s.Mutate(id, design.Patch{X: &x, Y: &y}, true)
}

// RotateBy adds deg to an object's rotation and commits.
func (s *Surface) RotateBy(id string, deg float64) bool {
	o, ok := s.Object(id)
	if !ok {
		return false
	}
	r := o.Transform.Rotation + deg
	return s.Mutate(id, design.Patch{Rotation: &r}, true)
}

// LoadSnapshot replaces the live side's objects with the valid entries of
// objs, in order, and commits. It returns the number of objects loaded.
func (s *Surface) LoadSnapshot(objs []design.Object) int {
	s.interruptGesture()
	st := s.current()
	n := s.replaceObjects(st, objs)
	s.commit(st)
	return n
}

// Undo restores the previous history entry of the live side.
func (s *Surface) Undo() bool {
	s.interruptGesture()
	st := s.current()
	snap, ok := st.history.Undo()
	if !ok {
		return false
	}
	s.restore(st, snap)
	return true
}

// Redo restores the next history entry of the live side.
func (s *Surface) Redo() bool {
	s.interruptGesture()
	st := s.current()
	snap, ok := st.history.Redo()
	if !ok {
		return false
	}
	s.restore(st, snap)
	return true
}

func (s *Surface) CanUndo() bool { return s.current().history.CanUndo() }

func (s *Surface) CanRedo() bool { return s.current().history.CanRedo() }

// HistoryState reports the live side's history position.
func (s *Surface) HistoryState() HistoryState { return s.current().history.State() }

// OnHistoryChange registers fn to run after any history change on either
// side, and after a side switch with the new side's state.
func (s *Surface) OnHistoryChange(fn func(design.Side, HistoryState)) (cancel func()) {
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

// --- internals ---

func (s *Surface) current() *sideState {
	return s.sides[s.live]
}

// interruptGesture runs before every edit that commits, so history never
// records a gesture's uncommitted draft.
func (s *Surface) interruptGesture() {
	if s.interrupt != nil {
		s.interrupt()
	}
}

// setTransform writes t to a live-side object without the lock check or a
// commit. Gestures use it to put back the pre-gesture transform.
func (s *Surface) setTransform(id string, t design.Transform) bool {
	st := s.current()
	idx := st.scene.IndexOf(id)
	if idx < 0 {
		return false
	}
	st.scene.Objects[idx].Transform = t
	return true
}

func (s *Surface) commit(st *sideState) bool {
	if st.history.Matches(st.scene.Objects) {
		return false
	}
	st.history.Push(st.scene.Objects)
	return true
}

func (s *Surface) restore(st *sideState, snap []design.Object) {
	st.scene.Objects = snap
	if st.scene.Side == s.live && s.selection != "" && st.scene.IndexOf(s.selection) < 0 {
		s.selection = ""
	}
}

// replaceObjects swaps in the valid entries of objs and reports how many
// were kept. Invalid entries are skipped; duplicate ids are reassigned.
func (s *Surface) replaceObjects(st *sideState, objs []design.Object) int {
	out := make([]design.Object, 0, len(objs))
	seen := make(map[string]bool, len(objs))
	for i, o := range objs {
		o = o.Clone()
		if err := o.Validate(); err != nil {
			slog.Warn("skipping invalid object", "index", i, "object", o.ID, "error", err)
			continue
		}
		if o.ID == "" || seen[o.ID] {
			o.ID = s.newID()
		}
		seen[o.ID] = true
		out = append(out, o)
	}
	st.scene.Objects = out
	if st.scene.Side == s.live {
		s.selection = ""
	}
	return len(out)
}

// resetSide loads objs into side and makes them the history base.
func (s *Surface) resetSide(side design.Side, objs []design.Object) int {
	st, ok := s.sides[side]
	if !ok {
		return 0
	}
	s.interruptGesture()
	n := s.replaceObjects(st, objs)
	st.history.Reset(st.scene.Objects)
	return n
}

func (s *Surface) uniqueID(st *sideState) string {
	for {
		id := s.newID()
		if st.scene.IndexOf(id) < 0 {
			return id
		}
	}
}

func (s *Surface) emit(side design.Side, hs HistoryState) {
	for _, fn := range s.listeners {
		fn(side, hs)
	}
}

// clampToArea shifts t so the object's axis-aligned bounds stay inside the
// design area. An object larger than the area is centered on that axis.
func (s *Surface) clampToArea(o design.Object, t design.Transform) design.Transform {
	area := s.limits.DesignArea
	if area == nil {
		return t
	}
	o.Transform = t
	b := ObjectQuad(o, s.measurer).Bounds()
	cx, cy := area.Center()

	switch {
	case b.Width > area.Width:
		t.X += cx - (b.X + b.Width/2)
	case b.X < area.X:
		t.X += area.X - b.X
	case b.X+b.Width > area.X+area.Width:
		t.X -= b.X + b.Width - (area.X + area.Width)
	}
	switch {
	case b.Height > area.Height:
		t.Y += cy - (b.Y + b.Height/2)
	case b.Y < area.Y:
		t.Y += area.Y - b.Y
	case b.Y+b.Height > area.Y+area.Height:
		t.Y -= b.Y + b.Height - (area.Y + area.Height)
	}
	return t
}
