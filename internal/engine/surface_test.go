package engine

import (
	"testing"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

func TestReorderToFront(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)
	b := addImage(t, s, 200, 200)
	c := addImage(t, s, 300, 300)

	if !s.Reorder(a, ToFront) {
		t.Fatal("Reorder(to-front) failed")
	}
	if got, want := objectIDs(s.Snapshot()), []string{b, c, a}; !sameIDs(got, want) {
		t.Errorf("order: got %v, want %v", got, want)
	}
}

func TestReorderActions(t *testing.T) {
	cases := []struct {
		action ReorderAction
		target int
		want   []int
	}{
		{ToBack, 2, []int{2, 0, 1}},
		{Forward, 0, []int{1, 0, 2}},
		{Backward, 2, []int{0, 2, 1}},
		{ToFront, 1, []int{0, 2, 1}},
	}
	for _, c := range cases {
		s := newTestSurface()
		ids := []string{addImage(t, s, 10, 10), addImage(t, s, 20, 20), addImage(t, s, 30, 30)}
		if !s.Reorder(ids[c.target], c.action) {
			t.Errorf("Reorder(%s) on index %d failed", c.action, c.target)
			continue
		}
		want := make([]string, len(c.want))
		for i, idx := range c.want {
			want[i] = ids[idx]
		}
		if got := objectIDs(s.Snapshot()); !sameIDs(got, want) {
			t.Errorf("Reorder(%s): got %v, want %v", c.action, got, want)
		}
	}
}

func TestReorderAtBoundaryIsNoop(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 10, 10)
	b := addImage(t, s, 20, 20)
	before := s.HistoryState().Len

	if s.Reorder(b, ToFront) || s.Reorder(a, Backward) {
		t.Error("reorder at boundary should report no change")
	}
	if s.Reorder(a, "sideways") {
		t.Error("unknown action should be rejected")
	}
	if s.HistoryState().Len != before {
		t.Error("no-op reorder pushed history")
	}
}

func TestSelectionIsExclusive(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)
	b := addImage(t, s, 300, 300)

	s.SetActiveObject(a)
	s.SetActiveObject(b)
	if s.Selection() != b {
		t.Errorf("Selection(): got %q, want %q", s.Selection(), b)
	}
	if s.SetActiveObject("missing") {
		t.Error("selecting a missing object should fail")
	}
	if s.Selection() != b {
		t.Error("failed select changed the selection")
	}
	s.SetActiveObject("")
	if s.Selection() != "" {
		t.Error("empty id should clear the selection")
	}
}

func TestRemoveClearsSelection(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)
	s.SetActiveObject(a)

	if !s.RemoveObject(a) {
		t.Fatal("RemoveObject() failed")
	}
	if s.Selection() != "" {
		t.Error("removing the selection should clear it")
	}
	if len(s.Snapshot()) != 0 {
		t.Error("object still present")
	}
	if s.RemoveObject(a) {
		t.Error("removing twice should fail")
	}
}

func TestAddObjectAssignsFreshID(t *testing.T) {
	s := newTestSurface()
	o := design.NewImage("/a.png", 10, 10, 0, 0)
	o.ID = "dup"
	first, _ := s.AddObject(o)
	second, _ := s.AddObject(o)
	if first != "dup" || second == "dup" || second == "" {
		t.Errorf("ids: got %q and %q", first, second)
	}

	bad := design.NewImage("", 10, 10, 0, 0)
	if _, ok := s.AddObject(bad); ok {
		t.Error("invalid object should be rejected")
	}
}

func TestLockedObjectIsImmune(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)
	b := addImage(t, s, 300, 300)
	s.SetActiveObject(a)
	s.SetLocked(a, true)
	before := s.Snapshot()

	if s.Selection() != "" {
		t.Error("locking the selection should clear it")
	}
	x := 10.0
	if s.Mutate(a, design.Patch{X: &x}, true) {
		t.Error("Mutate on locked object succeeded")
	}
	if s.RemoveObject(a) {
		t.Error("RemoveObject on locked object succeeded")
	}
	if s.Reorder(a, ToFront) {
		t.Error("Reorder on locked object succeeded")
	}
	if s.SetActiveObject(a) {
		t.Error("SetActiveObject on locked object succeeded")
	}
	if _, ok := s.Duplicate(a); ok {
		t.Error("Duplicate on locked object succeeded")
	}
	if s.HitTest(Point{100, 100}) != "" {
		t.Error("HitTest returned a locked object")
	}
	g := NewGestures(s)
	if g.Begin(HandleMove, a, Point{100, 100}) {
		t.Error("gesture began on locked object")
	}
	if g.Click(HandleDelete, a) {
		t.Error("delete handle removed locked object")
	}

	after := s.Snapshot()
	if !design.ObjectsEqual(before, after) {
		t.Error("locked object changed")
	}

	// b is unaffected and can still be reordered beneath a.
	if !s.Reorder(b, ToBack) {
		t.Error("reordering another object failed")
	}
	s.SetLocked(a, false)
	if !s.Mutate(a, design.Patch{X: &x}, true) {
		t.Error("Mutate after unlock failed")
	}
}

func TestMutateCommitAndUndo(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)

	x := 150.0
	s.Mutate(a, design.Patch{X: &x}, false)
	if s.HistoryState().Len != 2 {
		t.Error("uncommitted mutate pushed history")
	}
	if !s.Commit() {
		t.Fatal("Commit() should push the changed scene")
	}
	if s.Commit() {
		t.Error("second Commit() with no change pushed history")
	}

	s.Undo()
	if got := mustObject(t, s, a).Transform.X; got != 100 {
		t.Errorf("after undo x: got %v, want 100", got)
	}
	s.Redo()
	if got := mustObject(t, s, a).Transform.X; got != 150 {
		t.Errorf("after redo x: got %v, want 150", got)
	}
}

func TestUndoRedoSymmetry(t *testing.T) {
	s := newTestSurface()
	var states [][]design.Object
	states = append(states, s.Snapshot())

	a := addImage(t, s, 100, 100)
	states = append(states, s.Snapshot())
	b := addImage(t, s, 200, 200)
	states = append(states, s.Snapshot())
	x := 50.0
	s.Mutate(a, design.Patch{X: &x}, true)
	states = append(states, s.Snapshot())
	s.Reorder(a, ToFront)
	states = append(states, s.Snapshot())
	s.RemoveObject(b)
	states = append(states, s.Snapshot())

	for i := len(states) - 2; i >= 0; i-- {
		if !s.Undo() {
			t.Fatalf("Undo() failed at step %d", i)
		}
		if !design.ObjectsEqual(s.Snapshot(), states[i]) {
			t.Fatalf("after undo to %d: got %v, want %v", i, objectIDs(s.Snapshot()), objectIDs(states[i]))
		}
	}
	for i := 1; i < len(states); i++ {
		if !s.Redo() {
			t.Fatalf("Redo() failed at step %d", i)
		}
		if !design.ObjectsEqual(s.Snapshot(), states[i]) {
			t.Fatalf("after redo to %d: got %v", i, objectIDs(s.Snapshot()))
		}
	}
}

func TestUndoDropsVanishedSelection(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)
	s.SetActiveObject(a)
	s.Undo()
	if s.Selection() != "" {
		t.Errorf("selection survived undo of its creation: %q", s.Selection())
	}
}

func TestSidesAreIndependent(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)
	s.SetActiveObject(a)

	if !s.SetSide(design.SideBack) {
		t.Fatal("SetSide(back) failed")
	}
	if s.Selection() != "" {
		t.Error("side switch should clear the selection")
	}
	if len(s.Snapshot()) != 0 || s.CanUndo() {
		t.Error("back side should start empty with no history")
	}
	addImage(t, s, 50, 50)
	addImage(t, s, 60, 60)

	s.SetSide(design.SideFront)
	if got := objectIDs(s.Snapshot()); !sameIDs(got, []string{a}) {
		t.Errorf("front objects: got %v", got)
	}
	if len(s.SnapshotSide(design.SideBack)) != 2 {
		t.Error("back side lost objects")
	}
	s.Undo()
	if len(s.SnapshotSide(design.SideBack)) != 2 {
		t.Error("undo on front touched the back side")
	}
	if s.SetSide("left") {
		t.Error("unknown side accepted")
	}
}

func TestLoadSnapshotSkipsInvalid(t *testing.T) {
	s := newTestSurface()
	good := design.NewImage("/a.png", 10, 10, 5, 5)
	good.ID = "keep"
	bad := design.NewImage("/b.png", -1, 10, 5, 5)
	bad.ID = "drop"
	dup := design.NewText("hi", 1, 1, design.Text{})
	dup.ID = "keep"

	if n := s.LoadSnapshot([]design.Object{good, bad, dup}); n != 2 {
		t.Fatalf("LoadSnapshot(): got %d, want 2", n)
	}
	got := objectIDs(s.Snapshot())
	if got[0] != "keep" || got[1] == "keep" {
		t.Errorf("ids: got %v", got)
	}
	if !s.CanUndo() {
		t.Error("LoadSnapshot should be undoable")
	}
}

func TestDuplicateOffsetsAndSelects(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)
	id, ok := s.Duplicate(a)
	if !ok {
		t.Fatal("Duplicate() failed")
	}
	o := mustObject(t, s, id)
	if o.Transform.X != 120 || o.Transform.Y != 120 {
		t.Errorf("copy position: got (%v, %v)", o.Transform.X, o.Transform.Y)
	}
	if s.Selection() != id {
		t.Error("copy not selected")
	}
}

func TestCenterAndRotateBy(t *testing.T) {
	area := Rect{X: 100, Y: 100, Width: 300, Height: 400}
	s := newTestSurface(WithLimits(Limits{MinScale: 0.1, MaxScale: 5, DesignArea: &area}))
	a := addImage(t, s, 120, 130)

	s.Center(a)
	o := mustObject(t, s, a)
	if o.Transform.X != 250 || o.Transform.Y != 300 {
		t.Errorf("center: got (%v, %v), want (250, 300)", o.Transform.X, o.Transform.Y)
	}
	s.RotateBy(a, 350)
	s.RotateBy(a, 15)
	if got := mustObject(t, s, a).Transform.Rotation; !near(got, 5) {
		t.Errorf("rotation: got %v, want 5", got)
	}
}

func TestHitTestTopmost(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 100, 100)
	b := addImage(t, s, 120, 100)

	if got := s.HitTest(Point{110, 100}); got != b {
		t.Errorf("overlap: got %q, want topmost %q", got, b)
	}
	if got := s.HitTest(Point{60, 100}); got != a {
		t.Errorf("left edge: got %q, want %q", got, a)
	}
	if got := s.HitTest(Point{400, 400}); got != "" {
		t.Errorf("empty area: got %q", got)
	}

	hidden := false
	s.Mutate(b, design.Patch{Visible: &hidden}, true)
	if got := s.HitTest(Point{110, 100}); got != a {
		t.Errorf("hidden object hit: got %q", got)
	}
}

func TestHitTestRotated(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 200, 200)
	s.RotateBy(a, 90)

	// 100x50 rotated 90 degrees spans 50 wide and 100 tall.
	if s.HitTest(Point{200, 245}) != a {
		t.Error("point inside rotated box missed")
	}
	if s.HitTest(Point{240, 200}) != "" {
		t.Error("point outside rotated box hit")
	}
}

func TestHistoryObserversPerSide(t *testing.T) {
	s := newTestSurface()
	type event struct {
		side design.Side
		st   HistoryState
	}
	var events []event
	cancel := s.OnHistoryChange(func(side design.Side, st HistoryState) {
		events = append(events, event{side, st})
	})

	addImage(t, s, 10, 10)
	s.SetSide(design.SideBack)
	cancel()
	addImage(t, s, 10, 10)

	if len(events) != 2 {
		t.Fatalf("events: got %d, want 2", len(events))
	}
	if events[0].side != design.SideFront || !events[0].st.CanUndo {
		t.Errorf("first event: got %+v", events[0])
	}
	if events[1].side != design.SideBack || events[1].st.CanUndo {
		t.Errorf("side switch event: got %+v", events[1])
	}
}

func TestZoomClamp(t *testing.T) {
	s := newTestSurface()
	for range 20 {
		s.ZoomBy(ZoomStep)
	}
	if z := s.Viewport().Zoom; z != MaxZoom {
		t.Errorf("zoom in: got %v, want %v", z, MaxZoom)
	}
	for range 40 {
		s.ZoomBy(1 / ZoomStep)
	}
	if z := s.Viewport().Zoom; z != MinZoom {
		t.Errorf("zoom out: got %v, want %v", z, MinZoom)
	}
}
