package engine

import (
	"math"
	"testing"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

func handleMap(set HandleSet) map[Handle]Point {
	out := make(map[Handle]Point, len(set.Handles))
	for _, hp := range set.Handles {
		out[hp.Handle] = Point{hp.X, hp.Y}
	}
	return out
}

func TestHandleLayoutUnrotated(t *testing.T) {
	set := HandleLayout(100, 50, design.IdentityAt(250, 300), DefaultViewport(), HandleOffset)
	if !set.Visible {
		t.Fatal("layout should be visible")
	}
	want := map[Handle]Point{
		HandleDelete:   {184, 259},
		HandleRotate:   {316, 259},
		HandleScale:    {316, 341},
		HandleLayers:   {184, 341},
		HandleStretchH: {316, 300},
		HandleStretchV: {250, 341},
	}
	got := handleMap(set)
	if len(got) != len(want) {
		t.Fatalf("handles: got %d, want %d", len(got), len(want))
	}
	for h, p := range want {
		if g := got[h]; !near(g.X, p.X) || !near(g.Y, p.Y) {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", h, g.X, g.Y, p.X, p.Y)
		}
	}
	if b := set.Box; !near(b[0].X, 200) || !near(b[0].Y, 275) || !near(b[2].X, 300) || !near(b[2].Y, 325) {
		t.Errorf("box: got %v", b)
	}
}

func TestHandleLayoutRotated(t *testing.T) {
	tr := design.IdentityAt(0, 0)
	tr.Rotation = 90
	set := HandleLayout(100, 50, tr, DefaultViewport(), HandleOffset)
	got := handleMap(set)

	// The right-edge midpoint rotates to below the center.
	if p := got[HandleStretchH]; !near(p.X, 0) || !near(p.Y, 66) {
		t.Errorf("stretch-h: got (%v, %v), want (0, 66)", p.X, p.Y)
	}
	if set.Rotation != 90 {
		t.Errorf("rotation: got %v", set.Rotation)
	}
}

func TestHandleLayoutScaledAndZoomed(t *testing.T) {
	tr := design.IdentityAt(100, 100)
	tr.ScaleX, tr.ScaleY = 2, 2
	vp := Viewport{Zoom: 2}
	got := handleMap(HandleLayout(100, 50, tr, vp, HandleOffset))

	// Box is 400x200 on screen around (200, 200); the offset stays 16px.
	if p := got[HandleScale]; !near(p.X, 416) || !near(p.Y, 316) {
		t.Errorf("scale: got (%v, %v), want (416, 316)", p.X, p.Y)
	}
}

func TestHandleLayoutIsPure(t *testing.T) {
	tr := design.IdentityAt(10, 20)
	tr.Rotation = 33
	a := HandleLayout(80, 40, tr, DefaultViewport(), HandleOffset)
	b := HandleLayout(80, 40, tr, DefaultViewport(), HandleOffset)
	for i := range a.Handles {
		if a.Handles[i] != b.Handles[i] {
			t.Fatalf("layout differs between calls: %v vs %v", a.Handles[i], b.Handles[i])
		}
	}
}

func TestHandleLayoutRejectsNonFinite(t *testing.T) {
	tr := design.IdentityAt(math.NaN(), 0)
	if set := HandleLayout(10, 10, tr, DefaultViewport(), HandleOffset); set.Visible {
		t.Error("non-finite transform produced handles")
	}
}

func TestHandlesHiddenWithoutSelection(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 250, 300)

	if set := s.Handles(); set.Visible || len(set.Handles) != 0 {
		t.Errorf("handles without selection: %+v", set)
	}
	s.SetActiveObject(a)
	if set := s.Handles(); !set.Visible || set.ObjectID != a || len(set.Handles) != 6 {
		t.Errorf("handles with selection: %+v", set)
	}
	s.ClearSelection()
	if set := s.Handles(); set.Visible {
		t.Error("handles visible after clearing selection")
	}
}

func TestHandlesTrackLiveTransform(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 250, 300)
	s.SetActiveObject(a)
	g := NewGestures(s)

	g.Begin(HandleMove, a, Point{250, 300})
	g.Move(Point{260, 300})
	if p := handleMap(s.Handles())[HandleRotate]; !near(p.X, 326) {
		t.Errorf("rotate handle mid-gesture: got x=%v, want 326", p.X)
	}
	g.End()
}

func TestHandleAt(t *testing.T) {
	s := newTestSurface()
	a := addImage(t, s, 250, 300)
	s.SetActiveObject(a)

	if h, ok := s.HandleAt(Point{318, 262}); !ok || h != HandleRotate {
		t.Errorf("HandleAt near rotate: got %q, %v", h, ok)
	}
	if _, ok := s.HandleAt(Point{250, 300}); ok {
		t.Error("HandleAt at center should miss")
	}
}
