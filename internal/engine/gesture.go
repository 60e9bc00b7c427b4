package engine

import (
	"log/slog"
	"math"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

// Handle identifies an overlay control, or the object body for moves.
type Handle string

const (
	HandleMove     Handle = "move"
	HandleRotate   Handle = "rotate"
	HandleScale    Handle = "scale"
	HandleStretchH Handle = "stretch-h"
	HandleStretchV Handle = "stretch-v"
	HandleLayers   Handle = "layers"
	HandleDelete   Handle = "delete"
)

// Continuous reports whether the handle is dragged rather than clicked.
func (h Handle) Continuous() bool {
	switch h {
	case HandleMove, HandleRotate, HandleScale, HandleStretchH, HandleStretchV:
		return true
	}
	return false
}

// gesture is the Active state of a handle's state machine. Every frame is
// computed from original, never from the live transform.
type gesture struct {
	handle   Handle
	targetID string
	original design.Transform
	start    Point
	center   Point

	startDist  float64
	startAngle float64

	axis       Point
	halfExtent float64
}

// Gestures drives one pointer gesture at a time against a Surface.
type Gestures struct {
	surface *Surface
	active  *gesture
}

// NewGestures binds a gesture controller to s. Any committing edit on s
// cancels the active gesture first.
func NewGestures(s *Surface) *Gestures {
	g := &Gestures{surface: s}
	s.interrupt = func() { g.Cancel() }
	return g
}

func (g *Gestures) Active() bool { return g.active != nil }

// Current returns the active handle and target, if any.
func (g *Gestures) Current() (Handle, string, bool) {
	if g.active == nil {
		return "", "", false
	}
	return g.active.handle, g.active.targetID, true
}

// Begin moves a continuous handle from Idle to Active. It is ignored while
// another gesture is active and rejected for locked, hidden or missing
// targets. pointer is in screen coordinates.
func (g *Gestures) Begin(h Handle, id string, pointer Point) bool {
	if g.active != nil {
		slog.Debug("gesture ignored", "handle", h, "reason", "another gesture is active")
		return false
	}
	if !h.Continuous() {
		return false
	}
	o, ok := g.surface.Object(id)
	if !ok || o.Locked || !o.Visible {
		slog.Debug("gesture rejected", "handle", h, "object", id)
		return false
	}

	p := g.surface.viewport.ToCanvas(pointer)
	t := o.Transform
	gs := &gesture{
		handle:   h,
		targetID: id,
		original: t,
		start:    p,
		center:   Point{t.X, t.Y},
	}
	rel := p.Sub(gs.center)
	gs.startDist = rel.Len()
	gs.startAngle = rel.AngleDegrees()

	w, hgt := ContentSize(o, g.surface.measurer)
	sin, cos := math.Sincos(t.Rotation * math.Pi / 180)
	switch h {
	case HandleStretchH:
		gs.axis = Point{cos, sin}
		gs.halfExtent = w * t.ScaleX / 2
	case HandleStretchV:
		gs.axis = Point{-sin, cos}
		gs.halfExtent = hgt * t.ScaleY / 2
	}

	g.active = gs
	return true
}

// Move computes the live transform for the pointer position and writes it
// without committing. Degenerate frames are skipped. If the target has
// vanished the gesture ends without touching history; a target that became
// locked gets its pre-gesture transform back.
func (g *Gestures) Move(pointer Point) bool {
	gs := g.active
	if gs == nil {
		return false
	}
	o, ok := g.surface.Object(gs.targetID)
	if !ok {
		slog.Debug("gesture target gone", "object", gs.targetID)
		g.active = nil
		return false
	}
	if o.Locked {
		slog.Debug("gesture target locked", "object", gs.targetID)
		g.active = nil
		g.surface.setTransform(gs.targetID, gs.original)
		return false
	}

	p := g.surface.viewport.ToCanvas(pointer)
	next, ok := g.frame(gs, o, p)
	if !ok || !next.Finite() {
		return false
	}
	return g.surface.Mutate(gs.targetID, design.TransformPatch(next), false)
}

func (g *Gestures) frame(gs *gesture, o design.Object, p Point) (design.Transform, bool) {
	t := gs.original
	lim := g.surface.limits

	switch gs.handle {
	case HandleMove:
		d := p.Sub(gs.start)
		t.X += d.X
		t.Y += d.Y
		t = g.surface.clampToArea(o, t)

	case HandleRotate:
		rel := p.Sub(gs.center)
		if gs.startDist < epsilon || rel.Len() < epsilon {
			return t, false
		}
		t.Rotation = design.NormalizeAngle(gs.original.Rotation + rel.AngleDegrees() - gs.startAngle)

	case HandleScale:
		if gs.startDist < epsilon {
			return t, false
		}
		ratio := p.Dist(gs.center) / gs.startDist
		lo := math.Max(lim.MinScale/t.ScaleX, lim.MinScale/t.ScaleY)
		hi := math.Min(lim.MaxScale/t.ScaleX, lim.MaxScale/t.ScaleY)
		if lo > hi {
			return t, false
		}
		ratio = clamp(ratio, lo, hi)
		t.ScaleX *= ratio
		t.ScaleY *= ratio

	case HandleStretchH, HandleStretchV:
		if gs.halfExtent < epsilon {
			return t, false
		}
		factor := 1 + p.Sub(gs.start).Dot(gs.axis)/gs.halfExtent
		if gs.handle == HandleStretchH {
			t.ScaleX = lim.clampScale(t.ScaleX * factor)
		} else {
			t.ScaleY = lim.clampScale(t.ScaleY * factor)
		}

	default:
		return t, false
	}
	return t, true
}

// End returns to Idle and commits the final transform. It reports whether
// a history entry was pushed; a gesture that changed nothing pushes none.
func (g *Gestures) End() bool {
	if g.active == nil {
		return false
	}
	g.active = nil
	return g.surface.Commit()
}

// Cancel reverts the target to its pre-gesture transform and returns to
// Idle without touching history.
func (g *Gestures) Cancel() bool {
	gs := g.active
	if gs == nil {
		return false
	}
	g.active = nil
	return g.surface.setTransform(gs.targetID, gs.original)
}

// Click performs a click handle's action on id. Layers brings the object
// to the front, or sends it to the back when it is already topmost.
func (g *Gestures) Click(h Handle, id string) bool {
	if g.active != nil {
		return false
	}
	o, ok := g.surface.Object(id)
	if !ok || o.Locked {
		return false
	}
	switch h {
	case HandleLayers:
		objs := g.surface.current().scene.Objects
		if objs[len(objs)-1].ID == id {
			return g.surface.Reorder(id, ToBack)
		}
		return g.surface.Reorder(id, ToFront)
	case HandleDelete:
		return g.surface.RemoveObject(id)
	}
	return false
}
