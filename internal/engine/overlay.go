package engine

import (
	"math"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

const (
	// HandleOffset pushes handles outward from the box, in screen pixels.
	HandleOffset = 16.0
	// HandleHitRadius is how close a pointer must be to grab a handle.
	HandleHitRadius = 20.0
)

// HandlePosition is one overlay control in screen coordinates.
type HandlePosition struct {
	Handle Handle  `json:"handle"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// HandleSet is the overlay for the current selection. When Visible is
// false every other field is zero.
type HandleSet struct {
	Visible  bool             `json:"visible"`
	ObjectID string           `json:"objectId,omitempty"`
	Rotation float64          `json:"rotation"`
	Box      Quad             `json:"box"`
	Handles  []HandlePosition `json:"handles,omitempty"`
}

// HandleLayout places the overlay controls around an object's rotated box.
// w and h are the unscaled content size; offset is in screen pixels. Delete
// sits top-left, rotate top-right, scale bottom-right, layers bottom-left,
// stretch-h at the right edge midpoint and stretch-v at the bottom edge
// midpoint.
func HandleLayout(w, h float64, t design.Transform, vp Viewport, offset float64) HandleSet {
	z := vp.zoom()
	hw := w * math.Abs(t.ScaleX) * z / 2
	hh := h * math.Abs(t.ScaleY) * z / 2
	if !isFinite(hw) || !isFinite(hh) || !t.Finite() {
		return HandleSet{}
	}

	center := vp.ToScreen(Point{t.X, t.Y})
	sin, cos := math.Sincos(t.Rotation * math.Pi / 180)
	ux := Point{cos, sin}
	uy := Point{-sin, cos}
	at := func(lx, ly float64) Point {
		return center.Add(ux.Mul(lx)).Add(uy.Mul(ly))
	}

	ho, vo := hw+offset, hh+offset
	anchors := []struct {
		h      Handle
		lx, ly float64
	}{
		{HandleDelete, -ho, -vo},
		{HandleRotate, ho, -vo},
		{HandleScale, ho, vo},
		{HandleLayers, -ho, vo},
		{HandleStretchH, ho, 0},
		{HandleStretchV, 0, vo},
	}

	set := HandleSet{
		Visible:  true,
		Rotation: t.Rotation,
		Box:      Quad{at(-hw, -hh), at(hw, -hh), at(hw, hh), at(-hw, hh)},
		Handles:  make([]HandlePosition, 0, len(anchors)),
	}
	for _, a := range anchors {
		p := at(a.lx, a.ly)
		set.Handles = append(set.Handles, HandlePosition{Handle: a.h, X: p.X, Y: p.Y})
	}
	return set
}

// Handles computes the overlay for the current selection from its live
// transform. Nothing is cached, so the result always reflects the latest
// mutation. Without a selectable selection all handles are hidden.
func (s *Surface) Handles() HandleSet {
	o, ok := s.Selected()
	if !ok || !o.Visible || o.Locked {
		return HandleSet{}
	}
	w, h := ContentSize(o, s.measurer)
	set := HandleLayout(w, h, o.Transform, s.viewport, HandleOffset)
	if set.Visible {
		set.ObjectID = o.ID
	}
	return set
}

// HandleAt returns the overlay control under a screen point, if any.
func (s *Surface) HandleAt(p Point) (Handle, bool) {
	set := s.Handles()
	if !set.Visible {
		return "", false
	}
	best, bestDist := Handle(""), HandleHitRadius
	for _, hp := range set.Handles {
		if d := p.Dist(Point{hp.X, hp.Y}); d <= bestDist {
			best, bestDist = hp.Handle, d
		}
	}
	return best, best != ""
}
