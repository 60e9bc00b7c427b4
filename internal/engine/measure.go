package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

// LineHeight is the line spacing factor applied to a text's font size.
const LineHeight = 1.16

// Measurer reports the unscaled size of a text object's content box.
type Measurer interface {
	MeasureText(t *design.Text) (width, height float64)
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(t *design.Text) (float64, float64)

func (f MeasureFunc) MeasureText(t *design.Text) (float64, float64) { return f(t) }

// ApproxMeasurer estimates text extents from average glyph advance. It
// needs no font data, which keeps it usable inside the browser build.
type ApproxMeasurer struct{}

func (ApproxMeasurer) MeasureText(t *design.Text) (float64, float64) {
	advance := 0.55
	if t.Bold {
		advance = 0.6
	}
	lines := strings.Split(t.Content, "\n")
	widest := 0
	for _, l := range lines {
		widest = max(widest, utf8.RuneCountInString(l))
	}
	w := float64(max(widest, 1)) * t.FontSize * advance
	h := float64(len(lines)) * t.FontSize * LineHeight
	return w, h
}

// ContentSize returns the unscaled width and height of an object.
func ContentSize(o design.Object, m Measurer) (float64, float64) {
	switch c := o.Content.(type) {
	case *design.Text:
		if m == nil {
			m = ApproxMeasurer{}
		}
		return m.MeasureText(c)
	case *design.Image:
		return c.NaturalWidth, c.NaturalHeight
	default:
		return 0, 0
	}
}

// ObjectQuad returns the object's rotated box in canvas space.
func ObjectQuad(o design.Object, m Measurer) Quad {
	w, h := ContentSize(o, m)
	mat := ObjectMatrix(o.Transform)
	hw, hh := w/2, h/2
	return Quad{
		mat.Apply(Point{-hw, -hh}),
		mat.Apply(Point{hw, -hh}),
		mat.Apply(Point{hw, hh}),
		mat.Apply(Point{-hw, hh}),
	}
}

// containsPoint reports whether canvas point p lies inside the object's
// rotated box, by mapping p back into the object's local space.
func containsPoint(o design.Object, m Measurer, p Point) bool {
	inv, ok := ObjectMatrix(o.Transform).Invert()
	if !ok {
		return false
	}
	w, h := ContentSize(o, m)
	local := inv.Apply(p)
	return Rect{X: -w / 2, Y: -h / 2, Width: w, Height: h}.Contains(local.X, local.Y)
}
