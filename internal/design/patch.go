package design

import (
	"errors"
	"fmt"
)

var ErrKindMismatch = errors.New("patch does not apply to this object kind")

// Patch is a partial update to an object. Nil fields are left unchanged.
type Patch struct {
	X        *float64   `json:"x,omitempty"`
	Y        *float64   `json:"y,omitempty"`
	ScaleX   *float64   `json:"scaleX,omitempty"`
	ScaleY   *float64   `json:"scaleY,omitempty"`
	Rotation *float64   `json:"rotation,omitempty"`
	Visible  *bool      `json:"visible,omitempty"`
	Text     *TextPatch `json:"text,omitempty"`
}

type TextPatch struct {
	Content    *string  `json:"content,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Bold       *bool    `json:"bold,omitempty"`
	Italic     *bool    `json:"italic,omitempty"`
	Underline  *bool    `json:"underline,omitempty"`
	Align      *Align   `json:"align,omitempty"`
}

// TransformPatch builds a patch that replaces the whole transform.
func TransformPatch(t Transform) Patch {
	return Patch{X: &t.X, Y: &t.Y, ScaleX: &t.ScaleX, ScaleY: &t.ScaleY, Rotation: &t.Rotation}
}

func (p Patch) Empty() bool {
	return p.X == nil && p.Y == nil && p.ScaleX == nil && p.ScaleY == nil &&
		p.Rotation == nil && p.Visible == nil && p.Text == nil
}

// Apply returns a copy of o with the patch applied. o itself is untouched.
// The result is validated, so a patch can never produce a NaN transform or a
// non-positive scale.
func (p Patch) Apply(o Object) (Object, error) {
	out := o.Clone()
	t := &out.Transform
	set(&t.X, p.X)
	set(&t.Y, p.Y)
	set(&t.ScaleX, p.ScaleX)
	set(&t.ScaleY, p.ScaleY)
	set(&t.Rotation, p.Rotation)
	*t = t.Normalized()
	set(&out.Visible, p.Visible)

	if p.Text != nil {
		txt, ok := out.Content.(*Text)
		if !ok {
			return o, fmt.Errorf("text patch on %s object: %w", out.Kind(), ErrKindMismatch)
		}
		tp := p.Text
		set(&txt.Content, tp.Content)
		set(&txt.FontFamily, tp.FontFamily)
		set(&txt.FontSize, tp.FontSize)
		set(&txt.Color, tp.Color)
		set(&txt.Bold, tp.Bold)
		set(&txt.Italic, tp.Italic)
		set(&txt.Underline, tp.Underline)
		set(&txt.Align, tp.Align)
	}

	if err := out.Validate(); err != nil {
		return o, err
	}
	return out, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
