package design

import (
	"errors"
	"fmt"
	"math"
)

type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Sides lists every garment side in a stable order.
var Sides = []Side{SideFront, SideBack}

func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

func (a Align) Valid() bool {
	return a == AlignLeft || a == AlignCenter || a == AlignRight
}

// Transform places an object in canvas space. X and Y are the object's
// center; Rotation is in degrees, clockwise, within [0, 360).
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Rotation float64 `json:"rotation"`
}

// IdentityAt returns an unscaled, unrotated transform centered on (x, y).
func IdentityAt(x, y float64) Transform {
	return Transform{X: x, Y: y, ScaleX: 1, ScaleY: 1}
}

// NormalizeAngle wraps degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

func (t Transform) Normalized() Transform {
	t.Rotation = NormalizeAngle(t.Rotation)
	return t
}

func (t Transform) Finite() bool {
	return finite(t.X) && finite(t.Y) && finite(t.ScaleX) && finite(t.ScaleY) && finite(t.Rotation)
}

// Content is the kind-specific payload of an Object. It is implemented
// only by *Text and *Image.
type Content interface {
	Kind() Kind
	clone() Content
	validate() error
	equal(Content) bool
}

type Text struct {
	Content    string  `json:"content"`
	FontFamily string  `json:"fontFamily"`
	FontSize   float64 `json:"fontSize"`
	Color      string  `json:"color"`
	Bold       bool    `json:"bold,omitempty"`
	Italic     bool    `json:"italic,omitempty"`
	Underline  bool    `json:"underline,omitempty"`
	Align      Align   `json:"align"`
}

func (*Text) Kind() Kind { return KindText }

func (t *Text) clone() Content {
	c := *t
	return &c
}

func (t *Text) validate() error {
	if !finite(t.FontSize) || t.FontSize <= 0 {
		return fmt.Errorf("font size %v must be positive", t.FontSize)
	}
	if !t.Align.Valid() {
		return fmt.Errorf("unknown alignment %q", t.Align)
	}
	return nil
}

func (t *Text) equal(other Content) bool {
	o, ok := other.(*Text)
	return ok && *t == *o
}

type Image struct {
	Source        string  `json:"src"`
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
}

func (*Image) Kind() Kind { return KindImage }

func (i *Image) clone() Content {
	c := *i
	return &c
}

func (i *Image) validate() error {
	if i.Source == "" {
		return errors.New("image source is empty")
	}
	if !finite(i.NaturalWidth) || !finite(i.NaturalHeight) || i.NaturalWidth <= 0 || i.NaturalHeight <= 0 {
		return fmt.Errorf("image size %vx%v must be positive", i.NaturalWidth, i.NaturalHeight)
	}
	return nil
}

func (i *Image) equal(other Content) bool {
	o, ok := other.(*Image)
	return ok && *i == *o
}

// Object is a placed element on one side of a garment. Its z-order is its
// index within the owning scene.
type Object struct {
	ID        string
	Transform Transform
	Visible   bool
	Locked    bool
	Content   Content
}

func (o Object) Kind() Kind {
	if o.Content == nil {
		return ""
	}
	return o.Content.Kind()
}

// Clone returns a deep copy sharing no mutable state with o.
func (o Object) Clone() Object {
	if o.Content != nil {
		o.Content = o.Content.clone()
	}
	return o
}

// Validate reports why o cannot be placed in a scene.
func (o Object) Validate() error {
	if o.Content == nil {
		return errors.New("object has no content")
	}
	if !o.Transform.Finite() {
		return errors.New("transform is not finite")
	}
	if o.Transform.ScaleX <= 0 || o.Transform.ScaleY <= 0 {
		return fmt.Errorf("scale %vx%v must be positive", o.Transform.ScaleX, o.Transform.ScaleY)
	}
	return o.Content.validate()
}

// Equal compares two objects field by field, including content.
func (o Object) Equal(other Object) bool {
	if o.ID != other.ID || o.Transform != other.Transform || o.Visible != other.Visible || o.Locked != other.Locked {
		return false
	}
	if o.Content == nil || other.Content == nil {
		return o.Content == nil && other.Content == nil
	}
	return o.Content.equal(other.Content)
}

// Text returns the text payload, if any.
func (o Object) Text() (*Text, bool) {
	t, ok := o.Content.(*Text)
	return t, ok
}

// Image returns the image payload, if any.
func (o Object) Image() (*Image, bool) {
	i, ok := o.Content.(*Image)
	return i, ok
}

// NewText builds a visible text object centered on (x, y).
func NewText(content string, x, y float64, style Text) Object {
	style.Content = content
	if style.FontFamily == "" {
		style.FontFamily = DefaultFontFamily
	}
	if style.FontSize == 0 {
		style.FontSize = DefaultFontSize
	}
	if style.Color == "" {
		style.Color = "#000000"
	}
	if style.Align == "" {
		style.Align = AlignLeft
	}
	return Object{Transform: IdentityAt(x, y), Visible: true, Content: &style}
}

// NewImage builds a visible image object centered on (x, y).
func NewImage(src string, naturalWidth, naturalHeight, x, y float64) Object {
	return Object{
		Transform: IdentityAt(x, y),
		Visible:   true,
		Content:   &Image{Source: src, NaturalWidth: naturalWidth, NaturalHeight: naturalHeight},
	}
}

const (
	DefaultFontFamily = "Arial"
	DefaultFontSize   = 24
)

// CloneObjects deep-copies a slice of objects.
func CloneObjects(objs []Object) []Object {
	if objs == nil {
		return nil
	}
	out := make([]Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}

// ObjectsEqual reports whether two object lists match in order and content.
func ObjectsEqual(a, b []Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Background is the product photo painted beneath a scene. It is never
// part of the object list.
type Background struct {
	URL    string  `json:"url"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Scene is one side of a garment.
type Scene struct {
	Side       Side
	Background Background
	Objects    []Object
}

func (s Scene) Clone() Scene {
	s.Objects = CloneObjects(s.Objects)
	return s
}

// IndexOf returns the paint rank of id, or -1.
func (s Scene) IndexOf(id string) int {
	for i, o := range s.Objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
