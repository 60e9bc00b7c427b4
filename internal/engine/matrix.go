package engine

import (
	"math"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

// Matrix2D represents a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// RotateDegrees returns a clockwise rotation matrix in y-down space.
func RotateDegrees(degrees float64) Matrix2D {
	sin, cos := math.Sincos(degrees * math.Pi / 180.0)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// Multiply returns m * other, which applies other first, then m.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func (m Matrix2D) Apply(p Point) Point {
	x, y := m.TransformPoint(p.X, p.Y)
	return Point{x, y}
}

// Determinant returns the determinant of the matrix.
func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse of the matrix. ok is false when the matrix
// is singular.
func (m Matrix2D) Invert() (inv Matrix2D, ok bool) {
	det := m.Determinant()
	if math.Abs(det) < epsilon {
		return Identity(), false
	}

	invDet := 1.0 / det
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}, true
}

// FromTransform composes Translate(x, y) * Rotate(r) * Scale(sx, sy) * Translate(-ax, -ay).
// The anchor (ax, ay) is the point of the local space that lands on (x, y).
func FromTransform(x, y, sx, sy, rDegrees, ax, ay float64) Matrix2D {
	sin, cos := math.Sincos(rDegrees * math.Pi / 180.0)
	return Matrix2D{
		cos * sx,
		sin * sx,
		-sin * sy,
		cos * sy,
		x - cos*sx*ax + sin*sy*ay,
		y - sin*sx*ax - cos*sy*ay,
	}
}

// ObjectMatrix maps an object's center-origin local space into canvas space.
func ObjectMatrix(t design.Transform) Matrix2D {
	return FromTransform(t.X, t.Y, t.ScaleX, t.ScaleY, t.Rotation, 0, 0)
}

// ContentMatrix maps a w x h content box, origin at its top-left corner,
// into canvas space. Renderers draw images and text runs through it.
func ContentMatrix(t design.Transform, w, h float64) Matrix2D {
	return FromTransform(t.X, t.Y, t.ScaleX, t.ScaleY, t.Rotation, w/2, h/2)
}

// ToSlice returns the matrix as a float64 slice for JSON serialization.
func (m Matrix2D) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}

const (
	MinZoom  = 0.3
	MaxZoom  = 3.0
	ZoomStep = 1.2
)

// Viewport maps canvas coordinates to screen coordinates. Origin is the
// screen position of the canvas element's top-left corner.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	PanX    float64 `json:"panX"`
	PanY    float64 `json:"panY"`
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
}

func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 || !isFinite(v.Zoom) {
		return 1
	}
	return v.Zoom
}

// Matrix returns the canvas-to-screen transform.
func (v Viewport) Matrix() Matrix2D {
	z := v.zoom()
	return Translate(v.OriginX+v.PanX, v.OriginY+v.PanY).Multiply(Scale(z, z))
}

func (v Viewport) ToScreen(p Point) Point {
	return v.Matrix().Apply(p)
}

func (v Viewport) ToCanvas(p Point) Point {
	z := v.zoom()
	return Point{
		X: (p.X - v.OriginX - v.PanX) / z,
		Y: (p.Y - v.OriginY - v.PanY) / z,
	}
}

// WithZoom returns v zoomed to z (clamped to [MinZoom, MaxZoom]).
func (v Viewport) WithZoom(z float64) Viewport {
	if !isFinite(z) {
		return v
	}
	v.Zoom = clamp(z, MinZoom, MaxZoom)
	return v
}
