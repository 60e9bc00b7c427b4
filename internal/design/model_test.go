package design

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizeAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{45, 45},
		{360, 0},
		{370, 10},
		{-10, 350},
		{-360, 0},
		{725, 5},
	}
	for _, c := range cases {
		if got := NormalizeAngle(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v): got %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewText("hello", 10, 20, Text{Bold: true})
	cp := orig.Clone()

	txt, _ := cp.Text()
	txt.Content = "changed"
	cp.Transform.X = 99

	o, _ := orig.Text()
	if o.Content != "hello" {
		t.Errorf("clone shares text content: got %q", o.Content)
	}
	if orig.Transform.X != 10 {
		t.Errorf("clone shares transform: got %v", orig.Transform.X)
	}
}

func TestNewTextDefaults(t *testing.T) {
	o := NewText("hi", 0, 0, Text{})
	txt, ok := o.Text()
	if !ok {
		t.Fatal("NewText did not produce text content")
	}
	if txt.FontFamily != DefaultFontFamily || txt.FontSize != DefaultFontSize || txt.Align != AlignLeft {
		t.Errorf("unexpected defaults: %+v", *txt)
	}
	if !o.Visible || o.Transform.ScaleX != 1 || o.Transform.ScaleY != 1 {
		t.Errorf("unexpected object defaults: %+v", o)
	}
}

func TestValidate(t *testing.T) {
	good := NewImage("/assets/a.png", 100, 50, 0, 0)
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() on valid image: %v", err)
	}

	bad := []Object{
		{Visible: true, Transform: IdentityAt(0, 0)},
		NewImage("", 100, 50, 0, 0),
		NewImage("/a.png", 0, 50, 0, 0),
		NewText("x", math.NaN(), 0, Text{}),
	}
	zeroScale := NewText("x", 0, 0, Text{})
	zeroScale.Transform.ScaleX = 0
	bad = append(bad, zeroScale)

	for i, o := range bad {
		if err := o.Validate(); err == nil {
			t.Errorf("case %d: Validate() accepted %+v", i, o)
		}
	}
}

func TestPatchApply(t *testing.T) {
	o := NewText("hello", 100, 100, Text{})
	x, rot := 150.0, 370.0
	size := 40.0
	out, err := Patch{X: &x, Rotation: &rot, Text: &TextPatch{FontSize: &size}}.Apply(o)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if out.Transform.X != 150 || out.Transform.Y != 100 {
		t.Errorf("position: got (%v, %v), want (150, 100)", out.Transform.X, out.Transform.Y)
	}
	if out.Transform.Rotation != 10 {
		t.Errorf("rotation: got %v, want 10", out.Transform.Rotation)
	}
	if txt, _ := out.Text(); txt.FontSize != 40 {
		t.Errorf("font size: got %v, want 40", txt.FontSize)
	}
	if txt, _ := o.Text(); txt.FontSize != DefaultFontSize {
		t.Errorf("Apply() mutated the source object")
	}
}

func TestPatchApply_Rejects(t *testing.T) {
	img := NewImage("/a.png", 10, 10, 0, 0)
	content := "nope"
	if _, err := (Patch{Text: &TextPatch{Content: &content}}).Apply(img); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("text patch on image: got %v, want ErrKindMismatch", err)
	}

	nan := math.NaN()
	if _, err := (Patch{X: &nan}).Apply(img); err == nil {
		t.Error("NaN position was accepted")
	}

	neg := -1.0
	if _, err := (Patch{ScaleY: &neg}).Apply(img); err == nil {
		t.Error("negative scale was accepted")
	}
}

func TestObjectsEqual(t *testing.T) {
	a := []Object{NewText("a", 1, 2, Text{}), NewImage("/b.png", 3, 4, 5, 6)}
	b := CloneObjects(a)
	if !ObjectsEqual(a, b) {
		t.Fatal("clones are not equal")
	}
	b[1].Transform.Rotation = 45
	if ObjectsEqual(a, b) {
		t.Error("differing rotation reported equal")
	}
	if ObjectsEqual(a, b[:1]) {
		t.Error("differing lengths reported equal")
	}
}
