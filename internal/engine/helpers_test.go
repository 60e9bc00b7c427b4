package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("obj_%d", n)
	}
}

func newTestSurface(opts ...SurfaceOption) *Surface {
	return NewSurface(append([]SurfaceOption{WithIDGenerator(seqIDs())}, opts...)...)
}

// addImage adds a 100x50 image centered on (x, y).
func addImage(t *testing.T, s *Surface, x, y float64) string {
	t.Helper()
	id, ok := s.AddObject(design.NewImage("/assets/test.png", 100, 50, x, y))
	if !ok {
		t.Fatalf("AddObject() rejected image at (%v, %v)", x, y)
	}
	return id
}

func objectIDs(objs []design.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.ID
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func mustObject(t *testing.T, s *Surface, id string) design.Object {
	t.Helper()
	o, ok := s.Object(id)
	if !ok {
		t.Fatalf("object %s not found", id)
	}
	return o
}
