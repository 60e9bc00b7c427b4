package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

func TestResolve(t *testing.T) {
	c := Default()
	cases := []struct {
		product, color string
		side           design.Side
		want           string
	}{
		{"gildan-2000", "cherry-red", design.SideFront, "/lovable-uploads/3851f8cf-1f20-45e3-ab85-d7a359385550.png"},
		{"gildan-2000", "Cherry Red", design.SideBack, "/lovable-uploads/ae7310e8-e1a0-4784-a7da-9be679d6ba34.png"},
		{"bella-3001c", "black", design.SideFront, "/bella-3001c/black-front.jpg"},
		{"bella-3001c", "Dark Grey", design.SideBack, "/bella-3001c/dark-grey-back.jpg"},
		{"bella-3001c", "plaid", design.SideFront, c.Placeholder()},
		{"no-such-shirt", "black", design.SideFront, c.Placeholder()},
		{"bella-3001c", "black", "sleeve", c.Placeholder()},
	}
	for _, tc := range cases {
		if got := c.Resolve(tc.product, tc.color, tc.side); got != tc.want {
			t.Errorf("Resolve(%q, %q, %q): got %q, want %q", tc.product, tc.color, tc.side, got, tc.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Heather Grey":       "heather-grey",
		"  Sport  Grey ":     "sport-grey",
		"dark-grey":          "dark-grey",
		"Antique-Cherry Red": "antique-cherry-red",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestIsLight(t *testing.T) {
	cases := map[string]bool{
		"#FFFFFF": true,
		"#fff":    true,
		"#C0C0C0": true,
		"#000000": false,
		"#000080": false,
		"#4169E1": false,
		"nothex":  false,
		"#12345":  false,
	}
	for hex, want := range cases {
		if got := IsLight(hex); got != want {
			t.Errorf("IsLight(%q): got %v, want %v", hex, got, want)
		}
	}
}

func TestTextColor(t *testing.T) {
	c := Default()
	if got := c.TextColor("bella-3001c", "white"); got != darkText {
		t.Errorf("white shirt: got %q", got)
	}
	if got := c.TextColor("bella-3001c", "black"); got != lightText {
		t.Errorf("black shirt: got %q", got)
	}
	if got := c.TextColor("unknown", "unknown"); got != lightText {
		t.Errorf("unknown shirt: got %q", got)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	data := []byte(`{"placeholder":"/p.png","products":[{"id":"a","colors":[]},{"id":"A","colors":[]}]}`)
	if _, err := Parse(data); err == nil {
		t.Error("Parse() accepted duplicate products")
	}
	if _, err := Parse([]byte(`{"products":[]}`)); err == nil {
		t.Error("Parse() accepted a catalog without placeholder")
	}
}

func newRouter() *mux.Router {
	h := NewHandler(Default())
	r := mux.NewRouter()
	r.HandleFunc("/catalog/products", h.Products).Methods("GET")
	r.HandleFunc("/catalog/products/{product}/colors", h.Colors).Methods("GET")
	r.HandleFunc("/catalog/background", h.Background).Methods("GET")
	return r
}

func TestHandlerProducts(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var out []productSummary
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out) != len(Default().Products()) || out[0].ColorCount == 0 {
		t.Errorf("products: got %+v", out)
	}
}

func TestHandlerColors(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/products/bella-3001c/colors", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/products/nope/colors", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown product status: got %d, want 404", rec.Code)
	}
}

func TestHandlerBackground(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/background?product=bella-3001c&color=black&side=back", nil))
	var out map[string]string
	json.NewDecoder(rec.Body).Decode(&out)
	if out["url"] != "/bella-3001c/black-back.jpg" || out["textColor"] != lightText {
		t.Errorf("background: got %+v", out)
	}

	rec = httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/background?product=bella-3001c&color=black&side=left", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad side status: got %d, want 400", rec.Code)
	}
}
