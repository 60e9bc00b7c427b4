package imagesrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return buf.Bytes()
}

type memBlobs map[string][]byte

func (m memBlobs) Get(ctx context.Context, name string) ([]byte, string, error) {
	data, ok := m[name]
	if !ok {
		return nil, "", errors.New("not found")
	}
	return data, "image/png", nil
}

func TestProbeDataURI(t *testing.T) {
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 12, 7))
	w, h, err := New().Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe() failed: %v", err)
	}
	if w != 12 || h != 7 {
		t.Errorf("size: got %dx%d, want 12x7", w, h)
	}

	if _, _, err := New().Probe(context.Background(), "data:image/png;base64"); !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("malformed data uri: got %v", err)
	}
}

func TestFetchHTTP(t *testing.T) {
	img := pngBytes(t, 30, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png", "/bella-3001c/black-front.jpg":
			w.Write(img)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := New(WithHTTPClient(srv.Client()), WithBaseURL(srv.URL+"/"))
	ctx := context.Background()

	decoded, err := r.Decode(ctx, srv.URL+"/ok.png")
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Errorf("bounds: got %v", b)
	}

	if _, err := r.Fetch(ctx, "/bella-3001c/black-front.jpg"); err != nil {
		t.Errorf("relative fetch failed: %v", err)
	}
	if _, err := r.Fetch(ctx, srv.URL+"/missing.png"); !errors.Is(err, ErrFetch) {
		t.Errorf("404: got %v, want ErrFetch", err)
	}
}

func TestFetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	r := New(WithHTTPClient(srv.Client()), WithMaxBytes(1024))
	if _, err := r.Fetch(context.Background(), srv.URL+"/big"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}

func TestFetchAssetBlob(t *testing.T) {
	r := New(WithBlobs(memBlobs{"asset_1.png": pngBytes(t, 5, 5)}))
	w, h, err := r.Probe(context.Background(), "/assets/asset_1.png")
	if err != nil || w != 5 || h != 5 {
		t.Errorf("Probe(): got %dx%d, %v", w, h, err)
	}
	if _, err := r.Fetch(context.Background(), "/assets/missing.png"); !errors.Is(err, ErrFetch) {
		t.Errorf("missing blob: got %v, want ErrFetch", err)
	}
}

func TestFetchUnsupported(t *testing.T) {
	r := New()
	for _, src := range []string{"", "ftp://example.com/a.png", "/relative-without-base.png", "blob:abc"} {
		if _, err := r.Fetch(context.Background(), src); !errors.Is(err, ErrUnsupportedSource) {
			t.Errorf("Fetch(%q): got %v, want ErrUnsupportedSource", src, err)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	src := "data:text/plain,hello"
	if _, err := New().Decode(context.Background(), src); err == nil {
		t.Error("Decode() accepted non-image data")
	}
}
