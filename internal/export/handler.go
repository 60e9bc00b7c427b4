package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/raster"
)

const maxBodySize = 8 << 20 // 8MB

// Handler renders posted, unsaved designs. It keeps no state.
type Handler struct {
	renderer    *raster.Renderer
	backgrounds raster.Backgrounds
	canvas      raster.Options
}

func NewHandler(renderer *raster.Renderer, backgrounds raster.Backgrounds, canvas raster.Options) *Handler {
	return &Handler{renderer: renderer, backgrounds: backgrounds, canvas: canvas}
}

// Preview handles POST /export/preview?side=&format=&quality=&scale=.
// The body is a design record; the response is the rendered image as an
// attachment named after the record.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var rec design.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&rec); err != nil {
		http.Error(w, "invalid design record", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	side := design.SideFront
	if s := q.Get("side"); s != "" {
		side = design.Side(s)
	}
	format, err := raster.ParseFormat(q.Get("format"))
	if err != nil {
		http.Error(w, "invalid format: must be png or jpeg", http.StatusBadRequest)
		return
	}

	opts := h.canvas
	opts.Format = format
	if s := q.Get("quality"); s != "" {
		if opts.Quality, err = strconv.Atoi(s); err != nil {
			http.Error(w, "invalid quality", http.StatusBadRequest)
			return
		}
	}
	if s := q.Get("scale"); s != "" {
		if opts.Scale, err = strconv.ParseFloat(s, 64); err != nil {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
	}

	data, err := h.renderer.RenderRecord(r.Context(), &rec, side, h.backgrounds, opts)
	if err != nil {
		if errors.Is(err, raster.ErrInvalidOptions) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("render preview", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	ext := "png"
	if format == raster.FormatJPEG {
		ext = "jpg"
	}
	slog.Info("preview exported", "side", side, "format", format, "bytes", len(data))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.%s"`, sanitize(rec.Name), side, ext))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func sanitize(name string) string {
	if name == "" {
		return "design"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
