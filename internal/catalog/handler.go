package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

type productSummary struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	ColorCount int    `json:"colorCount"`
}

func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.Products()
	out := make([]productSummary, len(products))
	for i, p := range products {
		out[i] = productSummary{ID: p.ID, Label: p.Label, ColorCount: len(p.Colors)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Colors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.catalog.Colors(mux.Vars(r)["product"])
	if err != nil {
		if errors.Is(err, ErrUnknownProduct) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown product"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, colors)
}

func (h *Handler) Background(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	side := design.Side(q.Get("side"))
	if side == "" {
		side = design.SideFront
	}
	if !side.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "side must be front or back"})
		return
	}
	product, color := q.Get("product"), q.Get("color")
	writeJSON(w, http.StatusOK, map[string]string{
		"url":       h.catalog.Resolve(product, color, side),
		"textColor": h.catalog.TextColor(product, color),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
