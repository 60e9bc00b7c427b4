package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

//go:embed catalog.json
var defaultData []byte

var ErrUnknownProduct = errors.New("unknown product")

const (
	darkText  = "#000000"
	lightText = "#FFFFFF"
)

type Color struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Hex       string `json:"hex"`
	Available bool   `json:"available"`
	Front     string `json:"front,omitempty"`
	Back      string `json:"back,omitempty"`
}

type Product struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Colors []Color `json:"colors"`
}

type file struct {
	Placeholder string    `json:"placeholder"`
	Products    []Product `json:"products"`
}

// Catalog maps products and colors to garment photos. It is read-only
// after Parse and safe for concurrent use.
type Catalog struct {
	placeholder string
	products    []Product
	byID        map[string]int
}

// Parse builds a catalog from its JSON form.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if f.Placeholder == "" {
		return nil, errors.New("parse catalog: placeholder is required")
	}
	c := &Catalog{
		placeholder: f.Placeholder,
		products:    f.Products,
		byID:        make(map[string]int, len(f.Products)),
	}
	for i, p := range f.Products {
		id := NormalizeName(p.ID)
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate product %q", p.ID)
		}
		c.byID[id] = i
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultData)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func (c *Catalog) Placeholder() string { return c.placeholder }

func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Product(id string) (Product, bool) {
	i, ok := c.byID[NormalizeName(id)]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) Colors(productID string) ([]Color, error) {
	p, ok := c.Product(productID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	out := make([]Color, len(p.Colors))
	copy(out, p.Colors)
	return out, nil
}

func (c *Catalog) color(productID, color string) (Product, Color, bool) {
	p, ok := c.Product(productID)
	if !ok {
		return Product{}, Color{}, false
	}
	name := NormalizeName(color)
	for _, col := range p.Colors {
		if col.Name == name {
			return p, col, true
		}
	}
	return p, Color{}, false
}

// Resolve returns the photo URL for a product, color and side. Unknown
// combinations resolve to the placeholder image.
func (c *Catalog) Resolve(productID, color string, side design.Side) string {
	p, col, ok := c.color(productID, color)
	if !ok || !side.Valid() {
		return c.placeholder
	}
	switch {
	case side == design.SideFront && col.Front != "":
		return col.Front
	case side == design.SideBack && col.Back != "":
		return col.Back
	}
	return fmt.Sprintf("/%s/%s-%s.jpg", p.ID, col.Name, side)
}

// TextColor picks black or white text to contrast the shirt color.
// Unknown colors get white text.
func (c *Catalog) TextColor(productID, color string) string {
	_, col, ok := c.color(productID, color)
	if !ok {
		return lightText
	}
	if IsLight(col.Hex) {
		return darkText
	}
	return lightText
}

// NormalizeName lowercases a display name and joins its words with
// hyphens, so "Heather Grey" becomes "heather-grey".
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(s, "-", " "))), "-")
}

// IsLight reports whether a #rgb or #rrggbb color is light enough to need
// dark text, using WCAG relative luminance.
func IsLight(hex string) bool {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return false
	}
	lum := 0.2126*linear(r) + 0.7152*linear(g) + 0.0722*linear(b)
	return lum > 0.179
}

func linear(c uint8) float64 {
	v := float64(c) / 255
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func parseHex(s string) (r, g, b uint8, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
