package raster

import (
	"fmt"
	"strings"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/engine"
)

type fontStyle struct {
	mono, bold, italic bool
}

var fontData = map[fontStyle][]byte{
	{}:                         goregular.TTF,
	{bold: true}:               gobold.TTF,
	{italic: true}:             goitalic.TTF,
	{bold: true, italic: true}: gobolditalic.TTF,

	{mono: true}:                           gomono.TTF,
	{mono: true, bold: true}:               gomonobold.TTF,
	{mono: true, italic: true}:             gomonoitalic.TTF,
	{mono: true, bold: true, italic: true}: gomonobolditalic.TTF,
}

var monoFamilies = map[string]bool{
	"courier":     true,
	"courier new": true,
	"monospace":   true,
	"monaco":      true,
	"consolas":    true,
	"menlo":       true,
}

// Fonts maps design font families onto the bundled Go font faces. Every
// family is substituted by Go Regular or Go Mono in the right weight and
// slant. Fonts is safe for concurrent use.
type Fonts struct {
	sources map[fontStyle]*text.FontSource
}

func LoadFonts() (*Fonts, error) {
	f := &Fonts{sources: make(map[fontStyle]*text.FontSource, len(fontData))}
	for style, data := range fontData {
		src, err := text.NewFontSource(data)
		if err != nil {
			return nil, fmt.Errorf("load font %+v: %w", style, err)
		}
		f.sources[style] = src
	}
	return f, nil
}

// Face returns a face for t at size points.
func (f *Fonts) Face(t *design.Text, size float64) text.Face {
	style := fontStyle{
		mono:   monoFamilies[strings.ToLower(strings.TrimSpace(t.FontFamily))],
		bold:   t.Bold,
		italic: t.Italic,
	}
	return f.sources[style].Face(size)
}

// MeasureText implements engine.Measurer with real glyph advances. The
// height follows the same line spacing the editor uses.
func (f *Fonts) MeasureText(t *design.Text) (float64, float64) {
	face := f.Face(t, t.FontSize)
	lines := strings.Split(t.Content, "\n")
	w := 0.0
	for _, l := range lines {
		w = max(w, face.Advance(l))
	}
	w = max(w, t.FontSize/2)
	return w, float64(len(lines)) * t.FontSize * engine.LineHeight
}

var _ engine.Measurer = (*Fonts)(nil)
