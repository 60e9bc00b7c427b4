// Package raster flattens a scene into a PNG or JPEG, executing the same
// draw commands the browser canvas receives.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/engine"
)

var ErrInvalidOptions = errors.New("invalid render options")

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

const (
	DefaultWidth   = 500
	DefaultHeight  = 600
	DefaultQuality = 90

	minScale = 0.1
	maxScale = 4
)

// ParseFormat accepts png, jpeg or jpg. An empty string means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, s)
}

func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Options controls the output raster. Width and Height are the canvas size
// in design units; Scale multiplies them into pixels.
type Options struct {
	Width   int
	Height  int
	Format  Format
	Quality int
	Scale   float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.Scale == 0 || math.IsNaN(o.Scale) || math.IsInf(o.Scale, 0) {
		o.Scale = 1
	}
	o.Scale = min(max(o.Scale, minScale), maxScale)
	return o
}

// Images decodes the sources referenced by a scene.
type Images interface {
	Decode(ctx context.Context, src string) (image.Image, error)
}

type Renderer struct {
	fonts  *Fonts
	images Images
}

func NewRenderer(fonts *Fonts, images Images) *Renderer {
	return &Renderer{fonts: fonts, images: images}
}

// Render paints the scene's background and visible objects in paint order.
// Images that fail to load are skipped.
func (r *Renderer) Render(ctx context.Context, scene design.Scene, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if opts.Format != FormatPNG && opts.Format != FormatJPEG {
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, opts.Format)
	}

	pw := int(math.Round(float64(opts.Width) * opts.Scale))
	ph := int(math.Round(float64(opts.Height) * opts.Scale))
	canvas := image.NewRGBA(image.Rect(0, 0, pw, ph))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	vp := engine.Viewport{Zoom: opts.Scale}
	cmds := engine.CompileDrawCommands(scene, float64(opts.Width), float64(opts.Height), vp, r.fonts, "")

	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch cmd.Op {
		case "background":
			r.drawBackground(ctx, canvas, cmd)
		case "image":
			r.drawImage(ctx, canvas, cmd)
		case "text":
			r.drawText(canvas, cmd, opts.Scale)
		}
	}

	dc := gg.NewContextForImage(canvas)
	var buf bytes.Buffer
	var err error
	if opts.Format == FormatJPEG {
		err = dc.EncodeJPEG(&buf, opts.Quality)
	} else {
		err = dc.EncodePNG(&buf)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", opts.Format, err)
	}
	return buf.Bytes(), nil
}

// drawBackground fits the product photo inside the canvas, centered,
// keeping its aspect ratio.
func (r *Renderer) drawBackground(ctx context.Context, canvas *image.RGBA, cmd engine.DrawCommand) {
	img, ok := r.load(ctx, cmd.Source)
	if !ok {
		return
	}
	b := img.Bounds()
	view := matrixOf(cmd.Transform)
	fit := min(cmd.Width/float64(b.Dx()), cmd.Height/float64(b.Dy()))
	w, h := float64(b.Dx())*fit, float64(b.Dy())*fit
	x0, y0 := view.TransformPoint((cmd.Width-w)/2, (cmd.Height-h)/2)
	x1, y1 := view.TransformPoint((cmd.Width+w)/2, (cmd.Height+h)/2)
	dst := image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
	draw.CatmullRom.Scale(canvas, dst, img, b, draw.Over, nil)
}

func (r *Renderer) drawImage(ctx context.Context, canvas *image.RGBA, cmd engine.DrawCommand) {
	img, ok := r.load(ctx, cmd.Source)
	if !ok {
		return
	}
	b := img.Bounds()
	if b.Empty() {
		return
	}
	// Map source pixels onto the natural-size content box.
	m := matrixOf(cmd.Transform).
		Multiply(engine.Scale(cmd.Width/float64(b.Dx()), cmd.Height/float64(b.Dy()))).
		Multiply(engine.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
	composite(canvas, img, m)
}

// drawText renders the text box into a supersampled layer sized for its
// final on-canvas scale, then composites it through the object transform.
func (r *Renderer) drawText(canvas *image.RGBA, cmd engine.DrawCommand, viewScale float64) {
	t := cmd.Text
	m := matrixOf(cmd.Transform)
	k := math.Max(math.Hypot(m[0], m[1]), math.Hypot(m[2], m[3]))
	if k <= 0 || math.IsNaN(k) {
		return
	}
	k = max(k, viewScale)

	lw := int(math.Ceil(cmd.Width*k)) + 2
	lh := int(math.Ceil(cmd.Height*k)) + 2
	if lw <= 0 || lh <= 0 || lw*lh > 64<<20 {
		slog.Warn("text layer out of range", "object", cmd.ObjectID, "width", lw, "height", lh)
		return
	}

	face := r.fonts.Face(t, t.FontSize*k)
	metrics := face.Metrics()
	lineBox := t.FontSize * engine.LineHeight * k

	dc := gg.NewContext(lw, lh)
	dc.SetFont(face)
	dc.SetColor(gg.Hex(t.Color).Color())
	for i, line := range strings.Split(t.Content, "\n") {
		adv := face.Advance(line)
		x := 0.0
		switch t.Align {
		case design.AlignCenter:
			x = (cmd.Width*k - adv) / 2
		case design.AlignRight:
			x = cmd.Width*k - adv
		}
		top := float64(i) * lineBox
		baseline := top + (lineBox-(metrics.Ascent+metrics.Descent))/2 + metrics.Ascent
		dc.DrawString(line, x, baseline)
		if t.Underline && line != "" {
			thickness := max(1, t.FontSize*k/15)
			dc.DrawRectangle(x, baseline+metrics.Descent/3, adv, thickness)
			if err := dc.Fill(); err != nil {
				slog.Warn("underline fill failed", "object", cmd.ObjectID, "error", err)
			}
		}
	}

	composite(canvas, dc.Image(), m.Multiply(engine.Scale(1/k, 1/k)))
}

func (r *Renderer) load(ctx context.Context, src string) (image.Image, bool) {
	if r.images == nil || src == "" {
		return nil, false
	}
	img, err := r.images.Decode(ctx, src)
	if err != nil {
		slog.Warn("skipping image", "src", truncate(src, 80), "error", err)
		return nil, false
	}
	return img, true
}

// composite draws src over dst through m, which maps src pixel space
// into dst pixel space.
func composite(dst *image.RGBA, src image.Image, m engine.Matrix2D) {
	aff := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
	draw.BiLinear.Transform(dst, aff, src, src.Bounds(), draw.Over, nil)
}

func matrixOf(s []float64) engine.Matrix2D {
	var m engine.Matrix2D
	copy(m[:], s)
	return m
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Backgrounds resolves the product photo for a side.
type Backgrounds interface {
	Resolve(productID, color string, side design.Side) string
}

// RenderRecord renders one side of a stored design over its product
// photo. Malformed entries are skipped, as in the editor.
func (r *Renderer) RenderRecord(ctx context.Context, rec *design.Record, side design.Side, bg Backgrounds, opts Options) ([]byte, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidOptions, side)
	}
	objs, issues := rec.DecodeSide(side)
	for _, issue := range issues {
		slog.Warn("skipping malformed object", "design", rec.ID, "side", side, "index", issue.Index, "reason", issue.Reason)
	}
	scene := design.Scene{Side: side, Objects: objs}
	if bg != nil {
		scene.Background.URL = bg.Resolve(rec.ProductType, rec.ProductColor, side)
	}
	return r.Render(ctx, scene, opts)
}
