package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("bad command arguments")
	ErrRejected       = errors.New("command rejected")
)

const (
	// ImageFitSize is the box a newly added image is scaled down to fit.
	ImageFitSize = 200.0
	// RotateStep is the toolbar rotation increment in degrees.
	RotateStep = 15.0
)

// ProductCatalog supplies product backgrounds and contrast text colors.
type ProductCatalog interface {
	Resolve(productID, color string, side design.Side) string
	TextColor(productID, color string) string
}

// Editor is the main design editor. It owns a Surface, the gesture state
// machine and the product binding, and is driven by the browser bridge or
// a server session. Like Surface it is not safe for concurrent use.
type Editor struct {
	surface  *Surface
	gestures *Gestures
	catalog  ProductCatalog
	loader   ImageLoader

	product string
	color   string
}

// NewEditor creates an editor. catalog and loader may be nil.
func NewEditor(catalog ProductCatalog, loader ImageLoader, opts ...SurfaceOption) *Editor {
	s := NewSurface(opts...)
	return &Editor{
		surface:  s,
		gestures: NewGestures(s),
		catalog:  catalog,
		loader:   loader,
	}
}

func (e *Editor) Surface() *Surface { return e.surface }

func (e *Editor) Gestures() *Gestures { return e.gestures }

// --- Commands (frontend → engine) ---

// SetProduct binds a product and color and refreshes both backgrounds.
func (e *Editor) SetProduct(productID, color string) {
	e.product, e.color = productID, color
	if e.catalog == nil {
		return
	}
	w, h := e.surface.Size()
	for _, side := range design.Sides {
		e.surface.SetBackground(side, design.Background{
			URL:    e.catalog.Resolve(productID, color, side),
			Width:  w,
			Height: h,
		})
	}
}

func (e *Editor) Product() (productID, color string) {
	return e.product, e.color
}

// PointerDown starts a gesture at a screen point. A handle of the current
// selection wins over the objects beneath it; otherwise the topmost object
// under the pointer is selected and a move begins. Clicking empty canvas
// clears the selection.
func (e *Editor) PointerDown(p Point) bool {
	if e.gestures.Active() {
		return false
	}
	if h, ok := e.surface.HandleAt(p); ok {
		return e.PointerDownOn(h, p)
	}
	id := e.surface.HitTest(e.surface.viewport.ToCanvas(p))
	if id == "" {
		e.surface.ClearSelection()
		return false
	}
	if !e.surface.SetActiveObject(id) {
		return false
	}
	return e.gestures.Begin(HandleMove, id, p)
}

// PointerDownOn starts the named handle's interaction on the selection.
func (e *Editor) PointerDownOn(h Handle, p Point) bool {
	id := e.surface.Selection()
	if id == "" {
		return false
	}
	if !h.Continuous() {
		return e.gestures.Click(h, id)
	}
	return e.gestures.Begin(h, id, p)
}

func (e *Editor) PointerMove(p Point) bool { return e.gestures.Move(p) }

func (e *Editor) PointerUp() bool { return e.gestures.End() }

func (e *Editor) PointerCancel() bool { return e.gestures.Cancel() }

// AddText places a text object at the center of the design area and
// selects it. An empty color contrasts the current shirt color.
func (e *Editor) AddText(content string, style design.Text) (string, bool) {
	if style.Color == "" && e.catalog != nil {
		style.Color = e.catalog.TextColor(e.product, e.color)
	}
	x, y := e.placement()
	id, ok := e.surface.AddObject(design.NewText(content, x, y, style))
	if ok {
		e.surface.SetActiveObject(id)
	}
	return id, ok
}

// AddImage places an image scaled down to fit ImageFitSize, centered in the
// design area, and selects it.
func (e *Editor) AddImage(src string, naturalWidth, naturalHeight float64) (string, bool) {
	obj := design.NewImage(src, naturalWidth, naturalHeight, 0, 0)
	if naturalWidth > 0 && naturalHeight > 0 {
		s := math.Min(1, math.Min(ImageFitSize/naturalWidth, ImageFitSize/naturalHeight))
		obj.Transform.ScaleX, obj.Transform.ScaleY = s, s
	}
	obj.Transform.X, obj.Transform.Y = e.placement()
	id, ok := e.surface.AddObject(obj)
	if ok {
		e.surface.SetActiveObject(id)
	}
	return id, ok
}

func (e *Editor) placement() (float64, float64) {
	if a := e.surface.limits.DesignArea; a != nil {
		return a.Center()
	}
	w, h := e.surface.Size()
	return w / 2, h / 2
}

// Undo cancels any active gesture and steps the live side back.
func (e *Editor) Undo() bool {
	e.gestures.Cancel()
	return e.surface.Undo()
}

// Redo cancels any active gesture and steps the live side forward.
func (e *Editor) Redo() bool {
	e.gestures.Cancel()
	return e.surface.Redo()
}

// SetSide cancels any active gesture and switches the live side.
func (e *Editor) SetSide(side design.Side) bool {
	e.gestures.Cancel()
	return e.surface.SetSide(side)
}

// OnHistoryChange subscribes to history changes on either side.
func (e *Editor) OnHistoryChange(fn func(design.Side, HistoryState)) (cancel func()) {
	return e.surface.OnHistoryChange(fn)
}

// ToRecord snapshots the design with the current product binding.
func (e *Editor) ToRecord(meta RecordMeta) (design.Record, error) {
	meta.ProductType, meta.ProductColor = e.product, e.color
	return ToRecord(e.surface, meta)
}

// LoadRecord replaces the design with rec and rebinds its product.
func (e *Editor) LoadRecord(ctx context.Context, rec design.Record, opts ...LoadOption) (LoadReport, error) {
	e.gestures.Cancel()
	report, err := LoadRecord(ctx, e.surface, rec, e.loader, opts...)
	if err != nil || report.Stale {
		return report, err
	}
	e.SetProduct(rec.ProductType, rec.ProductColor)
	return report, nil
}

// --- Command dispatch ---

type targetArgs struct {
	ID string `json:"id"`
}

type addTextArgs struct {
	design.Text
}

type addImageArgs struct {
	Src    string  `json:"src"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type reorderArgs struct {
	ID     string        `json:"id"`
	Action ReorderAction `json:"action"`
}

type rotateArgs struct {
	ID      string   `json:"id"`
	Degrees *float64 `json:"degrees"`
}

type lockArgs struct {
	ID     string `json:"id"`
	Locked bool   `json:"locked"`
}

type updateArgs struct {
	ID    string       `json:"id"`
	Patch design.Patch `json:"patch"`
}

type sideArgs struct {
	Side design.Side `json:"side"`
}

type productArgs struct {
	Product string `json:"product"`
	Color   string `json:"color"`
}

type pointerArgs struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Handle Handle  `json:"handle,omitempty"`
}

// CommandResult is returned by Command. ID is set by commands that create
// an object.
type CommandResult struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

// Command runs a named editor command with JSON arguments. Commands that
// target an object default to the current selection.
func (e *Editor) Command(name string, args json.RawMessage) (CommandResult, error) {
	decode := func(v any) error {
		if len(args) == 0 || string(args) == "null" {
			return nil
		}
		if err := json.Unmarshal(args, v); err != nil {
			return fmt.Errorf("%w: %v", ErrBadArguments, err)
		}
		return nil
	}
	target := func(id string) string {
		if id == "" {
			return e.surface.Selection()
		}
		return id
	}
	result := func(ok bool) (CommandResult, error) {
		if !ok {
			return CommandResult{}, fmt.Errorf("%s: %w", name, ErrRejected)
		}
		return CommandResult{OK: true}, nil
	}

	switch name {
	case "addText":
		var a addTextArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		id, ok := e.AddText(a.Content, a.Text)
		if !ok {
			return result(false)
		}
		return CommandResult{OK: true, ID: id}, nil

	case "addImage":
		var a addImageArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		id, ok := e.AddImage(a.Src, a.Width, a.Height)
		if !ok {
			return result(false)
		}
		return CommandResult{OK: true, ID: id}, nil

	case "select":
		var a targetArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		e.gestures.Cancel()
		return result(e.surface.SetActiveObject(a.ID))

	case "delete":
		var a targetArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		return result(e.surface.RemoveObject(target(a.ID)))

	case "duplicate":
		var a targetArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		id, ok := e.surface.Duplicate(target(a.ID))
		if !ok {
			return result(false)
		}
		return CommandResult{OK: true, ID: id}, nil

	case "center":
		var a targetArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		return result(e.surface.Center(target(a.ID)))

	case "rotate":
		var a rotateArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		deg := RotateStep
		if a.Degrees != nil {
			deg = *a.Degrees
		}
		return result(e.surface.RotateBy(target(a.ID), deg))

	case "reorder":
		var a reorderArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		return result(e.surface.Reorder(target(a.ID), a.Action))

	case "lock":
		var a lockArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		return result(e.surface.SetLocked(target(a.ID), a.Locked))

	case "update":
		var a updateArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		return result(e.surface.Mutate(target(a.ID), a.Patch, true))

	case "side":
		var a sideArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		if !a.Side.Valid() {
			return CommandResult{}, fmt.Errorf("%w: unknown side %q", ErrBadArguments, a.Side)
		}
		e.SetSide(a.Side)
		return CommandResult{OK: true}, nil

	case "product":
		var a productArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		e.SetProduct(a.Product, a.Color)
		return CommandResult{OK: true}, nil

	case "undo":
		return result(e.Undo())

	case "redo":
		return result(e.Redo())

	case "zoomIn":
		e.surface.ZoomBy(ZoomStep)
		return CommandResult{OK: true}, nil

	case "zoomOut":
		e.surface.ZoomBy(1 / ZoomStep)
		return CommandResult{OK: true}, nil

	case "viewport":
		v := e.surface.Viewport()
		if err := decode(&v); err != nil {
			return CommandResult{}, err
		}
		e.surface.SetViewport(v)
		return CommandResult{OK: true}, nil

	case "pointerDown":
		var a pointerArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		p := Point{a.X, a.Y}
		if a.Handle != "" {
			return result(e.PointerDownOn(a.Handle, p))
		}
		return result(e.PointerDown(p))

	case "pointerMove":
		var a pointerArgs
		if err := decode(&a); err != nil {
			return CommandResult{}, err
		}
		return result(e.PointerMove(Point{a.X, a.Y}))

	case "pointerUp":
		return CommandResult{OK: e.PointerUp()}, nil

	case "pointerCancel":
		return CommandResult{OK: e.PointerCancel()}, nil
	}
	return CommandResult{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// --- Queries (frontend ← engine) ---

// Frame is everything the frontend needs to paint one frame.
type Frame struct {
	Side      design.Side   `json:"side"`
	Selection string        `json:"selection,omitempty"`
	Commands  []DrawCommand `json:"commands"`
	Handles   HandleSet     `json:"handles"`
	History   HistoryState  `json:"history"`
	Viewport  Viewport      `json:"viewport"`
}

// Frame compiles the live side from its current state.
func (e *Editor) Frame() Frame {
	s := e.surface
	w, h := s.Size()
	return Frame{
		Side:      s.Side(),
		Selection: s.Selection(),
		Commands:  CompileDrawCommands(s.Scene(s.Side()), w, h, s.viewport, s.measurer, s.Selection()),
		Handles:   s.Handles(),
		History:   s.HistoryState(),
		Viewport:  s.viewport,
	}
}

// Render returns the live side's draw commands as JSON.
func (e *Editor) Render() string {
	f := e.Frame()
	result, _ := DrawCommandsToJSON(f.Commands)
	return result
}

// HandlesJSON returns the overlay handle positions as JSON.
func (e *Editor) HandlesJSON() string {
	data, _ := json.Marshal(e.surface.Handles())
	return string(data)
}

// EditorState is a compact status summary for toolbars.
type EditorState struct {
	Side        design.Side `json:"side"`
	Selection   string      `json:"selection,omitempty"`
	CanUndo     bool        `json:"canUndo"`
	CanRedo     bool        `json:"canRedo"`
	Product     string      `json:"product"`
	Color       string      `json:"color"`
	ObjectCount int         `json:"objectCount"`
	Zoom        float64     `json:"zoom"`
	Gesture     Handle      `json:"gesture,omitempty"`
}

func (e *Editor) State() EditorState {
	s := e.surface
	h, _, _ := e.gestures.Current()
	return EditorState{
		Side:        s.Side(),
		Selection:   s.Selection(),
		CanUndo:     s.CanUndo(),
		CanRedo:     s.CanRedo(),
		Product:     e.product,
		Color:       e.color,
		ObjectCount: len(s.current().scene.Objects),
		Zoom:        s.viewport.zoom(),
		Gesture:     h,
	}
}

// StateJSON returns State as JSON.
func (e *Editor) StateJSON() string {
	data, _ := json.Marshal(e.State())
	return string(data)
}

// SelectedJSON returns the selected object in its persisted form, or "null".
func (e *Editor) SelectedJSON() string {
	o, ok := e.surface.Selected()
	if !ok {
		return "null"
	}
	data, err := design.EncodeObject(o)
	if err != nil {
		return "null"
	}
	return string(data)
}
