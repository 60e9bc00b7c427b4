package design

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownKind    = errors.New("unknown object kind")
	ErrMissingField   = errors.New("missing required field")
	errBackgroundItem = errors.New("background entry")
)

// DecodeIssue describes one persisted entry that was skipped on load.
type DecodeIssue struct {
	Side   Side   `json:"side,omitempty"`
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

type wireObject struct {
	ID           string          `json:"id"`
	Kind         Kind            `json:"kind"`
	Type         string          `json:"type,omitempty"`
	Transform    *wireTransform  `json:"transform"`
	Visible      *bool           `json:"visible,omitempty"`
	Locked       bool            `json:"locked,omitempty"`
	IsBackground bool            `json:"isBackground,omitempty"`
	Data         json.RawMessage `json:"data"`
}

type wireTransform struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	ScaleX   *float64 `json:"scaleX,omitempty"`
	ScaleY   *float64 `json:"scaleY,omitempty"`
	Rotation float64  `json:"rotation"`
}

type wireText struct {
	Content    *string `json:"content"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Color      string  `json:"color,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Italic     bool    `json:"italic,omitempty"`
	Underline  bool    `json:"underline,omitempty"`
	Align      Align   `json:"align,omitempty"`
}

// legacyKinds maps type tags written by the previous browser editor.
var legacyKinds = map[string]Kind{
	"text":    KindText,
	"i-text":  KindText,
	"textbox": KindText,
	"image":   KindImage,
}

// EncodeObject renders o in the persisted object format.
func EncodeObject(o Object) (json.RawMessage, error) {
	if o.Content == nil {
		return nil, errors.New("encode object: no content")
	}
	data, err := json.Marshal(o.Content)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", o.Kind(), err)
	}
	t := o.Transform
	visible := o.Visible
	w := wireObject{
		ID:   o.ID,
		Kind: o.Kind(),
		Transform: &wireTransform{
			X: &t.X, Y: &t.Y, ScaleX: &t.ScaleX, ScaleY: &t.ScaleY, Rotation: t.Rotation,
		},
		Visible: &visible,
		Locked:  o.Locked,
		Data:    data,
	}
	return json.Marshal(w)
}

// EncodeObjects encodes a scene's objects in paint order.
func EncodeObjects(objs []Object) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(objs))
	for _, o := range objs {
		raw, err := EncodeObject(o)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", o.ID, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// DecodeObject reconstructs one object. Missing scale defaults to 1,
// missing visibility to true, and text styling to the editor defaults.
func DecodeObject(raw json.RawMessage) (Object, error) {
	var w wireObject
	if err := json.Unmarshal(raw, &w); err != nil {
		return Object{}, fmt.Errorf("malformed entry: %w", err)
	}
	if w.IsBackground {
		return Object{}, errBackgroundItem
	}

	kind := w.Kind
	if kind == "" {
		kind = legacyKinds[w.Type]
	}

	o := Object{ID: w.ID, Visible: true, Locked: w.Locked}
	if w.Visible != nil {
		o.Visible = *w.Visible
	}

	switch kind {
	case KindText:
		var wt wireText
		if err := json.Unmarshal(orEmpty(w.Data), &wt); err != nil {
			return Object{}, fmt.Errorf("text data: %w", err)
		}
		if wt.Content == nil {
			return Object{}, fmt.Errorf("text content: %w", ErrMissingField)
		}
		style := Text{
			FontFamily: wt.FontFamily,
			FontSize:   wt.FontSize,
			Color:      wt.Color,
			Bold:       wt.Bold,
			Italic:     wt.Italic,
			Underline:  wt.Underline,
			Align:      wt.Align,
		}
		o.Content = NewText(*wt.Content, 0, 0, style).Content
	case KindImage:
		var img Image
		if err := json.Unmarshal(orEmpty(w.Data), &img); err != nil {
			return Object{}, fmt.Errorf("image data: %w", err)
		}
		if img.Source == "" {
			return Object{}, fmt.Errorf("image src: %w", ErrMissingField)
		}
		o.Content = &img
	default:
		return Object{}, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}

	if w.Transform == nil || w.Transform.X == nil || w.Transform.Y == nil {
		return Object{}, fmt.Errorf("transform position: %w", ErrMissingField)
	}
	o.Transform = Transform{
		X:        *w.Transform.X,
		Y:        *w.Transform.Y,
		ScaleX:   1,
		ScaleY:   1,
		Rotation: w.Transform.Rotation,
	}.Normalized()
	if w.Transform.ScaleX != nil {
		o.Transform.ScaleX = *w.Transform.ScaleX
	}
	if w.Transform.ScaleY != nil {
		o.Transform.ScaleY = *w.Transform.ScaleY
	}

	if err := o.Validate(); err != nil {
		return Object{}, err
	}
	return o, nil
}

// Entry is a decoded object and its position among the stored entries.
type Entry struct {
	Object Object
	Index  int
}

// DecodeEntries reconstructs entries in order, skipping any entry that
// cannot be decoded. Background entries are dropped without an issue.
func DecodeEntries(entries []json.RawMessage) ([]Entry, []DecodeIssue) {
	out := make([]Entry, 0, len(entries))
	var issues []DecodeIssue
	for i, raw := range entries {
		o, err := DecodeObject(raw)
		if errors.Is(err, errBackgroundItem) {
			continue
		}
		if err != nil {
			issues = append(issues, DecodeIssue{Index: i, ID: peekID(raw), Reason: err.Error()})
			continue
		}
		out = append(out, Entry{Object: o, Index: i})
	}
	return out, issues
}

// DecodeObjects is DecodeEntries without the stored positions.
func DecodeObjects(entries []json.RawMessage) ([]Object, []DecodeIssue) {
	decoded, issues := DecodeEntries(entries)
	objs := make([]Object, len(decoded))
	for i, e := range decoded {
		objs[i] = e.Object
	}
	return objs, issues
}

func peekID(raw json.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}

func orEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage(`{}`)
	}
	return raw
}
