package engine

import (
	"encoding/json"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Z"].
type PathCommand []interface{}

// DrawCommand represents a single drawing operation for the frontend to execute.
// Transforms already include the viewport, so the frontend draws in screen space.
type DrawCommand struct {
	Op        string        `json:"op"`                  // "background", "image", "text", "outline"
	ObjectID  string        `json:"objectId,omitempty"`  // For hit correlation
	Transform []float64     `json:"transform,omitempty"` // [a, b, c, d, e, f] affine matrix
	Path      []PathCommand `json:"path,omitempty"`      // Outline path
	Stroke    string        `json:"stroke,omitempty"`
	Source    string        `json:"src,omitempty"`    // Image or background URL
	Width     float64       `json:"width,omitempty"`  // Content box size
	Height    float64       `json:"height,omitempty"` // Content box size

	Text *design.Text `json:"text,omitempty"`
}

const selectionStroke = "#3b82f6"

// CompileDrawCommands generates a draw command buffer for a scene.
// Commands are in painter's order (back to front): background, visible
// objects, then the selection outline.
func CompileDrawCommands(scene design.Scene, width, height float64, vp Viewport, m Measurer, selection string) []DrawCommand {
	view := vp.Matrix()
	commands := make([]DrawCommand, 0, len(scene.Objects)+2)

	if scene.Background.URL != "" {
		commands = append(commands, DrawCommand{
			Op:        "background",
			Transform: view.ToSlice(),
			Source:    scene.Background.URL,
			Width:     width,
			Height:    height,
		})
	}

	for _, o := range scene.Objects {
		if !o.Visible {
			continue
		}
		w, h := ContentSize(o, m)
		cmd := DrawCommand{
			ObjectID:  o.ID,
			Transform: view.Multiply(ContentMatrix(o.Transform, w, h)).ToSlice(),
			Width:     w,
			Height:    h,
		}
		switch c := o.Content.(type) {
		case *design.Image:
			cmd.Op = "image"
			cmd.Source = c.Source
		case *design.Text:
			cmd.Op = "text"
			t := *c
			cmd.Text = &t
		default:
			continue
		}
		commands = append(commands, cmd)
	}

	if idx := scene.IndexOf(selection); idx >= 0 && scene.Objects[idx].Visible {
		q := ObjectQuad(scene.Objects[idx], m)
		path := make([]PathCommand, 0, 5)
		for i, p := range q {
			sp := vp.ToScreen(p)
			op := "L"
			if i == 0 {
				op = "M"
			}
			path = append(path, PathCommand{op, sp.X, sp.Y})
		}
		path = append(path, PathCommand{"Z"})
		commands = append(commands, DrawCommand{
			Op:       "outline",
			ObjectID: selection,
			Path:     path,
			Stroke:   selectionStroke,
		})
	}

	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
