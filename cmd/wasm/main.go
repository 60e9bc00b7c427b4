//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"github.com/teeforge/teeforge/backend-go/internal/catalog"
	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/engine"
	"github.com/teeforge/teeforge/backend-go/internal/imagesrc"
)

var ed *engine.Editor

func main() {
	origin := js.Global().Get("location").Get("origin").String()
	ed = engine.NewEditor(catalog.Default(), imagesrc.New(imagesrc.WithBaseURL(origin)),
		engine.WithMeasurer(engine.MeasureFunc(measureText)),
	)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	api.Set("command", js.FuncOf(command))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("pointerCancel", js.FuncOf(pointerCancel))
	api.Set("setProduct", js.FuncOf(setProduct))
	api.Set("loadRecord", js.FuncOf(loadRecord))
	api.Set("onHistoryChange", js.FuncOf(onHistoryChange))

	// --- Queries (frontend ← backend) ---
	api.Set("render", js.FuncOf(render))
	api.Set("getHandles", js.FuncOf(getHandles))
	api.Set("getState", js.FuncOf(getState))
	api.Set("getSelected", js.FuncOf(getSelected))
	api.Set("toRecord", js.FuncOf(toRecord))

	js.Global().Set("teeforgeEditor", api)
	js.Global().Set("teeforgeWasmReady", js.ValueOf(true))

	select {}
}

// measureText asks the page's canvas for text metrics when it offers a
// teeforgeMeasureText(json) function returning {width, height}.
func measureText(t *design.Text) (float64, float64) {
	fn := js.Global().Get("teeforgeMeasureText")
	if fn.Type() != js.TypeFunction {
		return engine.ApproxMeasurer{}.MeasureText(t)
	}
	data, _ := json.Marshal(t)
	res := fn.Invoke(string(data))
	if res.Type() != js.TypeObject {
		return engine.ApproxMeasurer{}.MeasureText(t)
	}
	return res.Get("width").Float(), res.Get("height").Float()
}

func errorResult(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

// --- Command Handlers ---

// command runs a named editor command; args is an optional JSON string.
func command(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing command name"})
	}
	var raw json.RawMessage
	if len(args) > 1 && args[1].Type() == js.TypeString {
		raw = json.RawMessage(args[1].String())
	}
	res, err := ed.Command(args[0].String(), raw)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": res.OK, "id": res.ID})
}

func point(args []js.Value) (engine.Point, bool) {
	if len(args) < 2 {
		return engine.Point{}, false
	}
	return engine.Point{X: args[0].Float(), Y: args[1].Float()}, true
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	p, ok := point(args)
	if !ok {
		return js.ValueOf(false)
	}
	if len(args) > 2 && args[2].Type() == js.TypeString && args[2].String() != "" {
		return js.ValueOf(ed.PointerDownOn(engine.Handle(args[2].String()), p))
	}
	return js.ValueOf(ed.PointerDown(p))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	p, ok := point(args)
	if !ok {
		return js.ValueOf(false)
	}
	return js.ValueOf(ed.PointerMove(p))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.PointerUp())
}

func pointerCancel(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.PointerCancel())
}

func setProduct(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	ed.SetProduct(args[0].String(), args[1].String())
	return nil
}

// loadRecord returns a Promise since image probes go over fetch, which
// must not block the JS event loop.
func loadRecord(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing record JSON"})
	}
	var rec design.Record
	if err := json.Unmarshal([]byte(args[0].String()), &rec); err != nil {
		return errorResult(err)
	}

	promise := js.Global().Get("Promise")
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, p []js.Value) interface{} {
		resolve, reject := p[0], p[1]
		go func() {
			defer executor.Release()
			report, err := ed.LoadRecord(context.Background(), rec)
			if err != nil {
				reject.Invoke(err.Error())
				return
			}
			data, _ := json.Marshal(report)
			resolve.Invoke(string(data))
		}()
		return nil
	})
	return promise.New(executor)
}

// onHistoryChange registers a callback(side, canUndo, canRedo) and returns
// a function that unregisters it.
func onHistoryChange(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	cb := args[0]
	stop := ed.OnHistoryChange(func(side design.Side, st engine.HistoryState) {
		cb.Invoke(string(side), st.CanUndo, st.CanRedo)
	})
	var release js.Func
	release = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		stop()
		release.Release()
		return nil
	})
	return release
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.Render())
}

func getHandles(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.HandlesJSON())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.StateJSON())
}

func getSelected(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ed.SelectedJSON())
}

// toRecord takes optional JSON metadata {id, name, previewImage}.
func toRecord(this js.Value, args []js.Value) interface{} {
	var meta struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		PreviewImage string `json:"previewImage"`
	}
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &meta); err != nil {
			return errorResult(err)
		}
	}
	rec, err := ed.ToRecord(engine.RecordMeta{ID: meta.ID, Name: meta.Name, PreviewImage: meta.PreviewImage})
	if err != nil {
		return errorResult(err)
	}
	data, _ := json.Marshal(rec)
	return js.ValueOf(string(data))
}
