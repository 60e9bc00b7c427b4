package session

import (
	"encoding/json"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/engine"
)

type Message struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client to server
	TypePointerDown    = "pointer.down"
	TypePointerMove    = "pointer.move"
	TypePointerUp      = "pointer.up"
	TypePointerCancel  = "pointer.cancel"
	TypeCommand        = "command"
	TypeDesignLoad     = "design.load"
	TypeDesignSnapshot = "design.snapshot"
	TypeDesignSave     = "design.save"

	// Server to client
	TypeWelcome       = "welcome"
	TypeFrame         = "frame"
	TypeHistory       = "history"
	TypeCommandResult = "command.result"
	TypeDesignRecord  = "design.record"
	TypeLoadReport    = "load.report"
	TypeError         = "error"
)

type WelcomePayload struct {
	SessionID string      `json:"sessionId"`
	ClientID  string      `json:"clientId"`
	UserID    string      `json:"userId"`
	Anonymous bool        `json:"anonymous"`
	Side      design.Side `json:"side"`
	Product   string      `json:"product"`
	Color     string      `json:"color"`
}

type FramePayload struct {
	DrawCommands []engine.DrawCommand `json:"drawCommands"`
	Handles      engine.HandleSet     `json:"handles"`
	Selection    string               `json:"selection,omitempty"`
	Side         design.Side          `json:"side"`
	History      engine.HistoryState  `json:"history"`
	State        engine.EditorState   `json:"state"`
}

type HistoryPayload struct {
	Side    design.Side `json:"side"`
	CanUndo bool        `json:"canUndo"`
	CanRedo bool        `json:"canRedo"`
}

type CommandPayload struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// LoadPayload carries either an inline record or the ID of a saved design.
type LoadPayload struct {
	Record   *design.Record `json:"record,omitempty"`
	DesignID string         `json:"designId,omitempty"`
}

type SavePayload struct {
	Name         string `json:"name"`
	PreviewImage string `json:"previewImage,omitempty"`
	// AsNew saves a copy instead of updating the loaded design.
	AsNew bool `json:"asNew,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
