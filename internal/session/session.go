package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/designs"
	"github.com/teeforge/teeforge/backend-go/internal/engine"
)

var ErrSignInRequired = errors.New("sign in required")

// Designs is the slice of the design service a session uses.
type Designs interface {
	Create(ctx context.Context, userID string, rec *design.Record) (*design.Record, error)
	Get(ctx context.Context, id, userID string) (*design.Record, error)
	Update(ctx context.Context, id, userID string, changes designs.Changes) (*design.Record, error)
}

// Deps are shared by every session.
type Deps struct {
	Catalog         engine.ProductCatalog
	Loader          engine.ImageLoader
	Designs         Designs
	SurfaceOptions  []engine.SurfaceOption
	LoadConcurrency int
	DefaultProduct  string
	DefaultColor    string
}

// Session drives one server-side Editor for one connection. It is not safe
// for concurrent use; the connection's read loop is its only caller.
type Session struct {
	ID        string
	userID    string
	anonymous bool
	deps      Deps
	editor    *engine.Editor
	out       func(*Message)
	stop      func()

	designID string
	name     string
}

// New builds a session and sends the welcome message and first frame.
func New(id, clientID, userID string, anonymous bool, deps Deps, out func(*Message)) *Session {
	s := &Session{
		ID:        id,
		userID:    userID,
		anonymous: anonymous,
		deps:      deps,
		editor:    engine.NewEditor(deps.Catalog, deps.Loader, deps.SurfaceOptions...),
		out:       out,
	}
	s.stop = s.editor.OnHistoryChange(func(side design.Side, st engine.HistoryState) {
		s.send(TypeHistory, 0, HistoryPayload{Side: side, CanUndo: st.CanUndo, CanRedo: st.CanRedo})
	})
	if deps.DefaultProduct != "" {
		s.editor.SetProduct(deps.DefaultProduct, deps.DefaultColor)
	}

	product, color := s.editor.Product()
	s.send(TypeWelcome, 0, WelcomePayload{
		SessionID: id,
		ClientID:  clientID,
		UserID:    userID,
		Anonymous: anonymous,
		Side:      s.editor.Surface().Side(),
		Product:   product,
		Color:     color,
	})
	s.sendFrame(0)
	return s
}

// Editor exposes the session's editor for inspection.
func (s *Session) Editor() *engine.Editor { return s.editor }

// Close stops observers and abandons in-flight image loads.
func (s *Session) Close() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.editor.Surface().CancelLoads()
}

func (s *Session) Handle(ctx context.Context, msg *Message) {
	switch msg.Type {
	case TypePointerDown:
		s.pointer(msg, "pointerDown")
	case TypePointerMove:
		s.pointer(msg, "pointerMove")
	case TypePointerUp:
		s.pointer(msg, "pointerUp")
	case TypePointerCancel:
		s.pointer(msg, "pointerCancel")
	case TypeCommand:
		s.command(msg)
	case TypeDesignLoad:
		s.load(ctx, msg)
	case TypeDesignSnapshot:
		s.snapshot(msg)
	case TypeDesignSave:
		s.save(ctx, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "session", s.ID)
		s.out(errorMessage(msg.Seq, fmt.Sprintf("unknown message type %q", msg.Type)))
	}
}

// pointer forwards pointer input. Input the editor ignores, such as a move
// with no active gesture, produces no frame.
func (s *Session) pointer(msg *Message, command string) {
	res, err := s.editor.Command(command, msg.Payload)
	if err != nil {
		if errors.Is(err, engine.ErrBadArguments) {
			s.out(errorMessage(msg.Seq, err.Error()))
		}
		return
	}
	if res.OK {
		s.sendFrame(msg.Seq)
	}
}

func (s *Session) command(msg *Message) {
	var p CommandPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Name == "" {
		s.out(errorMessage(msg.Seq, "invalid command payload"))
		return
	}
	res, err := s.editor.Command(p.Name, p.Args)
	if err != nil && !errors.Is(err, engine.ErrRejected) {
		s.out(errorMessage(msg.Seq, err.Error()))
		return
	}
	if errors.Is(err, engine.ErrRejected) {
		slog.Debug("command rejected", "command", p.Name, "session", s.ID)
	}
	s.send(TypeCommandResult, msg.Seq, res)
	if res.OK {
		s.sendFrame(msg.Seq)
	}
}

func (s *Session) load(ctx context.Context, msg *Message) {
	var p LoadPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		s.out(errorMessage(msg.Seq, "invalid load payload"))
		return
	}

	var rec *design.Record
	switch {
	case p.Record != nil:
		rec = p.Record
		s.designID = ""
	case p.DesignID != "":
		if s.anonymous || s.deps.Designs == nil {
			s.out(errorMessage(msg.Seq, ErrSignInRequired.Error()))
			return
		}
		loaded, err := s.deps.Designs.Get(ctx, p.DesignID, s.userID)
		if err != nil {
			s.out(errorMessage(msg.Seq, loadError(err)))
			return
		}
		rec = loaded
		s.designID = loaded.ID
	default:
		s.out(errorMessage(msg.Seq, "record or designId is required"))
		return
	}
	s.name = rec.Name

	var opts []engine.LoadOption
	if s.deps.LoadConcurrency > 0 {
		opts = append(opts, engine.WithLoadConcurrency(s.deps.LoadConcurrency))
	}
	report, err := s.editor.LoadRecord(ctx, *rec, opts...)
	if err != nil {
		slog.Warn("load design failed", "error", err, "session", s.ID)
		s.out(errorMessage(msg.Seq, err.Error()))
		return
	}
	slog.Info("design loaded", "session", s.ID, "design", rec.ID, "issues", len(report.Issues), "stale", report.Stale)
	s.send(TypeLoadReport, msg.Seq, report)
	s.sendFrame(msg.Seq)
}

func (s *Session) snapshot(msg *Message) {
	rec, err := s.record("", "")
	if err != nil {
		s.out(errorMessage(msg.Seq, err.Error()))
		return
	}
	s.send(TypeDesignRecord, msg.Seq, rec)
}

// save persists the editor state, updating the loaded design unless the
// client asks for a copy.
func (s *Session) save(ctx context.Context, msg *Message) {
	if s.anonymous || s.deps.Designs == nil {
		s.out(errorMessage(msg.Seq, ErrSignInRequired.Error()))
		return
	}
	var p SavePayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.out(errorMessage(msg.Seq, "invalid save payload"))
			return
		}
	}
	rec, err := s.record(p.Name, p.PreviewImage)
	if err != nil {
		s.out(errorMessage(msg.Seq, err.Error()))
		return
	}

	var saved *design.Record
	if s.designID == "" || p.AsNew {
		saved, err = s.deps.Designs.Create(ctx, s.userID, &rec)
	} else {
		saved, err = s.deps.Designs.Update(ctx, s.designID, s.userID, designs.Changes{
			Name:         &rec.Name,
			ProductType:  &rec.ProductType,
			ProductColor: &rec.ProductColor,
			Sides:        rec.Sides,
			PreviewImage: &rec.PreviewImage,
		})
	}
	if err != nil {
		slog.Warn("save design failed", "error", err, "session", s.ID)
		s.out(errorMessage(msg.Seq, loadError(err)))
		return
	}
	s.designID = saved.ID
	s.name = saved.Name
	slog.Info("design saved", "session", s.ID, "design", saved.ID, "objects", saved.ObjectCount())
	s.send(TypeDesignRecord, msg.Seq, saved)
}

func (s *Session) record(name, preview string) (design.Record, error) {
	if name == "" {
		name = s.name
	}
	if name == "" {
		name = "Untitled design"
	}
	userID := s.userID
	if s.anonymous {
		userID = ""
	}
	return s.editor.ToRecord(engine.RecordMeta{ID: s.designID, UserID: userID, Name: name, PreviewImage: preview})
}

func (s *Session) sendFrame(seq int64) {
	f := s.editor.Frame()
	s.send(TypeFrame, seq, FramePayload{
		DrawCommands: f.Commands,
		Handles:      f.Handles,
		Selection:    f.Selection,
		Side:         f.Side,
		History:      f.History,
		State:        s.editor.State(),
	})
}

func (s *Session) send(typ string, seq int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "error", err, "type", typ)
		return
	}
	s.out(&Message{Type: typ, Seq: seq, Payload: data})
}

func errorMessage(seq int64, message string) *Message {
	data, _ := json.Marshal(ErrorPayload{Message: message})
	return &Message{Type: TypeError, Seq: seq, Payload: data}
}

func loadError(err error) string {
	switch {
	case errors.Is(err, designs.ErrNotFound):
		return "design not found"
	case errors.Is(err, designs.ErrForbidden):
		return "forbidden"
	case errors.Is(err, design.ErrInvalidRecord):
		return err.Error()
	}
	return "internal error"
}
