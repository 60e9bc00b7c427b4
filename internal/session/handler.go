package session

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/teeforge/teeforge/backend-go/internal/auth"
	"github.com/teeforge/teeforge/backend-go/internal/typeid"
)

type Handler struct {
	hub     *Hub
	deps    Deps
	origins []string
}

// NewHandler serves editing sessions over websockets. origins lists the
// host patterns allowed to open a connection.
func NewHandler(hub *Hub, deps Deps, origins []string) *Handler {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		hosts = append(hosts, strings.TrimRight(o, "/"))
	}
	return &Handler{hub: hub, deps: deps, origins: hosts}
}

// ServeWS upgrades the request and runs the session until the connection
// closes. Signed-in users are taken from the request context; everyone
// else edits anonymously and cannot save.
//
// Query parameters: product and color pick the starting product, design
// loads a saved design owned by the caller.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	anonymous := userID == ""
	if anonymous {
		userID = "anon-" + uuid.New().String()[:8]
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	q := r.URL.Query()
	deps := h.deps
	if p := q.Get("product"); p != "" {
		deps.DefaultProduct = p
		deps.DefaultColor = q.Get("color")
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, clientID)
	client.session = New(typeid.NewSessionID(), clientID, userID, anonymous, deps, client.Send)

	h.hub.Register(client)

	ctx := r.Context()
	if designID := q.Get("design"); designID != "" {
		payload, _ := json.Marshal(LoadPayload{DesignID: designID})
		client.session.Handle(ctx, &Message{Type: TypeDesignLoad, Payload: payload})
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
