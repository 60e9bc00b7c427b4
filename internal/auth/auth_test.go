package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/teeforge/teeforge/backend-go/internal/store"
)

func newTestService() *Service {
	return NewService(store.NewMemory(), "test-secret")
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	reg, err := s.Register(ctx, "Ada@Example.com", "password123", "Ada")
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if reg.Token == "" || reg.User.Email != "ada@example.com" {
		t.Errorf("Register(): got %+v", reg)
	}

	if _, err := s.Register(ctx, "ada@example.com", "password456", "Again"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate Register(): got %v, want ErrEmailTaken", err)
	}

	login, err := s.Login(ctx, "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Errorf("Login() user: got %q, want %q", login.User.ID, reg.User.ID)
	}

	if _, err := s.Login(ctx, "ada@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}

	userID, err := s.ValidateToken(login.Token)
	if err != nil || userID != reg.User.ID {
		t.Errorf("ValidateToken(): got %q, %v", userID, err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	s := newTestService()
	token, err := s.issueToken("user_1")
	if err != nil {
		t.Fatalf("issueToken() failed: %v", err)
	}

	other := NewService(store.NewMemory(), "other-secret")
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: got %v, want ErrInvalidToken", err)
	}

	s.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}

	if _, err := s.ValidateToken("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v, want ErrInvalidToken", err)
	}
}

func TestMiddleware(t *testing.T) {
	s := newTestService()
	token, _ := s.issueToken("user_1")

	var seen string
	protected := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"bad format", "Token " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if seen != "user_1" {
		t.Errorf("user in context: got %q, want user_1", seen)
	}

	optional := s.OptionalMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))
	seen = "unset"
	optional.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ws?token="+token, nil))
	if seen != "user_1" {
		t.Errorf("query token: got %q, want user_1", seen)
	}
	optional.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ws?token=bad", nil))
	if seen != "" {
		t.Errorf("anonymous: got %q, want empty", seen)
	}
}

func TestHandlers(t *testing.T) {
	s := newTestService()
	h := NewHandler(s)
	r := mux.NewRouter()
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.Handle("/auth/me", s.AuthMiddleware(http.HandlerFunc(h.Me))).Methods("GET")

	post := func(path string, body any) *httptest.ResponseRecorder {
		data, _ := json.Marshal(body)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("POST", path, bytes.NewReader(data)))
		return rec
	}

	rec := post("/auth/register", registerRequest{Email: "a@b.c", Password: "short", DisplayName: "A"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password: got %d, want 400", rec.Code)
	}

	rec = post("/auth/register", registerRequest{Email: "a@b.c", Password: "longenough", DisplayName: "A"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: got %d, body %s", rec.Code, rec.Body)
	}
	rec = post("/auth/register", registerRequest{Email: "a@b.c", Password: "longenough", DisplayName: "A"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: got %d, want 409", rec.Code)
	}

	rec = post("/auth/login", loginRequest{Email: "a@b.c", Password: "wrongwrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: got %d, want 401", rec.Code)
	}
	rec = post("/auth/login", loginRequest{Email: "a@b.c", Password: "longenough"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d", rec.Code)
	}
	var result AuthResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: got %d", rec.Code)
	}
	var me User
	json.NewDecoder(rec.Body).Decode(&me)
	if me.Email != "a@b.c" || me.DisplayName != "A" {
		t.Errorf("me: got %+v", me)
	}
}
