package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/typeid"
)

// Memory keeps everything in process. Records are copied on the way in
// and out so callers never share state with the store.
type Memory struct {
	mu      sync.RWMutex
	designs map[string]design.Record
	users   map[string]User
	byEmail map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		designs: make(map[string]design.Record),
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (m *Memory) Create(ctx context.Context, rec *design.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prepareCreate(rec, typeid.NewDesignID(), time.Now().UTC())
	m.designs[rec.ID] = copyRecord(*rec)
	return rec.ID, nil
}

func (m *Memory) Update(ctx context.Context, rec *design.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.designs[rec.ID]
	if !ok {
		return fmt.Errorf("design %s: %w", rec.ID, ErrNotFound)
	}
	rec.UserID = existing.UserID
	rec.CreatedAt = existing.CreatedAt
	rec.SchemaVersion = design.SchemaVersion
	rec.UpdatedAt = time.Now().UTC()
	m.designs[rec.ID] = copyRecord(*rec)
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*design.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.designs[id]
	if !ok {
		return nil, fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	out := copyRecord(rec)
	return &out, nil
}

func (m *Memory) List(ctx context.Context, userID string) ([]design.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []design.Record
	for _, rec := range m.designs {
		if rec.UserID == userID {
			out = append(out, rec.Summary())
		}
	}
	slices.SortFunc(out, func(a, b design.Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.designs[id]; !ok {
		return fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	delete(m.designs, id)
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, taken := m.byEmail[email]; taken {
		return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	m.byEmail[email] = u.ID
	return nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	u := m.users[id]
	return &u, nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) Close() error { return nil }

func copyRecord(rec design.Record) design.Record {
	if rec.Sides == nil {
		return rec
	}
	sides := make(map[design.Side][]json.RawMessage, len(rec.Sides))
	for side, entries := range rec.Sides {
		cp := make([]json.RawMessage, len(entries))
		for i, e := range entries {
			cp[i] = slices.Clone(e)
		}
		sides[side] = cp
	}
	rec.Sides = sides
	return rec
}
