package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/teeforge/teeforge/backend-go/internal/config"
	"github.com/teeforge/teeforge/backend-go/internal/design"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func sampleRecord(userID, name string) *design.Record {
	return &design.Record{
		UserID:       userID,
		Name:         name,
		ProductType:  "bella-3001c",
		ProductColor: "black",
		Sides: map[design.Side][]json.RawMessage{
			design.SideFront: {json.RawMessage(`{"id":"t1","type":"text","content":"Hi"}`)},
			design.SideBack:  {},
		},
	}
}

func TestDesignLifecycle(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := sampleRecord("user_1", "First")

			id, err := s.Create(ctx, rec)
			if err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			if id == "" || rec.ID != id {
				t.Fatalf("Create() id: got %q, record has %q", id, rec.ID)
			}
			if rec.SchemaVersion != design.SchemaVersion || rec.CreatedAt.IsZero() {
				t.Errorf("Create() did not stamp record: %+v", rec)
			}

			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.Name != "First" || got.UserID != "user_1" || got.ProductColor != "black" {
				t.Errorf("Get(): got %+v", got)
			}
			if front := got.Sides[design.SideFront]; len(front) != 1 {
				t.Errorf("front side: got %d entries, want 1", len(front))
			}

			update := sampleRecord("someone_else", "Renamed")
			update.ID = id
			update.Sides[design.SideFront] = nil
			if err := s.Update(ctx, update); err != nil {
				t.Fatalf("Update() failed: %v", err)
			}
			got, _ = s.Get(ctx, id)
			if got.Name != "Renamed" {
				t.Errorf("name after update: got %q", got.Name)
			}
			if got.UserID != "user_1" {
				t.Errorf("Update() changed owner to %q", got.UserID)
			}
			if !got.CreatedAt.Equal(rec.CreatedAt) {
				t.Errorf("CreatedAt changed: got %v, want %v", got.CreatedAt, rec.CreatedAt)
			}
			if len(got.Sides[design.SideFront]) != 0 {
				t.Errorf("front side after update: got %d entries", len(got.Sides[design.SideFront]))
			}

			if err := s.Delete(ctx, id); err != nil {
				t.Fatalf("Delete() failed: %v", err)
			}
			if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete: got %v, want ErrNotFound", err)
			}
			if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Delete(): got %v, want ErrNotFound", err)
			}
			missing := sampleRecord("user_1", "x")
			missing.ID = "design_missing"
			if err := s.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
				t.Errorf("Update() missing: got %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListByUser(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			older := sampleRecord("user_a", "Older")
			if _, err := s.Create(ctx, older); err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			if _, err := s.Create(ctx, sampleRecord("user_b", "Other")); err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			time.Sleep(2 * time.Millisecond)
			newer := sampleRecord("user_a", "Newer")
			if _, err := s.Create(ctx, newer); err != nil {
				t.Fatalf("Create() failed: %v", err)
			}

			list, err := s.List(ctx, "user_a")
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("List(): got %d records, want 2", len(list))
			}
			if list[0].Name != "Newer" || list[1].Name != "Older" {
				t.Errorf("order: got %q, %q", list[0].Name, list[1].Name)
			}
			for _, rec := range list {
				if rec.Sides != nil {
					t.Errorf("List() returned side data for %s", rec.ID)
				}
			}

			empty, err := s.List(ctx, "nobody")
			if err != nil || len(empty) != 0 {
				t.Errorf("List(nobody): got %v, %v", empty, err)
			}
		})
	}
}

func TestUsers(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u := User{ID: "user_1", Email: "Ada@Example.com", PasswordHash: "hash", DisplayName: "Ada"}
			if err := s.CreateUser(ctx, u); err != nil {
				t.Fatalf("CreateUser() failed: %v", err)
			}

			dup := User{ID: "user_2", Email: "ada@example.com", PasswordHash: "x", DisplayName: "Other"}
			if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicate) {
				t.Errorf("duplicate email: got %v, want ErrDuplicate", err)
			}

			got, err := s.UserByEmail(ctx, "ADA@example.com")
			if err != nil {
				t.Fatalf("UserByEmail() failed: %v", err)
			}
			if got.ID != "user_1" || got.PasswordHash != "hash" {
				t.Errorf("UserByEmail(): got %+v", got)
			}
			if _, err := s.UserByID(ctx, "user_1"); err != nil {
				t.Errorf("UserByID() failed: %v", err)
			}
			if _, err := s.UserByID(ctx, "user_9"); !errors.Is(err, ErrNotFound) {
				t.Errorf("UserByID(missing): got %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	rec := sampleRecord("u", "Mine")
	id, _ := s.Create(ctx, rec)

	rec.Sides[design.SideFront][0][2] = 'X'
	got, _ := s.Get(ctx, id)
	if string(got.Sides[design.SideFront][0]) != `{"id":"t1","type":"text","content":"Hi"}` {
		t.Errorf("stored record aliased caller memory: %s", got.Sides[design.SideFront][0])
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, &config.Config{StorageType: "memory"})
	if err != nil {
		t.Fatalf("Open(memory) failed: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(memory): got %T", s)
	}

	s, err = Open(ctx, &config.Config{StorageType: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("Open(sqlite) failed: %v", err)
	}
	s.Close()

	if _, err := Open(ctx, &config.Config{StorageType: "redis"}); err == nil {
		t.Error("Open(redis) succeeded")
	}
}
