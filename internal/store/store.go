// Package store persists design records and user accounts. Three backends
// share one contract: an in-process map, SQLite and PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teeforge/teeforge/backend-go/internal/config"
	"github.com/teeforge/teeforge/backend-go/internal/design"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Designs stores design records. Create assigns the ID and both
// timestamps; Update refreshes UpdatedAt and keeps CreatedAt and UserID.
type Designs interface {
	Create(ctx context.Context, rec *design.Record) (string, error)
	Update(ctx context.Context, rec *design.Record) error
	Get(ctx context.Context, id string) (*design.Record, error)
	// List returns summaries (no side data) for one user, newest first.
	List(ctx context.Context, userID string) ([]design.Record, error)
	Delete(ctx context.Context, id string) error
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Users stores accounts. Emails are unique; CreateUser returns
// ErrDuplicate for a taken one.
type Users interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
}

type Store interface {
	Designs
	Users
	Close() error
}

// Open returns the backend selected by cfg.StorageType.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageType {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
}

func prepareCreate(rec *design.Record, id string, now time.Time) {
	rec.ID = id
	rec.SchemaVersion = design.SchemaVersion
	rec.CreatedAt = now
	rec.UpdatedAt = now
}
