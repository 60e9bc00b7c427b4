package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/typeid"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS designs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	product_type TEXT NOT NULL,
	product_color TEXT NOT NULL,
	schema_version INTEGER NOT NULL,
	sides BLOB,
	preview_image TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS designs_user_id ON designs (user_id, updated_at);
`

// SQLite stores designs in a single database file through the cgo-free
// modernc driver. Timestamps are unix nanoseconds.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; an in-memory database also needs a single
	// connection to stay the same database.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, rec *design.Record) (string, error) {
	sides, err := marshalSides(rec.Sides)
	if err != nil {
		return "", err
	}
	prepareCreate(rec, typeid.NewDesignID(), time.Now().UTC())
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO designs (id, user_id, name, product_type, product_color, schema_version, sides, preview_image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Name, rec.ProductType, rec.ProductColor, rec.SchemaVersion,
		sides, rec.PreviewImage, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert design: %w", err)
	}
	return rec.ID, nil
}

func (s *SQLite) Update(ctx context.Context, rec *design.Record) error {
	sides, err := marshalSides(rec.Sides)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var userID string
	var created int64
	err = tx.QueryRowContext(ctx, "SELECT user_id, created_at FROM designs WHERE id = ?", rec.ID).Scan(&userID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("design %s: %w", rec.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get design: %w", err)
	}

	rec.UserID = userID
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.SchemaVersion = design.SchemaVersion
	rec.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE designs SET name = ?, product_type = ?, product_color = ?, schema_version = ?, sides = ?, preview_image = ?, updated_at = ?
		 WHERE id = ?`,
		rec.Name, rec.ProductType, rec.ProductColor, rec.SchemaVersion, sides, rec.PreviewImage, rec.UpdatedAt.UnixNano(), rec.ID)
	if err != nil {
		return fmt.Errorf("update design: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) Get(ctx context.Context, id string) (*design.Record, error) {
	var rec design.Record
	var sides []byte
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, product_type, product_color, schema_version, sides, preview_image, created_at, updated_at
		 FROM designs WHERE id = ?`, id).
		Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.ProductType, &rec.ProductColor, &rec.SchemaVersion,
			&sides, &rec.PreviewImage, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get design: %w", err)
	}
	if len(sides) > 0 {
		if err := json.Unmarshal(sides, &rec.Sides); err != nil {
			return nil, fmt.Errorf("unmarshal sides of %s: %w", id, err)
		}
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return &rec, nil
}

func (s *SQLite) List(ctx context.Context, userID string) ([]design.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, product_type, product_color, schema_version, preview_image, created_at, updated_at
		 FROM designs WHERE user_id = ? ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()

	var out []design.Record
	for rows.Next() {
		rec := design.Record{UserID: userID}
		var created, updated int64
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.ProductType, &rec.ProductColor, &rec.SchemaVersion,
			&rec.PreviewImage, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan design: %w", err)
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		rec.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM designs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) CreateUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password, display_name, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.DisplayName, u.CreatedAt.UnixNano())
	if err != nil {
		var sqlErr *sqlite.Error
		if errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.user(ctx, "email = ?", strings.ToLower(email))
}

func (s *SQLite) UserByID(ctx context.Context, id string) (*User, error) {
	return s.user(ctx, "id = ?", id)
}

func (s *SQLite) user(ctx context.Context, where string, arg string) (*User, error) {
	var u User
	var created int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password, display_name, created_at FROM users WHERE "+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	return &u, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
