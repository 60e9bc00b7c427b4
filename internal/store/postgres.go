package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/typeid"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS designs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	product_type TEXT NOT NULL,
	product_color TEXT NOT NULL,
	schema_version INTEGER NOT NULL,
	sides JSONB NOT NULL DEFAULT '{}',
	preview_image TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS designs_user_id ON designs (user_id, updated_at DESC);
`

type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Create(ctx context.Context, rec *design.Record) (string, error) {
	sides, err := marshalSides(rec.Sides)
	if err != nil {
		return "", err
	}
	prepareCreate(rec, typeid.NewDesignID(), time.Now().UTC())
	_, err = p.pool.Exec(ctx,
		`INSERT INTO designs (id, user_id, name, product_type, product_color, schema_version, sides, preview_image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.UserID, rec.Name, rec.ProductType, rec.ProductColor, rec.SchemaVersion,
		sides, rec.PreviewImage, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("insert design: %w", err)
	}
	return rec.ID, nil
}

func (p *Postgres) Update(ctx context.Context, rec *design.Record) error {
	sides, err := marshalSides(rec.Sides)
	if err != nil {
		return err
	}
	rec.SchemaVersion = design.SchemaVersion
	rec.UpdatedAt = time.Now().UTC()
	err = p.pool.QueryRow(ctx,
		`UPDATE designs SET name = $2, product_type = $3, product_color = $4, schema_version = $5, sides = $6, preview_image = $7, updated_at = $8
		 WHERE id = $1
		 RETURNING user_id, created_at`,
		rec.ID, rec.Name, rec.ProductType, rec.ProductColor, rec.SchemaVersion, sides, rec.PreviewImage, rec.UpdatedAt).
		Scan(&rec.UserID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("design %s: %w", rec.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update design: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*design.Record, error) {
	var rec design.Record
	var sides []byte
	err := p.pool.QueryRow(ctx,
		`SELECT id, user_id, name, product_type, product_color, schema_version, sides, preview_image, created_at, updated_at
		 FROM designs WHERE id = $1`, id).
		Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.ProductType, &rec.ProductColor, &rec.SchemaVersion,
			&sides, &rec.PreviewImage, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get design: %w", err)
	}
	if err := json.Unmarshal(sides, &rec.Sides); err != nil {
		return nil, fmt.Errorf("unmarshal sides of %s: %w", id, err)
	}
	return &rec, nil
}

func (p *Postgres) List(ctx context.Context, userID string) ([]design.Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, product_type, product_color, schema_version, preview_image, created_at, updated_at
		 FROM designs WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()

	var out []design.Record
	for rows.Next() {
		rec := design.Record{UserID: userID}
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.ProductType, &rec.ProductColor, &rec.SchemaVersion,
			&rec.PreviewImage, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan design: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM designs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx,
		"INSERT INTO users (id, email, password, display_name, created_at) VALUES ($1, $2, $3, $4, $5)",
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.DisplayName, u.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*User, error) {
	return p.user(ctx, "email = $1", strings.ToLower(email))
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*User, error) {
	return p.user(ctx, "id = $1", id)
}

func (p *Postgres) user(ctx context.Context, where, arg string) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		"SELECT id, email, password, display_name, created_at FROM users WHERE "+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func marshalSides(sides map[design.Side][]json.RawMessage) ([]byte, error) {
	if sides == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(sides)
	if err != nil {
		return nil, fmt.Errorf("marshal sides: %w", err)
	}
	return data, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
