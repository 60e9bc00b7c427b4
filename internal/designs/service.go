package designs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/teeforge/teeforge/backend-go/internal/design"
	"github.com/teeforge/teeforge/backend-go/internal/raster"
	"github.com/teeforge/teeforge/backend-go/internal/store"
)

var (
	ErrNotFound  = errors.New("design not found")
	ErrForbidden = errors.New("forbidden")
)

// maxPreviewBytes bounds the inline preview data URL kept on a record.
const maxPreviewBytes = 2 << 20

type Service struct {
	designs     store.Designs
	renderer    *raster.Renderer
	backgrounds raster.Backgrounds
	canvas      raster.Options
}

// NewService wires the design store to the preview renderer. canvas holds
// the width and height previews are rendered at.
func NewService(designs store.Designs, renderer *raster.Renderer, backgrounds raster.Backgrounds, canvas raster.Options) *Service {
	return &Service{designs: designs, renderer: renderer, backgrounds: backgrounds, canvas: canvas}
}

// Changes is a partial update. Nil fields keep their stored value.
type Changes struct {
	Name         *string                           `json:"name"`
	ProductType  *string                           `json:"productType"`
	ProductColor *string                           `json:"productColor"`
	Sides        map[design.Side][]json.RawMessage `json:"sides"`
	PreviewImage *string                           `json:"previewImage"`
}

func (s *Service) Create(ctx context.Context, userID string, rec *design.Record) (*design.Record, error) {
	rec.UserID = userID
	if err := validate(rec); err != nil {
		return nil, err
	}
	if _, err := s.designs.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create design: %w", err)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id, userID string) (*design.Record, error) {
	rec, err := s.designs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get design: %w", err)
	}
	if rec.UserID != userID {
		return nil, ErrForbidden
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]design.Record, error) {
	recs, err := s.designs.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	if recs == nil {
		recs = []design.Record{}
	}
	return recs, nil
}

func (s *Service) Update(ctx context.Context, id, userID string, changes Changes) (*design.Record, error) {
	rec, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if changes.Name != nil {
		rec.Name = *changes.Name
	}
	if changes.ProductType != nil {
		rec.ProductType = *changes.ProductType
	}
	if changes.ProductColor != nil {
		rec.ProductColor = *changes.ProductColor
	}
	if changes.Sides != nil {
		rec.Sides = changes.Sides
	}
	if changes.PreviewImage != nil {
		rec.PreviewImage = *changes.PreviewImage
	}
	if err := validate(rec); err != nil {
		return nil, err
	}
	if err := s.designs.Update(ctx, rec); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update design: %w", err)
	}
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	if err := s.designs.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete design: %w", err)
	}
	return nil
}

// Preview renders one side of a saved design.
func (s *Service) Preview(ctx context.Context, id, userID string, side design.Side, format raster.Format, quality int) ([]byte, error) {
	rec, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	opts := s.canvas
	opts.Format = format
	opts.Quality = quality
	return s.renderer.RenderRecord(ctx, rec, side, s.backgrounds, opts)
}

func validate(rec *design.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if len(rec.PreviewImage) > maxPreviewBytes {
		return fmt.Errorf("%w: preview image exceeds %d bytes", design.ErrInvalidRecord, maxPreviewBytes)
	}
	return nil
}
