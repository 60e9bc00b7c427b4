package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teeforge/teeforge/backend-go/internal/design"
)

// ImageLoader resolves an image source and reports its natural size.
type ImageLoader interface {
	Probe(ctx context.Context, src string) (width, height int, err error)
}

// RecordMeta is the product metadata written alongside the scenes.
type RecordMeta struct {
	ID           string
	UserID       string
	Name         string
	ProductType  string
	ProductColor string
	PreviewImage string
}

// ToRecord snapshots both sides of the surface into a persistable record.
// Backgrounds are never written.
func ToRecord(s *Surface, meta RecordMeta) (design.Record, error) {
	now := time.Now().UTC()
	rec := design.Record{
		ID:            meta.ID,
		UserID:        meta.UserID,
		Name:          meta.Name,
		ProductType:   meta.ProductType,
		ProductColor:  meta.ProductColor,
		SchemaVersion: design.SchemaVersion,
		PreviewImage:  meta.PreviewImage,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, side := range design.Sides {
		if err := rec.SetSide(side, s.SnapshotSide(side)); err != nil {
			return design.Record{}, err
		}
	}
	return rec, nil
}

// LoadReport summarises a record load.
type LoadReport struct {
	Loaded map[design.Side]int  `json:"loaded"`
	Issues []design.DecodeIssue `json:"issues,omitempty"`
	// Stale is set when a newer load started before this one finished; the
	// surface was left untouched.
	Stale bool `json:"stale,omitempty"`
}

// DefaultLoadConcurrency bounds parallel image probes during a load.
const DefaultLoadConcurrency = 4

type loadOptions struct {
	concurrency int
}

type LoadOption func(*loadOptions)

func WithLoadConcurrency(n int) LoadOption {
	return func(o *loadOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// LoadRecord rebuilds both sides of the surface from rec. Entries that
// fail to decode or whose image fails to load are skipped and reported.
// Images are probed concurrently; objects are inserted afterwards in one
// step, in their stored order. Each loaded side's history restarts at the
// loaded state. A non-nil error means nothing was changed.
func LoadRecord(ctx context.Context, s *Surface, rec design.Record, loader ImageLoader, opts ...LoadOption) (LoadReport, error) {
	o := loadOptions{concurrency: DefaultLoadConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	token := s.loadSeq.Add(1)
	report := LoadReport{Loaded: make(map[design.Side]int, len(design.Sides))}

	decoded := make(map[design.Side][]design.Entry, len(design.Sides))
	for _, side := range design.Sides {
		entries, issues := rec.DecodeSideEntries(side)
		decoded[side] = entries
		report.Issues = append(report.Issues, issues...)
	}

	// pos indexes decoded[side]; the issue reports the stored position.
	type imageCheck struct {
		side design.Side
		pos  int
		src  string
	}
	var checks []imageCheck
	for _, side := range design.Sides {
		for i, e := range decoded[side] {
			if img, ok := e.Object.Image(); ok {
				checks = append(checks, imageCheck{side: side, pos: i, src: img.Source})
			}
		}
	}

	failed := make([]error, len(checks))
	if loader != nil && len(checks) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.concurrency)
		for i, p := range checks {
			g.Go(func() error {
				if _, _, err := loader.Probe(gctx, p.src); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failed[i] = err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report, fmt.Errorf("load images: %w", err)
		}
	}

	if s.loadSeq.Load() != token {
		slog.Debug("discarding stale design load", "design", rec.ID)
		report.Stale = true
		return report, nil
	}

	drop := make(map[design.Side]map[int]bool)
	for i, p := range checks {
		if failed[i] == nil {
			continue
		}
		e := decoded[p.side][p.pos]
		obj := e.Object
		if drop[p.side] == nil {
			drop[p.side] = make(map[int]bool)
		}
		drop[p.side][p.pos] = true
		report.Issues = append(report.Issues, design.DecodeIssue{
			Side:   p.side,
			Index:  e.Index,
			ID:     obj.ID,
			Reason: fmt.Sprintf("image %s failed to load: %v", p.src, failed[i]),
		})
		slog.Warn("image failed to load", "design", rec.ID, "object", obj.ID, "src", p.src, "error", failed[i])
	}

	for _, side := range design.Sides {
		entries := decoded[side]
		kept := make([]design.Object, 0, len(entries))
		for i, e := range entries {
			if drop[side][i] {
				continue
			}
			kept = append(kept, e.Object)
		}
		report.Loaded[side] = s.resetSide(side, kept)
	}
	s.selection = ""
	return report, nil
}

// CancelLoads marks any in-flight LoadRecord as stale.
func (s *Surface) CancelLoads() {
	s.loadSeq.Add(1)
}
