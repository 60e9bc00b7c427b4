package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is written on every record. Older records (version 0)
// and newer ones are both read with the tolerant per-object policy.
const SchemaVersion = 1

var ErrInvalidRecord = errors.New("invalid design record")

// Record is the persisted form of a design: product metadata plus the
// encoded objects of each side. Backgrounds are never stored.
type Record struct {
	ID            string                     `json:"id,omitempty"`
	UserID        string                     `json:"userId,omitempty"`
	Name          string                     `json:"name"`
	ProductType   string                     `json:"productType"`
	ProductColor  string                     `json:"productColor"`
	SchemaVersion int                        `json:"schemaVersion"`
	Sides         map[Side][]json.RawMessage `json:"sides"`
	PreviewImage  string                     `json:"previewImage,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

// Validate checks the metadata needed to store a record.
func (r *Record) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if r.ProductType == "" {
		return fmt.Errorf("%w: productType is required", ErrInvalidRecord)
	}
	for side := range r.Sides {
		if !side.Valid() {
			return fmt.Errorf("%w: unknown side %q", ErrInvalidRecord, side)
		}
	}
	return nil
}

// Summary strips the per-side object data, keeping what a listing needs.
func (r Record) Summary() Record {
	r.Sides = nil
	return r
}

// DecodeSide decodes one side of the record, tagging issues with the side.
func (r *Record) DecodeSide(side Side) ([]Object, []DecodeIssue) {
	objs, issues := DecodeObjects(r.Sides[side])
	for i := range issues {
		issues[i].Side = side
	}
	return objs, issues
}

// DecodeSideEntries is DecodeSide keeping each object's stored position.
func (r *Record) DecodeSideEntries(side Side) ([]Entry, []DecodeIssue) {
	entries, issues := DecodeEntries(r.Sides[side])
	for i := range issues {
		issues[i].Side = side
	}
	return entries, issues
}

// SetSide encodes objs as the stored content of side.
func (r *Record) SetSide(side Side, objs []Object) error {
	entries, err := EncodeObjects(objs)
	if err != nil {
		return fmt.Errorf("encode %s side: %w", side, err)
	}
	if r.Sides == nil {
		r.Sides = make(map[Side][]json.RawMessage, len(Sides))
	}
	r.Sides[side] = entries
	return nil
}

// ObjectCount counts the stored entries on every side.
func (r *Record) ObjectCount() int {
	n := 0
	for _, entries := range r.Sides {
		n += len(entries)
	}
	return n
}
