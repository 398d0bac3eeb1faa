// Package storage persists the layout collection. Every backend stores and
// returns the complete collection as one unit.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/warehouse-twin/backend/internal/models"
)

// ErrCorrupt marks persisted state that could not be decoded. Backends log it
// and report an empty collection instead of returning it from Load.
var ErrCorrupt = errors.New("corrupt layout store")

// Store defines the interface for layout persistence.
type Store interface {
	// Load returns every stored layout in insertion order. A missing or
	// undecodable collection loads as empty. Individual records with
	// unexpected field types are coerced rather than discarding the rest.
	Load(ctx context.Context) ([]models.Layout, error)

	// Save replaces the persisted collection with layouts. Readers never
	// observe a partially written collection.
	Save(ctx context.Context, layouts []models.Layout) error

	// Close releases backend resources.
	Close() error
}

// encodeLayouts serializes the full collection.
func encodeLayouts(layouts []models.Layout) ([]byte, error) {
	if layouts == nil {
		layouts = []models.Layout{}
	}
	return encodeJSON(layouts, "  ")
}

// decodeLayouts parses a full collection. Only a document that is not a JSON
// array wraps ErrCorrupt. Records that do not match the layout types are
// decoded leniently, and records that are not objects are dropped; both are
// logged.
func decodeLayouts(data []byte, log zerolog.Logger) ([]models.Layout, error) {
	var records []json.RawMessage
	if err := decodeJSON(data, &records); err != nil {
		return nil, err
	}
	layouts := make([]models.Layout, 0, len(records))
	for i, record := range records {
		layout, ok := decodeRecord(record, log.With().Int("index", i).Logger())
		if ok {
			layouts = append(layouts, layout)
		}
	}
	return layouts, nil
}

// decodeRecord decodes one stored layout, falling back to lenient decoding.
// It reports false when the record cannot be recovered.
func decodeRecord(data []byte, log zerolog.Logger) (models.Layout, bool) {
	layout, err := decodeLayout(data)
	if err == nil {
		return layout, true
	}
	layout, lenientErr := models.DecodeLayoutLenient(data)
	if lenientErr != nil {
		log.Warn().Err(err).Msg("layout record unreadable, skipping")
		return models.Layout{}, false
	}
	log.Warn().Err(err).Str("layout_id", layout.ID).Msg("layout record has unexpected field types, coerced")
	return layout, true
}

func encodeLayout(layout models.Layout) ([]byte, error) {
	return encodeJSON(layout, "")
}

func decodeLayout(data []byte) (models.Layout, error) {
	var layout models.Layout
	if err := decodeJSON(data, &layout); err != nil {
		return models.Layout{}, err
	}
	layout.Normalize()
	return layout, nil
}

func encodeJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding layouts: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after layout collection", ErrCorrupt)
	}
	return nil
}

func emptyCollection() []models.Layout {
	return []models.Layout{}
}
