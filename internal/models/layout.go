// Package models contains domain types for the warehouse digital twin editor.
package models

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Layout is one warehouse floor plan: dimensions, placed objects and AGV paths.
type Layout struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Width     float64      `json:"width"`
	Depth     float64      `json:"depth"`
	Height    float64      `json:"height"`
	GridSize  float64      `json:"gridSize"`
	Objects   []Attributes `json:"objects"`
	Paths     []Attributes `json:"paths"`
	CreatedAt Timestamp    `json:"createdAt"`
	UpdatedAt Timestamp    `json:"updatedAt"`
	Preview   any          `json:"preview"` // thumbnail data URL or null
}

// Normalize replaces missing collections with empty ones.
func (l *Layout) Normalize() {
	if l.Objects == nil {
		l.Objects = []Attributes{}
	}
	if l.Paths == nil {
		l.Paths = []Attributes{}
	}
}

// Summary projects the layout for listings, without nested bodies.
func (l *Layout) Summary() LayoutSummary {
	return LayoutSummary{
		ID:          l.ID,
		Name:        l.Name,
		Width:       l.Width,
		Depth:       l.Depth,
		Height:      l.Height,
		ObjectCount: len(l.Objects),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		Preview:     l.Preview,
	}
}

var _ msgpack.CustomEncoder = Layout{}

// EncodeMsgpack writes the layout as a msgpack map using the JSON field names.
func (l Layout) EncodeMsgpack(enc *msgpack.Encoder) error {
	fields := []struct {
		key   string
		value any
	}{
		{"id", l.ID},
		{"name", l.Name},
		{"width", l.Width},
		{"depth", l.Depth},
		{"height", l.Height},
		{"gridSize", l.GridSize},
		{"objects", l.Objects},
		{"paths", l.Paths},
		{"createdAt", l.CreatedAt.Format(timestampFormat)},
		{"updatedAt", l.UpdatedAt.Format(timestampFormat)},
		{"preview", msgpackValue(l.Preview)},
	}
	if err := enc.EncodeMapLen(len(fields)); err != nil {
		return err
	}
	for _, f := range fields {
		if err := enc.EncodeString(f.key); err != nil {
			return err
		}
		if err := enc.Encode(f.value); err != nil {
			return err
		}
	}
	return nil
}

// LayoutSummary is the list projection of a Layout.
type LayoutSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Width       float64   `json:"width"`
	Depth       float64   `json:"depth"`
	Height      float64   `json:"height"`
	ObjectCount int       `json:"objectCount"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
	Preview     any       `json:"preview"`
}

// LayoutDraft carries the fields accepted when creating a layout.
// Absent or null fields fall back to LayoutDefaults.
type LayoutDraft struct {
	Name     Optional[string]  `json:"name"`
	Width    Optional[float64] `json:"width"`
	Depth    Optional[float64] `json:"depth"`
	Height   Optional[float64] `json:"height"`
	GridSize Optional[float64] `json:"gridSize"`
}

// LayoutPatch carries a partial layout update. Only fields present in the
// request body replace the stored values; arrays are replaced wholesale.
type LayoutPatch struct {
	Name    Optional[string]       `json:"name"`
	Width   Optional[float64]      `json:"width"`
	Depth   Optional[float64]      `json:"depth"`
	Height  Optional[float64]      `json:"height"`
	Objects Optional[[]Attributes] `json:"objects"`
	Paths   Optional[[]Attributes] `json:"paths"`
	Preview Optional[any]          `json:"preview"`
}

// LayoutDefaults are applied to fields omitted from a LayoutDraft.
type LayoutDefaults struct {
	Name     string
	Width    float64
	Depth    float64
	Height   float64
	GridSize float64
}

// DefaultLayoutDefaults returns the built-in layout defaults.
func DefaultLayoutDefaults() LayoutDefaults {
	return LayoutDefaults{
		Name:     "新布局",
		Width:    60,
		Depth:    60,
		Height:   5,
		GridSize: 0.6,
	}
}
