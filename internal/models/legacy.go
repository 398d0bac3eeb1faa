package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrLayoutNotObject is returned by DecodeLayoutLenient for records that are
// not JSON objects.
var ErrLayoutNotObject = errors.New("layout record is not a JSON object")

// looseLayout mirrors Layout with every field left undecoded.
type looseLayout struct {
	ID        json.RawMessage `json:"id"`
	Name      json.RawMessage `json:"name"`
	Width     json.RawMessage `json:"width"`
	Depth     json.RawMessage `json:"depth"`
	Height    json.RawMessage `json:"height"`
	GridSize  json.RawMessage `json:"gridSize"`
	Objects   json.RawMessage `json:"objects"`
	Paths     json.RawMessage `json:"paths"`
	CreatedAt json.RawMessage `json:"createdAt"`
	UpdatedAt json.RawMessage `json:"updatedAt"`
	Preview   json.RawMessage `json:"preview"`
}

// DecodeLayoutLenient decodes a stored layout whose fields may not match the
// Layout types, as written by older backends that stored request values
// as sent. Scalars are coerced: non-string names and ids keep their JSON
// text, numeric strings become numbers, and anything else unusable falls back
// to the zero value. Non-object entries in objects or paths are dropped.
func DecodeLayoutLenient(data []byte) (Layout, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Layout{}, ErrLayoutNotObject
	}
	var raw looseLayout
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Layout{}, err
	}

	l := Layout{
		ID:        looseString(raw.ID),
		Name:      looseString(raw.Name),
		Width:     looseNumber(raw.Width),
		Depth:     looseNumber(raw.Depth),
		Height:    looseNumber(raw.Height),
		GridSize:  looseNumber(raw.GridSize),
		Objects:   looseAttributesList(raw.Objects),
		Paths:     looseAttributesList(raw.Paths),
		CreatedAt: looseTimestamp(raw.CreatedAt),
		UpdatedAt: looseTimestamp(raw.UpdatedAt),
		Preview:   looseValue(raw.Preview),
	}
	l.Normalize()
	return l, nil
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || string(s) == "null"
}

func looseString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func looseNumber(raw json.RawMessage) float64 {
	if isNull(raw) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

func looseAttributesList(raw json.RawMessage) []Attributes {
	var items []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &items) != nil {
		return []Attributes{}
	}
	out := make([]Attributes, 0, len(items))
	for _, item := range items {
		var a Attributes
		if err := a.UnmarshalJSON(item); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

func looseTimestamp(raw json.RawMessage) Timestamp {
	var t Timestamp
	if isNull(raw) || t.UnmarshalJSON(raw) != nil {
		return Timestamp{}
	}
	return t
}

func looseValue(raw json.RawMessage) any {
	if isNull(raw) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
