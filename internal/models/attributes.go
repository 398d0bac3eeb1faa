package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// IDKey is the only attribute key owned by the server.
const IDKey = "id"

// ErrNotAnObject is returned when an attribute bag is decoded from a JSON value
// that is not an object.
var ErrNotAnObject = errors.New("expected a JSON object")

// Attributes is an ordered bag of caller-defined fields. Object placements and
// AGV paths are stored as Attributes: the server only reserves IDKey.
//
// Key order is the order keys were first set and survives JSON round trips.
// Numbers decode as json.Number so they are written back verbatim.
type Attributes struct {
	keys   []string
	values map[string]any
}

// NewAttributes returns an empty attribute bag.
func NewAttributes() Attributes {
	return Attributes{values: make(map[string]any)}
}

// AttributesFrom builds a bag from alternating key/value pairs.
// It is mostly useful in tests and templates.
func AttributesFrom(pairs ...any) Attributes {
	a := NewAttributes()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		a.Set(key, pairs[i+1])
	}
	return a
}

// Len returns the number of keys.
func (a Attributes) Len() int { return len(a.keys) }

// Keys returns the keys in order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Set stores value under key. An existing key keeps its position.
func (a *Attributes) Set(key string, value any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Delete removes key if present.
func (a *Attributes) Delete(key string) {
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// ID returns the server-assigned identifier, or "" when absent or not a string.
func (a Attributes) ID() string {
	v, ok := a.values[IDKey]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Clone returns a shallow copy that can be mutated independently of a.
func (a Attributes) Clone() Attributes {
	out := Attributes{
		keys:   make([]string, len(a.keys)),
		values: make(map[string]any, len(a.values)),
	}
	copy(out.keys, a.keys)
	for k, v := range a.values {
		out.values[k] = v
	}
	return out
}

// Merge overwrites a's keys with every key in fields, adding new keys at the
// end. IDKey in fields is ignored.
func (a *Attributes) Merge(fields Attributes) {
	for _, k := range fields.keys {
		if k == IDKey {
			continue
		}
		a.Set(k, fields.values[k])
	}
}

// WithID returns a new bag whose first key is IDKey set to id, followed by
// every other key of a in order. Any caller-supplied id is discarded.
func (a Attributes) WithID(id string) Attributes {
	out := NewAttributes()
	out.Set(IDKey, id)
	for _, k := range a.keys {
		if k == IDKey {
			continue
		}
		out.Set(k, a.values[k])
	}
	return out
}

// MarshalJSON writes the keys in order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalNoEscape(a.values[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. A repeated key keeps
// its first position and its last value.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotAnObject
	}

	out := NewAttributes()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// UnmarshalYAML reads a YAML mapping, keeping key order.
func (a *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %w", node.Line, ErrNotAnObject)
	}
	out := NewAttributes()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		out.Set(key, value)
	}
	*a = out
	return nil
}

var _ msgpack.CustomEncoder = Attributes{}

// EncodeMsgpack writes the bag as a msgpack map in key order.
func (a Attributes) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(a.keys)); err != nil {
		return err
	}
	for _, k := range a.keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := enc.Encode(msgpackValue(a.values[k])); err != nil {
			return fmt.Errorf("attribute %q: %w", k, err)
		}
	}
	return nil
}

// msgpackValue converts json.Number leaves into native numbers so the binary
// export carries numeric types instead of strings.
func msgpackValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = msgpackValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = msgpackValue(inner)
		}
		return out
	default:
		return v
	}
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
