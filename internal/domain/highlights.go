package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Highlight is one named numeric result on a panel.
type Highlight struct {
	Name  string
	Value float64
}

// Highlights keeps panel results in insertion order. It marshals to a JSON
// object with keys in that order, so serialized output never depends on map
// iteration. Integral values render without a fractional part.
type Highlights []Highlight

func (h Highlights) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(e.Value, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *Highlights) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("highlights: expected object, got %v", tok)
	}
	out := Highlights{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("highlights: value for %s: %w", key, err)
		}
		out = append(out, Highlight{Name: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*h = out
	return nil
}

// Get returns the named value if present.
func (h Highlights) Get(name string) (float64, bool) {
	for _, e := range h {
		if e.Name == name {
			return e.Value, true
		}
	}
	return 0, false
}
