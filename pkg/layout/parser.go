// parser.go - Layout record decoding, operator submissions and the example document.
package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rawField mirrors FieldSpec with pointers so required keys can be detected.
type rawField struct {
	X        *int   `json:"x"`
	Y        *int   `json:"y"`
	FontSize *int   `json:"font_size"`
	Color    string `json:"color"`
}

type rawLayout struct {
	TemplateName string              `json:"template_name"`
	Fields       map[string]rawField `json:"fields"`
	CreatedAt    string              `json:"created_at"`
}

// Decode parses a stored layout record. Every field must carry x and y.
// Unknown keys are ignored.
func Decode(data []byte) (*Layout, error) {
	return decode(data, false)
}

func decode(data []byte, strict bool) (*Layout, error) {
	var raw rawLayout
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputUnparseable, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after the layout document", ErrInputUnparseable)
	}

	l := &Layout{
		TemplateName: raw.TemplateName,
		Fields:       make(map[string]FieldSpec, len(raw.Fields)),
		CreatedAt:    raw.CreatedAt,
	}
	for name, f := range raw.Fields {
		if f.X == nil || f.Y == nil {
			return nil, fmt.Errorf("%w: field %q needs both x and y", ErrInputUnparseable, name)
		}
		spec := FieldSpec{X: *f.X, Y: *f.Y, Color: f.Color}
		if f.FontSize != nil {
			spec.FontSize = *f.FontSize
		}
		l.Fields[name] = spec
	}
	return l, nil
}

// Encode renders a layout record as indented JSON. Non-ASCII field names
// are written as-is, not escaped.
func Encode(l *Layout) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseSubmission parses a layout document sent by an operator. The document
// must name its template and define at least one field, and may only use
// known keys. Missing font sizes and colours are filled with defaults and the
// record is stamped with now.
func ParseSubmission(data []byte, now time.Time) (*Layout, error) {
	l, err := decode(bytes.TrimSpace(data), true)
	if err != nil {
		return nil, err
	}

	l.TemplateName = strings.TrimSpace(l.TemplateName)
	if l.TemplateName == "" {
		return nil, fmt.Errorf("%w: template_name is required", ErrInputUnparseable)
	}
	if err := ValidateName(l.TemplateName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputUnparseable, err)
	}
	if len(l.Fields) == 0 {
		return nil, fmt.Errorf("%w: fields must not be empty", ErrInputUnparseable)
	}

	for name, f := range l.Fields {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInputUnparseable)
		}
		f.FontSize = f.Size()
		f.Color = f.TextColor()
		l.Fields[name] = f
	}
	if l.CreatedAt == "" {
		l.CreatedAt = now.UTC().Format(time.RFC3339)
	}
	return l, nil
}

// ExampleJSON returns a sample submission for the configure flow and `formstencil init`.
func ExampleJSON() string {
	return `{
  "template_name": "document.jpg",
  "fields": {
    "name": {"x": 100, "y": 200, "font_size": 24},
    "date": {"x": 300, "y": 400, "font_size": 20, "color": "#1a1a80"}
  }
}`
}
