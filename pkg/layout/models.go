// Package layout stores per-template field layouts: where each named field
// of a form is drawn, at which size and in which colour.
package layout

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultFontSize applies to fields that specify no font size.
const DefaultFontSize = 24

// DefaultColor applies to fields that specify no colour.
const DefaultColor = "#000000"

var (
	// ErrInputUnparseable is returned for submissions that are not a usable layout document.
	ErrInputUnparseable = errors.New("input unparseable")

	// ErrInvalidName is returned for template names that cannot name a record.
	ErrInvalidName = errors.New("invalid template name")
)

// ── Record types ──

// Layout is the persisted record for one template.
type Layout struct {
	TemplateName string               `json:"template_name"`
	Fields       map[string]FieldSpec `json:"fields"`
	CreatedAt    string               `json:"created_at,omitempty"` // RFC 3339
}

// FieldSpec defines where and how one field is drawn.
// (X, Y) is the top-left corner of the text in template pixels.
type FieldSpec struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	FontSize int    `json:"font_size,omitempty"`
	Color    string `json:"color,omitempty"`
}

// Size returns the font size, falling back to DefaultFontSize.
func (f FieldSpec) Size() int {
	if f.FontSize < 1 {
		return DefaultFontSize
	}
	return f.FontSize
}

// TextColor returns the colour, falling back to DefaultColor.
func (f FieldSpec) TextColor() string {
	if f.Color == "" {
		return DefaultColor
	}
	return f.Color
}

// FieldNames returns the layout's field names in lexicographic order.
func (l *Layout) FieldNames() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.Fields))
	for name := range l.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Empty reports whether the layout has no fields to draw.
func (l *Layout) Empty() bool {
	return l == nil || len(l.Fields) == 0
}

// ── Store ──

// Store persists one layout record per template name.
//
// Load never fails: a missing record and an unreadable record both report
// ok=false, the latter after logging. Save overwrites any previous record
// for the same name.
type Store interface {
	Load(ctx context.Context, name string) (*Layout, bool)
	Save(ctx context.Context, name string, l *Layout) error
}

// ValidateName rejects names that are empty or would escape the store.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name != filepath.Base(name), strings.ContainsAny(name, `/\`), name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
