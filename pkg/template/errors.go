package template

import (
	"errors"

	"github.com/xob0t/FormStencil/pkg/layout"
)

// Failure classes of a fill. Callers classify with errors.Is.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrLayoutMissing    = errors.New("layout missing")
	ErrInputUnparseable = layout.ErrInputUnparseable
	ErrRender           = errors.New("render failed")

	// ErrFontUnavailable is never returned from a fill; it tags the
	// warning logged when the resolver degrades to a built-in face.
	ErrFontUnavailable = errors.New("font unavailable")
)
