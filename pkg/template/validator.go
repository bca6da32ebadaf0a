// validator.go - Match a fill request against a layout.
package template

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xob0t/FormStencil/pkg/layout"
)

// Match splits a request against a layout's fields. fill holds the layout
// fields present in the request, missing the layout fields it lacks, and
// ignored the request names the layout does not define. All three are sorted.
func Match(l *layout.Layout, req FillRequest) (fill, missing, ignored []string) {
	for _, name := range l.FieldNames() {
		if _, ok := req[name]; ok {
			fill = append(fill, name)
		} else {
			missing = append(missing, name)
		}
	}
	for name := range req {
		if _, ok := l.Fields[name]; !ok {
			ignored = append(ignored, name)
		}
	}
	slices.Sort(ignored)
	return fill, missing, ignored
}

// FormatFields returns a bulleted list of the layout's field names.
func FormatFields(l *layout.Layout) string {
	var b strings.Builder
	for _, name := range l.FieldNames() {
		fmt.Fprintf(&b, "• %s\n", name)
	}
	return b.String()
}
