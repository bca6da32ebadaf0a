// request.go - Fill requests parsed from operator messages.
package template

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// FillRequest maps field names to the text drawn for them.
type FillRequest map[string]string

// ParseFillRequest reads one "field=value" assignment per line. Each line is
// split on its first '='; both sides are trimmed and NFC-normalised. Lines
// without '=' or with an empty field name are ignored, and a later line
// overrides an earlier one for the same field. The result may be empty.
func ParseFillRequest(s string) FillRequest {
	req := FillRequest{}
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = norm.NFC.String(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		req[key] = norm.NFC.String(strings.TrimSpace(value))
	}
	return req
}

// Names returns the request's field names in no particular order.
func (r FillRequest) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}

// OutputName returns the file name for a document filled from tmpl at t:
// filled_<YYYYmmdd_HHMMSS>_<template>.
func OutputName(tmpl string, t time.Time) string {
	return "filled_" + t.Format("20060102_150405") + "_" + tmpl
}
