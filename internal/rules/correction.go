package rules

import (
	"regexp"
	"strings"
)

var edgeNonAlnum = regexp.MustCompile(`^[^a-zA-Z0-9]+|[^a-zA-Z0-9]+$`)

// Correct maps a known misread model number to its real value. Matching is
// exact and case-sensitive; anything else is returned unchanged.
func (e *Engine) Correct(s string) string {
	if v, ok := e.t.Correction[s]; ok {
		return v
	}
	return s
}

// Clean trims whitespace, removes inner spaces and strips non-alphanumeric
// runs from both ends. Case is preserved.
func Clean(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return ""
	}
	return strings.TrimSpace(edgeNonAlnum.ReplaceAllString(s, ""))
}

// NormalizeModel turns raw OCR output into a catalog model number: correction
// table first, then cleaning.
func (e *Engine) NormalizeModel(raw string) string {
	return Clean(e.Correct(raw))
}

// ProductType maps a localized vision label to the English class name used by
// the transfer rules. Unknown labels pass through.
func (e *Engine) ProductType(label string) string {
	label = strings.TrimSpace(label)
	if v, ok := e.t.ProductTypeLabels[label]; ok {
		return v
	}
	return label
}

// StatusLabel maps a listing status code to its display label.
func (e *Engine) StatusLabel(code string) string {
	if v, ok := e.t.ProductStatusLabels[code]; ok {
		return v
	}
	return code
}
