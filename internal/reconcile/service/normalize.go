package service

import (
	"strings"
	"time"

	entitymodels "origo/internal/entity/models"
)

// dateLayouts are the layouts accepted for date-typed fields, tried in
// order. OCR output and the legacy intake system disagree on formatting,
// so the comparison is by calendar day rather than by string.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02.01.2006",
	"02/01/2006",
	"January 2, 2006",
}

// normalizeText lowercases and collapses internal whitespace so values that
// differ only in casing or spacing corroborate instead of conflicting.
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// equivalent reports whether two raw values are materially the same under
// the field's comparison rules.
func equivalent(fieldType entitymodels.FieldType, a, b string) bool {
	if fieldType == entitymodels.FieldTypeDate {
		ta, okA := parseDate(a)
		tb, okB := parseDate(b)
		if okA && okB {
			ya, ma, da := ta.Date()
			yb, mb, db := tb.Date()
			return ya == yb && ma == mb && da == db
		}
		// Unparseable dates fall back to text rules.
	}
	return normalizeText(a) == normalizeText(b)
}
