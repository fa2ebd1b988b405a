package domain

import (
	"strings"

	dErrors "origo/pkg/domain-errors"
)

// FieldName names one reconciled field on an entity, e.g. "birth_place".
// Which names are valid for a given entity kind is decided by the entity
// schema, not here.
type FieldName string

// ParseFieldName trims and validates a raw field name.
func ParseFieldName(s string) (FieldName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "field name is required")
	}
	return FieldName(s), nil
}

func (f FieldName) String() string { return string(f) }
