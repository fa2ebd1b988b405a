// Package domain holds the typed identifiers and small value types shared
// across modules. Distinct UUID wrappers keep a CaseID from ever being
// passed where an EntityID belongs.
package domain

import (
	"github.com/google/uuid"

	dErrors "origo/pkg/domain-errors"
)

type (
	// CaseID identifies one citizenship application case.
	CaseID uuid.UUID
	// EntityID identifies one entity (the case subject or a family member).
	EntityID uuid.UUID
	// ConflictID identifies one detected conflict.
	ConflictID uuid.UUID
	// DocumentID identifies a scanned source document referenced by OCR
	// candidates. Documents themselves live in external storage.
	DocumentID uuid.UUID
)

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil uuid")
	}
	return u, nil
}

func ParseCaseID(raw string) (CaseID, error) {
	u, err := parseUUID(raw, "case id")
	return CaseID(u), err
}

func ParseEntityID(raw string) (EntityID, error) {
	u, err := parseUUID(raw, "entity id")
	return EntityID(u), err
}

func ParseConflictID(raw string) (ConflictID, error) {
	u, err := parseUUID(raw, "conflict id")
	return ConflictID(u), err
}

func ParseDocumentID(raw string) (DocumentID, error) {
	u, err := parseUUID(raw, "document id")
	return DocumentID(u), err
}

func (id CaseID) String() string     { return uuid.UUID(id).String() }
func (id EntityID) String() string   { return uuid.UUID(id).String() }
func (id ConflictID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EntityID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ConflictID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshalling so the wrappers serialize as canonical uuid strings.

func (id CaseID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id EntityID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ConflictID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CaseID) UnmarshalText(b []byte) error {
	parsed, err := ParseCaseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *EntityID) UnmarshalText(b []byte) error {
	parsed, err := ParseEntityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ConflictID) UnmarshalText(b []byte) error {
	parsed, err := ParseConflictID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
