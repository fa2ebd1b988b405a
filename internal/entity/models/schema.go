package models

import (
	id "origo/pkg/domain"
)

// FieldType drives value comparison during conflict detection: text fields
// compare case/whitespace-normalized, date fields compare by calendar day.
type FieldType string

const (
	FieldTypeText FieldType = "text"
	FieldTypeDate FieldType = "date"
)

// FieldSpec declares one field an entity kind may carry.
type FieldSpec struct {
	Name id.FieldName
	Type FieldType
}

// fieldSchemas declares the fields known per entity kind. Candidates for
// undeclared fields are rejected before any store access.
var fieldSchemas = map[Kind][]FieldSpec{
	KindCase: {
		{Name: "first_name", Type: FieldTypeText},
		{Name: "last_name", Type: FieldTypeText},
		{Name: "maiden_name", Type: FieldTypeText},
		{Name: "birth_place", Type: FieldTypeText},
		{Name: "birth_date", Type: FieldTypeDate},
		{Name: "passport_number", Type: FieldTypeText},
		{Name: "birth_certificate_number", Type: FieldTypeText},
		{Name: "marriage_certificate_number", Type: FieldTypeText},
		{Name: "naturalization_date", Type: FieldTypeDate},
		{Name: "emigration_date", Type: FieldTypeDate},
	},
	KindFamilyMember: {
		{Name: "first_name", Type: FieldTypeText},
		{Name: "last_name", Type: FieldTypeText},
		{Name: "maiden_name", Type: FieldTypeText},
		{Name: "birth_place", Type: FieldTypeText},
		{Name: "birth_date", Type: FieldTypeDate},
		{Name: "death_date", Type: FieldTypeDate},
		{Name: "relation", Type: FieldTypeText},
		{Name: "birth_certificate_number", Type: FieldTypeText},
	},
}

// FieldSpecFor returns the spec for a field on an entity kind, or false when
// the kind does not declare the field.
func FieldSpecFor(kind Kind, field id.FieldName) (FieldSpec, bool) {
	for _, spec := range fieldSchemas[kind] {
		if spec.Name == field {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Fields returns the declared field specs for a kind.
func Fields(kind Kind) []FieldSpec {
	specs := fieldSchemas[kind]
	out := make([]FieldSpec, len(specs))
	copy(out, specs)
	return out
}
