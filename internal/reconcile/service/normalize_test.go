package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	entitymodels "origo/internal/entity/models"
)

func TestEquivalent(t *testing.T) {
	tests := []struct {
		name string
		typ  entitymodels.FieldType
		a, b string
		want bool
	}{
		{"case insensitive", entitymodels.FieldTypeText, "WARSAW", "warsaw", true},
		{"whitespace collapsed", entitymodels.FieldTypeText, "Nowy  Sacz", " Nowy Sacz ", true},
		{"different text", entitymodels.FieldTypeText, "WARSAW", "Warszawa", false},
		{"same day different layout", entitymodels.FieldTypeDate, "1921-03-05", "05.03.1921", true},
		{"slash layout", entitymodels.FieldTypeDate, "05/03/1921", "1921-03-05", true},
		{"long form", entitymodels.FieldTypeDate, "March 5, 1921", "1921-03-05", true},
		{"different day", entitymodels.FieldTypeDate, "1921-03-05", "1921-03-06", false},
		{"unparseable falls back to text", entitymodels.FieldTypeDate, "circa 1921", "CIRCA  1921", true},
		{"one unparseable side differs", entitymodels.FieldTypeDate, "circa 1921", "1921-03-05", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, equivalent(tt.typ, tt.a, tt.b))
		})
	}
}
