// Package links holds the sync link registry: which field in which table
// mirrors which field elsewhere. Loaded once at startup, read-only after.
package links

import (
	"strings"

	entitymodels "origo/internal/entity/models"
	"origo/internal/sync/models"
	id "origo/pkg/domain"
)

type key struct {
	table string
	field id.FieldName
}

// Registry resolves (table, field) to the links that fan out from it.
type Registry struct {
	links map[key][]models.SyncLink
}

func New() *Registry {
	return &Registry{links: make(map[key][]models.SyncLink)}
}

// Add registers a one-way link.
func (r *Registry) Add(l models.SyncLink) {
	k := key{l.SourceTable, l.SourceField}
	r.links[k] = append(r.links[k], l)
}

// AddBidirectional registers both directions of a field pairing.
func (r *Registry) AddBidirectional(tableA string, fieldA id.FieldName, tableB string, fieldB id.FieldName, aToB, bToA func(string) string) {
	r.Add(models.SyncLink{SourceTable: tableA, SourceField: fieldA, TargetTable: tableB, TargetField: fieldB, Transform: aToB})
	r.Add(models.SyncLink{SourceTable: tableB, SourceField: fieldB, TargetTable: tableA, TargetField: fieldA, Transform: bToA})
}

// TargetsFor returns the links fanning out from one changed field.
func (r *Registry) TargetsFor(table string, field id.FieldName) ([]models.SyncLink, error) {
	out := r.links[key{table, field}]
	if len(out) == 0 {
		return nil, models.ErrSyncLinkMissing
	}
	return out, nil
}

// Default links every case-schema field to its intake counterpart under the
// same name. The intake system stores free text, so the master-to-intake
// direction trims and the reverse collapses runs of whitespace.
func Default() *Registry {
	r := New()
	for _, spec := range entitymodels.Fields(entitymodels.KindCase) {
		r.AddBidirectional(
			models.TableMaster, spec.Name,
			models.TableIntake, spec.Name,
			strings.TrimSpace,
			collapseWhitespace,
		)
	}
	return r
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
