// Package view holds the filter and sort pipeline for catalog listings.
// ViewState is an immutable value passed through the pipeline; nothing
// here mutates its input slice.
package view

import (
	"sort"
	"strings"

	"github.com/terrasense/agriops/internal/types"
)

// Filters are conjunctive across dimensions and disjunctive within a
// multi-select dimension: an empty set means "no filter" for that
// dimension.
type Filters struct {
	Categories   []string `json:"categories,omitempty"`
	Types        []string `json:"types,omitempty"`
	Statuses     []string `json:"statuses,omitempty"`
	Municipality string   `json:"municipality,omitempty"`
	// HasLocation is tri-state: nil = no filter, true/false = exact match.
	HasLocation *bool `json:"has_location,omitempty"`
	// Search matches case-insensitively against name, type, and
	// municipality as a plain substring.
	Search string `json:"search,omitempty"`
}

// Sort is the single active sort key and direction. Zero value means
// "no sort": listings keep their original relative order.
type Sort struct {
	Field     string `json:"field,omitempty"`
	Ascending bool   `json:"ascending"`
}

// ViewState bundles the filter and sort selections for one rendered view.
type ViewState struct {
	Filters Filters `json:"filters"`
	Sort    Sort    `json:"sort"`
}

// Toggle returns the sort after selecting field: same field flips the
// direction, a new field resets to ascending.
func Toggle(s Sort, field string) Sort {
	if s.Field == field {
		return Sort{Field: field, Ascending: !s.Ascending}
	}
	return Sort{Field: field, Ascending: true}
}

// ApplyFilters returns the entities passing every active dimension, in
// their original relative order.
func ApplyFilters(entities []types.Entity, f Filters) []types.Entity {
	var out []types.Entity
	for _, e := range entities {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e types.Entity, f Filters) bool {
	if len(f.Categories) > 0 && !inSet(f.Categories, e.Category) {
		return false
	}
	if len(f.Types) > 0 && !inSet(f.Types, e.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !inSet(f.Statuses, e.Status) {
		return false
	}
	if f.Municipality != "" && e.Municipality != f.Municipality {
		return false
	}
	if f.HasLocation != nil && e.HasLocation != *f.HasLocation {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Name), q) &&
			!strings.Contains(strings.ToLower(e.Type), q) &&
			!strings.Contains(strings.ToLower(e.Municipality), q) {
			return false
		}
	}
	return true
}

func inSet(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ApplySort returns a sorted copy of entities. The sort is stable, so
// applying the same Sort twice yields the identical order.
func ApplySort(entities []types.Entity, s Sort) []types.Entity {
	out := make([]types.Entity, len(entities))
	copy(out, entities)
	if s.Field == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortKey(out[i], s.Field), sortKey(out[j], s.Field)
		if s.Ascending {
			return a < b
		}
		return a > b
	})
	return out
}

func sortKey(e types.Entity, field string) string {
	switch field {
	case "type":
		return strings.ToLower(e.Type)
	case "category":
		return strings.ToLower(e.Category)
	case "status":
		return strings.ToLower(e.Status)
	case "municipality":
		return strings.ToLower(e.Municipality)
	default:
		return strings.ToLower(e.Name)
	}
}

// Counts are the navigation totals derived from the unfiltered catalog.
// They always reflect total inventory, not the current filtered subset,
// so the navigation pills stay stable while filters change.
type Counts struct {
	ByCategory map[string]int `json:"by_category"`
	ByType     map[string]int `json:"by_type"`
}

// DeriveCounts tallies the catalog by category and by type.
func DeriveCounts(entities []types.Entity) Counts {
	c := Counts{
		ByCategory: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for _, e := range entities {
		c.ByCategory[e.Category]++
		c.ByType[e.Type]++
	}
	return c
}
