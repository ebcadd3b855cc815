// Package dependency gates destructive deletion behind a dependent-count
// check against the repository.
package dependency

import (
	"context"
	"fmt"
	"sort"

	"github.com/terrasense/agriops/internal/catalog"
	"github.com/terrasense/agriops/internal/types"
)

// Checker answers "who still references these entities as parent".
type Checker struct {
	repo catalog.Repository
}

// NewChecker creates a Checker over the given repository.
func NewChecker(repo catalog.Repository) *Checker {
	return &Checker{repo: repo}
}

// Check queries dependents for every candidate in one logical call. The
// fan-out per candidate is an implementation detail; callers see a single
// batched result. Only nonzero groups are reported, so an empty result is
// a definitive "nothing depends on these".
func (c *Checker) Check(ctx context.Context, candidates []types.Entity) ([]types.Dependency, error) {
	var out []types.Dependency
	for _, cand := range candidates {
		dependents, err := c.repo.ListEntities(ctx, types.ListFilter{ParentID: cand.ID})
		if err != nil {
			return nil, fmt.Errorf("checking dependents of %s: %w", cand.ID, err)
		}
		byType := make(map[string]int)
		for _, d := range dependents {
			byType[d.Type]++
		}
		depTypes := make([]string, 0, len(byType))
		for t := range byType {
			depTypes = append(depTypes, t)
		}
		sort.Strings(depTypes)
		for _, t := range depTypes {
			out = append(out, types.Dependency{
				EntityName:     cand.Name,
				DependentType:  t,
				DependentCount: byType[t],
			})
		}
	}
	return out, nil
}

// ShouldBlockDeletion reports whether deletion must be blocked: true iff
// at least one dependency record has a nonzero dependent count. All
// dependent types block uniformly.
func ShouldBlockDeletion(deps []types.Dependency) bool {
	for _, d := range deps {
		if d.DependentCount > 0 {
			return true
		}
	}
	return false
}
