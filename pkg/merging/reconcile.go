package merging

import (
	"slices"

	"github.com/Ramsey-B/sage/pkg/models"
)

// applyFunc overlays one incoming patch onto its stored counterpart and
// returns the merged entity. current is nil when the patch introduces a new
// entity. The bool reports whether the merged entity differs from current on
// any compared attribute; the caller stamps and counts only when it is true.
type applyFunc[E, P any] func(current *E, patch P) (E, bool)

// stampFunc writes modification metadata onto an entity. nil for entity
// classes that carry none.
type stampFunc[E any] func(*E)

// reconcileByID merges a list of incoming patches into a stored entity list,
// matching entries by id. Stored entities never seen in the patch list are
// kept untouched and in place; matched entities are overlaid via apply;
// unmatched patches append new entities. Every entity class in a customer
// config reconciles through this one routine.
func reconcileByID[E, P any](
	existing []E,
	patches []P,
	entityID func(E) string,
	patchID func(P) string,
	apply applyFunc[E, P],
	stamp stampFunc[E],
) ([]E, models.EntityStats) {
	merged := slices.Clone(existing)
	if merged == nil && patches != nil {
		// a present patch list materializes the stored list, even when
		// empty; first writes rely on this to produce a valid document
		merged = []E{}
	}

	index := make(map[string]int, len(merged))
	for i, entity := range merged {
		index[entityID(entity)] = i
	}

	var stats models.EntityStats
	for _, patch := range patches {
		if i, ok := index[patchID(patch)]; ok {
			candidate, changed := apply(&merged[i], patch)
			if changed {
				if stamp != nil {
					stamp(&candidate)
				}
				stats.Modified++
			}
			// the candidate may carry sub-entity changes even when the
			// entity itself is unchanged, so always keep it
			merged[i] = candidate
			continue
		}

		candidate, _ := apply(nil, patch)
		if stamp != nil {
			stamp(&candidate)
		}
		merged = append(merged, candidate)
		index[patchID(patch)] = len(merged) - 1
		stats.Added++
		stats.Modified++
	}

	stats.Total = len(merged)
	return merged, stats
}
