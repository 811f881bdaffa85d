package selection

import (
	"github.com/tablevox/prefsel/internal/datastore"
)

// MergeResult is the outcome of merging classifier candidates against the
// active vocabulary.
type MergeResult struct {
	// Detected holds the recognized entities in first-mention order with
	// duplicates removed. Empty when nothing was detected and the default
	// applied.
	Detected []datastore.Entity
	// Primary is the single entity chosen to represent the utterance:
	// Detected[0], or the default entity when Detected is empty.
	Primary datastore.Entity
	// Fallback is true when Primary is the configured default entity.
	Fallback bool
}

// Merge resolves classifier candidate names against the active vocabulary.
//
// Candidate names that do not map onto an active entity are dropped, this is
// the guard against classifier hallucination: the engine never invents
// vocabulary entries on the fly. The surviving entities are deduplicated
// preserving first-seen order. An empty result falls back to the default
// entity, a designed branch and not an error: "nothing detected" must not
// fail the request.
func Merge(candidates []string, active []datastore.Entity, defaultEntity datastore.Entity) MergeResult {
	byKey := make(map[string]*datastore.Entity, len(active))
	for i := range active {
		byKey[active[i].NameKey] = &active[i]
	}

	seen := make(map[uint]bool, len(candidates))
	var detected []datastore.Entity
	for _, name := range candidates {
		entity, ok := byKey[datastore.NormalizeName(name)]
		if !ok {
			continue
		}
		if seen[entity.ID] {
			continue
		}
		seen[entity.ID] = true
		detected = append(detected, *entity)
	}

	if len(detected) == 0 {
		return MergeResult{
			Detected: nil,
			Primary:  defaultEntity,
			Fallback: true,
		}
	}

	return MergeResult{
		Detected: detected,
		Primary:  detected[0],
	}
}

// DetectedNames returns the canonical names of the detected entities, in order.
func (r *MergeResult) DetectedNames() []string {
	names := make([]string, 0, len(r.Detected))
	for i := range r.Detected {
		names = append(names, r.Detected[i].Name)
	}
	return names
}
