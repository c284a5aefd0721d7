package orchestration

import (
	"fmt"
	"path/filepath"
)

// FilterModels returns the subset of modelIDs that matches at least one of
// the given glob patterns. An empty patterns slice returns all model ids
// unchanged.
func FilterModels(modelIDs []string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return modelIDs, nil
	}

	var matched []string
	for _, id := range modelIDs {
		ok, err := matchesAny(id, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

// matchesAny reports whether a model id matches any pattern.
func matchesAny(id string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, id)
		if err != nil {
			return false, fmt.Errorf("invalid model filter pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
