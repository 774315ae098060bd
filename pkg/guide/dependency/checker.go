package dependency

import (
	"welding-recommender-be/internal/pkg/logger"
	"welding-recommender-be/pkg/guide"
)

// Checker decides whether a category's prerequisites are satisfied and
// extracts the parent identifiers a compatibility-filtered search needs.
type Checker struct {
	rulebook *guide.Rulebook
	logger   logger.ILogger
}

func NewChecker(rulebook *guide.Rulebook, log logger.ILogger) *Checker {
	return &Checker{rulebook: rulebook, logger: log}
}

// CheckSatisfied reports whether every prerequisite of the category has a
// selection, and returns the ids of all selected parent items. Multi-parent
// filtering is the normal case, not an edge case: a category with several
// prerequisites, or a multi-select parent, yields several parent ids and
// the search must match items compatible with all of them.
func (c *Checker) CheckSatisfied(category guide.Category, selections guide.Selections) (bool, []string) {
	rule, ok := c.rulebook.Rule(category)
	if !ok {
		// Unconfigured category: no prerequisites to enforce.
		if c.logger != nil {
			c.logger.Warn("DEPENDENCY", "No rule for category, treating as prerequisite-free", map[string]interface{}{
				"category": string(category),
			})
		}
		return true, nil
	}

	var parents []string
	for _, prereq := range rule.Prerequisites {
		ids := selections.IDs(prereq)
		if len(ids) == 0 {
			return false, nil
		}
		parents = append(parents, ids...)
	}
	return true, parents
}
