package sequence

import (
	"errors"
	"fmt"

	"welding-recommender-be/pkg/guide"
)

// ErrCorruptedState signals that the session's current category is not in
// the known sequence. The session cannot be trusted anymore; callers must
// surface this instead of guessing a position.
var ErrCorruptedState = errors.New("current category not found in sequence")

// Machine computes state transitions over the ordered category sequence.
// There is exactly one implementation of Next; the direct-search,
// post-selection and manual-advance flows all go through it.
type Machine struct {
	rulebook *guide.Rulebook
}

func NewMachine(rulebook *guide.Rulebook) *Machine {
	return &Machine{rulebook: rulebook}
}

// Next returns the category that follows current. It scans forward and
// skips categories that are explicitly not applicable for the selected
// root, plus single-select categories that already hold a selection.
// Multi-select categories are sticky: they stay current until the user
// issues an explicit done signal, recorded in done.
func (m *Machine) Next(
	current guide.Category,
	selections guide.Selections,
	applicability guide.ApplicabilityMap,
	done map[guide.Category]bool,
) (guide.Category, error) {
	idx, ok := m.rulebook.IndexOf(current)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrCorruptedState, current)
	}
	return m.scan(idx+1, selections, applicability, done), nil
}

// FirstPending returns the earliest category still needing attention,
// scanning from the start of the sequence. Used after compound-request
// processing to place the user at the first open step.
func (m *Machine) FirstPending(
	selections guide.Selections,
	applicability guide.ApplicabilityMap,
	done map[guide.Category]bool,
) guide.Category {
	return m.scan(0, selections, applicability, done)
}

func (m *Machine) scan(
	from int,
	selections guide.Selections,
	applicability guide.ApplicabilityMap,
	done map[guide.Category]bool,
) guide.Category {
	seq := m.rulebook.Sequence()
	for i := from; i < len(seq); i++ {
		cat := seq[i]
		rule, _ := m.rulebook.Rule(cat)

		if m.rulebook.Terminal(cat) {
			return cat
		}
		if !rule.Mandatory && !applicability.Applicable(cat) {
			continue
		}
		if rule.MultiSelect {
			if done[cat] {
				continue
			}
			return cat
		}
		if selections.Has(cat) {
			continue
		}
		return cat
	}
	return guide.CategoryFinalize
}
