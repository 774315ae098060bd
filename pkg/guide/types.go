package guide

// Product is one candidate item returned by the catalog for a category.
type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Category   Category          `json:"category"`
	Score      float64           `json:"score"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SearchOutcome is the result of one catalog search for one category.
// CompatibilityValidated reflects whether the query itself filtered by
// compatibility relationships; it is independent of how many items came
// back and is the sole trigger condition for auto-skip.
type SearchOutcome struct {
	Items                  []Product `json:"items"`
	CompatibilityValidated bool      `json:"compatibility_validated"`
}

// ApplicabilityMap records, per downstream category, whether the category
// is relevant for the selected root item. Absent entries mean applicable:
// a category added to the catalog after the config was written must never
// be silently hidden.
type ApplicabilityMap map[Category]bool

// Applicable reports whether a category should be offered. Nil maps and
// missing entries are both fail-open.
func (m ApplicabilityMap) Applicable(c Category) bool {
	if m == nil {
		return true
	}
	v, ok := m[c]
	if !ok {
		return true
	}
	return v
}

// SelectedItem is one confirmed component in the configuration.
type SelectedItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Selections is the evolving cart: chosen items per category plus the
// applicability map fixed at root selection time. Only explicit user
// selections and compound auto-selection mutate it; skipping never does.
type Selections struct {
	Items         map[Category][]SelectedItem `json:"items"`
	Applicability ApplicabilityMap            `json:"applicability"`
}

func NewSelections() Selections {
	return Selections{Items: make(map[Category][]SelectedItem)}
}

// Select records an item for a category. Multi-select categories append;
// single-select categories replace.
func (s *Selections) Select(c Category, item SelectedItem, multiSelect bool) {
	if s.Items == nil {
		s.Items = make(map[Category][]SelectedItem)
	}
	if multiSelect {
		s.Items[c] = append(s.Items[c], item)
		return
	}
	s.Items[c] = []SelectedItem{item}
}

// Has reports whether the category has at least one selection.
func (s *Selections) Has(c Category) bool {
	return len(s.Items[c]) > 0
}

// IDs returns the selected item ids for a category.
func (s *Selections) IDs(c Category) []string {
	items := s.Items[c]
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

// First returns the first selected item for a category, if any.
func (s *Selections) First(c Category) (SelectedItem, bool) {
	items := s.Items[c]
	if len(items) == 0 {
		return SelectedItem{}, false
	}
	return items[0], true
}

// Spec is the structured specification extracted for one category
// (opaque key/value pairs from the extraction layer).
type Spec map[string]string

// Requirements maps categories to their extracted specifications for the
// current conversation.
type Requirements map[Category]Spec

// Present reports whether the category has any extracted specification.
func (r Requirements) Present(c Category) bool {
	return len(r[c]) > 0
}

// Merge overlays newer extraction output onto the existing record.
func (r Requirements) Merge(update Requirements) {
	for c, spec := range update {
		if len(spec) == 0 {
			continue
		}
		if r[c] == nil {
			r[c] = make(Spec, len(spec))
		}
		for k, v := range spec {
			r[c][k] = v
		}
	}
}

// TransitionEvent is emitted for every state transition, including every
// auto-skip hop. The downstream templating layer renders it into
// user-facing text; the core only supplies the skip-reason string.
type TransitionEvent struct {
	SessionID        string    `json:"session_id"`
	PreviousCategory Category  `json:"previous_category"`
	NewCategory      Category  `json:"new_category"`
	Skipped          bool      `json:"skipped"`
	SkipReason       string    `json:"skip_reason,omitempty"`
	Results          []Product `json:"results,omitempty"`
}
