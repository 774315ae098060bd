package compound

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"welding-recommender-be/internal/pkg/logger"
	"welding-recommender-be/pkg/catalog"
	"welding-recommender-be/pkg/guide"
	"welding-recommender-be/pkg/guide/applicability"
	"welding-recommender-be/pkg/guide/dependency"
	"welding-recommender-be/pkg/guide/sequence"
	"welding-recommender-be/pkg/store"

	"golang.org/x/sync/errgroup"
)

// CategoryOutcome is the per-category result of processing one compound
// request.
type CategoryOutcome struct {
	Category     guide.Category      `json:"category"`
	AutoSelected *guide.SelectedItem `json:"auto_selected,omitempty"`
	Candidates   []guide.Product     `json:"candidates,omitempty"`
	// Unfiltered is set when the compatibility search found nothing and
	// the handler fell back to an unfiltered catalog listing.
	Unfiltered bool   `json:"unfiltered"`
	Note       string `json:"note,omitempty"`
}

// Outcome is the merged result of one compound request.
type Outcome struct {
	PerCategory []CategoryOutcome       `json:"per_category"`
	Next        guide.Category          `json:"next"`
	Events      []guide.TransitionEvent `json:"events"`
}

// Handler deals with a single utterance that specifies several categories
// at once: it validates the root-first rule, fans the searches out in
// parallel, and merges the outcomes into the session.
type Handler struct {
	rulebook      *guide.Rulebook
	machine       *sequence.Machine
	deps          *dependency.Checker
	applicability *applicability.Resolver
	gateway       catalog.Gateway
	logger        logger.ILogger
}

func NewHandler(
	rulebook *guide.Rulebook,
	machine *sequence.Machine,
	deps *dependency.Checker,
	resolver *applicability.Resolver,
	gateway catalog.Gateway,
	log logger.ILogger,
) *Handler {
	return &Handler{
		rulebook:      rulebook,
		machine:       machine,
		deps:          deps,
		applicability: resolver,
		gateway:       gateway,
		logger:        log,
	}
}

// Detect reports whether the requirements record carries specifications
// for two or more categories, i.e. a compound request.
func (h *Handler) Detect(req guide.Requirements) bool {
	return len(h.specified(req)) >= 2
}

// Validate enforces the root-first rule: the root category may be
// requested standalone, but any downstream category needs the root either
// in the same request or already selected. The returned reason is
// user-facing.
func (h *Handler) Validate(req guide.Requirements, selections guide.Selections) (bool, string) {
	root := h.rulebook.Root()
	if req.Present(root) || selections.Has(root) {
		return true, ""
	}
	for _, c := range h.specified(req) {
		if c != root {
			return false, fmt.Sprintf(
				"please choose a %s first; a %s can only be matched against a selected %s",
				root.Display(), c.Display(), root.Display(),
			)
		}
	}
	return true, ""
}

// Process runs the catalog search for every specified category in
// parallel and merges the outcomes afterward. The searches are
// independent: each uses only parents already present in the selection
// record, and nothing is written to the session until all of them are
// done. Exactly one match auto-selects; several queue the category for
// disambiguation; none falls back to an unfiltered listing with a note.
func (h *Handler) Process(ctx context.Context, sess *store.Session) (*Outcome, error) {
	categories := h.specified(sess.Requirements)
	if len(categories) == 0 {
		return nil, fmt.Errorf("compound process called with no specified categories")
	}

	outcomes := make([]CategoryOutcome, len(categories))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		g.Go(func() error {
			out, err := h.searchOne(gctx, sess, cat)
			if err != nil {
				return err
			}
			mu.Lock()
			outcomes[i] = *out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if sess.Terminated() {
		return nil, fmt.Errorf("session %s terminated during compound processing", sess.ID)
	}

	// Merge phase: only now does the selection record change.
	result := &Outcome{PerCategory: outcomes}
	var pending []guide.Category
	for i := range outcomes {
		oc := &outcomes[i]
		rule, _ := h.rulebook.Rule(oc.Category)
		switch {
		case oc.AutoSelected != nil:
			sess.Selections.Select(oc.Category, *oc.AutoSelected, rule.MultiSelect)
			sess.Done[oc.Category] = true
			// Selecting the root fixes the applicability map for the
			// rest of the session.
			if oc.Category == h.rulebook.Root() {
				sess.Selections.Applicability = h.applicability.Resolve(oc.AutoSelected.ID)
			}
		case len(oc.Candidates) >= 2 && !oc.Unfiltered:
			pending = append(pending, oc.Category)
		}
	}

	next, err := h.nextAfterMerge(sess, pending)
	if err != nil {
		return nil, err
	}
	if prev := sess.Current; prev != next {
		result.Events = append(result.Events, guide.TransitionEvent{
			SessionID:        sess.ID,
			PreviousCategory: prev,
			NewCategory:      next,
		})
	}
	sess.Current = next
	result.Next = next
	return result, nil
}

// searchOne produces the outcome for one category of the compound
// request without touching shared state.
func (h *Handler) searchOne(ctx context.Context, sess *store.Session, cat guide.Category) (*CategoryOutcome, error) {
	rule, _ := h.rulebook.Rule(cat)
	_, parents := h.deps.CheckSatisfied(cat, sess.Selections)

	out, err := h.gateway.Search(ctx, catalog.SearchRequest{
		Category:              cat,
		Spec:                  sess.Requirements[cat],
		ParentIDs:             parents,
		RequiresCompatibility: rule.RequiresCompatibility,
	})
	if err != nil {
		return nil, fmt.Errorf("compound search for %s: %w", cat, err)
	}

	oc := &CategoryOutcome{Category: cat}
	switch len(out.Items) {
	case 1:
		item := out.Items[0]
		oc.AutoSelected = &guide.SelectedItem{ID: item.ID, Name: item.Name}
		oc.Candidates = out.Items
	case 0:
		fallback, err := h.gateway.Search(ctx, catalog.SearchRequest{
			Category: cat,
			Spec:     sess.Requirements[cat],
			// Unfiltered fallback: show the whole category rather than a
			// dead end.
			RequiresCompatibility: false,
		})
		if err != nil {
			return nil, fmt.Errorf("compound fallback search for %s: %w", cat, err)
		}
		oc.Candidates = fallback.Items
		oc.Unfiltered = true
		oc.Note = fmt.Sprintf("no exact %s match found; showing all available options", cat.Display())
	default:
		oc.Candidates = out.Items
	}
	return oc, nil
}

// nextAfterMerge places the user at the first category still needing
// disambiguation, else the first unselected applicable category, else
// Finalize. Several pending disambiguations are ordered by sequence
// position.
func (h *Handler) nextAfterMerge(sess *store.Session, pending []guide.Category) (guide.Category, error) {
	if len(pending) > 0 {
		sort.Slice(pending, func(i, j int) bool {
			oi, _ := h.rulebook.IndexOf(pending[i])
			oj, _ := h.rulebook.IndexOf(pending[j])
			return oi < oj
		})
		return pending[0], nil
	}
	return h.machine.FirstPending(sess.Selections, sess.Selections.Applicability, sess.Done), nil
}

// specified returns the categories with extracted specifications, in
// sequence order. Categories the rulebook does not know are dropped with
// a warning rather than carried into searches.
func (h *Handler) specified(req guide.Requirements) []guide.Category {
	var out []guide.Category
	for c := range req {
		if !req.Present(c) {
			continue
		}
		if _, ok := h.rulebook.Rule(c); !ok {
			if h.logger != nil {
				h.logger.Warn("COMPOUND", "Dropping unknown category from compound request", map[string]interface{}{
					"category": string(c),
				})
			}
			continue
		}
		if h.rulebook.Terminal(c) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, _ := h.rulebook.IndexOf(out[i])
		oj, _ := h.rulebook.IndexOf(out[j])
		return oi < oj
	})
	return out
}
