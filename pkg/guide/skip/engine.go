package skip

import (
	"context"
	"fmt"

	"welding-recommender-be/internal/pkg/logger"
	"welding-recommender-be/pkg/catalog"
	"welding-recommender-be/pkg/guide"
	"welding-recommender-be/pkg/guide/dependency"
	"welding-recommender-be/pkg/guide/sequence"
	"welding-recommender-be/pkg/store"
)

// Result is what the engine hands back to whichever flow invoked it: the
// category the user ends up at, that category's search outcome, and one
// transition event per hop taken to get there.
type Result struct {
	Category guide.Category
	Outcome  *guide.SearchOutcome
	Events   []guide.TransitionEvent
}

// Engine advances the session past categories with zero compatible
// results. There is exactly one of these procedures in the codebase; the
// direct-search, post-selection and manual-advance flows all call it so
// the skip semantics cannot drift apart.
type Engine struct {
	rulebook *guide.Rulebook
	machine  *sequence.Machine
	deps     *dependency.Checker
	gateway  catalog.Gateway
	logger   logger.ILogger
}

func NewEngine(
	rulebook *guide.Rulebook,
	machine *sequence.Machine,
	deps *dependency.Checker,
	gateway catalog.Gateway,
	log logger.ILogger,
) *Engine {
	return &Engine{
		rulebook: rulebook,
		machine:  machine,
		deps:     deps,
		gateway:  gateway,
		logger:   log,
	}
}

// ShouldSkip evaluates the trigger condition for one category and its
// search outcome. All three must hold: the query actually applied
// compatibility filtering, it found nothing, and the category is not a
// conditional accessory (an empty result there is normal, not a dead
// end). Multi-select categories without a compatibility requirement never
// reach a validated outcome, so they stop the loop naturally; a validated
// empty outcome on an unconditional multi-select category is still
// stopped here so the user keeps control over it.
func (e *Engine) ShouldSkip(c guide.Category, outcome *guide.SearchOutcome) bool {
	if outcome == nil || !outcome.CompatibilityValidated || len(outcome.Items) > 0 {
		return false
	}
	if e.rulebook.Terminal(c) {
		return false
	}
	rule, ok := e.rulebook.Rule(c)
	if !ok {
		if e.logger != nil {
			e.logger.Warn("SKIP", "No rule for category, not skipping", map[string]interface{}{
				"category": string(c),
			})
		}
		return false
	}
	if rule.ConditionalAccessory {
		return false
	}
	if rule.MultiSelect {
		return false
	}
	return true
}

// SearchAndResolve is the one search-then-skip path shared by the three
// request flows: it runs the dependency check and catalog search for a
// category and then applies the skip procedure to the outcome.
func (e *Engine) SearchAndResolve(ctx context.Context, sess *store.Session, c guide.Category) (*Result, error) {
	if e.rulebook.Terminal(c) {
		sess.Current = c
		return &Result{Category: c, Outcome: &guide.SearchOutcome{}}, nil
	}
	outcome, err := e.searchCategory(ctx, sess, c)
	if err != nil {
		return nil, err
	}
	return e.Resolve(ctx, sess, c, outcome)
}

// Resolve applies the skip procedure to a freshly searched category.
// While the trigger holds it advances the sequence, re-checks
// dependencies, re-searches, and re-evaluates. The sequence is finite and
// strictly advancing, so the loop terminates at Finalize at worst. The
// caller's context is checked before every hop; a cancelled or reset
// session stops the recursion instead of applying stale work.
//
// Resolve never selects anything for a skipped category. It only moves
// the current pointer on the session and reports how it got there.
func (e *Engine) Resolve(
	ctx context.Context,
	sess *store.Session,
	current guide.Category,
	outcome *guide.SearchOutcome,
) (*Result, error) {
	result := &Result{Category: current, Outcome: outcome}

	for e.ShouldSkip(result.Category, result.Outcome) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sess.Terminated() {
			return nil, fmt.Errorf("session %s terminated during skip resolution", sess.ID)
		}

		next, err := e.machine.Next(result.Category, sess.Selections, sess.Selections.Applicability, sess.Done)
		if err != nil {
			return nil, err
		}

		skipped := result.Category
		event := guide.TransitionEvent{
			SessionID:        sess.ID,
			PreviousCategory: skipped,
			NewCategory:      next,
			Skipped:          true,
			SkipReason:       fmt.Sprintf("no compatible %s found for the current setup", skipped.Display()),
		}

		if e.logger != nil {
			e.logger.Info("SKIP", "Auto-skipping category with zero compatible results", map[string]interface{}{
				"session_id": sess.ID,
				"skipped":    string(skipped),
				"next":       string(next),
			})
		}

		if e.rulebook.Terminal(next) {
			result.Category = next
			result.Outcome = &guide.SearchOutcome{}
			result.Events = append(result.Events, event)
			break
		}

		nextOutcome, err := e.searchCategory(ctx, sess, next)
		if err != nil {
			// A failed call is not a validated empty result; propagate
			// instead of skipping past it.
			return nil, err
		}

		result.Category = next
		result.Outcome = nextOutcome
		event.Results = nextOutcome.Items
		result.Events = append(result.Events, event)
	}

	sess.Current = result.Category
	return result, nil
}

// searchCategory runs the dependency check and catalog search for the
// category the engine just advanced to.
func (e *Engine) searchCategory(ctx context.Context, sess *store.Session, next guide.Category) (*guide.SearchOutcome, error) {
	rule, _ := e.rulebook.Rule(next)

	satisfied, parents := e.deps.CheckSatisfied(next, sess.Selections)
	if !satisfied && rule.RequiresCompatibility {
		// Prerequisites missing means there is nothing compatible to find
		// yet; same contract as a parentless compatibility search.
		return &guide.SearchOutcome{CompatibilityValidated: true}, nil
	}

	return e.gateway.Search(ctx, catalog.SearchRequest{
		Category:              next,
		Spec:                  sess.Requirements[next],
		ParentIDs:             parents,
		RequiresCompatibility: rule.RequiresCompatibility,
	})
}
