package catalog

import (
	"context"

	"welding-recommender-be/pkg/guide"
)

// SearchRequest describes one catalog query for one category.
//
// RequiresCompatibility comes from the category rulebook and is always
// passed through explicitly; the orchestrator reads the validated flag
// back from the outcome rather than inferring it.
type SearchRequest struct {
	Category              guide.Category
	Spec                  guide.Spec
	ParentIDs             []string
	RequiresCompatibility bool
	Limit                 int
}

// Gateway is the read-only product catalog boundary. Implementations must
// be idempotent and must set CompatibilityValidated from what the query
// actually did, independent of result count. When RequiresCompatibility is
// set but no parent ids are available, the gateway returns an empty,
// validated outcome rather than an error: there is simply nothing
// compatible to find yet.
type Gateway interface {
	Search(ctx context.Context, req SearchRequest) (*guide.SearchOutcome, error)
}
