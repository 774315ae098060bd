package dto

import (
	"time"

	"welding-recommender-be/pkg/guide"
	"welding-recommender-be/pkg/guide/compound"
)

type CreateSessionRequest struct {
	Language string `json:"language" validate:"omitempty,len=2"`
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

type SelectRequest struct {
	Category    string `json:"category" validate:"required"`
	ProductId   string `json:"product_id" validate:"required"`
	ProductName string `json:"product_name"`
}

type AdvanceRequest struct {
	// Signal is one of next, skip, done. Empty means next.
	Signal string `json:"signal" validate:"omitempty,oneof=next skip done"`
}

type ProductDTO struct {
	Id         string            `json:"id"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Score      float64           `json:"score,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type TransitionEventDTO struct {
	PreviousCategory string       `json:"previous_category"`
	NewCategory      string       `json:"new_category"`
	Skipped          bool         `json:"skipped"`
	SkipReason       string       `json:"skip_reason,omitempty"`
	Results          []ProductDTO `json:"results,omitempty"`
}

type SelectionDTO struct {
	Category string `json:"category"`
	Id       string `json:"id"`
	Name     string `json:"name"`
}

type SessionResponse struct {
	Id         string         `json:"id"`
	Language   string         `json:"language"`
	Current    string         `json:"current"`
	Selections []SelectionDTO `json:"selections"`
	Finalized  bool           `json:"finalized"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type CompoundCategoryDTO struct {
	Category     string        `json:"category"`
	AutoSelected *SelectionDTO `json:"auto_selected,omitempty"`
	Candidates   []ProductDTO  `json:"candidates,omitempty"`
	Unfiltered   bool          `json:"unfiltered"`
	Note         string        `json:"note,omitempty"`
}

type TurnResponse struct {
	SessionId   string                `json:"session_id"`
	Current     string                `json:"current"`
	Results     []ProductDTO          `json:"results"`
	Transitions []TransitionEventDTO  `json:"transitions,omitempty"`
	Compound    []CompoundCategoryDTO `json:"compound,omitempty"`
	// Message carries user-facing refusals such as the root-first rule.
	Message   string `json:"message,omitempty"`
	Finalized bool   `json:"finalized"`
}

type TransitionRecordDTO struct {
	PreviousCategory string    `json:"previous_category"`
	NewCategory      string    `json:"new_category"`
	Skipped          bool      `json:"skipped"`
	SkipReason       string    `json:"skip_reason,omitempty"`
	Message          string    `json:"message"`
	CreatedAt        time.Time `json:"created_at"`
}

type SessionArchiveDTO struct {
	Status     string    `json:"status"`
	Language   string    `json:"language"`
	Turns      int       `json:"turns"`
	ArchivedAt time.Time `json:"archived_at"`
}

// TranscriptResponse is the full recorded history of a session id:
// every rendered transition plus the archives of finished runs.
type TranscriptResponse struct {
	SessionId   string                `json:"session_id"`
	Transitions []TransitionRecordDTO `json:"transitions"`
	Archives    []SessionArchiveDTO   `json:"archives"`
}

// TransitionMessage is the payload published on the transition topic; the
// renderer needs the session language alongside the raw event.
type TransitionMessage struct {
	Event    guide.TransitionEvent `json:"event"`
	Language string                `json:"language"`
}

func FromProducts(items []guide.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(items))
	for _, p := range items {
		out = append(out, ProductDTO{
			Id:         p.ID,
			Name:       p.Name,
			Category:   string(p.Category),
			Score:      p.Score,
			Attributes: p.Attributes,
		})
	}
	return out
}

func FromTransitions(events []guide.TransitionEvent) []TransitionEventDTO {
	out := make([]TransitionEventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, TransitionEventDTO{
			PreviousCategory: string(ev.PreviousCategory),
			NewCategory:      string(ev.NewCategory),
			Skipped:          ev.Skipped,
			SkipReason:       ev.SkipReason,
			Results:          FromProducts(ev.Results),
		})
	}
	return out
}

func FromCompound(outcomes []compound.CategoryOutcome) []CompoundCategoryDTO {
	out := make([]CompoundCategoryDTO, 0, len(outcomes))
	for _, oc := range outcomes {
		d := CompoundCategoryDTO{
			Category:   string(oc.Category),
			Candidates: FromProducts(oc.Candidates),
			Unfiltered: oc.Unfiltered,
			Note:       oc.Note,
		}
		if oc.AutoSelected != nil {
			d.AutoSelected = &SelectionDTO{
				Category: string(oc.Category),
				Id:       oc.AutoSelected.ID,
				Name:     oc.AutoSelected.Name,
			}
		}
		out = append(out, d)
	}
	return out
}
