package constant

// Watermill topic carrying transition events from the orchestrator to the
// message renderer.
const TransitionTopic = "ADVISOR_TRANSITIONS"

// Conversation roles.
const (
	TurnRoleUser    = "user"
	TurnRoleAdvisor = "advisor"
)

// Manual advance signals accepted by the next/skip endpoint.
const (
	AdvanceSignalNext = "next"
	AdvanceSignalSkip = "skip"
	AdvanceSignalDone = "done"
)

// Archive status values.
const (
	ArchiveStatusFinalized = "finalized"
	ArchiveStatusReset     = "reset"
)
