package ledger

// Outcome is the result of presenting a token to the ledger.
type Outcome string

const (
	// OutcomeUnknown means no participant carries the token.
	OutcomeUnknown Outcome = "UNKNOWN"
	// OutcomeAlreadyConsumed means the participant was already checked in.
	OutcomeAlreadyConsumed Outcome = "ALREADY_CONSUMED"
	// OutcomeNewlyConsumed means this observation checked the participant in.
	OutcomeNewlyConsumed Outcome = "NEWLY_CONSUMED"
)

// State is the check-in state of a single token.
type State string

const (
	StateUnknown  State = "UNKNOWN"
	StatePending  State = "PENDING"
	StateConsumed State = "CONSUMED"
)

// Count reports checked-in participants against the roster size.
type Count struct {
	Consumed int `json:"consumed"`
	Total    int `json:"total"`
}
