package relay

// Outcome is the result of one relay cycle. It decides how long the loop
// waits before the next cycle.
type Outcome int

const (
	// OutcomeSuccess means a quote was fetched and published
	OutcomeSuccess Outcome = iota
	// OutcomeFetchFailed means the failure notice was published instead of a quote
	OutcomeFetchFailed
	// OutcomePublishFailed means the message could not be delivered
	OutcomePublishFailed
	// OutcomeUnexpectedError means the cycle panicked and was recovered
	OutcomeUnexpectedError
	// OutcomeInterrupted means the context ended before the cycle finished
	OutcomeInterrupted
)

// String returns the label used in logs and metrics
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomePublishFailed:
		return "publish_failed"
	case OutcomeUnexpectedError:
		return "unexpected_error"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// State of the update loop
type State int32

const (
	// StateRunning is the initial state
	StateRunning State = iota
	// StateStopped is entered once the loop's context ends
	StateStopped
)

// String implements fmt.Stringer
func (s State) String() string {
	if s == StateStopped {
		return "stopped"
	}
	return "running"
}
