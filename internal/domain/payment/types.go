package payment

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSucceeded, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status can never return to Pending.
// Succeeded is terminal for reconciliation purposes even though a refund may
// still follow.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// Outcome is a processor-reported result being merged into local state.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Agrees reports whether an already-terminal status matches a late or
// duplicate report of the same outcome.
func (s Status) Agrees(o Outcome) bool {
	switch o {
	case OutcomeSucceeded:
		// A refunded payment did succeed first; a late success report for it
		// is a duplicate, not a divergence.
		return s == StatusSucceeded || s == StatusRefunded
	case OutcomeFailed:
		return s == StatusFailed
	default:
		return false
	}
}
