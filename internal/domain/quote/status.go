package quote

// Status represents the lifecycle state of a quote
type Status string

const (
	StatusDraft       Status = "draft"
	StatusPending     Status = "pending"
	StatusSent        Status = "sent"
	StatusViewed      Status = "viewed"
	StatusNegotiation Status = "negotiation"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusExpired     Status = "expired"
	StatusCancelled   Status = "cancelled"
	StatusConverted   Status = "converted"
)

// transitions is the legality table of the quote state machine: each status
// maps to the set of statuses it may move to. A status with no entries is
// terminal. Every transition guard consults this table; the workflow
// methods add their own timestamps and side effects on top.
var transitions = map[Status][]Status{
	StatusDraft:       {StatusPending, StatusSent, StatusExpired, StatusCancelled},
	StatusPending:     {StatusSent, StatusExpired, StatusCancelled},
	StatusSent:        {StatusViewed, StatusNegotiation, StatusAccepted, StatusRejected, StatusExpired, StatusCancelled},
	StatusViewed:      {StatusNegotiation, StatusAccepted, StatusRejected, StatusExpired, StatusCancelled},
	StatusNegotiation: {StatusAccepted, StatusRejected, StatusExpired, StatusCancelled},
	StatusAccepted:    {StatusConverted, StatusExpired, StatusCancelled},
	StatusRejected:    {},
	StatusExpired:     {},
	StatusCancelled:   {},
	StatusConverted:   {},
}

// IsValid checks if the status is a valid quote Status
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// allowsLineChanges reports whether document lines may still be edited.
// Once a quote is accepted its amounts are contractual, so line editing
// stops there rather than at the terminal states.
func (s Status) allowsLineChanges() bool {
	switch s {
	case StatusDraft, StatusPending, StatusSent, StatusViewed, StatusNegotiation:
		return true
	}
	return false
}
