package enums

import "fmt"

// QuoteStatus tracks the negotiation lifecycle of a custom quote.
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusQuoted   QuoteStatus = "quoted"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusPending,
	QuoteStatusQuoted,
	QuoteStatusAccepted,
	QuoteStatusDeclined,
}

// quoteStatusSuccessors encodes the legality table checked on every update:
// a quote must pass through quoted before it can be accepted.
var quoteStatusSuccessors = map[QuoteStatus][]QuoteStatus{
	QuoteStatusPending:  {QuoteStatusQuoted, QuoteStatusDeclined},
	QuoteStatusQuoted:   {QuoteStatusAccepted, QuoteStatusDeclined},
	QuoteStatusAccepted: {},
	QuoteStatusDeclined: {},
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the quote lifecycle has ended.
func (q QuoteStatus) IsTerminal() bool {
	return q == QuoteStatusAccepted || q == QuoteStatusDeclined
}

// CanTransitionTo reports whether target is a legal successor of the status.
func (q QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	for _, candidate := range quoteStatusSuccessors[q] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
