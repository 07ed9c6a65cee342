package enums

import "fmt"

// DiscrepancyKind distinguishes surplus from shortfall at the facility.
type DiscrepancyKind string

const (
	DiscrepancyKindExtra   DiscrepancyKind = "extra"
	DiscrepancyKindMissing DiscrepancyKind = "missing"
)

var validDiscrepancyKinds = []DiscrepancyKind{
	DiscrepancyKindExtra,
	DiscrepancyKindMissing,
}

// String implements fmt.Stringer.
func (d DiscrepancyKind) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscrepancyKind.
func (d DiscrepancyKind) IsValid() bool {
	for _, candidate := range validDiscrepancyKinds {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscrepancyKind converts raw input into a DiscrepancyKind.
func ParseDiscrepancyKind(value string) (DiscrepancyKind, error) {
	for _, candidate := range validDiscrepancyKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discrepancy kind %q", value)
}

// DiscrepancyStatus tracks whether the customer has adjudicated a mismatch.
type DiscrepancyStatus string

const (
	DiscrepancyStatusPendingDecision DiscrepancyStatus = "pending_customer_decision"
	DiscrepancyStatusResolved        DiscrepancyStatus = "resolved"
)

// String implements fmt.Stringer.
func (d DiscrepancyStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscrepancyStatus.
func (d DiscrepancyStatus) IsValid() bool {
	return d == DiscrepancyStatusPendingDecision || d == DiscrepancyStatusResolved
}

// DiscrepancyDecision is the customer's verdict on a reported mismatch.
type DiscrepancyDecision string

const (
	DiscrepancyDecisionApproved DiscrepancyDecision = "approved"
	DiscrepancyDecisionRejected DiscrepancyDecision = "rejected"
)

var validDiscrepancyDecisions = []DiscrepancyDecision{
	DiscrepancyDecisionApproved,
	DiscrepancyDecisionRejected,
}

// String implements fmt.Stringer.
func (d DiscrepancyDecision) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscrepancyDecision.
func (d DiscrepancyDecision) IsValid() bool {
	for _, candidate := range validDiscrepancyDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscrepancyDecision converts raw input into a DiscrepancyDecision.
func ParseDiscrepancyDecision(value string) (DiscrepancyDecision, error) {
	for _, candidate := range validDiscrepancyDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discrepancy decision %q", value)
}
