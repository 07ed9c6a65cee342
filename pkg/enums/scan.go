package enums

import "fmt"

// ScanKind identifies the checkpoint a field agent is confirming.
type ScanKind string

const (
	ScanKindPickupVerify    ScanKind = "pickup_verify"
	ScanKindFacilityArrival ScanKind = "facility_arrival"
	ScanKindPreloadVerify   ScanKind = "preload_verify"
	ScanKindDeliveryVerify  ScanKind = "delivery_verify"
)

var validScanKinds = []ScanKind{
	ScanKindPickupVerify,
	ScanKindFacilityArrival,
	ScanKindPreloadVerify,
	ScanKindDeliveryVerify,
}

// String implements fmt.Stringer.
func (s ScanKind) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ScanKind.
func (s ScanKind) IsValid() bool {
	for _, candidate := range validScanKinds {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseScanKind converts raw input into a ScanKind.
func ParseScanKind(value string) (ScanKind, error) {
	for _, candidate := range validScanKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scan kind %q", value)
}

// ScanOutcome records whether a scan attempt passed its precondition.
type ScanOutcome string

const (
	ScanOutcomeOK     ScanOutcome = "ok"
	ScanOutcomeFailed ScanOutcome = "failed"
)

// String implements fmt.Stringer.
func (s ScanOutcome) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ScanOutcome.
func (s ScanOutcome) IsValid() bool {
	return s == ScanOutcomeOK || s == ScanOutcomeFailed
}
