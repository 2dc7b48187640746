package enums

import "fmt"

// LeadStatus tracks the lifecycle of a captured lead.
type LeadStatus string

const (
	LeadStatusCaptured       LeadStatus = "captured"
	LeadStatusPendingPayment LeadStatus = "pending_payment"
	LeadStatusActive         LeadStatus = "active"
)

var validLeadStatuses = []LeadStatus{
	LeadStatusCaptured,
	LeadStatusPendingPayment,
	LeadStatusActive,
}

// String implements fmt.Stringer.
func (l LeadStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LeadStatus.
func (l LeadStatus) IsValid() bool {
	for _, candidate := range validLeadStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeadStatus converts raw input into a LeadStatus.
func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}
