package enums

import "fmt"

// AlertStatus describes the resolution state of a duplicate order alert.
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"
	AlertStatusIgnored  AlertStatus = "ignored"
)

var validAlertStatuses = []AlertStatus{
	AlertStatusActive,
	AlertStatusResolved,
	AlertStatusIgnored,
}

// IsValid reports whether the value matches the canonical alert status enum.
func (a AlertStatus) IsValid() bool {
	for _, candidate := range validAlertStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlertStatus converts the raw string to AlertStatus.
func ParseAlertStatus(value string) (AlertStatus, error) {
	for _, candidate := range validAlertStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert status %q", value)
}
