package enums

import "fmt"

// ViolationType names the shipping business rules the monitor enforces.
type ViolationType string

const (
	ViolationHawaiianService ViolationType = "hawaiian_service"
	ViolationBencoCarrier    ViolationType = "benco_carrier"
	ViolationCanadianService ViolationType = "canadian_service"
)

var validViolationTypes = []ViolationType{
	ViolationHawaiianService,
	ViolationBencoCarrier,
	ViolationCanadianService,
}

// IsValid reports whether the value matches the canonical violation type enum.
func (v ViolationType) IsValid() bool {
	for _, candidate := range validViolationTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseViolationType converts the raw string to ViolationType.
func ParseViolationType(value string) (ViolationType, error) {
	for _, candidate := range validViolationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid violation type %q", value)
}
