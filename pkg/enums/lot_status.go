package enums

import "fmt"

// LotStatus describes the lifecycle of a lot balance.
type LotStatus string

const (
	LotStatusPending   LotStatus = "pending"
	LotStatusActive    LotStatus = "active"
	LotStatusExhausted LotStatus = "exhausted"
)

var validLotStatuses = []LotStatus{
	LotStatusPending,
	LotStatusActive,
	LotStatusExhausted,
}

// IsValid reports whether the value matches the canonical lot status enum.
func (l LotStatus) IsValid() bool {
	for _, candidate := range validLotStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLotStatus converts the raw string to LotStatus.
func ParseLotStatus(value string) (LotStatus, error) {
	for _, candidate := range validLotStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lot status %q", value)
}
