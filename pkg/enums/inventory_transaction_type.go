package enums

import "fmt"

// InventoryTransactionType names the allowed kinds of ledger entries.
type InventoryTransactionType string

const (
	InventoryTransactionReceive    InventoryTransactionType = "receive"
	InventoryTransactionAdjustUp   InventoryTransactionType = "adjust_up"
	InventoryTransactionAdjustDown InventoryTransactionType = "adjust_down"
	InventoryTransactionRepack     InventoryTransactionType = "repack"
	InventoryTransactionShip       InventoryTransactionType = "ship"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	InventoryTransactionReceive,
	InventoryTransactionAdjustUp,
	InventoryTransactionAdjustDown,
	InventoryTransactionRepack,
	InventoryTransactionShip,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTransactionType converts the raw string to InventoryTransactionType.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
