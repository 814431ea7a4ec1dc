package enums

import "fmt"

// StagedOrderStatus describes the lifecycle state of an imported order.
type StagedOrderStatus string

const (
	StagedOrderStatusPending          StagedOrderStatus = "pending"
	StagedOrderStatusUploading        StagedOrderStatus = "uploading"
	StagedOrderStatusUploaded         StagedOrderStatus = "uploaded"
	StagedOrderStatusAwaitingShipment StagedOrderStatus = "awaiting_shipment"
	StagedOrderStatusAwaitingPayment  StagedOrderStatus = "awaiting_payment"
	StagedOrderStatusOnHold           StagedOrderStatus = "on_hold"
	StagedOrderStatusShipped          StagedOrderStatus = "shipped"
	StagedOrderStatusCancelled        StagedOrderStatus = "cancelled"
	StagedOrderStatusFailed           StagedOrderStatus = "failed"
	StagedOrderStatusSyncedManual     StagedOrderStatus = "synced_manual"
)

var validStagedOrderStatuses = []StagedOrderStatus{
	StagedOrderStatusPending,
	StagedOrderStatusUploading,
	StagedOrderStatusUploaded,
	StagedOrderStatusAwaitingShipment,
	StagedOrderStatusAwaitingPayment,
	StagedOrderStatusOnHold,
	StagedOrderStatusShipped,
	StagedOrderStatusCancelled,
	StagedOrderStatusFailed,
	StagedOrderStatusSyncedManual,
}

// IsValid reports whether the value matches the canonical status enum.
func (s StagedOrderStatus) IsValid() bool {
	for _, candidate := range validStagedOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the staged order's active life.
func (s StagedOrderStatus) IsTerminal() bool {
	switch s {
	case StagedOrderStatusShipped, StagedOrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStagedOrderStatus converts the raw string to StagedOrderStatus.
func ParseStagedOrderStatus(value string) (StagedOrderStatus, error) {
	for _, candidate := range validStagedOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staged order status %q", value)
}
