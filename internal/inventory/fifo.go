package inventory

import (
	"fmt"
	"sort"
	"time"

	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
)

// LotState is the depletion view of one lot: what it has left and when it
// arrived.
type LotState struct {
	Lot          string
	Available    int
	ReceivedDate time.Time
}

// Allocation says how much of a shipment one lot absorbs.
type Allocation struct {
	Lot       string
	Qty       int
	Exhausted bool
}

// Deplete distributes qty across lots oldest first. It never allocates more
// than a lot holds and fails outright when the lots cannot cover the
// quantity, so a shipment can never drive a balance negative.
func Deplete(lots []LotState, qty int) ([]Allocation, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deplete quantity must be positive")
	}

	ordered := make([]LotState, 0, len(lots))
	for _, lot := range lots {
		if lot.Available > 0 {
			ordered = append(ordered, lot)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ReceivedDate.Before(ordered[j].ReceivedDate)
	})

	total := 0
	for _, lot := range ordered {
		total += lot.Available
	}
	if total < qty {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("insufficient inventory: need %d, have %d", qty, total))
	}

	var allocations []Allocation
	remaining := qty
	for _, lot := range ordered {
		if remaining == 0 {
			break
		}
		take := lot.Available
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, Allocation{
			Lot:       lot.Lot,
			Qty:       take,
			Exhausted: take == lot.Available,
		})
		remaining -= take
	}
	return allocations, nil
}
