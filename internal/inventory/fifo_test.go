package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
)

func day(n int) time.Time {
	return time.Date(2026, 8, n, 0, 0, 0, 0, time.UTC)
}

func TestDepleteTakesOldestLotFirst(t *testing.T) {
	lots := []LotState{
		{Lot: "LOT-B", Available: 30, ReceivedDate: day(10)},
		{Lot: "LOT-A", Available: 40, ReceivedDate: day(1)},
	}

	allocations, err := Deplete(lots, 50)
	require.NoError(t, err)
	require.Equal(t, []Allocation{
		{Lot: "LOT-A", Qty: 40, Exhausted: true},
		{Lot: "LOT-B", Qty: 10, Exhausted: false},
	}, allocations)
}

func TestDepleteSingleLotPartial(t *testing.T) {
	lots := []LotState{{Lot: "LOT-A", Available: 50, ReceivedDate: day(1)}}

	allocations, err := Deplete(lots, 10)
	require.NoError(t, err)
	require.Equal(t, []Allocation{{Lot: "LOT-A", Qty: 10, Exhausted: false}}, allocations)
}

func TestDepleteRejectsInsufficientInventory(t *testing.T) {
	lots := []LotState{{Lot: "LOT-A", Available: 40, ReceivedDate: day(1)}}

	_, err := Deplete(lots, 60)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestDepleteIgnoresEmptyLots(t *testing.T) {
	lots := []LotState{
		{Lot: "LOT-A", Available: 0, ReceivedDate: day(1)},
		{Lot: "LOT-B", Available: 5, ReceivedDate: day(2)},
	}

	allocations, err := Deplete(lots, 5)
	require.NoError(t, err)
	require.Equal(t, []Allocation{{Lot: "LOT-B", Qty: 5, Exhausted: true}}, allocations)
}

func TestDepleteRejectsNonPositiveQuantity(t *testing.T) {
	_, err := Deplete(nil, 0)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
