package bundles

import (
	"context"
	"fmt"

	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
)

// Line is one resolved order line after bundle expansion.
type Line struct {
	SKU            string
	Qty            int
	UnitPriceCents int64
}

// Expander resolves ordered SKUs into the real SKUs the warehouse stocks.
type Expander struct {
	repo Repository
}

// NewExpander builds a bundle expander over the given repository.
func NewExpander(repo Repository) (*Expander, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	return &Expander{repo: repo}, nil
}

// Expand maps an ordered (sku, qty) onto staged line items. Non-bundle SKUs
// pass through unchanged. Active bundles emit one line per component with
// quantity multiplied, in component sequence order. Inactive bundles fail the
// line so a discontinued bundle is never silently dropped or shipped as-is.
func (e *Expander) Expand(ctx context.Context, sku string, qty int, unitPriceCents int64) ([]Line, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be positive for sku %s", sku))
	}

	bundle, err := e.repo.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		return []Line{{SKU: sku, Qty: qty, UnitPriceCents: unitPriceCents}}, nil
	}
	if !bundle.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("bundle %s is inactive", sku))
	}
	if len(bundle.Components) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("bundle %s has no components", sku))
	}

	lines := make([]Line, 0, len(bundle.Components))
	for _, component := range bundle.Components {
		if component.Multiplier <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("bundle %s component %s has non-positive multiplier", sku, component.ComponentSKU))
		}
		lines = append(lines, Line{
			SKU: component.ComponentSKU,
			Qty: qty * component.Multiplier,
		})
	}
	// The bundle price rides on the first component; order totals must
	// survive expansion unchanged.
	lines[0].UnitPriceCents = unitPriceCents
	return lines, nil
}
