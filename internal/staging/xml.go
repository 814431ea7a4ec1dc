package staging

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
)

// feedDocument mirrors the vendor feed layout. Lot numbers never appear in
// the feed; they are stamped at upload time from the ledger.
type feedDocument struct {
	XMLName xml.Name    `xml:"Orders"`
	Orders  []feedOrder `xml:"Order"`
}

type feedOrder struct {
	OrderNumber   string     `xml:"OrderNumber"`
	OrderDate     string     `xml:"OrderDate"`
	CustomerName  string     `xml:"Customer>Name"`
	CustomerEmail string     `xml:"Customer>Email"`
	Items         []feedItem `xml:"Items>Item"`
}

type feedItem struct {
	SKU       string `xml:"SKU"`
	Quantity  int    `xml:"Quantity"`
	UnitPrice string `xml:"UnitPrice"`
}

// ParsedOrder is one order lifted out of a feed document, before bundle
// expansion.
type ParsedOrder struct {
	OrderNumber   string
	OrderDate     time.Time
	CustomerName  string
	CustomerEmail string
	Items         []ParsedItem
}

// ParsedItem is one raw feed line.
type ParsedItem struct {
	SKU            string
	Qty            int
	UnitPriceCents int64
}

var feedDateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339, "01/02/2006"}

// ParseFeed decodes a feed document and validates every order in it. A
// malformed document fails as a whole; per-line business failures are left to
// the import service so one bad line never hides the rest of the file.
func ParseFeed(r io.Reader) ([]ParsedOrder, error) {
	var doc feedDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding feed document")
	}

	orders := make([]ParsedOrder, 0, len(doc.Orders))
	for i, raw := range doc.Orders {
		parsed, err := parseOrder(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("feed order %d invalid", i+1))
		}
		orders = append(orders, parsed)
	}
	return orders, nil
}

func parseOrder(raw feedOrder) (ParsedOrder, error) {
	orderNumber := strings.TrimSpace(raw.OrderNumber)
	if orderNumber == "" {
		return ParsedOrder{}, fmt.Errorf("order number is required")
	}
	if len(raw.Items) == 0 {
		return ParsedOrder{}, fmt.Errorf("order %s has no items", orderNumber)
	}

	orderDate, err := parseFeedDate(raw.OrderDate)
	if err != nil {
		return ParsedOrder{}, fmt.Errorf("order %s: %w", orderNumber, err)
	}

	items := make([]ParsedItem, 0, len(raw.Items))
	for _, item := range raw.Items {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			return ParsedOrder{}, fmt.Errorf("order %s has an item without a sku", orderNumber)
		}
		if item.Quantity <= 0 {
			return ParsedOrder{}, fmt.Errorf("order %s item %s has non-positive quantity", orderNumber, sku)
		}
		cents, err := parsePriceCents(item.UnitPrice)
		if err != nil {
			return ParsedOrder{}, fmt.Errorf("order %s item %s: %w", orderNumber, sku, err)
		}
		items = append(items, ParsedItem{SKU: sku, Qty: item.Quantity, UnitPriceCents: cents})
	}

	return ParsedOrder{
		OrderNumber:   orderNumber,
		OrderDate:     orderDate,
		CustomerName:  strings.TrimSpace(raw.CustomerName),
		CustomerEmail: strings.TrimSpace(raw.CustomerEmail),
		Items:         items,
	}, nil
}

func parseFeedDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("order date is required")
	}
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable order date %q", trimmed)
}

// parsePriceCents parses a decimal dollar amount into integer cents without
// going through floats.
func parsePriceCents(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	negative := false
	if strings.HasPrefix(trimmed, "-") {
		negative = true
		trimmed = trimmed[1:]
	}
	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	switch {
	case len(frac) == 0:
		frac = "00"
	case len(frac) == 1:
		frac += "0"
	case len(frac) > 2:
		frac = frac[:2]
	}

	var cents int64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("unparseable unit price %q", value)
		}
		cents = cents*10 + int64(r-'0')
	}
	if negative {
		cents = -cents
	}
	return cents, nil
}
