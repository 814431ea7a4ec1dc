package shipstation

import "time"

// Order mirrors the platform order fields the pipeline depends on.
type Order struct {
	OrderID       int64       `json:"orderId,omitempty"`
	OrderNumber   string      `json:"orderNumber"`
	OrderKey      string      `json:"orderKey,omitempty"`
	OrderDate     string      `json:"orderDate,omitempty"`
	OrderStatus   string      `json:"orderStatus,omitempty"`
	CustomerEmail string      `json:"customerEmail,omitempty"`
	AmountPaid    float64     `json:"amountPaid,omitempty"`
	ShipTo        *Address    `json:"shipTo,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
	Advanced      *Advanced   `json:"advancedOptions,omitempty"`
}

// Advanced carries the platform options the uploader sets.
type Advanced struct {
	StoreID int `json:"storeId,omitempty"`
}

// OrderItem is one line of a platform order. Name carries the
// "SKU - LOT" display format the warehouse picks from.
type OrderItem struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice,omitempty"`
}

// Address is the destination subset the violation monitor inspects.
type Address struct {
	Name    string `json:"name,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Shipment mirrors the platform shipment fields the reconciler consumes.
type Shipment struct {
	ShipmentID     int64    `json:"shipmentId"`
	OrderID        int64    `json:"orderId"`
	OrderNumber    string   `json:"orderNumber"`
	TrackingNumber string   `json:"trackingNumber"`
	CarrierCode    string   `json:"carrierCode"`
	ServiceCode    string   `json:"serviceCode"`
	ShipDate       string   `json:"shipDate"`
	Voided         bool     `json:"voided"`
	ShipTo         *Address `json:"shipTo,omitempty"`
}

// ShipDateTime parses the platform's shipDate into a time.Time.
func (s Shipment) ShipDateTime() (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.0000000"} {
		if t, err := time.Parse(layout, s.ShipDate); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: "2006-01-02", Value: s.ShipDate}
}

type ordersPage struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
}

type shipmentsPage struct {
	Shipments []Shipment `json:"shipments"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	Pages     int        `json:"pages"`
}
