package shipstation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/harborops/fulfillment-backend/pkg/config"
	pkgerrors "github.com/harborops/fulfillment-backend/pkg/errors"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// Mode controls whether mutating calls are allowed to reach the platform.
type Mode string

const (
	// ModeLive permits order creation and deletion.
	ModeLive Mode = "live"
	// ModeBlocked rejects every mutating call with CodeEnvBlocked.
	// Read-only calls still work so reconciliation can run anywhere.
	ModeBlocked Mode = "blocked"
)

const (
	defaultPageSize = 250
	maxPages        = 200
)

var (
	errAPIKeyRequired    = errors.New("shipstation api key is required")
	errAPISecretRequired = errors.New("shipstation api secret is required")
	errLoggerRequired    = errors.New("shipstation logger is required")
	errInvalidMode       = fmt.Errorf("shipstation mode must be %q or %q", ModeLive, ModeBlocked)
)

// Client exposes the platform operations the pipeline needs with centralized
// auth, logging, retry, and error mapping. A client constructed in blocked
// mode refuses mutating calls outright, independent of any caller-side guard.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	storeID    int
	mode       Mode
	maxRetries int
	logger     *logger.Logger
}

// NewClient initializes the platform wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.ShipStationConfig, mode Mode, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if mode != ModeLive && mode != ModeBlocked {
		return nil, errInvalidMode
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	apiSecret := strings.TrimSpace(cfg.APISecret)
	if apiSecret == "" {
		return nil, errAPISecretRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		storeID:    cfg.StoreID,
		mode:       mode,
		maxRetries: maxRetries,
		logger:     logg,
	}

	logg.Info(logg.WithField(ctx, "mode", string(mode)), "shipstation client initialized")
	return c, nil
}

// Mode reports whether the client allows mutating calls.
func (c *Client) Mode() Mode {
	if c == nil {
		return ModeBlocked
	}
	return c.mode
}

// CreateOrderParams is the payload for a single order upload.
type CreateOrderParams struct {
	OrderNumber   string
	OrderDate     time.Time
	CustomerEmail string
	AmountCents   int64
	ShipTo        *Address
	Items         []OrderItem
}

func (p CreateOrderParams) toRequest(storeID int) Order {
	order := Order{
		OrderNumber:   p.OrderNumber,
		OrderKey:      p.OrderNumber,
		OrderDate:     p.OrderDate.Format("2006-01-02T15:04:05"),
		OrderStatus:   "awaiting_shipment",
		CustomerEmail: p.CustomerEmail,
		AmountPaid:    float64(p.AmountCents) / 100,
		ShipTo:        p.ShipTo,
		Items:         p.Items,
	}
	if storeID > 0 {
		order.Advanced = &Advanced{StoreID: storeID}
	}
	return order
}

// CreateOrder uploads one order to the platform. Blocked clients never
// issue the request.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if err := c.requireLive("create order"); err != nil {
		return nil, err
	}
	c.log(ctx, "request", "create_order", map[string]any{
		"order_number": params.OrderNumber,
		"item_count":   len(params.Items),
	})

	var out Order
	err := c.do(ctx, http.MethodPost, "/orders/createorder", nil, params.toRequest(c.storeID), &out)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"order_number": out.OrderNumber,
		"order_id":     out.OrderID,
		"status":       out.OrderStatus,
	})
	return &out, nil
}

// DeleteOrder removes a previously uploaded order from the platform.
func (c *Client) DeleteOrder(ctx context.Context, platformOrderID int64) error {
	if err := c.requireLive("delete order"); err != nil {
		return err
	}
	c.log(ctx, "request", "delete_order", map[string]any{"order_id": platformOrderID})

	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", platformOrderID), nil, nil, nil)
	if err != nil {
		c.log(ctx, "error", "delete_order", map[string]any{"error": err.Error()})
		return err
	}

	c.log(ctx, "response", "delete_order", map[string]any{"order_id": platformOrderID})
	return nil
}

// ListOrdersModifiedSince pages through orders touched on or after the
// given timestamp and returns them all.
func (c *Client) ListOrdersModifiedSince(ctx context.Context, since time.Time) ([]Order, error) {
	c.log(ctx, "request", "list_orders", map[string]any{"since": since.Format(time.RFC3339)})

	var all []Order
	for page := 1; page <= maxPages; page++ {
		query := url.Values{}
		query.Set("modifyDateStart", since.UTC().Format("2006-01-02T15:04:05"))
		query.Set("pageSize", strconv.Itoa(defaultPageSize))
		query.Set("page", strconv.Itoa(page))
		if c.storeID > 0 {
			query.Set("storeId", strconv.Itoa(c.storeID))
		}

		var out ordersPage
		if err := c.do(ctx, http.MethodGet, "/orders", query, nil, &out); err != nil {
			c.log(ctx, "error", "list_orders", map[string]any{"error": err.Error(), "page": page})
			return nil, err
		}
		all = append(all, out.Orders...)
		if page >= out.Pages {
			break
		}
	}

	c.log(ctx, "response", "list_orders", map[string]any{"count": len(all)})
	return all, nil
}

// ListShipmentsSince pages through shipments created on or after the given
// timestamp. Voided shipments are included so callers can filter them.
func (c *Client) ListShipmentsSince(ctx context.Context, since time.Time) ([]Shipment, error) {
	c.log(ctx, "request", "list_shipments", map[string]any{"since": since.Format(time.RFC3339)})

	var all []Shipment
	for page := 1; page <= maxPages; page++ {
		query := url.Values{}
		query.Set("createDateStart", since.UTC().Format("2006-01-02T15:04:05"))
		query.Set("includeShipmentItems", "false")
		query.Set("pageSize", strconv.Itoa(defaultPageSize))
		query.Set("page", strconv.Itoa(page))

		var out shipmentsPage
		if err := c.do(ctx, http.MethodGet, "/shipments", query, nil, &out); err != nil {
			c.log(ctx, "error", "list_shipments", map[string]any{"error": err.Error(), "page": page})
			return nil, err
		}
		all = append(all, out.Shipments...)
		if page >= out.Pages {
			break
		}
	}

	c.log(ctx, "response", "list_shipments", map[string]any{"count": len(all)})
	return all, nil
}

func (c *Client) requireLive(op string) error {
	if c.mode == ModeLive {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeEnvBlocked, fmt.Sprintf("shipstation %s blocked outside production", op))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding shipstation request")
		}
		payload = encoded
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building shipstation request")
		}
		req.SetBasicAuth(c.apiKey, c.apiSecret)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling shipstation"))
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading shipstation response"))
		}

		if resp.StatusCode >= 400 {
			mapped := c.mapStatusError(resp.StatusCode, raw)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return retry.RetryableError(mapped)
			}
			return mapped
		}

		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding shipstation response")
		}
		return nil
	})
}

func (c *Client) mapStatusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	if len(message) > 300 {
		message = message[:300]
	}
	cause := fmt.Errorf("shipstation status %d: %s", status, message)
	return pkgerrors.Wrap(domainCodeForStatus(status), cause, "shipstation request failed")
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("shipstation %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("shipstation %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "key", "token", "email", "phone", "address"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
