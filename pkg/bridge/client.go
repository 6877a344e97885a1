package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

const maxListLimit = 200

// knownStatuses are the values the upstream accepts on a status update.
var knownStatuses = map[string]bool{
	"PENDING":   true,
	"ACCEPTED":  true,
	"PREPARING": true,
	"READY":     true,
	"DELIVERED": true,
	"COMPLETED": true,
	"FULFILLED": true,
	"CANCELLED": true,
	"CANCELED":  true,
	"REJECTED":  true,
	"FAILED":    true,
}

// Client talks to the upstream order-intake API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  Logger
}

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  Logger
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Validate rejects malformed filters before any network call is made.
func (f Filter) Validate() error {
	for _, s := range f.Statuses {
		if strings.TrimSpace(s) == "" {
			return &OpError{Op: "Filter", Err: fmt.Errorf("%w: empty status in filter", ErrValidation)}
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return &OpError{Op: "Filter", Err: fmt.Errorf("%w: date range start after end", ErrValidation)}
	}
	if f.Page < 0 {
		return &OpError{Op: "Filter", Err: fmt.Errorf("%w: page must be >= 1", ErrValidation)}
	}
	if f.Limit < 0 || f.Limit > maxListLimit {
		return &OpError{Op: "Filter", Err: fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, maxListLimit)}
	}
	return nil
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if len(f.Statuses) > 0 {
		q.Set("status", strings.Join(f.Statuses, ","))
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if !f.From.IsZero() {
		q.Set("date_from", f.From.Format("2006-01-02"))
	}
	if !f.To.IsZero() {
		q.Set("date_to", f.To.Format("2006-01-02"))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// FetchOrders lists orders matching the filter. Meta is nil when the
// upstream answers with a bare array instead of the paginated envelope.
func (c *Client) FetchOrders(ctx context.Context, f Filter) ([]Order, *PageMeta, error) {
	if err := f.Validate(); err != nil {
		return nil, nil, err
	}

	body, err := c.do(ctx, http.MethodGet, "/orders", f.query(), nil)
	if err != nil {
		return nil, nil, &OpError{Op: "FetchOrders", Err: err}
	}

	orders, meta, err := decodeOrderList(body)
	if err != nil {
		return nil, nil, &OpError{Op: "FetchOrders", Err: fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)}
	}
	c.logger.Debug("fetched %d orders", len(orders))
	return orders, meta, nil
}

func (c *Client) FetchOrder(ctx context.Context, id string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &OpError{Op: "FetchOrder", Err: fmt.Errorf("%w: empty order id", ErrValidation)}
	}

	body, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, &OpError{Op: "FetchOrder", OrderID: id, Err: err}
	}

	var o Order
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, &OpError{Op: "FetchOrder", OrderID: id, Err: fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)}
	}
	return &o, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id, status string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &OpError{Op: "UpdateStatus", Err: fmt.Errorf("%w: empty order id", ErrValidation)}
	}
	if !knownStatuses[strings.ToUpper(strings.TrimSpace(status))] {
		return nil, &OpError{Op: "UpdateStatus", OrderID: id, Err: fmt.Errorf("%w: unknown status %q", ErrValidation, status)}
	}

	payload, _ := json.Marshal(map[string]string{"status": status})
	body, err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id)+"/status", nil, payload)
	if err != nil {
		return nil, &OpError{Op: "UpdateStatus", OrderID: id, Err: err}
	}

	var o Order
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, &OpError{Op: "UpdateStatus", OrderID: id, Err: fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)}
	}
	return &o, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("upstream %s %s returned %d", method, path, resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	return body, nil
}

// decodeOrderList normalizes the two response shapes the upstream produces:
// a bare JSON array, or an envelope object with an "orders" field and
// optional pagination meta.
func decodeOrderList(body []byte) ([]Order, *PageMeta, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var orders []Order
		if err := json.Unmarshal(trimmed, &orders); err != nil {
			return nil, nil, err
		}
		return orders, nil, nil
	}

	var envelope struct {
		Orders []Order   `json:"orders"`
		Meta   *PageMeta `json:"meta"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, nil, err
	}
	return envelope.Orders, envelope.Meta, nil
}
