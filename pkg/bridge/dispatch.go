package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DeliveryRequest describes a physical delivery to hand to the dispatch
// provider.
type DeliveryRequest struct {
	OrderID         string `json:"external_delivery_id"`
	PickupAddress   string `json:"pickup_address"`
	PickupPhone     string `json:"pickup_phone_number,omitempty"`
	DropoffAddress  string `json:"dropoff_address"`
	DropoffPhone    string `json:"dropoff_phone_number,omitempty"`
	DropoffContact  string `json:"dropoff_contact_given_name,omitempty"`
	OrderValueCents int64  `json:"order_value,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

func (r DeliveryRequest) validate() error {
	if strings.TrimSpace(r.OrderID) == "" {
		return fmt.Errorf("%w: delivery needs an order id", ErrValidation)
	}
	if strings.TrimSpace(r.PickupAddress) == "" || strings.TrimSpace(r.DropoffAddress) == "" {
		return fmt.Errorf("%w: delivery needs pickup and dropoff addresses", ErrValidation)
	}
	return nil
}

// Quote is a dispatch fee estimate for a prospective delivery.
type Quote struct {
	ID          string `json:"id"`
	FeeCents    int64  `json:"fee"`
	Currency    string `json:"currency"`
	DurationSec int64  `json:"duration"`
}

// Delivery is the dispatcher's view of an accepted delivery.
type Delivery struct {
	OrderID     string `json:"external_delivery_id"`
	ExternalID  string `json:"id"`
	Status      string `json:"delivery_status"`
	FeeCents    int64  `json:"fee"`
	Currency    string `json:"currency"`
	TrackingURL string `json:"tracking_url,omitempty"`
}

// Dispatcher talks to the delivery-dispatch API.
type Dispatcher struct {
	baseURL string
	token   string
	http    *http.Client
	logger  Logger
}

type DispatcherConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (d *Dispatcher) CreateQuote(ctx context.Context, req DeliveryRequest) (*Quote, error) {
	if err := req.validate(); err != nil {
		return nil, &OpError{Op: "CreateQuote", OrderID: req.OrderID, Err: err}
	}
	var q Quote
	if err := d.post(ctx, "/quotes", req, &q); err != nil {
		return nil, &OpError{Op: "CreateQuote", OrderID: req.OrderID, Err: err}
	}
	return &q, nil
}

func (d *Dispatcher) CreateDelivery(ctx context.Context, req DeliveryRequest) (*Delivery, error) {
	if err := req.validate(); err != nil {
		return nil, &OpError{Op: "CreateDelivery", OrderID: req.OrderID, Err: err}
	}
	var out Delivery
	if err := d.post(ctx, "/deliveries", req, &out); err != nil {
		return nil, &OpError{Op: "CreateDelivery", OrderID: req.OrderID, Err: err}
	}
	if out.OrderID == "" {
		out.OrderID = req.OrderID
	}
	return &out, nil
}

func (d *Dispatcher) DeliveryStatus(ctx context.Context, externalID string) (*Delivery, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, &OpError{Op: "DeliveryStatus", Err: fmt.Errorf("%w: empty delivery id", ErrValidation)}
	}
	var out Delivery
	if err := d.get(ctx, "/deliveries/"+url.PathEscape(externalID), &out); err != nil {
		return nil, &OpError{Op: "DeliveryStatus", OrderID: externalID, Err: err}
	}
	return &out, nil
}

func (d *Dispatcher) CancelDelivery(ctx context.Context, externalID string) (*Delivery, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, &OpError{Op: "CancelDelivery", Err: fmt.Errorf("%w: empty delivery id", ErrValidation)}
	}
	var out Delivery
	if err := d.post(ctx, "/deliveries/"+url.PathEscape(externalID)+"/cancel", nil, &out); err != nil {
		return nil, &OpError{Op: "CancelDelivery", OrderID: externalID, Err: err}
	}
	return &out, nil
}

func (d *Dispatcher) post(ctx context.Context, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		body = bytes.NewReader(encoded)
	}
	return d.roundTrip(ctx, http.MethodPost, path, body, out)
}

func (d *Dispatcher) get(ctx context.Context, path string, out interface{}) error {
	return d.roundTrip(ctx, http.MethodGet, path, nil, out)
}

func (d *Dispatcher) roundTrip(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		d.logger.Error("dispatcher %s %s returned %d", method, path, resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	}
	return nil
}
