package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WebhookPayload is a pushed order batch from the upstream. The provider
// sends either a bare array of orders, an envelope with an "orders" field,
// or a single-order envelope.
type WebhookPayload struct {
	Event  string
	Orders []Order
}

// ParseWebhook normalizes the webhook body shapes into one payload. A body
// with no recognizable orders is a validation error.
func ParseWebhook(body []byte) (*WebhookPayload, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty webhook body", ErrValidation)
	}

	if trimmed[0] == '[' {
		var orders []Order
		if err := json.Unmarshal(trimmed, &orders); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return &WebhookPayload{Event: "orders", Orders: orders}, nil
	}

	var envelope struct {
		Event  string  `json:"event"`
		Orders []Order `json:"orders"`
		Order  *Order  `json:"order"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	p := &WebhookPayload{Event: envelope.Event, Orders: envelope.Orders}
	if p.Event == "" {
		p.Event = "orders"
	}
	if len(p.Orders) == 0 && envelope.Order != nil {
		p.Orders = []Order{*envelope.Order}
	}
	if len(p.Orders) == 0 {
		return nil, fmt.Errorf("%w: webhook carries no orders", ErrValidation)
	}
	return p, nil
}
