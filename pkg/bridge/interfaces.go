package bridge

import "context"

// OrderSource is the upstream boundary the poller depends on. *Client is the
// production implementation.
type OrderSource interface {
	FetchOrders(ctx context.Context, f Filter) ([]Order, *PageMeta, error)
	FetchOrder(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*Order, error)
}

// Archiver is the persistence sink for fetched orders and webhook traffic.
// Optional: a nil Archiver on the poller simply skips archival.
type Archiver interface {
	UpsertOrders(ctx context.Context, orders []Order) error
}

var _ OrderSource = (*Client)(nil)
var _ Archiver = (*Storage)(nil)
