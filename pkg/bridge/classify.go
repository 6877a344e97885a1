package bridge

import (
	"strings"
	"time"
)

// asapThreshold separates genuinely pre-scheduled orders from "as soon as
// possible" orders, which carry a near-immediate fulfil time and must stay
// in the current bucket.
const asapThreshold = 30 * time.Minute

var completedStatuses = map[string]bool{
	"DELIVERED": true,
	"COMPLETED": true,
	"FULFILLED": true,
}

var incompleteStatuses = map[string]bool{
	"CANCELLED": true,
	"CANCELED":  true,
	"FAILED":    true,
	"REJECTED":  true,
}

// deliveryTimePaths is the fallback order for finding a scheduled delivery
// time inside the provider payload when the top-level field is absent.
var deliveryTimePaths = []string{
	"fulfill_at",
	"delivery_datetime",
	"scheduled_at",
	"delivery.scheduled_at",
	"fulfillment.delivery_time",
}

// Classify derives the display category for an order at a given instant.
// Pure: same order and clock always yield the same category.
func Classify(o Order, now time.Time) Category {
	status := strings.ToUpper(strings.TrimSpace(o.Status))
	if completedStatuses[status] {
		return CategoryCompleted
	}
	if incompleteStatuses[status] {
		return CategoryIncomplete
	}
	if when, ok := scheduledDeliveryTime(o); ok {
		created := now
		if o.CreatedAt != nil {
			created = *o.CreatedAt
		}
		if when.After(now) && when.Sub(created) > asapThreshold {
			return CategoryScheduled
		}
	}
	return CategoryCurrent
}

// ClassifyAll snapshots a fetched batch against a single clock reading so a
// batch straddling a minute boundary cannot land in mixed buckets.
func ClassifyAll(orders []Order, now time.Time) []ClassifiedOrder {
	out := make([]ClassifiedOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, ClassifiedOrder{Order: o, Category: Classify(o, now)})
	}
	return out
}

func scheduledDeliveryTime(o Order) (time.Time, bool) {
	if o.FulfillAt != nil && !o.FulfillAt.IsZero() {
		return *o.FulfillAt, true
	}
	return ExtractTime(o.Raw, deliveryTimePaths...)
}
