package bridge

import (
	"encoding/json"
	"time"
)

// FlexID is an order identifier that the upstream API sends either as a
// JSON number or as a string, depending on the endpoint.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string {
	return string(id)
}

type Order struct {
	OrderID   FlexID          `json:"order_id,omitempty"`
	ID        FlexID          `json:"id,omitempty"`
	Status    string          `json:"status"`
	Type      string          `json:"type,omitempty"`
	Customer  string          `json:"client_name,omitempty"`
	Phone     string          `json:"client_phone,omitempty"`
	Address   string          `json:"client_address,omitempty"`
	Total     float64         `json:"total_price,omitempty"`
	Currency  string          `json:"currency,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	FetchedAt *time.Time      `json:"fetched_at,omitempty"`
	FulfillAt *time.Time      `json:"fulfill_at,omitempty"`
	Raw       json.RawMessage `json:"raw_data,omitempty"`
}

// ResolvedID returns the canonical identifier for the order. The
// provider-assigned order_id always wins over the internal id.
func (o Order) ResolvedID() string {
	if o.OrderID != "" {
		return string(o.OrderID)
	}
	return string(o.ID)
}

type Category string

const (
	CategoryCurrent    Category = "current"
	CategoryScheduled  Category = "scheduled"
	CategoryCompleted  Category = "completed"
	CategoryIncomplete Category = "incomplete"
)

// IsHistory reports whether the category belongs to the derived "history"
// display grouping (completed plus incomplete).
func (c Category) IsHistory() bool {
	return c == CategoryCompleted || c == CategoryIncomplete
}

// ClassifiedOrder pairs an order with the category computed for it at
// snapshot time. Categories are never persisted, only recomputed.
type ClassifiedOrder struct {
	Order    Order    `json:"order"`
	Category Category `json:"category"`
}

// Filter narrows an order listing request. The zero value fetches
// everything with upstream defaults.
type Filter struct {
	Statuses []string
	Type     string
	From     time.Time
	To       time.Time
	Page     int
	Limit    int
}

// PageMeta is the pagination envelope the upstream attaches to enveloped
// list responses. Absent on bare-array responses.
type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type EventKind string

const (
	KindInfo    EventKind = "info"
	KindSuccess EventKind = "success"
	KindError   EventKind = "error"
)

// Event is a single entry in the operator notification feed.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      EventKind `json:"kind"`
	OrderID   string    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
