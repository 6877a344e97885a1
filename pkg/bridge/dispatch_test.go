package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quotes" || r.Method != http.MethodPost {
			t.Errorf("%s %s, want POST /quotes", r.Method, r.URL.Path)
		}
		var req DeliveryRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.OrderID != "42" {
			t.Errorf("external_delivery_id = %q", req.OrderID)
		}
		json.NewEncoder(w).Encode(Quote{ID: "q-1", FeeCents: 599, Currency: "USD", DurationSec: 1800})
	}))
	defer srv.Close()

	d := NewDispatcher(DispatcherConfig{BaseURL: srv.URL, Token: "tok"})
	q, err := d.CreateQuote(context.Background(), DeliveryRequest{
		OrderID:        "42",
		PickupAddress:  "1 Restaurant Row",
		DropoffAddress: "2 Customer Ct",
	})
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}
	if q.FeeCents != 599 || q.ID != "q-1" {
		t.Errorf("quote = %+v", q)
	}
}

func TestCreateDeliveryValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid delivery request must not reach the network")
	}))
	defer srv.Close()

	d := NewDispatcher(DispatcherConfig{BaseURL: srv.URL, Token: "tok"})

	_, err := d.CreateDelivery(context.Background(), DeliveryRequest{OrderID: "42"})
	if !IsValidation(err) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestDeliveryStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDispatcher(DispatcherConfig{BaseURL: srv.URL, Token: "tok"})
	_, err := d.DeliveryStatus(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
