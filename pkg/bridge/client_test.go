package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "test-key"})
	return client, srv
}

func TestFetchOrdersBareArray(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`[{"order_id": 101, "status": "pending"}, {"order_id": "102", "status": "accepted"}]`))
	})
	defer srv.Close()

	orders, meta, err := client.FetchOrders(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if meta != nil {
		t.Error("bare array response should have nil meta")
	}
	if len(orders) != 2 || orders[0].ResolvedID() != "101" || orders[1].ResolvedID() != "102" {
		t.Errorf("orders = %v", orders)
	}
}

func TestFetchOrdersEnvelope(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"orders": []Order{{OrderID: "7", Status: "pending"}},
			"meta":   PageMeta{Page: 2, Limit: 1, Total: 9, Pages: 9},
		})
	})
	defer srv.Close()

	orders, meta, err := client.FetchOrders(context.Background(), Filter{Page: 2, Limit: 1})
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].ResolvedID() != "7" {
		t.Errorf("orders = %v", orders)
	}
	if meta == nil || meta.Total != 9 || meta.Page != 2 {
		t.Errorf("meta = %+v", meta)
	}
}

func TestFetchOrdersQueryParams(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "pending,accepted" {
			t.Errorf("status = %q", q.Get("status"))
		}
		if q.Get("date_from") != "2026-03-01" {
			t.Errorf("date_from = %q", q.Get("date_from"))
		}
		if q.Get("page") != "3" || q.Get("limit") != "10" {
			t.Errorf("page/limit = %q/%q", q.Get("page"), q.Get("limit"))
		}
		w.Write([]byte(`[]`))
	})
	defer srv.Close()

	_, _, err := client.FetchOrders(context.Background(), Filter{
		Statuses: []string{"pending", "accepted"},
		From:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Page:     3,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
}

func TestFetchOrdersUpstreamError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer srv.Close()

	_, _, err := client.FetchOrders(context.Background(), Filter{})
	if !IsUpstreamUnavailable(err) {
		t.Errorf("got %v, want ErrUpstreamUnavailable", err)
	}
}

func TestFetchOrderNotFound(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	defer srv.Close()

	_, err := client.FetchOrder(context.Background(), "999")
	if !IsNotFound(err) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestValidationBeforeNetwork(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid input must be rejected before any network call")
	})
	defer srv.Close()

	tests := []struct {
		name string
		call func() error
	}{
		{"reversed date range", func() error {
			_, _, err := client.FetchOrders(context.Background(), Filter{
				From: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			})
			return err
		}},
		{"oversized limit", func() error {
			_, _, err := client.FetchOrders(context.Background(), Filter{Limit: 500})
			return err
		}},
		{"empty order id", func() error {
			_, err := client.FetchOrder(context.Background(), "")
			return err
		}},
		{"unknown status", func() error {
			_, err := client.UpdateStatus(context.Background(), "1", "teleported")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !IsValidation(err) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		var req struct {
			Status string `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(Order{OrderID: "42", Status: req.Status})
	})
	defer srv.Close()

	o, err := client.UpdateStatus(context.Background(), "42", "accepted")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if o.Status != "accepted" {
		t.Errorf("status = %q, want %q", o.Status, "accepted")
	}
}

func TestOpErrorFormat(t *testing.T) {
	err := &OpError{Op: "FetchOrder", OrderID: "42", Err: ErrNotFound}
	want := "bridge.FetchOrder [42]: bridge: order not found"
	if err.Error() != want {
		t.Errorf("OpError.Error() = %q, want %q", err.Error(), want)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should see through OpError")
	}
	if IsValidation(err) {
		t.Error("IsValidation should be false for ErrNotFound")
	}
}
