package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"orderbridge/pkg/bridge"
	"orderbridge/pkg/metrics"

	"github.com/go-chi/chi/v5"
)

type server struct {
	poller   *bridge.Poller
	notifier *bridge.Notifier
	store    *bridge.Storage
}

func (s *server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}

	if r.URL.Query().Get("source") == "archive" {
		s.listArchived(w, r, page, limit)
		return
	}

	category := r.URL.Query().Get("category")
	snapshot := s.poller.Snapshot()

	var filtered []bridge.ClassifiedOrder = []bridge.ClassifiedOrder{}
	for _, co := range snapshot {
		if !matchCategory(co.Category, category) {
			continue
		}
		filtered = append(filtered, co)
	}

	total := len(filtered)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	writeJSON(w, map[string]interface{}{
		"data": filtered[start:end],
		"meta": map[string]interface{}{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

func matchCategory(c bridge.Category, want string) bool {
	switch want {
	case "":
		return true
	case "history":
		return c.IsHistory()
	default:
		return string(c) == want
	}
}

func (s *server) listArchived(w http.ResponseWriter, r *http.Request, page, limit int) {
	if s.store == nil {
		http.Error(w, "archive not configured", http.StatusNotImplemented)
		return
	}
	orders, total, err := s.store.ArchivedOrders(r.Context(), r.URL.Query().Get("status"), page, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"data": bridge.ClassifyAll(orders, time.Now()),
		"meta": map[string]interface{}{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

func (s *server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, co := range s.poller.Snapshot() {
		if co.Order.ResolvedID() == id {
			writeJSON(w, co)
			return
		}
	}
	http.Error(w, "order not found", http.StatusNotFound)
}

func (s *server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"id", "status", "category", "customer", "total", "currency", "distance", "pickup_time", "driver"})
	for _, co := range s.poller.Snapshot() {
		o := co.Order
		cw.Write([]string{
			o.ResolvedID(),
			o.Status,
			string(co.Category),
			o.Customer,
			strconv.FormatFloat(o.Total, 'f', 2, 64),
			o.Currency,
			bridge.ExtractString(o.Raw, "distance_km", "delivery.distance", "distance"),
			bridge.ExtractString(o.Raw, "pickup_time", "pickup.scheduled_at", "fulfillment.pickup_time"),
			bridge.ExtractString(o.Raw, "driver_name", "driver.name", "courier.name"),
		})
	}
}

func (s *server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"data": s.notifier.List()})
}

func (s *server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if !s.notifier.Remove(chi.URLParam(r, "id")) {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookEventsTotal.Inc()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		metrics.WebhookEventsInvalid.Inc()
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	payload, err := bridge.ParseWebhook(body)
	if err != nil {
		metrics.WebhookEventsInvalid.Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.store != nil {
		if err := s.store.LogWebhook(r.Context(), payload.Event, body, r.RemoteAddr); err != nil {
			// Audit failure should not reject the delivery itself.
			fmt.Printf("webhook log failed: %v\n", err)
		}
	}

	newOrders := s.poller.Push(payload.Orders, time.Now())
	writeJSON(w, map[string]interface{}{
		"accepted": len(payload.Orders),
		"new":      len(newOrders),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
