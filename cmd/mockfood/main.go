// mockfood is a throwaway in-memory stand-in for the upstream order API,
// used to exercise the CLI, the dashboard and the poll loop locally.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"orderbridge/pkg/bridge"

	"github.com/go-chi/chi/v5"
)

type orderBook struct {
	mu     sync.Mutex
	orders []bridge.Order
	nextID int
}

func (b *orderBook) add(status string, fulfillIn time.Duration) bridge.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	now := time.Now()
	o := bridge.Order{
		OrderID:   bridge.FlexID(strconv.Itoa(b.nextID)),
		Status:    status,
		Customer:  fmt.Sprintf("Customer %d", b.nextID),
		Phone:     "+15550100",
		Address:   "1 Demo Street",
		Total:     float64(10+rand.Intn(40)) + 0.5,
		Currency:  "USD",
		CreatedAt: &now,
	}
	if fulfillIn > 0 {
		t := now.Add(fulfillIn)
		o.FulfillAt = &t
	}
	b.orders = append(b.orders, o)
	return o
}

func (b *orderBook) list() []bridge.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bridge.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

func (b *orderBook) find(id string) *bridge.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].ResolvedID() == id {
			return &b.orders[i]
		}
	}
	return nil
}

func main() {
	port := flag.Int("port", 9090, "listen port")
	churn := flag.Duration("churn", 20*time.Second, "interval between synthetic new orders (0 disables)")
	flag.Parse()

	book := &orderBook{}
	book.add("pending", 0)
	book.add("accepted", 0)
	book.add("pending", 2*time.Hour)
	book.add("delivered", 0)

	if *churn > 0 {
		go func() {
			for range time.Tick(*churn) {
				o := book.add("pending", 0)
				log.Printf("new synthetic order %s", o.ResolvedID())
			}
		}()
	}

	r := chi.NewRouter()

	r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
		orders := book.list()
		w.Header().Set("Content-Type", "application/json")
		// bare=1 exercises the bare-array response shape.
		if r.URL.Query().Get("bare") == "1" {
			json.NewEncoder(w).Encode(orders)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"orders": orders,
			"meta": bridge.PageMeta{
				Page:  1,
				Limit: len(orders),
				Total: len(orders),
				Pages: 1,
			},
		})
	})

	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		o := book.find(chi.URLParam(r, "id"))
		if o == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(o)
	})

	r.Put("/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		o := book.find(chi.URLParam(r, "id"))
		if o == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		book.mu.Lock()
		o.Status = req.Status
		book.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(o)
	})

	fmt.Printf("mockfood listening on :%d\n", *port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", *port), r))
}
