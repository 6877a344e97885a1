package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderbridge/pkg/bridge"
	"orderbridge/pkg/config"
	"orderbridge/pkg/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.LoadConfig("orderbridge.config.yaml")
	if err != nil {
		// Fallback for development if running from cmd/dashboard.
		cfg, err = config.LoadConfig("../../orderbridge.config.yaml")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	metrics.Register()

	client := bridge.NewClient(bridge.ClientConfig{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.UpstreamTimeout(),
		Logger:  bridge.NewStdLogger(),
	})

	var store *bridge.Storage
	if cfg.DB.Enabled {
		db, err := sql.Open("postgres", cfg.GetConnString())
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer db.Close()
		store, err = bridge.NewStorage(db)
		if err != nil {
			log.Fatalf("Failed to prepare storage: %v", err)
		}
	}

	notifier := bridge.NewNotifier(nil)
	builder := bridge.NewPollerBuilder().
		WithSource(client).
		WithNotifier(notifier).
		WithInterval(cfg.PollInterval()).
		WithLogger(bridge.NewStdLogger())
	if store != nil {
		builder = builder.WithArchiver(store)
	}
	poller, err := builder.Build()
	if err != nil {
		log.Fatalf("Failed to build poller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	api := &server{
		poller:   poller,
		notifier: notifier,
		store:    store,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsHeaders)

	r.Get("/api/orders", api.handleListOrders)
	r.Get("/api/orders/export.csv", api.handleExportCSV)
	r.Get("/api/orders/{id}", api.handleGetOrder)
	r.Get("/api/notifications", api.handleListNotifications)
	r.Delete("/api/notifications/{id}", api.handleDeleteNotification)
	r.Post("/webhook/gloriafood", api.handleWebhook)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/*", http.FileServer(http.Dir("./cmd/dashboard/static")))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		fmt.Printf("Dashboard running at http://localhost:%d\n", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to launch http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
