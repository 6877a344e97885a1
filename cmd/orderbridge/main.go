package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"orderbridge/pkg/bridge"
	"orderbridge/pkg/config"

	_ "github.com/lib/pq"
)

const usage = `Usage: orderbridge <command> [options]

Commands:
  test                          check upstream connectivity
  list                          list orders (--status --type --limit --page --date-from --date-to)
  get <orderId>                 fetch a single order
  update <orderId> <status>     change an order's status
  delivery quote|create|status|cancel [options]
  pending                       list orders that still need action
  stats                         archive statistics (requires db)
  poll                          run the poll loop (--interval <minutes>)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := bridge.NewClient(bridge.ClientConfig{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.UpstreamTimeout(),
		Logger:  bridge.NewStdLogger(),
	})

	ctx := context.Background()

	switch args[0] {
	case "test":
		return runTest(ctx, client)
	case "list":
		return runList(ctx, client, args[1:])
	case "get":
		return runGet(ctx, client, args[1:])
	case "update":
		return runUpdate(ctx, client, args[1:])
	case "delivery":
		return runDelivery(ctx, cfg, args[1:])
	case "pending":
		return runPending(ctx, client)
	case "stats":
		return runStats(ctx, cfg)
	case "poll":
		return runPoll(ctx, cfg, client, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("ORDERBRIDGE_CONFIG")
	if path == "" {
		path = "orderbridge.config.yaml"
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		// Fallback for development when running from cmd/orderbridge.
		cfg, err = config.LoadConfig("../../orderbridge.config.yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %v", err)
		}
	}
	return cfg, nil
}

func runTest(ctx context.Context, client *bridge.Client) error {
	orders, _, err := client.FetchOrders(ctx, bridge.Filter{Limit: 1})
	if err != nil {
		return err
	}
	fmt.Printf("Upstream reachable, %d order(s) visible.\n", len(orders))
	return nil
}

func runList(ctx context.Context, client *bridge.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	status := fs.String("status", "", "comma-separated status filter")
	orderType := fs.String("type", "", "order type filter")
	limit := fs.Int("limit", 20, "page size")
	page := fs.Int("page", 1, "page number")
	dateFrom := fs.String("date-from", "", "start date (YYYY-MM-DD)")
	dateTo := fs.String("date-to", "", "end date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := bridge.Filter{Type: *orderType, Page: *page, Limit: *limit}
	if *status != "" {
		f.Statuses = strings.Split(*status, ",")
	}
	var err error
	if f.From, err = parseDate(*dateFrom); err != nil {
		return err
	}
	if f.To, err = parseDate(*dateTo); err != nil {
		return err
	}

	orders, meta, err := client.FetchOrders(ctx, f)
	if err != nil {
		return err
	}

	now := time.Now()
	fmt.Printf("%-12s %-12s %-12s %-24s %10s\n", "ID", "STATUS", "CATEGORY", "CUSTOMER", "TOTAL")
	for _, o := range orders {
		fmt.Printf("%-12s %-12s %-12s %-24s %10.2f\n",
			o.ResolvedID(), o.Status, bridge.Classify(o, now), o.Customer, o.Total)
	}
	if meta != nil {
		fmt.Printf("\nPage %d/%d (%d total)\n", meta.Page, meta.Pages, meta.Total)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func runGet(ctx context.Context, client *bridge.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: orderbridge get <orderId>")
	}
	o, err := client.FetchOrder(ctx, args[0])
	if err != nil {
		return err
	}
	printOrder(*o)
	return nil
}

func printOrder(o bridge.Order) {
	fmt.Printf("Order %s\n", o.ResolvedID())
	fmt.Printf("  Status:   %s (%s)\n", o.Status, bridge.Classify(o, time.Now()))
	fmt.Printf("  Customer: %s %s\n", o.Customer, o.Phone)
	fmt.Printf("  Address:  %s\n", o.Address)
	fmt.Printf("  Total:    %.2f %s\n", o.Total, o.Currency)
	if driver := bridge.ExtractString(o.Raw, "driver_name", "driver.name", "courier.name"); driver != "" {
		fmt.Printf("  Driver:   %s\n", driver)
	}
	if distance := bridge.ExtractString(o.Raw, "distance_km", "delivery.distance", "distance"); distance != "" {
		fmt.Printf("  Distance: %s\n", distance)
	}
}

func runUpdate(ctx context.Context, client *bridge.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: orderbridge update <orderId> <status>")
	}
	o, err := client.UpdateStatus(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Order %s is now %s.\n", o.ResolvedID(), o.Status)
	return nil
}

func runDelivery(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: orderbridge delivery quote|create|status|cancel [options]")
	}

	dispatcher := bridge.NewDispatcher(bridge.DispatcherConfig{
		BaseURL: cfg.Dispatch.BaseURL,
		Token:   cfg.Dispatch.Token,
		Logger:  bridge.NewStdLogger(),
	})

	switch args[0] {
	case "quote", "create":
		fs := flag.NewFlagSet("delivery "+args[0], flag.ContinueOnError)
		orderID := fs.String("order", "", "order id")
		pickup := fs.String("pickup", "", "pickup address")
		dropoff := fs.String("dropoff", "", "dropoff address")
		phone := fs.String("phone", "", "dropoff phone")
		value := fs.Int64("value", 0, "order value in cents")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		req := bridge.DeliveryRequest{
			OrderID:         *orderID,
			PickupAddress:   *pickup,
			DropoffAddress:  *dropoff,
			DropoffPhone:    *phone,
			OrderValueCents: *value,
		}
		if args[0] == "quote" {
			q, err := dispatcher.CreateQuote(ctx, req)
			if err != nil {
				return err
			}
			fmt.Printf("Quote %s: %d %s (~%s)\n", q.ID, q.FeeCents, q.Currency,
				(time.Duration(q.DurationSec) * time.Second).String())
			return nil
		}
		d, err := dispatcher.CreateDelivery(ctx, req)
		if err != nil {
			return err
		}
		if err := recordDelivery(ctx, cfg, d); err != nil {
			return err
		}
		fmt.Printf("Delivery %s created for order %s (%s)\n", d.ExternalID, d.OrderID, d.Status)
		if d.TrackingURL != "" {
			fmt.Printf("Tracking: %s\n", d.TrackingURL)
		}
		return nil
	case "status":
		if len(args) < 2 {
			return fmt.Errorf("usage: orderbridge delivery status <deliveryId>")
		}
		d, err := dispatcher.DeliveryStatus(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Delivery %s: %s\n", d.ExternalID, d.Status)
		return nil
	case "cancel":
		if len(args) < 2 {
			return fmt.Errorf("usage: orderbridge delivery cancel <deliveryId>")
		}
		d, err := dispatcher.CancelDelivery(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Delivery %s: %s\n", d.ExternalID, d.Status)
		return nil
	default:
		return fmt.Errorf("unknown delivery subcommand %q", args[0])
	}
}

func recordDelivery(ctx context.Context, cfg *config.Config, d *bridge.Delivery) error {
	if !cfg.DB.Enabled {
		return nil
	}
	store, db, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return store.RecordDelivery(ctx, d)
}

func runPending(ctx context.Context, client *bridge.Client) error {
	orders, _, err := client.FetchOrders(ctx, bridge.Filter{})
	if err != nil {
		return err
	}

	now := time.Now()
	count := 0
	for _, co := range bridge.ClassifyAll(orders, now) {
		if co.Category.IsHistory() {
			continue
		}
		count++
		fmt.Printf("%-12s %-12s %-12s %s\n",
			co.Order.ResolvedID(), co.Order.Status, co.Category, co.Order.Customer)
	}
	if count == 0 {
		fmt.Println("No pending orders.")
	}
	return nil
}

func runStats(ctx context.Context, cfg *config.Config) error {
	if !cfg.DB.Enabled {
		return fmt.Errorf("stats requires db.enabled in the configuration")
	}
	store, db, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Orders archived: %d (today: %d)\n", stats.TotalOrders, stats.OrdersToday)
	fmt.Printf("Revenue:         %.2f\n", stats.Revenue)
	fmt.Printf("Deliveries:      %d\n", stats.TotalDeliveries)
	for status, count := range stats.ByStatus {
		fmt.Printf("  %-12s %d\n", status, count)
	}
	return nil
}

func runPoll(ctx context.Context, cfg *config.Config, client *bridge.Client, args []string) error {
	fs := flag.NewFlagSet("poll", flag.ContinueOnError)
	intervalMin := fs.Int("interval", 0, "poll interval in minutes (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	interval := cfg.PollInterval()
	if *intervalMin > 0 {
		interval = time.Duration(*intervalMin) * time.Minute
	}

	notifier := bridge.NewNotifier(terminalSink{})
	builder := bridge.NewPollerBuilder().
		WithSource(client).
		WithNotifier(notifier).
		WithInterval(interval).
		WithLogger(bridge.NewStdLogger())

	if cfg.DB.Enabled {
		store, db, err := openStorage(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		builder = builder.WithArchiver(store)
	}

	poller, err := builder.Build()
	if err != nil {
		return err
	}

	fmt.Printf("Polling every %s, Ctrl+C to stop.\n", interval)
	poller.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	poller.Stop()
	fmt.Println("Stopped.")
	return nil
}

func openStorage(cfg *config.Config) (*bridge.Storage, *sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetConnString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %v", err)
	}
	store, err := bridge.NewStorage(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// terminalSink mirrors every event to stderr so an operator running the poll
// loop in a terminal sees new orders as they arrive.
type terminalSink struct{}

func (terminalSink) Notify(e bridge.Event) {
	fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", strings.ToUpper(string(e.Kind)), e.Title, e.Message)
}
