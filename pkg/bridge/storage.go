package bridge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS orders (
    order_id VARCHAR(64) PRIMARY KEY,
    status VARCHAR(50),
    type VARCHAR(50),
    client_name VARCHAR(255),
    client_phone VARCHAR(64),
    client_address TEXT,
    total_price NUMERIC(12,2),
    currency VARCHAR(8),
    raw_data JSONB,
    created_at TIMESTAMP,
    fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS webhook_logs (
    id BIGSERIAL PRIMARY KEY,
    event VARCHAR(100),
    payload JSONB,
    remote_addr VARCHAR(64),
    received_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS deliveries (
    id BIGSERIAL PRIMARY KEY,
    order_id VARCHAR(64),
    external_delivery_id VARCHAR(128),
    status VARCHAR(50),
    fee_cents BIGINT,
    currency VARCHAR(8),
    tracking_url TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_deliveries_order_id ON deliveries(order_id);
`

// Storage archives fetched orders, webhook traffic and dispatched deliveries
// in PostgreSQL. The in-memory core runs fine without it.
type Storage struct {
	db *sql.DB
}

// NewStorage wraps a database handle and applies the schema.
func NewStorage(db *sql.DB) (*Storage, error) {
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// UpsertOrders writes a fetched batch in one transaction, replacing any
// previously archived row for the same order id.
func (s *Storage) UpsertOrders(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (order_id, status, type, client_name, client_phone, client_address,
		                    total_price, currency, raw_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			type = EXCLUDED.type,
			total_price = EXCLUDED.total_price,
			raw_data = EXCLUDED.raw_data,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, o := range orders {
		id := o.ResolvedID()
		if id == "" {
			continue
		}
		var rawArg interface{}
		if len(o.Raw) > 0 {
			rawArg = []byte(o.Raw)
		}
		var createdArg interface{}
		if o.CreatedAt != nil {
			createdArg = *o.CreatedAt
		}
		if _, err := stmt.ExecContext(ctx, id, o.Status, o.Type, o.Customer, o.Phone,
			o.Address, o.Total, o.Currency, rawArg, createdArg); err != nil {
			return fmt.Errorf("failed to upsert order %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// ArchivedOrders pages through the archive, newest first. status is optional.
func (s *Storage) ArchivedOrders(ctx context.Context, status string, page, limit int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	countQuery := "SELECT COUNT(*) FROM orders"
	listQuery := `SELECT order_id, status, type, client_name, client_phone, client_address,
	                     total_price, currency, raw_data, created_at
	              FROM orders`
	args := []interface{}{}
	if status != "" {
		countQuery += " WHERE UPPER(status) = UPPER($1)"
		listQuery += " WHERE UPPER(status) = UPPER($1)"
		args = append(args, status)
	}
	listQuery += fmt.Sprintf(" ORDER BY created_at DESC NULLS LAST LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count archived orders: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, listQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list archived orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		var id string
		var status, orderType, name, phone, address, currency sql.NullString
		var total sql.NullFloat64
		var raw []byte
		var created sql.NullTime
		if err := rows.Scan(&id, &status, &orderType, &name, &phone, &address,
			&total, &currency, &raw, &created); err != nil {
			return nil, 0, err
		}
		o.OrderID = FlexID(id)
		o.Status = status.String
		o.Type = orderType.String
		o.Customer = name.String
		o.Phone = phone.String
		o.Address = address.String
		o.Total = total.Float64
		o.Currency = currency.String
		if raw != nil {
			o.Raw = json.RawMessage(raw)
		}
		if created.Valid {
			t := created.Time
			o.CreatedAt = &t
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// LogWebhook records one webhook delivery for audit.
func (s *Storage) LogWebhook(ctx context.Context, event string, payload []byte, remoteAddr string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO webhook_logs (event, payload, remote_addr) VALUES ($1, $2, $3)",
		event, payload, remoteAddr)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}

// RecordDelivery stores the dispatch result for an order.
func (s *Storage) RecordDelivery(ctx context.Context, d *Delivery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (order_id, external_delivery_id, status, fee_cents, currency, tracking_url)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.OrderID, d.ExternalID, d.Status, d.FeeCents, d.Currency, d.TrackingURL)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// UpdateDeliveryStatus reflects a dispatcher status change in the archive.
func (s *Storage) UpdateDeliveryStatus(ctx context.Context, externalID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE deliveries SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE external_delivery_id = $2",
		status, externalID)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	return nil
}

// Stats aggregates the archive for the CLI stats subcommand.
type Stats struct {
	TotalOrders     int
	OrdersToday     int
	Revenue         float64
	TotalDeliveries int
	ByStatus        map[string]int
}

func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{ByStatus: make(map[string]int)}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_price), 0) FROM orders").Scan(&out.TotalOrders, &out.Revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE created_at >= $1", midnight).Scan(&out.OrdersToday)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's orders: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deliveries").Scan(&out.TotalDeliveries)
	if err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT UPPER(status), COUNT(*) FROM orders GROUP BY UPPER(status)")
	if err != nil {
		return nil, fmt.Errorf("failed to group by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status sql.NullString
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out.ByStatus[status.String] = count
	}
	return out, rows.Err()
}
