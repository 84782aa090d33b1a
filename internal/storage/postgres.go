package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dresperanto/studio-flora/pkg/models"
)

// PostgresStore persists orders in a single table, with the customer, items,
// and recipient sub-records stored as JSONB documents alongside the scalar
// columns used for filtering.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateTables brings the schema up on startup; safe to call repeatedly.
func (s *PostgresStore) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			order_number VARCHAR(64) NOT NULL,
			order_date TIMESTAMPTZ NOT NULL,
			pickup_delivery_date TIMESTAMPTZ NOT NULL,
			customer JSONB NOT NULL,
			customer_id VARCHAR(64),
			is_guest_order BOOLEAN NOT NULL,
			items JSONB NOT NULL,
			occasion VARCHAR(255) NOT NULL,
			budget DECIMAL(10,2) NOT NULL,
			special_requests TEXT NOT NULL DEFAULT '',
			delivery_type VARCHAR(16) NOT NULL,
			delivery_time VARCHAR(64) NOT NULL DEFAULT '',
			recipient JSONB,
			delivery_fee DECIMAL(10,2) NOT NULL,
			card_message TEXT NOT NULL DEFAULT '',
			payment_type VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveOrder(ctx context.Context, order *models.Order) (string, error) {
	customerJSON, err := json.Marshal(order.Customer)
	if err != nil {
		return "", fmt.Errorf("marshal customer: %w", err)
	}
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}

	var recipientJSON []byte
	if order.Recipient != nil {
		if recipientJSON, err = json.Marshal(order.Recipient); err != nil {
			return "", fmt.Errorf("marshal recipient: %w", err)
		}
	}

	query := `
		INSERT INTO orders (
			id, order_number, order_date, pickup_delivery_date,
			customer, customer_id, is_guest_order, items,
			occasion, budget, special_requests, delivery_type, delivery_time,
			recipient, delivery_fee, card_message, payment_type,
			status, total_amount, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = s.db.ExecContext(ctx, query,
		order.ID, order.OrderNumber, order.OrderDate, order.PickupDeliveryDate,
		customerJSON, order.CustomerID, order.IsGuestOrder, itemsJSON,
		order.Occasion, order.Budget, order.SpecialRequests, order.DeliveryType, order.DeliveryTime,
		nullableJSON(recipientJSON), order.DeliveryFee, order.CardMessage, order.PaymentType,
		order.Status, order.TotalAmount, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	return order.ID, nil
}

const selectColumns = `
	id, order_number, order_date, pickup_delivery_date,
	customer, customer_id, is_guest_order, items,
	occasion, budget, special_requests, delivery_type, delivery_time,
	recipient, delivery_fee, card_message, payment_type,
	status, total_amount, created_at, updated_at
`

func (s *PostgresStore) ListOrders(ctx context.Context, customerID string) ([]*models.Order, error) {
	query := `SELECT ` + selectColumns + ` FROM orders ORDER BY created_at DESC`
	args := []interface{}{}
	if customerID != "" {
		query = `SELECT ` + selectColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`
		args = append(args, customerID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var (
		customerJSON  []byte
		itemsJSON     []byte
		recipientJSON []byte
		customerID    sql.NullString
	)

	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.OrderDate, &order.PickupDeliveryDate,
		&customerJSON, &customerID, &order.IsGuestOrder, &itemsJSON,
		&order.Occasion, &order.Budget, &order.SpecialRequests, &order.DeliveryType, &order.DeliveryTime,
		&recipientJSON, &order.DeliveryFee, &order.CardMessage, &order.PaymentType,
		&order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(customerJSON, &order.Customer); err != nil {
		return nil, fmt.Errorf("unmarshal customer: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if len(recipientJSON) > 0 {
		order.Recipient = &models.Recipient{}
		if err := json.Unmarshal(recipientJSON, order.Recipient); err != nil {
			return nil, fmt.Errorf("unmarshal recipient: %w", err)
		}
	}
	if customerID.Valid {
		order.CustomerID = &customerID.String
	}

	return order, nil
}

// nullableJSON keeps absent sub-records as SQL NULL rather than an empty
// byte slice, which lib/pq would reject as invalid JSONB.
func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
