package storage

import (
	"context"
	"errors"

	"github.com/dresperanto/studio-flora/pkg/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStore is the persistence port for orders. The handler depends on this
// interface only, so tests substitute the in-memory implementation.
type OrderStore interface {
	// SaveOrder persists a new order and returns its store identifier.
	SaveOrder(ctx context.Context, order *models.Order) (string, error)

	// ListOrders returns orders newest-first. An empty customerID returns
	// every order; otherwise only orders linked to that customer.
	ListOrders(ctx context.Context, customerID string) ([]*models.Order, error)

	// GetOrder retrieves one order by store identifier, or ErrOrderNotFound.
	GetOrder(ctx context.Context, id string) (*models.Order, error)

	// UpdateOrderStatus sets a new status and bumps the updated-at
	// timestamp, or returns ErrOrderNotFound.
	UpdateOrderStatus(ctx context.Context, id, status string) error
}
