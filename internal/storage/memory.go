package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dresperanto/studio-flora/pkg/models"
)

// MemoryStore is an in-process OrderStore used in tests and when the service
// runs without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	seq    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*models.Order)}
}

func (s *MemoryStore) SaveOrder(ctx context.Context, order *models.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *order
	s.orders[order.ID] = &copied
	s.seq = append(s.seq, order.ID)
	return order.ID, nil
}

func (s *MemoryStore) ListOrders(ctx context.Context, customerID string) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []*models.Order
	// Walk insertion order backwards so equal timestamps still come back
	// newest submission first.
	for i := len(s.seq) - 1; i >= 0; i-- {
		order := s.orders[s.seq[i]]
		if customerID != "" && (order.CustomerID == nil || *order.CustomerID != customerID) {
			continue
		}
		copied := *order
		orders = append(orders, &copied)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}
