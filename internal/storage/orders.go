package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/model"
)

// OrderStore: потокобезопасное хранилище заказов в памяти.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
}

// NewOrderStore создаёт пустое хранилище.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*model.Order)}
}

// SaveOrder реализует Orders. Хранится копия заказа.
func (s *OrderStore) SaveOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.OrderNo] = &cp
	return nil
}

// GetOrder реализует Orders.
func (s *OrderStore) GetOrder(_ context.Context, orderNo string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderNo]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderNo, apperr.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

// PendingOrders реализует Orders.
func (s *OrderStore) PendingOrders(_ context.Context, target string, limit int) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Order
	for _, o := range s.orders {
		if !o.ExportedTo(target) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderNo < out[j].OrderNo
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkExported реализует Orders. Неизвестные номера пропускаются.
func (s *OrderStore) MarkExported(_ context.Context, target string, orderNos []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, no := range orderNos {
		if o, ok := s.orders[no]; ok {
			o.MarkExported(target, at)
		}
	}
	return nil
}
