// Package storage содержит интерфейсы хранилищ и их реализации для режимов
// file и in-memory. Режим database реализован в пакете repositories.
package storage

import (
	"context"
	"time"

	"github.com/Totarae/YotpoBridge/internal/model"
)

// Orders определяет интерфейс хранилища размещённых заказов.
type Orders interface {
	// SaveOrder сохраняет заказ; повторное сохранение перезаписывает его.
	SaveOrder(ctx context.Context, o *model.Order) error
	// GetOrder возвращает заказ по номеру или apperr.ErrNotFound.
	GetOrder(ctx context.Context, orderNo string) (*model.Order, error)
	// PendingOrders возвращает до limit заказов, ещё не переданных в target,
	// в порядке создания.
	PendingOrders(ctx context.Context, target string, limit int) ([]*model.Order, error)
	// MarkExported отмечает передачу заказов в target.
	MarkExported(ctx context.Context, target string, orderNos []string, at time.Time) error
}

// History определяет интерфейс истории запусков заданий.
type History interface {
	// SaveRun добавляет запись о запуске.
	SaveRun(ctx context.Context, run *model.JobRun) error
	// ListRuns возвращает до limit последних запусков задания, новые первыми.
	ListRuns(ctx context.Context, jobID string, limit int) ([]*model.JobRun, error)
}
