// Package pipeline выполняет обработчики маршрутов витрины по порядку.
// Базовый обработчик маршрута идёт первым, дополнения выполняются после
// него в порядке регистрации.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/Totarae/YotpoBridge/internal/apperr"
)

// Маршруты витрины.
const (
	CheckoutBegin        = "Checkout-Begin"
	PlaceOrder           = "CheckoutServices-PlaceOrder"
	OrderConfirm         = "Order-Confirm"
	ConfirmationTemplate = "Order-ConfirmationTemplate"
	ProductShow          = "Product-Show"
	TileShow             = "Tile-Show"
	SearchUpdateGrid     = "Search-UpdateGrid"
)

// Outcome сообщает, продолжать ли цепочку.
type Outcome int

const (
	// Next передаёт управление следующему обработчику.
	Next Outcome = iota
	// Done завершает цепочку: ответ готов.
	Done
)

// Handler: один шаг маршрута.
type Handler func(ctx context.Context, s *State) (Outcome, error)

// Pipeline хранит упорядоченные обработчики по маршрутам.
// Регистрация выполняется при старте, Run безопасен для параллельных запросов.
type Pipeline struct {
	mu     sync.RWMutex
	routes map[string][]Handler
}

// New создаёт пустой Pipeline.
func New() *Pipeline {
	return &Pipeline{routes: make(map[string][]Handler)}
}

// Handle задаёт базовый обработчик маршрута. Он выполняется первым,
// уже добавленные дополнения сохраняются.
func (p *Pipeline) Handle(route string, base Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[route] = append([]Handler{base}, p.routes[route]...)
}

// Append добавляет обработчики в конец маршрута.
func (p *Pipeline) Append(route string, handlers ...Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[route] = append(p.routes[route], handlers...)
}

// Len возвращает число обработчиков маршрута.
func (p *Pipeline) Len(route string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.routes[route])
}

// Run выполняет обработчики маршрута по порядку. Цепочка прерывается на
// Done или на первой ошибке.
func (p *Pipeline) Run(ctx context.Context, route string, s *State) error {
	p.mu.RLock()
	handlers := p.routes[route]
	p.mu.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("route %s: %w", route, apperr.ErrNotFound)
	}
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := h(ctx, s)
		if err != nil {
			return fmt.Errorf("route %s: %w", route, err)
		}
		if outcome == Done {
			return nil
		}
	}
	return nil
}
