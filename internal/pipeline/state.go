package pipeline

import (
	"net/http"

	"github.com/Totarae/YotpoBridge/internal/model"
)

// State: данные одного запроса к витрине. Обработчики маршрута получают
// его явно: верхние поля заполняют базовые обработчики, View собирает
// параметры шаблона.
type State struct {
	Request  *http.Request
	Locale   string
	Basket   *model.Basket
	Customer *model.Customer
	Order    *model.Order
	Product  *model.Product
	Products []*model.Product

	// Status: код ответа; 0 означает 200.
	Status int
	View   map[string]any
}

// NewState создаёт состояние запроса.
func NewState(r *http.Request, locale string) *State {
	return &State{Request: r, Locale: locale, View: make(map[string]any)}
}

// Set записывает параметр шаблона.
func (s *State) Set(key string, value any) {
	if s.View == nil {
		s.View = make(map[string]any)
	}
	s.View[key] = value
}

// Get читает параметр шаблона.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.View[key]
	return v, ok
}

// StatusCode возвращает код ответа.
func (s *State) StatusCode() int {
	if s.Status == 0 {
		return http.StatusOK
	}
	return s.Status
}
