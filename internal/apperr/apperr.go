// Package apperr описывает классы ошибок интеграции и их отображение
// в логи и HTTP-статусы.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrServiceNotConfigured: для идентификатора сервиса нет конфигурации.
	ErrServiceNotConfigured = errors.New("service is not configured")
	// ErrTransport: сетевой сбой при вызове внешнего сервиса.
	ErrTransport = errors.New("service transport failure")
	// ErrRender: шаблон не удалось отрисовать.
	ErrRender = errors.New("template render failed")
	// ErrConflict: операция уже выполняется.
	ErrConflict = errors.New("operation already in progress")
	// ErrNotFound: запрошенный объект витрины не найден.
	ErrNotFound = errors.New("not found")
)

// Kind возвращает короткое имя класса ошибки для поля error_kind в логах.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrServiceNotConfigured):
		return "configuration"

	case errors.Is(err, ErrTransport):
		return "transport"

	case errors.Is(err, ErrRender):
		return "render"

	case errors.Is(err, ErrConflict):
		return "conflict"

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// HTTPStatus отображает ошибку в код ответа витрины.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrConflict):
		return http.StatusConflict

	case errors.Is(err, ErrTransport),
		errors.Is(err, ErrServiceNotConfigured):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
