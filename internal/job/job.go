// Package job описывает пакетные задания интеграции: шаги выгрузки заказов,
// перевод флага ошибки в статус задания, запуск и расписание.
package job

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Коды статуса шага.
const (
	CodeOK    = "OK"
	CodeError = "ERROR"
)

// DisplayErrorInBm это ключ контекста задания. Шаги ставят его в true,
// если интеграция отработала с ошибками.
const DisplayErrorInBm = "displayErrorInBm"

// Status: итог шага.
type Status struct {
	Code    string
	Message string
}

// OK: успешный статус.
func OK(message string) Status {
	return Status{Code: CodeOK, Message: message}
}

// Error: статус ошибки.
func Error(message string) Status {
	return Status{Code: CodeError, Message: message}
}

// IsError сообщает, завершился ли шаг ошибкой.
func (s Status) IsError() bool {
	return s.Code == CodeError
}

// Parameters: параметры шага из конфигурации задания.
type Parameters map[string]any

// Int читает целый параметр. Строки разбираются, иначе возвращается def.
func (p Parameters) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// ExecutionContext: общие данные одного запуска задания.
type ExecutionContext map[string]any

// MarkError ставит флаг DisplayErrorInBm.
func (c ExecutionContext) MarkError() {
	c[DisplayErrorInBm] = true
}

// JobExecution: один запуск задания.
type JobExecution struct {
	ID        uuid.UUID
	JobID     string
	Context   ExecutionContext
	StartedAt time.Time
}

// StepExecution: выполнение шага внутри запуска.
type StepExecution struct {
	StepID       string
	JobExecution *JobExecution
}

// Context возвращает контекст запуска или nil.
func (s *StepExecution) Context() ExecutionContext {
	if s == nil || s.JobExecution == nil {
		return nil
	}
	return s.JobExecution.Context
}

// StepFunc: тело шага.
type StepFunc func(ctx context.Context, params Parameters, step *StepExecution) Status

// Step: именованный шаг задания.
type Step struct {
	ID     string
	Params Parameters
	Run    StepFunc
}

// Job: упорядоченный набор шагов.
type Job struct {
	ID    string
	Steps []Step
}
