// Package yotpo содержит определения сервисов Yotpo и построенные на них
// операции: выгрузку покупок, Loyalty и данные виджетов витрины.
package yotpo

import (
	"context"

	"github.com/Totarae/YotpoBridge/internal/redact"
	"github.com/Totarae/YotpoBridge/internal/registry"
)

// Caller: вызываемый сервис. *registry.Service подходит.
type Caller interface {
	Call(ctx context.Context, args any) (*registry.Result, error)
}

// Request: аргументы вызова с транспортными метаданными. Body уходит
// без изменений, остальные поля влияют только на call.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Header map[string]string
	Body   any
}

// jsonDefinition задаёт общее поведение всех сервисов Yotpo: JSON-тело,
// ответ как текст, очистка лога своим набором правил.
type jsonDefinition struct {
	rules redact.RuleSet
}

// CreateRequest реализует registry.Definition.
func (d jsonDefinition) CreateRequest(call *registry.Call, args any) (any, error) {
	call.SetRequestHeader("Content-Type", registry.ContentTypeJSON)

	var req *Request
	switch v := args.(type) {
	case Request:
		req = &v
	case *Request:
		req = v
	default:
		return args, nil
	}

	if req.Method != "" {
		call.SetRequestMethod(req.Method)
	}
	if req.Path != "" {
		call.AppendPath(req.Path)
	}
	for k, v := range req.Query {
		call.AddParam(k, v)
	}
	for k, v := range req.Header {
		call.SetRequestHeader(k, v)
	}
	return req.Body, nil
}

// ParseResponse реализует registry.Definition: тело возвращается как есть.
func (d jsonDefinition) ParseResponse(_ *registry.Call, resp *registry.Response) (any, error) {
	return resp.Text(), nil
}

// RequestLogMessage реализует registry.Definition.
func (d jsonDefinition) RequestLogMessage(serialized string) (string, error) {
	return d.rules.Scrub(serialized)
}

// Определения по сервисам. Наборы правил независимы.
var (
	AuthDefinition    registry.Definition = jsonDefinition{rules: redact.Auth}
	ExportDefinition  registry.Definition = jsonDefinition{rules: redact.OrderExport}
	LoyaltyDefinition registry.Definition = jsonDefinition{rules: redact.Loyalty}
)
