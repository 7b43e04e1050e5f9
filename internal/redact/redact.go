// Package redact готовит копию исходящего запроса для журнала:
// значения чувствительных полей заменяются пустой строкой.
package redact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedPayload возвращается, если сериализованный запрос не разбирается как JSON.
var ErrMalformedPayload = errors.New("malformed request payload")

// RuleSet: фиксированный набор чувствительных полей.
// Fields очищаются на верхнем уровне документа, а также в каждой записи
// списков, перечисленных в Collections.
type RuleSet struct {
	Name        string
	Fields      []string
	Collections []string
}

// OrderExport применяется к выгрузке покупок в Yotpo Reviews.
var OrderExport = RuleSet{
	Name:        "order-export",
	Fields:      []string{"utoken", "api_key", "email", "customer_name", "first_name", "last_name"},
	Collections: []string{"orders"},
}

// Loyalty применяется к вызовам Yotpo Loyalty.
var Loyalty = RuleSet{
	Name: "loyalty",
	Fields: []string{
		"api_key", "guid", "ip_address", "customer_id", "customer_email",
		"remote_ip", "id", "email", "customer_name", "first_name", "last_name",
	},
}

// Auth применяется к запросу токена.
var Auth = RuleSet{
	Name:   "auth",
	Fields: []string{"client_secret"},
}

// Scrub разбирает serialized, очищает чувствительные поля и возвращает
// новую сериализацию. Исходная строка не изменяется.
func (r RuleSet) Scrub(serialized string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(serialized))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	// После документа допустимы только пробелы.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return "", fmt.Errorf("%w: trailing data after document", ErrMalformedPayload)
	}

	switch v := doc.(type) {
	case map[string]any:
		r.scrubDocument(v)
	case []any:
		// Документ сам является списком записей
		for _, item := range v {
			if rec, ok := item.(map[string]any); ok {
				r.scrubRecord(rec)
			}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode scrubbed payload: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Contains сообщает, считается ли поле чувствительным.
func (r RuleSet) Contains(field string) bool {
	for _, f := range r.Fields {
		if f == field {
			return true
		}
	}
	return false
}

func (r RuleSet) scrubDocument(doc map[string]any) {
	r.scrubRecord(doc)
	for _, key := range r.Collections {
		list, ok := doc[key].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			if rec, ok := item.(map[string]any); ok {
				r.scrubRecord(rec)
			}
		}
	}
}

func (r RuleSet) scrubRecord(rec map[string]any) {
	for _, field := range r.Fields {
		if _, ok := rec[field]; ok {
			rec[field] = ""
		}
	}
}
