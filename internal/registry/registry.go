// Package registry связывает идентификатор внешнего сервиса с его
// конфигурацией и определением (сборка запроса, разбор ответа, очистка лога)
// и выполняет синхронный HTTP-обмен.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/metrics"
)

// ContentTypeJSON: тип содержимого всех исходящих тел.
const ContentTypeJSON = "application/json; charset=utf-8"

// maxResponseSize ограничивает чтение тела ответа (10MB).
const maxResponseSize = 10 * 1024 * 1024

// ServiceConfig описывает удалённую точку для одного идентификатора сервиса.
type ServiceConfig struct {
	ID       string        `json:"id" mapstructure:"id"`
	URL      string        `json:"url" mapstructure:"url" validate:"required,url"`
	Method   string        `json:"method" mapstructure:"method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	User     string        `json:"user" mapstructure:"user"`
	Password string        `json:"password" mapstructure:"password"`
}

// ConfigSource отдаёт конфигурацию сервиса по идентификатору.
type ConfigSource interface {
	ServiceConfig(serviceID string) (ServiceConfig, bool)
}

// StaticSource: ConfigSource поверх готовой таблицы.
type StaticSource map[string]ServiceConfig

// ServiceConfig реализует ConfigSource.
func (s StaticSource) ServiceConfig(serviceID string) (ServiceConfig, bool) {
	cfg, ok := s[serviceID]
	if ok && cfg.ID == "" {
		cfg.ID = serviceID
	}
	return cfg, ok
}

// Definition: поведение одного удалённого сервиса.
type Definition interface {
	// CreateRequest настраивает call (заголовки, метод, путь) и возвращает тело запроса.
	CreateRequest(call *Call, args any) (any, error)
	// ParseResponse извлекает значение из ответа.
	ParseResponse(call *Call, resp *Response) (any, error)
	// RequestLogMessage возвращает безопасную для журнала копию сериализованного запроса.
	RequestLogMessage(serialized string) (string, error)
}

// HTTPDoer: транспорт. *http.Client подходит.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Factory создаёт сервисы по идентификатору.
type Factory struct {
	source  ConfigSource
	client  HTTPDoer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option настраивает Factory.
type Option func(*Factory)

// WithHTTPClient подменяет транспорт.
func WithHTTPClient(client HTTPDoer) Option {
	return func(f *Factory) { f.client = client }
}

// WithLogger задаёт логгер.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) { f.logger = logger }
}

// WithMetrics включает учёт вызовов.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// NewFactory создаёт фабрику сервисов.
func NewFactory(source ConfigSource, opts ...Option) *Factory {
	f := &Factory{
		source: source,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateService связывает конфигурацию serviceID с определением.
// Отсутствие конфигурации возвращает apperr.ErrServiceNotConfigured.
func (f *Factory) CreateService(serviceID string, def Definition) (*Service, error) {
	cfg, ok := f.source.ServiceConfig(serviceID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", serviceID, apperr.ErrServiceNotConfigured)
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("%s: %w: bad url %q", serviceID, apperr.ErrServiceNotConfigured, cfg.URL)
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	cfg.ID = serviceID

	return &Service{
		cfg:     cfg,
		def:     def,
		client:  f.client,
		logger:  f.logger.With(zap.String("service", serviceID)),
		metrics: f.metrics,
	}, nil
}

// Service: готовый к вызову сервис.
type Service struct {
	cfg     ServiceConfig
	def     Definition
	client  HTTPDoer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// ID возвращает идентификатор сервиса.
func (s *Service) ID() string {
	return s.cfg.ID
}

// Call выполняет один обмен: сборка, журнал очищенной копии, HTTP, разбор.
// Сетевые сбои возвращаются как ошибка с apperr.ErrTransport; ответы 4xx/5xx
// возвращаются как Result со StatusError.
func (s *Service) Call(ctx context.Context, args any) (*Result, error) {
	start := time.Now()
	call := NewCall(s.cfg)

	body, err := s.def.CreateRequest(call, args)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", s.cfg.ID, err)
	}

	payload, err := serialize(body)
	if err != nil {
		return nil, fmt.Errorf("%s: serialize request: %w", s.cfg.ID, err)
	}
	s.logRequest(call, payload)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, call.requestURL(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", s.cfg.ID, err)
	}
	req.Header = call.Header.Clone()
	if s.cfg.User != "" {
		req.SetBasicAuth(s.cfg.User, s.cfg.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.ObserveCall(s.cfg.ID, string(StatusError), time.Since(start))
		err = fmt.Errorf("%s: %w: %w", s.cfg.ID, apperr.ErrTransport, err)
		s.logger.Error("Service call failed", zap.Error(err), zap.String("error_kind", apperr.Kind(err)))
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		s.metrics.ObserveCall(s.cfg.ID, string(StatusError), time.Since(start))
		return nil, fmt.Errorf("%s: %w: read response: %w", s.cfg.ID, apperr.ErrTransport, err)
	}
	response := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}

	if resp.StatusCode >= http.StatusBadRequest {
		s.metrics.ObserveCall(s.cfg.ID, string(StatusError), time.Since(start))
		s.logger.Warn("Service returned error status",
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)
		return &Result{
			Status:       StatusError,
			StatusCode:   resp.StatusCode,
			ErrorMessage: response.Text(),
		}, nil
	}

	obj, err := s.def.ParseResponse(call, response)
	if err != nil {
		s.metrics.ObserveCall(s.cfg.ID, string(StatusError), time.Since(start))
		return nil, fmt.Errorf("%s: parse response: %w", s.cfg.ID, err)
	}

	s.metrics.ObserveCall(s.cfg.ID, string(StatusOK), time.Since(start))
	s.logger.Info("Service call completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return &Result{Status: StatusOK, StatusCode: resp.StatusCode, Object: obj}, nil
}

// logRequest пишет в журнал только вывод RequestLogMessage. Сбой очистки
// не должен мешать отправке, поэтому паника тоже перехватывается.
func (s *Service) logRequest(call *Call, payload []byte) {
	if payload == nil {
		s.logger.Info("Service request", zap.String("method", call.Method), zap.String("path", call.Path()))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Request log redaction panicked", zap.Any("panic", r))
		}
	}()

	msg, err := s.def.RequestLogMessage(string(payload))
	if err != nil {
		s.logger.Warn("Request log redaction failed", zap.Error(err))
		return
	}
	s.logger.Info("Service request",
		zap.String("method", call.Method),
		zap.String("path", call.Path()),
		zap.String("request", msg),
	)
}

func serialize(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// Call: изменяемое состояние одного вызова, доступное определению.
type Call struct {
	ServiceID string
	Method    string
	Header    http.Header
	Query     url.Values

	base *url.URL
	path string
}

// NewCall готовит состояние вызова по конфигурации сервиса.
func NewCall(cfg ServiceConfig) *Call {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		base = &url.URL{}
	}
	return &Call{
		ServiceID: cfg.ID,
		Method:    cfg.Method,
		Header:    make(http.Header),
		Query:     base.Query(),
		base:      base,
	}
}

// SetRequestHeader задаёт заголовок запроса.
func (c *Call) SetRequestHeader(key, value string) {
	c.Header.Set(key, value)
}

// SetRequestMethod меняет HTTP-метод.
func (c *Call) SetRequestMethod(method string) {
	c.Method = method
}

// AppendPath дописывает путь к базовому URL сервиса.
func (c *Call) AppendPath(p string) {
	c.path = strings.TrimSuffix(c.path, "/") + "/" + strings.TrimPrefix(p, "/")
}

// AddParam добавляет параметр строки запроса.
func (c *Call) AddParam(key, value string) {
	c.Query.Add(key, value)
}

// Path возвращает итоговый путь запроса.
func (c *Call) Path() string {
	if c.path == "" {
		return c.base.Path
	}
	return strings.TrimSuffix(c.base.Path, "/") + c.path
}

func (c *Call) requestURL() string {
	u := *c.base
	u.Path = c.Path()
	u.RawQuery = c.Query.Encode()
	return u.String()
}

// Response: сырой ответ сервиса.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text возвращает тело ответа как строку.
func (r *Response) Text() string {
	return string(r.Body)
}

// ResultStatus: итог вызова.
type ResultStatus string

const (
	StatusOK    ResultStatus = "OK"
	StatusError ResultStatus = "ERROR"
)

// Result: результат вызова сервиса.
type Result struct {
	Status       ResultStatus
	StatusCode   int
	Object       any
	ErrorMessage string
}

// OK сообщает об успешном вызове.
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusOK
}
