// Package metrics содержит счётчики вызовов внешних сервисов и запусков заданий.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Имена метрик.
const (
	MetricServiceCallsTotal   = "yotpo_service_calls_total"
	MetricServiceCallDuration = "yotpo_service_call_duration_seconds"
	MetricJobRunsTotal        = "yotpo_job_runs_total"
	MetricExportedOrdersTotal = "yotpo_exported_orders_total"
)

// Metrics хранит собственный реестр, чтобы тесты не делили глобальное состояние.
type Metrics struct {
	registry *prometheus.Registry

	serviceCalls   *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	jobRuns        *prometheus.CounterVec
	exportedOrders *prometheus.CounterVec
}

// New регистрирует все метрики в новом реестре.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		serviceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricServiceCallsTotal,
			Help: "Outbound Yotpo service calls by service ID and result status.",
		}, []string{"service", "status"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricServiceCallDuration,
			Help:    "Outbound Yotpo service call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricJobRunsTotal,
			Help: "Job runs by job ID and final status.",
		}, []string{"job", "status"}),
		exportedOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricExportedOrdersTotal,
			Help: "Orders accepted by Yotpo by target (reviews, loyalty).",
		}, []string{"target"}),
	}
	m.registry.MustRegister(m.serviceCalls, m.callDuration, m.jobRuns, m.exportedOrders)
	return m
}

// ObserveCall учитывает один вызов сервиса. Nil-приёмник допустим.
func (m *Metrics) ObserveCall(serviceID, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.serviceCalls.WithLabelValues(serviceID, status).Inc()
	m.callDuration.WithLabelValues(serviceID).Observe(d.Seconds())
}

// ObserveJobRun учитывает завершённый запуск задания.
func (m *Metrics) ObserveJobRun(jobID, status string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(jobID, status).Inc()
}

// AddExportedOrders увеличивает счётчик выгруженных заказов.
func (m *Metrics) AddExportedOrders(target string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.exportedOrders.WithLabelValues(target).Add(float64(n))
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
