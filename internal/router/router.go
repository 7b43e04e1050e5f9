package router

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/auth"
	"github.com/Totarae/YotpoBridge/internal/metrics"
	"github.com/Totarae/YotpoBridge/internal/middleware"
	"github.com/Totarae/YotpoBridge/internal/pipeline"
	"github.com/Totarae/YotpoBridge/internal/storefront"
)

// NewRouter создаёт и настраивает маршрутизатор
func NewRouter(handler *storefront.Handler, session *auth.Auth, m *metrics.Metrics, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.LoggingMiddleware(logger)) // Подключаем логирование
	r.Use(middleware.GzipMiddleware)            // Gzip-сжатие

	// Витрина: маршруты с сессией покупателя
	r.Group(func(r chi.Router) {
		r.Use(session.Middleware)

		r.Get("/products/{productID}", handler.Route(pipeline.ProductShow))
		r.Get("/tiles/{productID}", handler.Route(pipeline.TileShow))
		r.Get("/search", handler.Route(pipeline.SearchUpdateGrid))

		r.Put("/customer", handler.UpdateCustomer)
		r.Post("/basket/items", handler.AddToBasket)
		r.Post("/basket/coupons", handler.ApplyCoupon)

		r.Get("/checkout/begin", handler.Route(pipeline.CheckoutBegin))
		r.Post("/checkout/place-order", handler.Route(pipeline.PlaceOrder))
		r.Get("/orders/{orderNo}/confirm", handler.Route(pipeline.OrderConfirm))
		r.Get("/orders/{orderNo}/confirmation-template", handler.Route(pipeline.ConfirmationTemplate))
	})

	// Служебные маршруты
	r.Post("/jobs/{jobID}/run", handler.RunJob)
	r.Get("/jobs/{jobID}/runs", handler.JobRuns)
	r.Get("/ping", handler.Ping)
	r.Handle("/metrics", m.Handler())
	return r
}
