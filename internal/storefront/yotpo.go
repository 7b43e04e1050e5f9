package storefront

import (
	"context"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/model"
	"github.com/Totarae/YotpoBridge/internal/pipeline"
	"github.com/Totarae/YotpoBridge/internal/render"
	"github.com/Totarae/YotpoBridge/internal/yotpo"
)

// Ключи параметров шаблона, которые добавляет Yotpo.
const (
	ViewReviewsWidget      = "yotpoReviewsWidget"
	ViewRatings            = "yotpoRatings"
	ViewLoyaltyPanel       = "yotpoLoyaltyPanel"
	ViewLoyaltyCoupons     = "yotpoLoyaltyCoupons"
	ViewConversionTracking = "yotpoConversionTracking"
)

// LocaleSettings отдаёт настройки Yotpo по локали.
type LocaleSettings interface {
	ForLocale(id string) (config.LocaleConfig, bool)
}

// LoyaltyClient: операции Yotpo Loyalty, нужные витрине.
type LoyaltyClient interface {
	SendOrder(ctx context.Context, lc config.LocaleConfig, o *model.Order) error
	SyncCustomer(ctx context.Context, lc config.LocaleConfig, c *model.Customer) error
	CustomerDetails(ctx context.Context, lc config.LocaleConfig, email string) (*yotpo.CustomerDetails, error)
}

// FragmentRenderer отрисовывает фрагменты Yotpo.
type FragmentRenderer interface {
	Render(name string, params any) render.Fragment
}

// OrderMarker отмечает передачу заказов.
type OrderMarker interface {
	MarkExported(ctx context.Context, target string, orderNos []string, at time.Time) error
}

// CouponChecker сообщает статус купона в корзине.
type CouponChecker interface {
	CouponStatus(ctx context.Context, customerID, code string) model.CouponStatusCode
}

// CouponView: купон корзины и его статус.
type CouponView struct {
	Code   string                 `json:"code"`
	Status model.CouponStatusCode `json:"status"`
}

// Enricher: обработчики Yotpo. Ни один из них не прерывает маршрут и не
// возвращает ошибку: при сбое данные Yotpo просто не попадают в шаблон.
type Enricher struct {
	settings LocaleSettings
	loyalty  LoyaltyClient
	renderer FragmentRenderer
	orders   OrderMarker
	coupons  CouponChecker
	logger   *zap.Logger
	now      func() time.Time
}

// NewEnricher создаёт обработчики Yotpo. loyalty может быть nil.
func NewEnricher(settings LocaleSettings, loyalty LoyaltyClient, renderer FragmentRenderer, orders OrderMarker, coupons CouponChecker, logger *zap.Logger) *Enricher {
	return &Enricher{
		settings: settings,
		loyalty:  loyalty,
		renderer: renderer,
		orders:   orders,
		coupons:  coupons,
		logger:   logger,
		now:      time.Now,
	}
}

// Register добавляет обработчики после базовых.
func (e *Enricher) Register(p *pipeline.Pipeline) {
	p.Append(pipeline.ProductShow, e.ReviewsWidget, e.Ratings)
	p.Append(pipeline.TileShow, e.Ratings)
	p.Append(pipeline.SearchUpdateGrid, e.Ratings)
	p.Append(pipeline.CheckoutBegin, e.LoyaltyPanel, e.LoyaltyCoupons)
	p.Append(pipeline.PlaceOrder, e.SendLoyaltyOrder)
	p.Append(pipeline.OrderConfirm, e.ConversionTracking)
	p.Append(pipeline.ConfirmationTemplate, e.ConversionTracking)
}

func (e *Enricher) locale(s *pipeline.State) (config.LocaleConfig, bool) {
	id := s.Locale
	if s.Order != nil && s.Order.Locale != "" {
		id = s.Order.Locale
	}
	return e.settings.ForLocale(id)
}

func (e *Enricher) fail(msg string, s *pipeline.State, err error) {
	e.logger.Warn(msg,
		zap.String("locale", s.Locale),
		zap.String("error_kind", apperr.Kind(err)),
		zap.Error(err),
	)
}

// ReviewsWidget добавляет виджет отзывов на страницу товара.
func (e *Enricher) ReviewsWidget(_ context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	lc, ok := e.locale(s)
	if !ok {
		return pipeline.Next, nil
	}
	w, ok := yotpo.NewReviewsWidget(lc, s.Locale, s.Product)
	if !ok {
		return pipeline.Next, nil
	}
	if f := e.renderer.Render(render.ReviewsWidget, w); f.Outcome == render.Available {
		s.Set(ViewReviewsWidget, f.HTML)
	}
	return pipeline.Next, nil
}

// Ratings добавляет звёзды рейтинга для товаров запроса.
func (e *Enricher) Ratings(_ context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	lc, ok := e.locale(s)
	if !ok || len(s.Products) == 0 {
		return pipeline.Next, nil
	}
	widgets, ok := yotpo.NewRatingWidgets(lc, s.Locale, s.Products)
	if !ok {
		return pipeline.Next, nil
	}
	ratings := make(map[string]template.HTML, len(widgets))
	for _, w := range widgets {
		if f := e.renderer.Render(render.RatingStars, w); f.Outcome == render.Available {
			ratings[w.ProductID] = f.HTML
		}
	}
	if len(ratings) > 0 {
		s.Set(ViewRatings, ratings)
	}
	return pipeline.Next, nil
}

// LoyaltyPanel показывает баланс баллов покупателя при оформлении.
func (e *Enricher) LoyaltyPanel(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	lc, ok := e.locale(s)
	if !ok || !lc.LoyaltyEnabled || e.loyalty == nil || s.Customer == nil || s.Customer.Email == "" {
		return pipeline.Next, nil
	}
	details, err := e.loyalty.CustomerDetails(ctx, lc, s.Customer.Email)
	if err != nil {
		e.fail("Loyalty panel unavailable", s, err)
		return pipeline.Next, nil
	}
	if f := e.renderer.Render(render.LoyaltyPanel, details); f.Outcome == render.Available {
		s.Set(ViewLoyaltyPanel, f.HTML)
	}
	return pipeline.Next, nil
}

// LoyaltyCoupons добавляет статусы купонов корзины.
func (e *Enricher) LoyaltyCoupons(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	lc, ok := e.locale(s)
	if !ok || !lc.LoyaltyEnabled || e.coupons == nil || s.Basket == nil || len(s.Basket.CouponCodes) == 0 {
		return pipeline.Next, nil
	}
	views := make([]CouponView, 0, len(s.Basket.CouponCodes))
	for _, code := range s.Basket.CouponCodes {
		views = append(views, CouponView{Code: code, Status: e.coupons.CouponStatus(ctx, s.Basket.CustomerID, code)})
	}
	s.Set(ViewLoyaltyCoupons, views)
	return pipeline.Next, nil
}

// SendLoyaltyOrder передаёт оформленный заказ в Loyalty. Неудача только
// пишется в журнал: заказ останется в очереди задания выгрузки.
func (e *Enricher) SendLoyaltyOrder(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	if s.Order == nil || e.loyalty == nil {
		return pipeline.Next, nil
	}
	lc, ok := e.locale(s)
	if !ok || !lc.LoyaltyEnabled {
		return pipeline.Next, nil
	}

	if s.Customer != nil && s.Customer.Registered {
		if err := e.loyalty.SyncCustomer(ctx, lc, s.Customer); err != nil {
			e.fail("Loyalty customer sync failed", s, err)
		}
	}
	if err := e.loyalty.SendOrder(ctx, lc, s.Order); err != nil {
		e.fail("Loyalty order deferred to export job", s, err)
		return pipeline.Next, nil
	}
	if err := e.orders.MarkExported(ctx, model.TargetLoyalty, []string{s.Order.OrderNo}, e.now().UTC()); err != nil {
		e.fail("Failed to mark loyalty order", s, err)
	}
	return pipeline.Next, nil
}

// ConversionTracking добавляет пиксель конверсии на страницу подтверждения.
func (e *Enricher) ConversionTracking(_ context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	lc, ok := e.locale(s)
	if !ok {
		return pipeline.Next, nil
	}
	ct, ok := yotpo.NewConversionTracking(lc, s.Order)
	if !ok {
		return pipeline.Next, nil
	}
	if f := e.renderer.Render(render.ConversionTracking, ct); f.Outcome == render.Available {
		s.Set(ViewConversionTracking, f.HTML)
	}
	return pipeline.Next, nil
}
