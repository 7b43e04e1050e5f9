package yotpo

import (
	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/locale"
	"github.com/Totarae/YotpoBridge/internal/model"
)

// ReviewsWidget: данные главного виджета отзывов на странице товара.
type ReviewsWidget struct {
	AppKey      string `json:"app_key"`
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Language    string `json:"language"`
}

// RatingWidget: звёзды рейтинга на плитке товара.
type RatingWidget struct {
	AppKey    string `json:"app_key"`
	ProductID string `json:"product_id"`
	Language  string `json:"language"`
}

// ConversionTracking: данные пикселя конверсии на странице подтверждения.
type ConversionTracking struct {
	AppKey        string `json:"app_key"`
	OrderID       string `json:"order_id"`
	OrderAmount   string `json:"order_amount"`
	OrderCurrency string `json:"order_currency"`
}

// NewReviewsWidget собирает данные виджета; ok == false, если отзывы выключены.
func NewReviewsWidget(lc config.LocaleConfig, localeID string, p *model.Product) (ReviewsWidget, bool) {
	if !lc.ReviewsEnabled || p == nil {
		return ReviewsWidget{}, false
	}
	return ReviewsWidget{
		AppKey:      lc.AppKey,
		ProductID:   p.ID,
		Name:        p.Name,
		URL:         p.URL,
		ImageURL:    p.ImageURL,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Currency:    p.Currency,
		Language:    locale.Language(localeID),
	}, true
}

// NewRatingWidgets собирает звёзды для списка товаров.
func NewRatingWidgets(lc config.LocaleConfig, localeID string, products []*model.Product) ([]RatingWidget, bool) {
	if !lc.RatingsEnabled {
		return nil, false
	}
	lang := locale.Language(localeID)
	widgets := make([]RatingWidget, 0, len(products))
	for _, p := range products {
		widgets = append(widgets, RatingWidget{AppKey: lc.AppKey, ProductID: p.ID, Language: lang})
	}
	return widgets, true
}

// NewConversionTracking собирает данные пикселя конверсии.
func NewConversionTracking(lc config.LocaleConfig, o *model.Order) (ConversionTracking, bool) {
	if !lc.ConversionTrackingEnabled || o == nil {
		return ConversionTracking{}, false
	}
	return ConversionTracking{
		AppKey:        lc.AppKey,
		OrderID:       o.OrderNo,
		OrderAmount:   o.Total.StringFixed(2),
		OrderCurrency: o.Currency,
	}, true
}
