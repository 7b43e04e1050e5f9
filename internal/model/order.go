package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem: позиция корзины или заказа.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Amount возвращает стоимость позиции.
func (li LineItem) Amount() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order: размещённый заказ.
type Order struct {
	OrderNo       string          `json:"order_no"`
	CustomerID    string          `json:"customer_id"`
	CustomerEmail string          `json:"customer_email"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Currency      string          `json:"currency"`
	Locale        string          `json:"locale"`
	RemoteIP      string          `json:"remote_ip"`
	Items         []LineItem      `json:"items"`
	CouponCodes   []string        `json:"coupon_codes,omitempty"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	ExportedAt    *time.Time      `json:"exported_at,omitempty"`
	// LoyaltyAt: время передачи заказа в Loyalty.
	LoyaltyAt *time.Time `json:"loyalty_at,omitempty"`
}

// Направления выгрузки заказов.
const (
	TargetReviews = "reviews"
	TargetLoyalty = "loyalty"
)

// CustomerName: имя покупателя для выгрузки.
func (o *Order) CustomerName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

// Exported сообщает, выгружен ли заказ в Yotpo.
func (o *Order) Exported() bool {
	return o.ExportedAt != nil
}

// ExportedTo сообщает, передан ли заказ в направление target.
func (o *Order) ExportedTo(target string) bool {
	switch target {
	case TargetReviews:
		return o.ExportedAt != nil
	case TargetLoyalty:
		return o.LoyaltyAt != nil
	default:
		return false
	}
}

// MarkExported отмечает передачу заказа в направление target.
func (o *Order) MarkExported(target string, at time.Time) {
	switch target {
	case TargetReviews:
		o.ExportedAt = &at
	case TargetLoyalty:
		o.LoyaltyAt = &at
	}
}
