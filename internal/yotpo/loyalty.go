package yotpo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/metrics"
	"github.com/Totarae/YotpoBridge/internal/model"
)

// LoyaltyItem: позиция заказа для Loyalty.
type LoyaltyItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// LoyaltyOrder: тело POST /orders.
type LoyaltyOrder struct {
	CustomerEmail    string        `json:"customer_email"`
	CustomerID       string        `json:"customer_id,omitempty"`
	FirstName        string        `json:"first_name,omitempty"`
	LastName         string        `json:"last_name,omitempty"`
	OrderID          string        `json:"order_id"`
	TotalAmountCents int64         `json:"total_amount_cents"`
	CurrencyCode     string        `json:"currency_code"`
	IPAddress        string        `json:"ip_address,omitempty"`
	CouponCode       string        `json:"coupon_code,omitempty"`
	CreatedAt        string        `json:"created_at"`
	Items            []LoyaltyItem `json:"items"`
}

// LoyaltyCustomer: тело POST /customers.
type LoyaltyCustomer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// CustomerDetails: ответ GET /customer_details.
type CustomerDetails struct {
	Email         string `json:"email"`
	PointsBalance int    `json:"points_balance"`
	PointsEarned  int    `json:"points_earned"`
	VIPTierName   string `json:"vip_tier_name"`
	ReferralLink  string `json:"referral_link"`
}

// Loyalty: операции Yotpo Loyalty.
type Loyalty struct {
	svc     Caller
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewLoyalty создаёт клиента Loyalty.
func NewLoyalty(svc Caller, logger *zap.Logger, m *metrics.Metrics) *Loyalty {
	return &Loyalty{svc: svc, logger: logger, metrics: m}
}

func loyaltyHeaders(lc config.LocaleConfig) map[string]string {
	return map[string]string{
		"x-api-key": lc.LoyaltyAPIKey,
		"x-guid":    lc.LoyaltyGUID,
	}
}

// NewLoyaltyOrder строит тело заказа для Loyalty.
func NewLoyaltyOrder(o *model.Order) LoyaltyOrder {
	items := make([]LoyaltyItem, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, LoyaltyItem{
			ID:         li.ProductID,
			Name:       li.Name,
			PriceCents: li.Price.Shift(2).Round(0).IntPart(),
			Quantity:   li.Quantity,
		})
	}
	lo := LoyaltyOrder{
		CustomerEmail:    o.CustomerEmail,
		CustomerID:       o.CustomerID,
		FirstName:        o.FirstName,
		LastName:         o.LastName,
		OrderID:          o.OrderNo,
		TotalAmountCents: o.Total.Shift(2).Round(0).IntPart(),
		CurrencyCode:     o.Currency,
		IPAddress:        o.RemoteIP,
		CreatedAt:        o.CreatedAt.UTC().Format(time.RFC3339),
		Items:            items,
	}
	if len(o.CouponCodes) > 0 {
		lo.CouponCode = o.CouponCodes[0]
	}
	return lo
}

// SendOrder передаёт заказ в Loyalty.
func (l *Loyalty) SendOrder(ctx context.Context, lc config.LocaleConfig, o *model.Order) error {
	if err := l.post(ctx, lc, "orders", NewLoyaltyOrder(o)); err != nil {
		return fmt.Errorf("loyalty order %s: %w", o.OrderNo, err)
	}
	l.metrics.AddExportedOrders("loyalty", 1)
	return nil
}

// SyncCustomer создаёт или обновляет покупателя в Loyalty.
func (l *Loyalty) SyncCustomer(ctx context.Context, lc config.LocaleConfig, c *model.Customer) error {
	err := l.post(ctx, lc, "customers", LoyaltyCustomer{
		ID:        c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	})
	if err != nil {
		return fmt.Errorf("loyalty customer %s: %w", c.ID, err)
	}
	return nil
}

// CustomerDetails возвращает баланс баллов покупателя.
func (l *Loyalty) CustomerDetails(ctx context.Context, lc config.LocaleConfig, email string) (*CustomerDetails, error) {
	res, err := l.svc.Call(ctx, Request{
		Method: http.MethodGet,
		Path:   "customer_details",
		Query:  map[string]string{"customer_email": email},
		Header: loyaltyHeaders(lc),
	})
	if err != nil {
		return nil, fmt.Errorf("loyalty customer details: %w", err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("loyalty customer details: %w: status %d", ErrRejected, res.StatusCode)
	}

	var details CustomerDetails
	if err := json.Unmarshal([]byte(bodyText(res.Object)), &details); err != nil {
		return nil, fmt.Errorf("loyalty customer details: decode: %w", err)
	}
	return &details, nil
}

func (l *Loyalty) post(ctx context.Context, lc config.LocaleConfig, path string, body any) error {
	res, err := l.svc.Call(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		Header: loyaltyHeaders(lc),
		Body:   body,
	})
	if err != nil {
		return err
	}
	if !res.OK() {
		l.logger.Warn("Loyalty call rejected",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
		)
		return fmt.Errorf("%w: status %d", ErrRejected, res.StatusCode)
	}
	return nil
}
