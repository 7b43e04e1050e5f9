package yotpo

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/metrics"
	"github.com/Totarae/YotpoBridge/internal/model"
)

// PurchaseProduct: товар в выгрузке покупки.
type PurchaseProduct struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
}

// Purchase: один заказ в выгрузке.
type Purchase struct {
	Email        string                     `json:"email"`
	CustomerName string                     `json:"customer_name"`
	OrderID      string                     `json:"order_id"`
	OrderDate    string                     `json:"order_date"`
	CurrencyISO  string                     `json:"currency_iso"`
	Products     map[string]PurchaseProduct `json:"products"`
}

// PurchasesPayload: тело purchases/mass_create.
type PurchasesPayload struct {
	ValidateData bool       `json:"validate_data"`
	Platform     string     `json:"platform"`
	UToken       string     `json:"utoken"`
	Orders       []Purchase `json:"orders"`
}

// Exporter выгружает заказы в Yotpo Reviews.
type Exporter struct {
	auth     *Authenticator
	export   Caller
	platform string
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewExporter создаёт Exporter.
func NewExporter(auth *Authenticator, export Caller, platform string, logger *zap.Logger, m *metrics.Metrics) *Exporter {
	return &Exporter{auth: auth, export: export, platform: platform, logger: logger, metrics: m}
}

// BuildPurchases превращает заказы в записи выгрузки. Заказы без email
// пропускаются: Yotpo отклоняет их целиком.
func BuildPurchases(orders []*model.Order) []Purchase {
	purchases := make([]Purchase, 0, len(orders))
	for _, o := range orders {
		if o.CustomerEmail == "" {
			continue
		}
		products := make(map[string]PurchaseProduct, len(o.Items))
		for _, li := range o.Items {
			products[li.ProductID] = PurchaseProduct{
				URL:         li.URL,
				Name:        li.Name,
				Image:       li.ImageURL,
				Description: li.Description,
				Price:       li.Price.StringFixed(2),
			}
		}
		purchases = append(purchases, Purchase{
			Email:        o.CustomerEmail,
			CustomerName: o.CustomerName(),
			OrderID:      o.OrderNo,
			OrderDate:    o.CreatedAt.Format("2006-01-02"),
			CurrencyISO:  o.Currency,
			Products:     products,
		})
	}
	return purchases
}

// ExportOrders выгружает заказы одной локали. Пустой список не вызывает сервис.
func (e *Exporter) ExportOrders(ctx context.Context, lc config.LocaleConfig, orders []*model.Order) error {
	purchases := BuildPurchases(orders)
	if len(purchases) == 0 {
		return nil
	}

	token, err := e.auth.Token(ctx, lc)
	if err != nil {
		return err
	}

	res, err := e.export.Call(ctx, Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("%s/purchases/mass_create", lc.AppKey),
		Body: PurchasesPayload{
			ValidateData: true,
			Platform:     e.platform,
			UToken:       token,
			Orders:       purchases,
		},
	})
	if err != nil {
		return fmt.Errorf("export %d orders for %s: %w", len(purchases), lc.Locale, err)
	}
	if !res.OK() {
		return fmt.Errorf("export %d orders for %s: %w: status %d", len(purchases), lc.Locale, ErrRejected, res.StatusCode)
	}

	e.metrics.AddExportedOrders("reviews", len(purchases))
	e.logger.Info("Orders exported to Yotpo",
		zap.String("locale", lc.Locale),
		zap.Int("orders", len(purchases)),
	)
	return nil
}
