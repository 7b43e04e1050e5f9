// Package storefront реализует маршруты витрины: базовые обработчики поверх
// Platform и дополнения Yotpo, которые выполняются после них.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/model"
	"github.com/Totarae/YotpoBridge/internal/storage"
)

// ErrEmptyBasket: в корзине нет позиций.
var ErrEmptyBasket = errors.New("basket is empty")

// Platform: возможности коммерческой платформы, на которые опираются
// базовые обработчики.
type Platform interface {
	Product(ctx context.Context, id string) (*model.Product, error)
	Search(ctx context.Context, query string, limit int) ([]*model.Product, error)
	Customer(ctx context.Context, id string) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, c *model.Customer) error
	Basket(ctx context.Context, customerID string) (*model.Basket, error)
	AddToBasket(ctx context.Context, customerID, productID string, quantity int) (*model.Basket, error)
	ApplyCoupon(ctx context.Context, customerID, code string) (model.CouponStatusCode, error)
	CouponStatus(ctx context.Context, customerID, code string) model.CouponStatusCode
	PlaceOrder(ctx context.Context, customerID, locale, remoteIP string) (*model.Order, error)
	Order(ctx context.Context, orderNo string) (*model.Order, error)
}

// Coupon: описание купона в каталоге.
type Coupon struct {
	Code            string     `json:"code"`
	Enabled         bool       `json:"enabled"`
	PromotionActive bool       `json:"promotion_active"`
	ProductIDs      []string   `json:"product_ids,omitempty"`
	PerCustomer     int        `json:"per_customer,omitempty"`
	Total           int        `json:"total,omitempty"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidTo         *time.Time `json:"valid_to,omitempty"`
}

// Catalog: содержимое файла начального наполнения.
type Catalog struct {
	Currency  string            `json:"currency"`
	Products  []*model.Product  `json:"products"`
	Customers []*model.Customer `json:"customers"`
	Coupons   []Coupon          `json:"coupons"`
}

// LoadCatalog читает каталог из JSON-файла.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	return &c, nil
}

// MemoryPlatform хранит каталог, покупателей и корзины в памяти, заказы
// пишет в storage.Orders.
type MemoryPlatform struct {
	mu          sync.RWMutex
	currency    string
	products    map[string]*model.Product
	order       []string
	customers   map[string]*model.Customer
	baskets     map[string]*model.Basket
	coupons     map[string]Coupon
	redemptions map[string]map[string]int // купон -> покупатель -> число погашений
	orders      storage.Orders
	seq         atomic.Int64
	now         func() time.Time
}

// NewMemoryPlatform создаёт платформу по каталогу.
func NewMemoryPlatform(c *Catalog, orders storage.Orders) *MemoryPlatform {
	p := &MemoryPlatform{
		currency:    c.Currency,
		products:    make(map[string]*model.Product, len(c.Products)),
		customers:   make(map[string]*model.Customer, len(c.Customers)),
		baskets:     make(map[string]*model.Basket),
		coupons:     make(map[string]Coupon, len(c.Coupons)),
		redemptions: make(map[string]map[string]int),
		orders:      orders,
		now:         time.Now,
	}
	for _, pr := range c.Products {
		if pr.Currency == "" {
			pr.Currency = c.Currency
		}
		p.products[pr.ID] = pr
		p.order = append(p.order, pr.ID)
	}
	for _, cu := range c.Customers {
		p.customers[cu.ID] = cu
	}
	for _, cp := range c.Coupons {
		p.coupons[strings.ToUpper(cp.Code)] = cp
	}
	p.seq.Store(1000)
	return p
}

// Product возвращает товар по ID.
func (p *MemoryPlatform) Product(_ context.Context, id string) (*model.Product, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr, ok := p.products[id]
	if !ok || !pr.Online {
		return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
	}
	cp := *pr
	return &cp, nil
}

// Search ищет товары по подстроке имени или бренда.
func (p *MemoryPlatform) Search(_ context.Context, query string, limit int) ([]*model.Product, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []*model.Product
	for _, id := range p.order {
		pr := p.products[id]
		if !pr.Online {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(pr.Name), q) && !strings.Contains(strings.ToLower(pr.Brand), q) {
			continue
		}
		cp := *pr
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Customer возвращает покупателя. Неизвестный ID: гость без профиля.
func (p *MemoryPlatform) Customer(_ context.Context, id string) (*model.Customer, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if c, ok := p.customers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return &model.Customer{ID: id}, nil
}

// UpdateCustomer сохраняет контактные данные покупателя.
func (p *MemoryPlatform) UpdateCustomer(_ context.Context, c *model.Customer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.customers[c.ID]
	if !ok {
		existing = &model.Customer{ID: c.ID, CreatedAt: p.now().UTC()}
		p.customers[c.ID] = existing
	}
	existing.Email = c.Email
	existing.FirstName = c.FirstName
	existing.LastName = c.LastName
	return nil
}

func (p *MemoryPlatform) basketLocked(customerID string) *model.Basket {
	b, ok := p.baskets[customerID]
	if !ok {
		b = &model.Basket{ID: "b-" + customerID, CustomerID: customerID, Currency: p.currency}
		p.baskets[customerID] = b
	}
	return b
}

func copyBasket(b *model.Basket) *model.Basket {
	cp := *b
	cp.Items = append([]model.LineItem(nil), b.Items...)
	cp.CouponCodes = append([]string(nil), b.CouponCodes...)
	return &cp
}

// Basket возвращает корзину покупателя.
func (p *MemoryPlatform) Basket(_ context.Context, customerID string) (*model.Basket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyBasket(p.basketLocked(customerID)), nil
}

// AddToBasket добавляет товар в корзину.
func (p *MemoryPlatform) AddToBasket(_ context.Context, customerID, productID string, quantity int) (*model.Basket, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity %d: must be positive", quantity)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pr, ok := p.products[productID]
	if !ok || !pr.Online {
		return nil, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	b := p.basketLocked(customerID)
	for i := range b.Items {
		if b.Items[i].ProductID == productID {
			b.Items[i].Quantity += quantity
			return copyBasket(b), nil
		}
	}
	b.Items = append(b.Items, model.LineItem{
		ProductID:   pr.ID,
		Name:        pr.Name,
		URL:         pr.URL,
		ImageURL:    pr.ImageURL,
		Description: pr.Description,
		Price:       pr.Price,
		Quantity:    quantity,
	})
	return copyBasket(b), nil
}

// couponStatusLocked вычисляет, можно ли применить купон к корзине.
func (p *MemoryPlatform) couponStatusLocked(customerID, code string, b *model.Basket) model.CouponStatusCode {
	key := strings.ToUpper(code)
	cp, ok := p.coupons[key]
	if !ok {
		return model.CouponCodeUnknown
	}
	if !cp.Enabled {
		return model.CouponDisabled
	}
	if !cp.PromotionActive {
		return model.CouponNoActivePromotion
	}
	now := p.now()
	if (cp.ValidFrom != nil && now.Before(*cp.ValidFrom)) || (cp.ValidTo != nil && now.After(*cp.ValidTo)) {
		return model.CouponTimeframeRedemptionLimitExceeded
	}
	used := p.redemptions[key]
	if cp.PerCustomer > 0 && used[customerID] >= cp.PerCustomer {
		return model.CouponCustomerRedemptionLimitExceeded
	}
	if cp.Total > 0 {
		total := 0
		for _, n := range used {
			total += n
		}
		if total >= cp.Total {
			return model.CouponRedemptionLimitExceeded
		}
	}
	if len(cp.ProductIDs) > 0 {
		applicable := false
		for _, li := range b.Items {
			for _, id := range cp.ProductIDs {
				if li.ProductID == id {
					applicable = true
				}
			}
		}
		if !applicable {
			return model.CouponNoApplicablePromotion
		}
	}
	return model.CouponApplied
}

// CouponStatus возвращает текущий статус купона для корзины покупателя.
func (p *MemoryPlatform) CouponStatus(_ context.Context, customerID, code string) model.CouponStatusCode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.couponStatusLocked(customerID, code, p.basketLocked(customerID))
}

// ApplyCoupon применяет купон к корзине покупателя.
func (p *MemoryPlatform) ApplyCoupon(_ context.Context, customerID, code string) (model.CouponStatusCode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.basketLocked(customerID)
	for _, c := range b.CouponCodes {
		if strings.EqualFold(c, code) {
			return model.CouponCodeAlreadyInBasket, nil
		}
	}
	status := p.couponStatusLocked(customerID, code, b)
	if status.IsApplied() {
		b.CouponCodes = append(b.CouponCodes, strings.ToUpper(code))
	}
	return status, nil
}

// PlaceOrder оформляет заказ из корзины и очищает её.
func (p *MemoryPlatform) PlaceOrder(ctx context.Context, customerID, locale, remoteIP string) (*model.Order, error) {
	p.mu.Lock()
	b := p.basketLocked(customerID)
	if len(b.Items) == 0 {
		p.mu.Unlock()
		return nil, ErrEmptyBasket
	}

	total := decimal.Zero
	for _, li := range b.Items {
		total = total.Add(li.Amount())
	}
	o := &model.Order{
		OrderNo:     fmt.Sprintf("%08d", p.seq.Add(1)),
		CustomerID:  customerID,
		Currency:    b.Currency,
		Locale:      locale,
		RemoteIP:    remoteIP,
		Items:       append([]model.LineItem(nil), b.Items...),
		CouponCodes: append([]string(nil), b.CouponCodes...),
		Total:       total,
		CreatedAt:   p.now().UTC(),
	}
	if c, ok := p.customers[customerID]; ok {
		o.CustomerEmail = c.Email
		o.FirstName = c.FirstName
		o.LastName = c.LastName
	}
	for _, code := range b.CouponCodes {
		if p.redemptions[code] == nil {
			p.redemptions[code] = make(map[string]int)
		}
		p.redemptions[code][customerID]++
	}
	delete(p.baskets, customerID)
	p.mu.Unlock()

	if err := p.orders.SaveOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("save order %s: %w", o.OrderNo, err)
	}
	return o, nil
}

// Order возвращает заказ по номеру.
func (p *MemoryPlatform) Order(ctx context.Context, orderNo string) (*model.Order, error) {
	return p.orders.GetOrder(ctx, orderNo)
}
