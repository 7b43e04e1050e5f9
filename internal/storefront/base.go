package storefront

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/auth"
	"github.com/Totarae/YotpoBridge/internal/pipeline"
)

// Ключи базовых параметров шаблона.
const (
	ViewProduct  = "product"
	ViewProducts = "products"
	ViewCustomer = "customer"
	ViewBasket   = "basket"
	ViewOrder    = "order"
	ViewError    = "error"
	ViewQuery    = "query"
)

const defaultSearchLimit = 24

// Base: базовые обработчики маршрутов.
type Base struct {
	platform    Platform
	searchLimit int
}

// NewBase создаёт базовые обработчики.
func NewBase(platform Platform) *Base {
	return &Base{platform: platform, searchLimit: defaultSearchLimit}
}

// Register назначает базовые обработчики маршрутам.
func (b *Base) Register(p *pipeline.Pipeline) {
	p.Handle(pipeline.ProductShow, b.ProductShow)
	p.Handle(pipeline.TileShow, b.TileShow)
	p.Handle(pipeline.SearchUpdateGrid, b.SearchUpdateGrid)
	p.Handle(pipeline.CheckoutBegin, b.CheckoutBegin)
	p.Handle(pipeline.PlaceOrder, b.PlaceOrder)
	p.Handle(pipeline.OrderConfirm, b.OrderConfirm)
	p.Handle(pipeline.ConfirmationTemplate, b.OrderConfirm)
}

func customerID(ctx context.Context) (string, error) {
	id, ok := auth.CustomerID(ctx)
	if !ok {
		return "", fmt.Errorf("no customer session: %w", apperr.ErrNotFound)
	}
	return id, nil
}

// ProductShow загружает товар.
func (b *Base) ProductShow(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	pr, err := b.platform.Product(ctx, chi.URLParam(s.Request, "productID"))
	if err != nil {
		return pipeline.Done, err
	}
	s.Product = pr
	s.Products = append(s.Products, pr)
	s.Set(ViewProduct, pr)
	return pipeline.Next, nil
}

// TileShow загружает товар для плитки.
func (b *Base) TileShow(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	return b.ProductShow(ctx, s)
}

// SearchUpdateGrid загружает страницу результатов поиска.
func (b *Base) SearchUpdateGrid(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	q := s.Request.URL.Query().Get("q")
	products, err := b.platform.Search(ctx, q, b.searchLimit)
	if err != nil {
		return pipeline.Done, err
	}
	s.Products = products
	s.Set(ViewQuery, q)
	s.Set(ViewProducts, products)
	return pipeline.Next, nil
}

func (b *Base) loadCustomer(ctx context.Context, s *pipeline.State) error {
	id, err := customerID(ctx)
	if err != nil {
		return err
	}
	c, err := b.platform.Customer(ctx, id)
	if err != nil {
		return err
	}
	bk, err := b.platform.Basket(ctx, id)
	if err != nil {
		return err
	}
	s.Customer = c
	s.Basket = bk
	return nil
}

// CheckoutBegin открывает оформление. Пустая корзина завершает маршрут.
func (b *Base) CheckoutBegin(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	if err := b.loadCustomer(ctx, s); err != nil {
		return pipeline.Done, err
	}
	s.Set(ViewCustomer, s.Customer)
	s.Set(ViewBasket, s.Basket)
	if len(s.Basket.Items) == 0 {
		s.Status = http.StatusConflict
		s.Set(ViewError, ErrEmptyBasket.Error())
		return pipeline.Done, nil
	}
	return pipeline.Next, nil
}

// PlaceOrder оформляет заказ.
func (b *Base) PlaceOrder(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	if err := b.loadCustomer(ctx, s); err != nil {
		return pipeline.Done, err
	}
	if s.Customer.Email == "" {
		s.Status = http.StatusBadRequest
		s.Set(ViewError, "customer email is required")
		return pipeline.Done, nil
	}

	o, err := b.platform.PlaceOrder(ctx, s.Customer.ID, s.Locale, remoteIP(s.Request))
	if errors.Is(err, ErrEmptyBasket) {
		s.Status = http.StatusConflict
		s.Set(ViewError, err.Error())
		return pipeline.Done, nil
	}
	if err != nil {
		return pipeline.Done, err
	}
	s.Order = o
	s.Status = http.StatusCreated
	s.Set(ViewOrder, o)
	return pipeline.Next, nil
}

// OrderConfirm загружает заказ текущего покупателя.
func (b *Base) OrderConfirm(ctx context.Context, s *pipeline.State) (pipeline.Outcome, error) {
	id, err := customerID(ctx)
	if err != nil {
		return pipeline.Done, err
	}
	orderNo := chi.URLParam(s.Request, "orderNo")
	o, err := b.platform.Order(ctx, orderNo)
	if err != nil {
		return pipeline.Done, err
	}
	if o.CustomerID != id {
		return pipeline.Done, fmt.Errorf("order %s: %w", orderNo, apperr.ErrNotFound)
	}
	s.Order = o
	s.Set(ViewOrder, o)
	return pipeline.Next, nil
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
