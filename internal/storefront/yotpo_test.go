package storefront

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/model"
	"github.com/Totarae/YotpoBridge/internal/pipeline"
	"github.com/Totarae/YotpoBridge/internal/render"
	"github.com/Totarae/YotpoBridge/internal/yotpo"
)

type fakeSettings map[string]config.LocaleConfig

func (f fakeSettings) ForLocale(id string) (config.LocaleConfig, bool) {
	lc, ok := f[id]
	return lc, ok
}

var fullLocale = config.LocaleConfig{
	Locale:                    "en_US",
	AppKey:                    "app-us",
	ReviewsEnabled:            true,
	RatingsEnabled:            true,
	ConversionTrackingEnabled: true,
	LoyaltyEnabled:            true,
	LoyaltyAPIKey:             "k",
	LoyaltyGUID:               "g",
}

type fakeLoyalty struct {
	sendErr    error
	detailsErr error
	sent       []string
	synced     []string
}

func (f *fakeLoyalty) SendOrder(_ context.Context, _ config.LocaleConfig, o *model.Order) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, o.OrderNo)
	return nil
}

func (f *fakeLoyalty) SyncCustomer(_ context.Context, _ config.LocaleConfig, c *model.Customer) error {
	f.synced = append(f.synced, c.ID)
	return nil
}

func (f *fakeLoyalty) CustomerDetails(_ context.Context, _ config.LocaleConfig, email string) (*yotpo.CustomerDetails, error) {
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	return &yotpo.CustomerDetails{Email: email, PointsBalance: 120, VIPTierName: "Gold"}, nil
}

type fakeMarker struct {
	marked map[string][]string
	err    error
}

func (f *fakeMarker) MarkExported(_ context.Context, target string, nos []string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	if f.marked == nil {
		f.marked = map[string][]string{}
	}
	f.marked[target] = append(f.marked[target], nos...)
	return nil
}

type brokenRenderer struct{}

func (brokenRenderer) Render(name string, _ any) render.Fragment {
	return render.Fragment{Name: name, Outcome: render.Unavailable}
}

type fixedCoupons model.CouponStatusCode

func (f fixedCoupons) CouponStatus(context.Context, string, string) model.CouponStatusCode {
	return model.CouponStatusCode(f)
}

func newEnricher(t *testing.T, loyalty LoyaltyClient, marker OrderMarker) (*Enricher, *observer.ObservedLogs) {
	t.Helper()
	r, err := render.New(zap.NewNop())
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	return NewEnricher(fakeSettings{"en_US": fullLocale}, loyalty, r, marker, fixedCoupons(model.CouponApplied), zap.New(core)), logs
}

func stateFor(localeID string) *pipeline.State {
	return pipeline.NewState(httptest.NewRequest(http.MethodGet, "/", nil), localeID)
}

func testOrder() *model.Order {
	return &model.Order{
		OrderNo:       "00001001",
		CustomerID:    "c-reg",
		CustomerEmail: "jane@example.com",
		Currency:      "USD",
		Locale:        "en_US",
		Total:         decimal.RequireFromString("59.97"),
	}
}

func TestEnricher_ProductPage(t *testing.T) {
	e, _ := newEnricher(t, nil, &fakeMarker{})
	s := stateFor("en_US")
	s.Product = &model.Product{ID: "P-1", Name: "Wool Socks", Price: decimal.RequireFromString("19.99")}
	s.Products = []*model.Product{s.Product}

	_, err := e.ReviewsWidget(context.Background(), s)
	require.NoError(t, err)
	_, err = e.Ratings(context.Background(), s)
	require.NoError(t, err)

	widget, ok := s.Get(ViewReviewsWidget)
	require.True(t, ok)
	assert.Contains(t, string(widget.(template.HTML)), `data-product-id="P-1"`)

	ratings, ok := s.Get(ViewRatings)
	require.True(t, ok)
	assert.Contains(t, ratings.(map[string]template.HTML), "P-1")
}

func TestEnricher_UnconfiguredLocaleAddsNothing(t *testing.T) {
	e, _ := newEnricher(t, &fakeLoyalty{}, &fakeMarker{})
	s := stateFor("ja_JP")
	s.Product = &model.Product{ID: "P-1"}
	s.Products = []*model.Product{s.Product}
	s.Order = &model.Order{OrderNo: "1", Locale: "ja_JP"}

	for _, h := range []pipeline.Handler{e.ReviewsWidget, e.Ratings, e.ConversionTracking, e.SendLoyaltyOrder} {
		outcome, err := h(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, pipeline.Next, outcome)
	}
	assert.Empty(t, s.View)
}

func TestEnricher_RenderFailureHidesFragment(t *testing.T) {
	e := NewEnricher(fakeSettings{"en_US": fullLocale}, nil, brokenRenderer{}, &fakeMarker{}, nil, zap.NewNop())
	s := stateFor("en_US")
	s.Order = testOrder()

	outcome, err := e.ConversionTracking(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Next, outcome)
	assert.NotContains(t, s.View, ViewConversionTracking)
}

func TestEnricher_ConversionTrackingUsesOrderLocale(t *testing.T) {
	e, _ := newEnricher(t, nil, &fakeMarker{})
	s := stateFor("default")
	s.Order = testOrder()

	_, err := e.ConversionTracking(context.Background(), s)
	require.NoError(t, err)
	html, ok := s.Get(ViewConversionTracking)
	require.True(t, ok)
	assert.Contains(t, string(html.(template.HTML)), "app_key=app-us")
}

func TestEnricher_LoyaltyPanel(t *testing.T) {
	e, _ := newEnricher(t, &fakeLoyalty{}, &fakeMarker{})
	s := stateFor("en_US")
	s.Customer = &model.Customer{ID: "c-reg", Email: "jane@example.com"}
	s.Basket = &model.Basket{CustomerID: "c-reg", CouponCodes: []string{"WELCOME"}}

	_, err := e.LoyaltyPanel(context.Background(), s)
	require.NoError(t, err)
	_, err = e.LoyaltyCoupons(context.Background(), s)
	require.NoError(t, err)

	panel, ok := s.Get(ViewLoyaltyPanel)
	require.True(t, ok)
	assert.Contains(t, string(panel.(template.HTML)), "Gold")

	coupons, ok := s.Get(ViewLoyaltyCoupons)
	require.True(t, ok)
	assert.Equal(t, []CouponView{{Code: "WELCOME", Status: model.CouponApplied}}, coupons)
}

func TestEnricher_LoyaltyPanelHiddenOnError(t *testing.T) {
	e, logs := newEnricher(t, &fakeLoyalty{detailsErr: apperr.ErrTransport}, &fakeMarker{})
	s := stateFor("en_US")
	s.Customer = &model.Customer{ID: "c-reg", Email: "jane@example.com"}

	outcome, err := e.LoyaltyPanel(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Next, outcome)
	assert.NotContains(t, s.View, ViewLoyaltyPanel)

	entries := logs.FilterMessage("Loyalty panel unavailable").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "transport", entries[0].ContextMap()["error_kind"])
}

func TestEnricher_SendLoyaltyOrder(t *testing.T) {
	loyalty := &fakeLoyalty{}
	marker := &fakeMarker{}
	e, _ := newEnricher(t, loyalty, marker)
	s := stateFor("en_US")
	s.Customer = &model.Customer{ID: "c-reg", Email: "jane@example.com", Registered: true}
	s.Order = testOrder()

	_, err := e.SendLoyaltyOrder(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"c-reg"}, loyalty.synced)
	assert.Equal(t, []string{"00001001"}, loyalty.sent)
	assert.Equal(t, []string{"00001001"}, marker.marked[model.TargetLoyalty])
}

func TestEnricher_SendLoyaltyOrderFailureIsIsolated(t *testing.T) {
	loyalty := &fakeLoyalty{sendErr: errors.New("timeout")}
	marker := &fakeMarker{}
	e, logs := newEnricher(t, loyalty, marker)
	s := stateFor("en_US")
	s.Customer = &model.Customer{ID: "guest", Email: "g@example.com"}
	s.Order = testOrder()
	s.Status = http.StatusCreated

	outcome, err := e.SendLoyaltyOrder(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Next, outcome)
	assert.Equal(t, http.StatusCreated, s.Status)
	assert.Empty(t, loyalty.synced)
	assert.Empty(t, marker.marked)
	assert.Equal(t, 1, logs.FilterMessage("Loyalty order deferred to export job").Len())
}

func TestEnricher_RegisterOrder(t *testing.T) {
	p := pipeline.New()
	NewBase(nil).Register(p)
	e, _ := newEnricher(t, nil, &fakeMarker{})
	e.Register(p)

	assert.Equal(t, 3, p.Len(pipeline.ProductShow))
	assert.Equal(t, 3, p.Len(pipeline.CheckoutBegin))
	assert.Equal(t, 2, p.Len(pipeline.ConfirmationTemplate))
}
