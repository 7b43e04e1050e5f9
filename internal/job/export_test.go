package job

import (
	"context"
	"errors"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/model"
)

type fakeStore struct {
	pending map[string][]*model.Order
	limits  map[string]int
	marked  map[string][]string
	loadErr error
	markErr error
}

func newFakeStore(orders ...*model.Order) *fakeStore {
	return &fakeStore{
		pending: map[string][]*model.Order{model.TargetReviews: orders, model.TargetLoyalty: orders},
		limits:  map[string]int{},
		marked:  map[string][]string{},
	}
}

func (s *fakeStore) PendingOrders(_ context.Context, target string, limit int) ([]*model.Order, error) {
	s.limits[target] = limit
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	var out []*model.Order
	for _, o := range s.pending[target] {
		if slices.Contains(s.marked[target], o.OrderNo) {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *fakeStore) MarkExported(_ context.Context, target string, nos []string, _ time.Time) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked[target] = append(s.marked[target], nos...)
	sort.Strings(s.marked[target])
	return nil
}

type fakeSettings map[string]config.LocaleConfig

func (f fakeSettings) ForLocale(id string) (config.LocaleConfig, bool) {
	lc, ok := f[id]
	return lc, ok
}

type fakeExporter struct {
	fail  map[string]bool
	calls map[string][]string
}

func (e *fakeExporter) ExportOrders(_ context.Context, lc config.LocaleConfig, orders []*model.Order) error {
	if e.calls == nil {
		e.calls = map[string][]string{}
	}
	e.calls[lc.Locale] = append(e.calls[lc.Locale], orderNos(orders)...)
	if e.fail[lc.Locale] {
		return errors.New("yotpo unavailable")
	}
	return nil
}

func (e *fakeExporter) SendOrder(ctx context.Context, lc config.LocaleConfig, o *model.Order) error {
	return e.ExportOrders(ctx, lc, []*model.Order{o})
}

var testSettings = fakeSettings{
	"en_US": {Locale: "en_US", AppKey: "us", PurchaseExportEnabled: true, LoyaltyEnabled: true},
	"de_DE": {Locale: "de_DE", AppKey: "de", PurchaseExportEnabled: true},
	"fr_FR": {Locale: "fr_FR", AppKey: "fr"},
}

func testOrders() []*model.Order {
	return []*model.Order{
		{OrderNo: "1", Locale: "en_US"},
		{OrderNo: "2", Locale: "de_DE"},
		{OrderNo: "3", Locale: "fr_FR"},
		{OrderNo: "4", Locale: "ja_JP"},
		{OrderNo: "5", Locale: "en_US"},
	}
}

func newStep() *StepExecution {
	return &StepExecution{StepID: "test", JobExecution: &JobExecution{Context: ExecutionContext{}}}
}

func TestExportOrdersStep_AllLocalesSucceed(t *testing.T) {
	store := newFakeStore(testOrders()...)
	exp := &fakeExporter{}
	step := newStep()

	status := ExportOrdersStep(store, testSettings, exp, zap.NewNop())(context.Background(), Parameters{ParamBatchSize: 50}, step)

	assert.Equal(t, CodeOK, status.Code)
	assert.Equal(t, 50, store.limits[model.TargetReviews])
	assert.Equal(t, []string{"1", "5"}, exp.calls["en_US"])
	assert.Equal(t, []string{"2"}, exp.calls["de_DE"])
	assert.NotContains(t, exp.calls, "fr_FR")
	// Заказы выключенных и ненастроенных локалей тоже снимаются с очереди.
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, store.marked[model.TargetReviews])
	assert.Equal(t, 3, step.Context()[contextExported])
	assert.NotContains(t, step.Context(), DisplayErrorInBm)
	assert.Equal(t, CodeOK, CheckForAndSurfaceErrors(nil, step).Code)
}

func TestExportOrdersStep_LocaleFailureSetsFlag(t *testing.T) {
	store := newFakeStore(testOrders()...)
	exp := &fakeExporter{fail: map[string]bool{"de_DE": true}}
	step := newStep()

	status := ExportOrdersStep(store, testSettings, exp, zap.NewNop())(context.Background(), nil, step)

	assert.Equal(t, CodeOK, status.Code)
	assert.Equal(t, defaultBatchSize, store.limits[model.TargetReviews])
	assert.Equal(t, []string{"1", "3", "4", "5"}, store.marked[model.TargetReviews])
	assert.Equal(t, true, step.Context()[DisplayErrorInBm])
	assert.Equal(t, []string{"de_DE"}, step.Context()[contextFailedLocale])
	assert.Equal(t, CodeError, CheckForAndSurfaceErrors(nil, step).Code)
}

func TestExportOrdersStep_FailingLocaleDoesNotBlockQueue(t *testing.T) {
	settings := fakeSettings{
		"de_DE": {Locale: "de_DE", AppKey: "de", PurchaseExportEnabled: true},
		"fr_FR": {Locale: "fr_FR", AppKey: "fr", PurchaseExportEnabled: true},
	}
	store := newFakeStore(
		&model.Order{OrderNo: "d1", Locale: "de_DE"},
		&model.Order{OrderNo: "d2", Locale: "de_DE"},
		&model.Order{OrderNo: "d3", Locale: "de_DE"},
		&model.Order{OrderNo: "f1", Locale: "fr_FR"},
	)
	exp := &fakeExporter{fail: map[string]bool{"de_DE": true}}
	step := newStep()

	status := ExportOrdersStep(store, settings, exp, zap.NewNop())(context.Background(), Parameters{ParamBatchSize: 3}, step)

	assert.Equal(t, CodeOK, status.Code)
	assert.Equal(t, []string{"f1"}, exp.calls["fr_FR"])
	// Упавшая локаль вызывается один раз за запуск.
	assert.Equal(t, []string{"d1", "d2", "d3"}, exp.calls["de_DE"])
	assert.Equal(t, []string{"f1"}, store.marked[model.TargetReviews])
	assert.Equal(t, 1, step.Context()[contextExported])
	assert.Equal(t, []string{"de_DE"}, step.Context()[contextFailedLocale])
	assert.Equal(t, true, step.Context()[DisplayErrorInBm])
}

func TestExportOrdersStep_DrainsQueueInPages(t *testing.T) {
	var orders []*model.Order
	for _, no := range []string{"a", "b", "c", "d", "e"} {
		orders = append(orders, &model.Order{OrderNo: no, Locale: "en_US"})
	}
	store := newFakeStore(orders...)
	exp := &fakeExporter{}
	step := newStep()

	status := ExportOrdersStep(store, testSettings, exp, zap.NewNop())(context.Background(), Parameters{ParamBatchSize: 2}, step)

	assert.Equal(t, CodeOK, status.Code)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, exp.calls["en_US"])
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, store.marked[model.TargetReviews])
	assert.Equal(t, 5, step.Context()[contextExported])
}

func TestExportOrdersStep_LoadFailure(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("db down")
	step := newStep()

	status := ExportOrdersStep(store, testSettings, &fakeExporter{}, zap.NewNop())(context.Background(), nil, step)
	assert.True(t, status.IsError())
	assert.Equal(t, true, step.Context()[DisplayErrorInBm])
}

func TestExportOrdersStep_MarkFailure(t *testing.T) {
	store := newFakeStore(testOrders()...)
	store.markErr = errors.New("db down")
	step := newStep()

	status := ExportOrdersStep(store, testSettings, &fakeExporter{}, zap.NewNop())(context.Background(), nil, step)
	assert.Equal(t, CodeOK, status.Code)
	assert.Equal(t, true, step.Context()[DisplayErrorInBm])
}

func TestExportLoyaltyOrdersStep(t *testing.T) {
	store := newFakeStore(testOrders()...)
	sender := &fakeExporter{fail: map[string]bool{}}
	step := newStep()

	status := ExportLoyaltyOrdersStep(store, testSettings, sender, zap.NewNop())(context.Background(), nil, step)

	assert.Equal(t, CodeOK, status.Code)
	assert.Equal(t, []string{"1", "5"}, sender.calls["en_US"])
	assert.NotContains(t, sender.calls, "de_DE")
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, store.marked[model.TargetLoyalty])
	assert.Equal(t, 2, step.Context()[contextLoyaltySent])
	assert.NotContains(t, step.Context(), DisplayErrorInBm)
}

func TestExportLoyaltyOrdersStep_FailureKeepsOrderPending(t *testing.T) {
	store := newFakeStore(testOrders()...)
	sender := &fakeExporter{fail: map[string]bool{"en_US": true}}
	step := newStep()

	ExportLoyaltyOrdersStep(store, testSettings, sender, zap.NewNop())(context.Background(), nil, step)

	assert.Equal(t, []string{"2", "3", "4"}, store.marked[model.TargetLoyalty])
	assert.Equal(t, true, step.Context()[DisplayErrorInBm])
}

func TestExportLoyaltyOrdersStep_FailingOrdersDoNotBlockQueue(t *testing.T) {
	settings := fakeSettings{
		"en_US": {Locale: "en_US", AppKey: "us", LoyaltyEnabled: true},
		"en_GB": {Locale: "en_GB", AppKey: "gb", LoyaltyEnabled: true},
	}
	store := newFakeStore(
		&model.Order{OrderNo: "u1", Locale: "en_US"},
		&model.Order{OrderNo: "u2", Locale: "en_US"},
		&model.Order{OrderNo: "g1", Locale: "en_GB"},
	)
	sender := &fakeExporter{fail: map[string]bool{"en_US": true}}
	step := newStep()

	status := ExportLoyaltyOrdersStep(store, settings, sender, zap.NewNop())(context.Background(), Parameters{ParamBatchSize: 2}, step)

	assert.Equal(t, CodeOK, status.Code)
	assert.Equal(t, []string{"g1"}, sender.calls["en_GB"])
	assert.Equal(t, []string{"u1", "u2"}, sender.calls["en_US"])
	assert.Equal(t, []string{"g1"}, store.marked[model.TargetLoyalty])
	assert.Equal(t, 1, step.Context()[contextLoyaltySent])
	assert.Equal(t, true, step.Context()[DisplayErrorInBm])
}

func TestNewExportJob(t *testing.T) {
	j := NewExportJob(newFakeStore(), testSettings, &fakeExporter{}, nil, 10, zap.NewNop())
	require.Len(t, j.Steps, 2)
	assert.Equal(t, StepExportOrders, j.Steps[0].ID)
	assert.Equal(t, StepSurfaceErrors, j.Steps[1].ID)

	j = NewExportJob(newFakeStore(), testSettings, &fakeExporter{}, &fakeExporter{}, 10, zap.NewNop())
	require.Len(t, j.Steps, 3)
	assert.Equal(t, StepExportLoyalty, j.Steps[1].ID)
	assert.Equal(t, 10, j.Steps[1].Params.Int(ParamBatchSize, 0))
}
