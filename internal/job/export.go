package job

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/model"
)

// Идентификаторы заданий и шагов.
const (
	ExportJobID         = "yotpo-export-orders"
	StepExportOrders    = "ExportOrders"
	StepExportLoyalty   = "ExportLoyaltyOrders"
	StepSurfaceErrors   = "CheckForAndSurfaceErrors"
	ParamBatchSize      = "batchSize"
	defaultBatchSize    = 100
	contextExported     = "exportedOrders"
	contextLoyaltySent  = "loyaltyOrders"
	contextFailedLocale = "failedLocales"
)

// OrderStore: заказы, ожидающие выгрузки.
type OrderStore interface {
	PendingOrders(ctx context.Context, target string, limit int) ([]*model.Order, error)
	MarkExported(ctx context.Context, target string, orderNos []string, at time.Time) error
}

// LocaleResolver отдаёт настройки Yotpo по локали заказа.
type LocaleResolver interface {
	ForLocale(id string) (config.LocaleConfig, bool)
}

// PurchaseExporter выгружает заказы в Yotpo Reviews.
type PurchaseExporter interface {
	ExportOrders(ctx context.Context, lc config.LocaleConfig, orders []*model.Order) error
}

// LoyaltySender передаёт заказ в Yotpo Loyalty.
type LoyaltySender interface {
	SendOrder(ctx context.Context, lc config.LocaleConfig, o *model.Order) error
}

type localeBatch struct {
	cfg    config.LocaleConfig
	orders []*model.Order
}

// groupByLocale раскладывает заказы по настроенным локалям. Заказы локалей,
// где направление выключено, возвращаются отдельно: выгружать их не нужно.
func groupByLocale(orders []*model.Order, settings LocaleResolver, enabled func(config.LocaleConfig) bool) ([]localeBatch, []string) {
	byLocale := make(map[string]*localeBatch)
	var skipped []string
	for _, o := range orders {
		lc, ok := settings.ForLocale(o.Locale)
		if !ok || !enabled(lc) {
			skipped = append(skipped, o.OrderNo)
			continue
		}
		b, ok := byLocale[lc.Locale]
		if !ok {
			b = &localeBatch{cfg: lc}
			byLocale[lc.Locale] = b
		}
		b.orders = append(b.orders, o)
	}

	keys := make([]string, 0, len(byLocale))
	for k := range byLocale {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batches := make([]localeBatch, 0, len(keys))
	for _, k := range keys {
		batches = append(batches, *byLocale[k])
	}
	return batches, skipped
}

func orderNos(orders []*model.Order) []string {
	nos := make([]string, 0, len(orders))
	for _, o := range orders {
		nos = append(nos, o.OrderNo)
	}
	return nos
}

// ExportOrdersStep выгружает ожидающие заказы в Reviews по локалям.
// Ошибка локали не прерывает шаг: она отмечается флагом DisplayErrorInBm,
// а заказы остаются в очереди до следующего запуска.
func ExportOrdersStep(store OrderStore, settings LocaleResolver, exporter PurchaseExporter, logger *zap.Logger) StepFunc {
	return func(ctx context.Context, params Parameters, step *StepExecution) Status {
		ec := step.Context()
		var failed []string
		exported := 0
		err := drainPending(ctx, store, model.TargetReviews, params.Int(ParamBatchSize, defaultBatchSize), func(page []*model.Order) ([]string, []string) {
			batches, done := groupByLocale(page, settings, func(lc config.LocaleConfig) bool {
				return lc.PurchaseExportEnabled
			})
			var held []string
			for _, b := range batches {
				// Упавшая локаль до конца запуска не повторяется.
				if slices.Contains(failed, b.cfg.Locale) {
					held = append(held, orderNos(b.orders)...)
					continue
				}
				if err := exporter.ExportOrders(ctx, b.cfg, b.orders); err != nil {
					logger.Error("Order export failed",
						zap.String("locale", b.cfg.Locale),
						zap.Int("orders", len(b.orders)),
						zap.String("error_kind", apperr.Kind(err)),
						zap.Error(err),
					)
					failed = append(failed, b.cfg.Locale)
					held = append(held, orderNos(b.orders)...)
					continue
				}
				exported += len(b.orders)
				done = append(done, orderNos(b.orders)...)
			}
			return done, held
		})
		switch {
		case errors.Is(err, errMarkExported):
			logger.Error("Failed to mark orders as exported", zap.Error(err))
			failed = append(failed, "*")
		case err != nil:
			logger.Error("Failed to load orders for export", zap.Error(err))
			if ec != nil {
				ec.MarkError()
			}
			return Error(err.Error())
		}

		if ec != nil {
			ec[contextExported] = exported
			if len(failed) > 0 {
				ec[contextFailedLocale] = failed
				ec.MarkError()
			}
		}
		return OK(fmt.Sprintf("exported %d orders, %d failed locales", exported, len(failed)))
	}
}

// ExportLoyaltyOrdersStep досылает в Loyalty заказы, которые не ушли при
// оформлении. Каждый заказ отправляется отдельно.
func ExportLoyaltyOrdersStep(store OrderStore, settings LocaleResolver, sender LoyaltySender, logger *zap.Logger) StepFunc {
	return func(ctx context.Context, params Parameters, step *StepExecution) Status {
		ec := step.Context()
		failures := 0
		sent := 0
		err := drainPending(ctx, store, model.TargetLoyalty, params.Int(ParamBatchSize, defaultBatchSize), func(page []*model.Order) ([]string, []string) {
			batches, done := groupByLocale(page, settings, func(lc config.LocaleConfig) bool {
				return lc.LoyaltyEnabled
			})
			var held []string
			for _, b := range batches {
				for _, o := range b.orders {
					if err := sender.SendOrder(ctx, b.cfg, o); err != nil {
						logger.Error("Loyalty order failed",
							zap.String("locale", b.cfg.Locale),
							zap.String("order_no", o.OrderNo),
							zap.String("error_kind", apperr.Kind(err)),
							zap.Error(err),
						)
						failures++
						held = append(held, o.OrderNo)
						continue
					}
					sent++
					done = append(done, o.OrderNo)
				}
			}
			return done, held
		})
		switch {
		case errors.Is(err, errMarkExported):
			logger.Error("Failed to mark loyalty orders", zap.Error(err))
			failures++
		case err != nil:
			logger.Error("Failed to load orders for loyalty", zap.Error(err))
			if ec != nil {
				ec.MarkError()
			}
			return Error(err.Error())
		}

		if ec != nil {
			ec[contextLoyaltySent] = sent
			if failures > 0 {
				ec.MarkError()
			}
		}
		return OK(fmt.Sprintf("sent %d loyalty orders, %d failed", sent, failures))
	}
}

var errMarkExported = errors.New("mark exported")

// drainPending выбирает ожидающие заказы страницами по limit, пока очередь
// не опустеет. Заказы, которые process вернул как отложенные, в этом запуске
// больше не выбираются, поэтому упавшая локаль не блокирует остальные.
// Выгруженные заказы отмечаются после каждой страницы.
func drainPending(ctx context.Context, store OrderStore, target string, limit int, process func(page []*model.Order) (done, held []string)) error {
	if limit <= 0 {
		limit = defaultBatchSize
	}
	held := make(map[string]struct{})
	for {
		fetch := limit + len(held)
		orders, err := store.PendingOrders(ctx, target, fetch)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		page := make([]*model.Order, 0, limit)
		for _, o := range orders {
			if _, ok := held[o.OrderNo]; ok || len(page) == limit {
				continue
			}
			page = append(page, o)
		}
		if len(page) == 0 {
			return nil
		}

		done, deferred := process(page)
		for _, no := range deferred {
			held[no] = struct{}{}
		}
		if len(done) > 0 {
			if err := store.MarkExported(ctx, target, done, time.Now().UTC()); err != nil {
				return fmt.Errorf("%w: %w", errMarkExported, err)
			}
		}
		if len(orders) < fetch {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// NewExportJob собирает задание выгрузки. Шаг Loyalty добавляется, если
// передан sender.
func NewExportJob(store OrderStore, settings LocaleResolver, exporter PurchaseExporter, sender LoyaltySender, batchSize int, logger *zap.Logger) Job {
	params := Parameters{ParamBatchSize: batchSize}
	steps := []Step{{ID: StepExportOrders, Params: params, Run: ExportOrdersStep(store, settings, exporter, logger)}}
	if sender != nil {
		steps = append(steps, Step{ID: StepExportLoyalty, Params: params, Run: ExportLoyaltyOrdersStep(store, settings, sender, logger)})
	}
	steps = append(steps, Step{ID: StepSurfaceErrors, Run: CheckForAndSurfaceErrorsStep})
	return Job{ID: ExportJobID, Steps: steps}
}
