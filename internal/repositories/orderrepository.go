package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/database"
	"github.com/Totarae/YotpoBridge/internal/model"
)

// OrderRepository хранит заказы в PostgreSQL. Заказ целиком лежит в payload,
// отметки выгрузки вынесены в отдельные колонки.
type OrderRepository struct {
	DB database.Querier
}

// NewOrderRepository создаёт новый экземпляр OrderRepository.
func NewOrderRepository(db database.Querier) *OrderRepository {
	return &OrderRepository{DB: db}
}

func targetColumn(target string) (string, error) {
	switch target {
	case model.TargetReviews:
		return "exported_at", nil
	case model.TargetLoyalty:
		return "loyalty_at", nil
	default:
		return "", fmt.Errorf("unknown export target %q", target)
	}
}

// SaveOrder сохраняет заказ. Повторное сохранение обновляет payload,
// отметки выгрузки не сбрасываются.
func (r *OrderRepository) SaveOrder(ctx context.Context, o *model.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.OrderNo, err)
	}

	query := `INSERT INTO orders (order_no, locale, customer_email, payload, created_at, exported_at, loyalty_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              ON CONFLICT (order_no) DO UPDATE
              SET locale = EXCLUDED.locale,
                  customer_email = EXCLUDED.customer_email,
                  payload = EXCLUDED.payload`
	_, err = r.DB.Exec(ctx, query, o.OrderNo, o.Locale, o.CustomerEmail, payload, o.CreatedAt, o.ExportedAt, o.LoyaltyAt)
	if err != nil {
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по номеру.
func (r *OrderRepository) GetOrder(ctx context.Context, orderNo string) (*model.Order, error) {
	query := `SELECT payload, exported_at, loyalty_at FROM orders WHERE order_no = $1`
	o, err := scanOrder(r.DB.QueryRow(ctx, query, orderNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderNo, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return o, nil
}

// PendingOrders возвращает заказы, ещё не переданные в target.
func (r *OrderRepository) PendingOrders(ctx context.Context, target string, limit int) ([]*model.Order, error) {
	column, err := targetColumn(target)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT payload, exported_at, loyalty_at FROM orders
              WHERE %s IS NULL
              ORDER BY created_at, order_no
              LIMIT $1`, column)
	rows, err := r.DB.Query(ctx, query, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending orders: %w", err)
	}
	defer rows.Close()

	var results []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending orders: %w", err)
	}
	return results, nil
}

// MarkExported отмечает передачу заказов в target одним запросом.
func (r *OrderRepository) MarkExported(ctx context.Context, target string, orderNos []string, at time.Time) error {
	if len(orderNos) == 0 {
		return nil
	}
	column, err := targetColumn(target)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE orders SET %s = $1 WHERE order_no = ANY($2)`, column)
	if _, err := r.DB.Exec(ctx, query, at, orderNos); err != nil {
		return fmt.Errorf("failed to mark orders as exported: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		payload    []byte
		exportedAt *time.Time
		loyaltyAt  *time.Time
	)
	if err := row.Scan(&payload, &exportedAt, &loyaltyAt); err != nil {
		return nil, err
	}
	o := &model.Order{}
	if err := json.Unmarshal(payload, o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	o.ExportedAt = exportedAt
	o.LoyaltyAt = loyaltyAt
	return o, nil
}

// limitArg превращает неположительный лимит в NULL: LIMIT NULL не ограничивает выборку.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
