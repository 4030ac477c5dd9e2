package order

import (
	"context"
	"database/sql"
	"errors"

	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"orderbot/apperr"
	"orderbot/core/logger"
)

const uniqueViolation = "23505"

const orderColumns = `id, order_number, user_chat_id, telegram_username,
	customer_name, customer_phone, order_details, status, created_at`

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a Repository backed by the orders table.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	const q = `
		INSERT INTO orders (order_number, user_chat_id, telegram_username,
			customer_name, customer_phone, order_details, status, created_at)
		VALUES (:order_number, :user_chat_id, :telegram_username,
			:customer_name, :customer_phone, :order_details, :status, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, q, o); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "orders_order_number_key" {
			if logger.SVCOrders != nil {
				logger.SVCOrders.Debug("insert conflict",
					slog.String("event", "order.number_taken"),
					slog.String("order_number", o.Number),
				)
			}
			return apperr.Wrap(apperr.KindAlreadyExists, "order number collision", err)
		}
		return apperr.Wrap(apperr.KindPersistence, "insert order", err)
	}
	return nil
}

func (r *postgresRepository) FindByNumber(ctx context.Context, number string) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.KindNotFound, "order %s not found", number)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "find order by number", err)
	}
	return &o, nil
}

func (r *postgresRepository) ListByOwner(ctx context.Context, chatID int64) ([]Order, error) {
	var list []Order
	err := r.db.SelectContext(ctx, &list,
		`SELECT `+orderColumns+` FROM orders WHERE user_chat_id = $1 ORDER BY created_at DESC`, chatID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list orders by owner", err)
	}
	return list, nil
}

func (r *postgresRepository) ListByHandle(ctx context.Context, handle string) ([]Order, error) {
	var list []Order
	err := r.db.SelectContext(ctx, &list,
		`SELECT `+orderColumns+` FROM orders WHERE telegram_username = $1 ORDER BY created_at DESC`, handle)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list orders by handle", err)
	}
	return list, nil
}

// UpdateStatus relies on the conditional WHERE to keep concurrent
// transitions on the same order from losing updates.
func (r *postgresRepository) UpdateStatus(ctx context.Context, number string, from, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE order_number = $2 AND status = $3`, to, number, from)
	if err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, "update order status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, "update order status", err)
	}
	return n == 1, nil
}

const statsColumns = `
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = 'NEW') AS active,
	COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed`

func (r *postgresRepository) StatsByOwner(ctx context.Context, chatID int64) (Statistics, error) {
	var s Statistics
	err := r.db.GetContext(ctx, &s,
		`SELECT `+statsColumns+` FROM orders WHERE user_chat_id = $1`, chatID)
	if err != nil {
		return Statistics{}, apperr.Wrap(apperr.KindPersistence, "stats by owner", err)
	}
	return s, nil
}

func (r *postgresRepository) StatsByHandle(ctx context.Context, handle string) (Statistics, error) {
	var s Statistics
	err := r.db.GetContext(ctx, &s,
		`SELECT `+statsColumns+` FROM orders WHERE telegram_username = $1`, handle)
	if err != nil {
		return Statistics{}, apperr.Wrap(apperr.KindPersistence, "stats by handle", err)
	}
	return s, nil
}

func (r *postgresRepository) StatsGlobal(ctx context.Context) (Statistics, error) {
	var s Statistics
	if err := r.db.GetContext(ctx, &s, `SELECT `+statsColumns+` FROM orders`); err != nil {
		return Statistics{}, apperr.Wrap(apperr.KindPersistence, "global stats", err)
	}
	return s, nil
}
