package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"orderbot/apperr"
	"orderbot/core/logger"
)

const uniqueViolation = "23505"

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a Repository backed by the users table.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, a *Account) error {
	const q = `
		INSERT INTO users (chat_id, telegram_username, first_name, last_name, phone, registered_at)
		VALUES (:chat_id, :telegram_username, :first_name, :last_name, :phone, :registered_at)`

	if _, err := r.db.NamedExecContext(ctx, q, a); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if logger.SVCUsers != nil {
				logger.SVCUsers.Debug("insert conflict",
					slog.String("event", "user.duplicate"),
					slog.String("constraint", pqErr.Constraint),
				)
			}
			switch pqErr.Constraint {
			case "users_pkey":
				return apperr.Wrap(apperr.KindAlreadyExists, "chat identity already registered", err)
			case "users_phone_key":
				return apperr.Wrap(apperr.KindAlreadyExists, "phone already bound to another account", err)
			}
			return apperr.Wrap(apperr.KindAlreadyExists, "account already exists", err)
		}
		return apperr.Wrap(apperr.KindPersistence, "insert user", err)
	}
	return nil
}

func (r *postgresRepository) FindByChatID(ctx context.Context, chatID int64) (*Account, error) {
	const q = `SELECT chat_id, telegram_username, first_name, last_name, phone, registered_at
		FROM users WHERE chat_id = $1`

	var a Account
	if err := r.db.GetContext(ctx, &a, q, chatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.KindNotFound, "account %d not found", chatID)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "find user by chat id", err)
	}
	return &a, nil
}

func (r *postgresRepository) FindByPhone(ctx context.Context, phone string) (*Account, error) {
	const q = `SELECT chat_id, telegram_username, first_name, last_name, phone, registered_at
		FROM users WHERE phone = $1`

	var a Account
	if err := r.db.GetContext(ctx, &a, q, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.KindNotFound, "no account with phone %s", phone)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "find user by phone", err)
	}
	return &a, nil
}

func (r *postgresRepository) ExistsByChatID(ctx context.Context, chatID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE chat_id = $1)`, chatID); err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, fmt.Sprintf("exists check for chat %d", chatID), err)
	}
	return exists, nil
}

func (r *postgresRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1)`, phone); err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, "exists check for phone", err)
	}
	return exists, nil
}
