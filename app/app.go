// Package app assembles the order bot: configuration, storage, the
// domain services, and the Telegram runtime options.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"orderbot/bot"
	"orderbot/core/bootstrap"
	coretelegram "orderbot/core/telegram"
	"orderbot/core/telegram/state"
	"orderbot/order"
	"orderbot/user"
)

// App holds everything needed to run the bot.
type App struct {
	cfg *Config
	db  *sqlx.DB
	bot *bot.Bot
}

// directoryProvider builds the user directory over the shared storage.
var directoryProvider = bootstrap.TypedServiceProviderFunc[*user.Directory](
	func(_ context.Context, _ interface{}, storage bootstrap.Storage) (*user.Directory, error) {
		db, ok := storage.(*sqlx.DB)
		if !ok {
			return nil, fmt.Errorf("user directory: unexpected storage %T", storage)
		}
		return user.NewDirectory(user.NewPostgresRepository(db)), nil
	},
)

// ledgerProvider builds the order ledger over the shared storage.
var ledgerProvider = bootstrap.TypedServiceProviderFunc[*order.Ledger](
	func(_ context.Context, _ interface{}, storage bootstrap.Storage) (*order.Ledger, error) {
		db, ok := storage.(*sqlx.DB)
		if !ok {
			return nil, fmt.Errorf("order ledger: unexpected storage %T", storage)
		}
		return order.NewLedger(order.NewPostgresRepository(db)), nil
	},
)

// Bootstrap initializes logging, storage, and migrations, then wires the
// domain services and the bot surface.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	users, err := directoryProvider.ProvideTyped(ctx, cfg, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	orders, err := ledgerProvider.ProvideTyped(ctx, cfg, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	return &App{
		cfg: cfg,
		db:  res.DB,
		bot: bot.New(cfg.CoreConfig(), users, orders, state.NewMemoryStore()),
	}, nil
}

// TelegramRunOptions builds the runtime options consumed by the shared
// Telegram runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.bot.Registry(),
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      a.bot.Routes(),
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
