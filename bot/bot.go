// Package bot wires the Telegram surface: the command and callback
// registry, menus, the free-text fallback, and the two dialog flows
// (registration and order creation).
package bot

import (
	"log/slog"

	"orderbot/bot/dialog"
	coreconfig "orderbot/core/config"
	"orderbot/core/logger"
	tg "orderbot/core/telegram"
	"orderbot/core/telegram/callbacks"
	"orderbot/core/telegram/commands"
	tghelpers "orderbot/core/telegram/helpers"
	"orderbot/core/telegram/router"
	"orderbot/core/telegram/state"
	"orderbot/core/telegram/ui"
	"orderbot/order"
	"orderbot/user"

	tele "gopkg.in/telebot.v4"
)

// Callback tokens. Order actions carry the order number as payload.
const (
	cbRegistration       = "registration"
	cbNonRegistration    = "non_registration"
	cbCancelRegistration = "cancel_registration"
	cbNewOrder           = "new_order"
	cbMyOrders           = "my_orders"
	cbMyProfile          = "my_profile"
	cbHelp               = "help"
	cbBackToMenu         = "back_to_menu"
	cbViewOrder          = "view_order"
	cbConfirmCancel      = "confirm_cancel"
)

// cancelText aborts any dialog when received verbatim.
const cancelText = "❌ Отмена"

// Bot assembles handlers over the directory, the ledger, and the dialog
// engine.
type Bot struct {
	cfg    *coreconfig.Config
	users  *user.Directory
	orders *order.Ledger
	engine *dialog.Engine
	reg    *tg.Registry
}

var _ ui.FallbackProvider = (*Bot)(nil)

// New builds the bot and registers its commands, callbacks, and flows.
func New(cfg *coreconfig.Config, users *user.Directory, orders *order.Ledger, sessions state.Store) *Bot {
	b := &Bot{
		cfg:    cfg,
		users:  users,
		orders: orders,
		engine: dialog.NewEngine(sessions),
		reg:    tg.NewRegistry(),
	}

	b.engine.RegisterFlow(b.registrationFlow())
	b.engine.RegisterFlow(b.orderFlow())

	b.reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "Главное меню",
	})
	b.reg.RegisterCommand("/help", commands.Command{
		Handler:     b.handleHelp,
		Description: "Помощь",
	})
	b.reg.RegisterCommand("/stats", commands.Command{
		Handler:     b.handleGlobalStats,
		Description: "Статистика по всем заказам",
		AdminOnly:   true,
		Hidden:      true,
	})

	for token, h := range map[string]tele.HandlerFunc{
		cbRegistration:       b.handleRegistrationStart,
		cbNonRegistration:    b.handleNonRegistration,
		cbCancelRegistration: b.handleCancelRegistration,
		cbNewOrder:           b.handleNewOrder,
		cbMyOrders:           b.handleMyOrders,
		cbMyProfile:          b.handleMyProfile,
		cbHelp:               b.handleHelp,
		cbBackToMenu:         b.handleBackToMenu,
		cbViewOrder:          b.handleViewOrder,
		cbConfirmCancel:      b.handleConfirmCancel,
	} {
		_ = b.reg.RegisterCallback(token, h)
	}

	b.reg.SetTextFallback(b.UnknownText())
	b.reg.SetCallbackNotFound(b.UnknownCallback())

	return b
}

// Registry exposes the command/callback registry for runtime wiring.
func (b *Bot) Registry() *tg.Registry { return b.reg }

// Routes returns every bot route: commands, text, and callbacks.
func (b *Bot) Routes() []tg.Route {
	routes := router.CommandRoutes(b.reg, router.CommandRouteOptions{
		AdminID: b.cfg.Telegram.AdminID,
	})
	// Command endpoints fire before OnText, so an active dialog has to
	// claim command-shaped messages here as well.
	for i := range routes {
		h := routes[i].Handler
		routes[i].Handler = func(c tele.Context) error {
			if chat := c.Chat(); chat != nil && b.engine.InProgress(chat.ID) {
				return b.engine.Resume(c)
			}
			return h(c)
		}
	}
	routes = append(routes, router.TextRoute(b.engine, b.reg, router.TextOptions{}))
	routes = append(routes, router.CallbackRoute(b.reg, router.CallbackOptions{}))
	return routes
}

// UnknownText routes free text that matched no command: order-number
// lookups, the bare-digits guidance, and the unknown-command reply.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return b.handleFreeText
}

// UnknownCallback logs unrecognized callback tokens without any
// user-visible reply; the callback itself is already acknowledged.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		logger.Warn(tghelpers.BuildContext(c), "tg", "callback.unknown",
			slog.String("cb_key", logger.SanitizeLimit(callbacks.CallbackKey(c), 128)),
		)
		return nil
	}
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

// senderHandle returns the placer's messaging username, used to attribute
// orders created before registration.
func senderHandle(c tele.Context) string {
	if u := c.Sender(); u != nil {
		return u.Username
	}
	return ""
}
