package router

import (
	"time"

	tg "orderbot/core/telegram"
	"orderbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dialogs is the minimal contract for a multi-step dialog engine.
// An active dialog owns every message from its chat, whatever the content.
type Dialogs interface {
	InProgress(chatID int64) bool
	Resume(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates that match
// neither an active dialog nor a registered command.
type TextOptions struct {
	Fallback tele.HandlerFunc
}

// TextRoute builds the handler for incoming text. Routing precedence:
// active dialog first, then registered commands, then the fallback.
func TextRoute(dialogs Dialogs, reg *tg.Registry, opts TextOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if dialogs != nil && c.Chat() != nil && dialogs.InProgress(c.Chat().ID) {
			return handleWithSummary(c, "dialog", start, "", "", func() error {
				return dialogs.Resume(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.Fallback != nil {
			return handleWithSummary(c, "fallback", start, "", "", func() error {
				return opts.Fallback(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	return tg.Route{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
