package bot

import (
	"fmt"
	"strings"

	"orderbot/apperr"
	"orderbot/core/telegram/format"
	"orderbot/core/telegram/callbacks"
	tghelpers "orderbot/core/telegram/helpers"
	"orderbot/core/telegram/keyboard"
	"orderbot/order"
	"orderbot/user"

	tele "gopkg.in/telebot.v4"
)

const orderDateLayout = "02.01.2006 15:04"

const detailsPreviewLimit = 50

func orderNotFoundText(number string) string {
	return fmt.Sprintf("❌ Заказ с номером %s не найден!", number)
}

// handleMyOrders lists the placer's orders, newest first. A registered
// placer sees orders bound to the account; a guest sees orders matched
// by messaging handle.
func (b *Bot) handleMyOrders(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	owner, err := b.ownerRef(c)
	if err != nil {
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}

	list, err := b.orders.ListForPlacer(ctx, owner, senderHandle(c))
	if err != nil {
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
	if len(list) == 0 {
		return tghelpers.SendText(c, "📭 У вас пока нет заказов.",
			&tele.SendOptions{ReplyMarkup: backToMenuKeyboard()})
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Ваши заказы (%d):\n\n", len(list)))
	rows := make([][]keyboard.InlineBtn, 0, len(list)+1)
	for i, o := range list {
		sb.WriteString(fmt.Sprintf("%d. %s\n%s\n📦 %s\n🕐 %s\n\n",
			i+1, o.Number,
			o.Status.DisplayName(),
			truncate(o.Details, detailsPreviewLimit),
			o.CreatedAt.Format(orderDateLayout),
		))
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   fmt.Sprintf("%d. %s", i+1, o.Number),
			Unique: cbViewOrder,
			Data:   o.Number,
		}})
	}
	sb.WriteString("Отправьте номер заказа, чтобы посмотреть детали.")
	rows = append(rows, []keyboard.InlineBtn{{Text: "◀️ Назад в меню", Unique: cbBackToMenu}})

	return tghelpers.SendText(c, sb.String(),
		&tele.SendOptions{ReplyMarkup: keyboard.InlineButtonsRows(rows...)})
}

// handleViewOrder shows details for the order number carried in the
// callback payload.
func (b *Bot) handleViewOrder(c tele.Context) error {
	return b.showOrderDetails(c, callbacks.CallbackPayload(c))
}

func (b *Bot) showOrderDetails(c tele.Context, number string) error {
	ctx := tghelpers.BuildContext(c)
	o, err := b.orders.Get(ctx, number)
	if err != nil {
		if apperr.IsNotFound(err) {
			return tghelpers.SendText(c, orderNotFoundText(number))
		}
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}

	text := fmt.Sprintf("📦 Заказ *%s*\n\n"+
		"Статус: %s\n"+
		"👤 Имя: %s\n"+
		"📱 Телефон: %s\n"+
		"📝 Описание: %s\n"+
		"🕐 Создан: %s",
		o.Number,
		o.Status.DisplayName(),
		mdSafe(o.CustomerName),
		mdSafe(o.CustomerPhone),
		mdSafe(o.Details),
		o.CreatedAt.Format(orderDateLayout),
	)

	markup := backToMenuKeyboard()
	if o.Status == order.StatusNew {
		markup = keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "❌ Отменить заказ", Unique: cbConfirmCancel, Data: o.Number}},
			[]keyboard.InlineBtn{{Text: "◀️ Назад в меню", Unique: cbBackToMenu}},
		)
	}
	return tghelpers.SendMD(c, text, markup)
}

// handleConfirmCancel cancels the order named in the callback payload.
// Orders already picked up or finished stay untouched.
func (b *Bot) handleConfirmCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	number := callbacks.CallbackPayload(c)

	_, err := b.orders.UpdateStatus(ctx, number, order.StatusCancelled)
	switch {
	case err == nil:
		_ = tghelpers.SendText(c, fmt.Sprintf("✅ Заказ %s отменен.", number))
		return b.showOrderDetails(c, number)
	case apperr.IsNotFound(err):
		return tghelpers.SendText(c, orderNotFoundText(number))
	case apperr.IsInvalidTransition(err):
		return tghelpers.SendText(c, "❌ Этот заказ уже нельзя отменить.")
	default:
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
}

// handleMyProfile shows the registered account plus order statistics.
func (b *Bot) handleMyProfile(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id := chatID(c)

	acct, err := tghelpers.CurrentUser[*user.Account](ctx, b.users, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return tghelpers.SendText(c, "❌ Профиль не найден! Сначала зарегистрируйтесь.",
				&tele.SendOptions{ReplyMarkup: unauthorizedMenuKeyboard()})
		}
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}

	stats, err := b.orders.StatsForPlacer(ctx, &id, senderHandle(c))
	if err != nil {
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}

	text := fmt.Sprintf("👤 Ваш профиль\n\n"+
		"Имя: %s\n"+
		"📱 Телефон: %s\n"+
		"🕐 Зарегистрирован: %s\n\n"+
		"📊 Заказы:\n"+
		"Всего: %d\n"+
		"Активных: %d\n"+
		"Завершенных: %d",
		acct.DisplayName(),
		format.DerefString(acct.Phone, "не указан"),
		acct.RegisteredAt.Format(orderDateLayout),
		stats.Total,
		stats.Active,
		stats.Completed,
	)
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: backToMenuKeyboard()})
}

// handleGlobalStats reports ledger-wide totals. Reachable only through
// the admin-gated command route.
func (b *Bot) handleGlobalStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	stats, err := b.orders.GlobalStats(ctx)
	if err != nil {
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
	return tghelpers.SendText(c, fmt.Sprintf("📊 Статистика заказов\n\n"+
		"Всего: %d\n"+
		"Активных: %d\n"+
		"Завершенных: %d",
		stats.Total, stats.Active, stats.Completed,
	))
}

// ownerRef returns a chat-id reference when the placer is registered
// and nil for guests.
func (b *Bot) ownerRef(c tele.Context) (*int64, error) {
	ctx := tghelpers.BuildContext(c)
	id := chatID(c)
	registered, err := b.users.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, nil
	}
	return &id, nil
}

// mdSafe escapes user-entered content for Markdown sends.
func mdSafe(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return out
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
