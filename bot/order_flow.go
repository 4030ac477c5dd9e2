package bot

import (
	"fmt"

	"orderbot/apperr"
	"orderbot/bot/dialog"
	"orderbot/core/telegram/format"
	tghelpers "orderbot/core/telegram/helpers"
	"orderbot/core/telegram/keyboard"
	"orderbot/order"

	tele "gopkg.in/telebot.v4"
)

const (
	flowOrder = "order_creation"

	stepOrderName     = "ENTER_NAME"
	stepOrderLastName = "ENTER_LAST_NAME"
	stepOrderPhone    = "ENTER_PHONE"
	stepOrderService  = "ENTER_SERVICE"
)

// handleNewOrder opens the order dialog. Registered placers skip the
// contact questions: name and phone come from the account and the flow
// starts at the service description.
func (b *Bot) handleNewOrder(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	seed := map[string]string{"username": senderHandle(c)}

	acct, err := b.users.Find(ctx, chatID(c))
	switch {
	case err == nil:
		seed["customer_name"] = acct.DisplayName()
		seed["customer_phone"] = format.DerefString(acct.Phone, "")
		return b.engine.Start(c, flowOrder, stepOrderService, seed)
	case apperr.IsNotFound(err):
		return b.engine.Start(c, flowOrder, stepOrderName, seed)
	default:
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
}

func (b *Bot) orderFlow() *dialog.Flow {
	return &dialog.Flow{
		Kind:       flowOrder,
		CancelText: cancelText,
		Steps: []dialog.Step{
			{
				Name:   stepOrderName,
				Field:  "customer_name",
				Prompt: "📦 Новый заказ\n\nВведите ваше имя:",
			},
			{
				Name:   stepOrderLastName,
				Prompt: "Введите вашу фамилию (или «-», чтобы пропустить):",
				Apply: func(current map[string]string, input string) map[string]string {
					if input == "-" {
						return nil
					}
					return map[string]string{
						"customer_name": current["customer_name"] + " " + input,
					}
				},
			},
			{
				Name:     stepOrderPhone,
				Field:    "customer_phone",
				Prompt:   "📱 Введите номер телефона (например: +79991234567):",
				Retry:    "❌ Неверный формат номера. Попробуйте еще раз (например: +79991234567):",
				Validate: dialog.Phone,
			},
			{
				Name:   stepOrderService,
				Field:  "details",
				Prompt: "📝 Опишите услугу, которую хотите заказать:",
			},
		},
		Commit:        b.commitOrder,
		OnCancel:      b.orderCancelled,
		OnCommitError: b.orderFailed,
	}
}

func (b *Bot) commitOrder(c tele.Context, fields map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	owner, err := b.ownerRef(c)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "resolve order owner", err)
	}

	o, err := b.orders.Create(ctx, owner, fields["username"], order.CreateInput{
		CustomerName:  fields["customer_name"],
		CustomerPhone: fields["customer_phone"],
		Details:       fields["details"],
	})
	if err != nil {
		return err
	}

	_ = tghelpers.SendText(c,
		fmt.Sprintf("✅ Заказ успешно создан!\n\n"+
			"Номер заказа: %s\n"+
			"Статус: %s\n\n"+
			"📝 %s\n\n"+
			"Сохраните номер заказа, по нему можно узнать статус.",
			o.Number, o.Status.DisplayName(), o.Details),
		&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	return b.sendAuthorizedMenu(c, chooseActionText)
}

func (b *Bot) orderCancelled(c tele.Context) error {
	_ = tghelpers.SendText(c, "❌ Создание заказа отменено.",
		&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	return b.sendMainMenu(c)
}

func (b *Bot) orderFailed(c tele.Context, err error) error {
	text := genericErrorText
	if apperr.IsValidation(err) {
		text = "❌ Проверьте введенные данные и создайте заказ заново."
	}
	_ = tghelpers.SendText(c, text,
		&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	return b.sendMainMenu(c)
}
