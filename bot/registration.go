package bot

import (
	"fmt"

	"orderbot/apperr"
	"orderbot/bot/dialog"
	tghelpers "orderbot/core/telegram/helpers"
	"orderbot/core/telegram/keyboard"
	"orderbot/user"

	tele "gopkg.in/telebot.v4"
)

const (
	flowRegistration = "registration"

	stepRegFirstName = "ENTER_FIRST_NAME"
	stepRegLastName  = "ENTER_LAST_NAME"
	stepRegPhone     = "ENTER_PHONE"
)

// handleRegistrationStart opens the registration dialog. An already
// registered placer is routed to the main menu instead.
func (b *Bot) handleRegistrationStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	registered, err := b.users.Exists(ctx, chatID(c))
	if err != nil {
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
	if registered {
		_ = tghelpers.SendText(c, "✅ Вы уже зарегистрированы!")
		return b.sendMainMenu(c)
	}
	return b.engine.Start(c, flowRegistration, stepRegFirstName, map[string]string{
		"username": senderHandle(c),
	})
}

// handleCancelRegistration aborts a registration dialog from the inline
// button rather than the reply-keyboard token.
func (b *Bot) handleCancelRegistration(c tele.Context) error {
	b.engine.Cancel(chatID(c))
	_ = tghelpers.SendText(c, "❌ Регистрация отменена.",
		&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	return b.sendMainMenu(c)
}

func (b *Bot) registrationFlow() *dialog.Flow {
	return &dialog.Flow{
		Kind:       flowRegistration,
		CancelText: cancelText,
		Steps: []dialog.Step{
			{
				Name:   stepRegFirstName,
				Field:  "first_name",
				Prompt: "📝 Регистрация\n\nВведите ваше имя:",
			},
			{
				Name:   stepRegLastName,
				Field:  "last_name",
				Prompt: "Введите вашу фамилию (или «-», чтобы пропустить):",
				Apply: func(_ map[string]string, input string) map[string]string {
					if input == "-" {
						return nil
					}
					return map[string]string{"last_name": input}
				},
			},
			{
				Name:     stepRegPhone,
				Field:    "phone",
				Prompt:   "📱 Введите номер телефона (например: +79991234567):",
				Retry:    "❌ Неверный формат номера. Попробуйте еще раз (например: +79991234567):",
				Validate: dialog.Phone,
			},
		},
		Commit:        b.commitRegistration,
		OnCancel:      b.registrationCancelled,
		OnCommitError: b.registrationFailed,
	}
}

func (b *Bot) commitRegistration(c tele.Context, fields map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	acct, err := b.users.Register(ctx, chatID(c), user.RegisterInput{
		Username:  fields["username"],
		FirstName: fields["first_name"],
		LastName:  fields["last_name"],
		Phone:     fields["phone"],
	})
	if err != nil {
		return err
	}

	_ = tghelpers.SendText(c,
		fmt.Sprintf("✅ Регистрация завершена!\n\nДобро пожаловать, %s! 🎉", acct.FirstName),
		&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	return b.sendAuthorizedMenu(c, chooseActionText)
}

func (b *Bot) registrationCancelled(c tele.Context) error {
	_ = tghelpers.SendText(c, "❌ Регистрация отменена.",
		&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	return b.sendMainMenu(c)
}

func (b *Bot) registrationFailed(c tele.Context, err error) error {
	text := genericErrorText
	switch {
	case apperr.IsAlreadyExists(err):
		text = "❌ Пользователь с такими данными уже зарегистрирован."
	case apperr.IsValidation(err):
		text = "❌ Проверьте введенные данные и начните регистрацию заново."
	}
	_ = tghelpers.SendText(c, text,
		&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	return b.sendMainMenu(c)
}
