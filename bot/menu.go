package bot

import (
	"fmt"
	"regexp"
	"strings"

	"orderbot/apperr"
	tghelpers "orderbot/core/telegram/helpers"
	"orderbot/core/telegram/keyboard"
	"orderbot/order"

	tele "gopkg.in/telebot.v4"
)

const (
	welcomeText = "👋 Добро пожаловать!\n\n" +
		"Я бот для оформления заказов. Зарегистрируйтесь, чтобы отслеживать " +
		"свои заказы, или создайте заказ без регистрации."

	chooseActionText = "Выберите действие:"

	helpText = "ℹ️ Помощь\n\n" +
		"📦 Создать заказ — оформление нового заказа\n" +
		"📋 Мои заказы — список ваших заказов\n" +
		"👤 Мой профиль — данные профиля и статистика\n\n" +
		"Чтобы посмотреть заказ, отправьте его номер, например:\n" +
		"ORD-202602231551-04FD\n\n" +
		"Команды:\n" +
		"/start — главное меню\n" +
		"/help — эта справка"

	unknownCommandText = "🤔 Я не понимаю эту команду.\n\n" +
		"Отправьте /start, чтобы открыть главное меню, или /help для справки."

	digitsGuidanceText = "🔢 Похоже, вы отправили число.\n\n" +
		"Если это номер заказа, отправьте его полностью, например:\n" +
		"ORD-202602231551-04FD\n\n" +
		"Или отправьте /start, чтобы открыть главное меню."

	genericErrorText = "⚠️ Что-то пошло не так. Попробуйте еще раз позже."
)

var digitsRE = regexp.MustCompile(`^[0-9]+$`)

func authorizedMenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📦 Создать заказ", Unique: cbNewOrder}},
		[]keyboard.InlineBtn{
			{Text: "📋 Мои заказы", Unique: cbMyOrders},
			{Text: "👤 Мой профиль", Unique: cbMyProfile},
		},
		[]keyboard.InlineBtn{{Text: "ℹ️ Помощь", Unique: cbHelp}},
	)
}

func unauthorizedMenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📝 Зарегистрироваться", Unique: cbRegistration}},
		[]keyboard.InlineBtn{{Text: "📦 Заказать без регистрации", Unique: cbNewOrder}},
		[]keyboard.InlineBtn{{Text: "ℹ️ Помощь", Unique: cbHelp}},
	)
}

func backToMenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "◀️ Назад в меню", Unique: cbBackToMenu},
	})
}

// handleStart shows the menu matching the placer's registration state.
func (b *Bot) handleStart(c tele.Context) error {
	return b.sendMainMenu(c)
}

func (b *Bot) sendMainMenu(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	acct, err := b.users.Find(ctx, chatID(c))
	if err != nil {
		if apperr.IsNotFound(err) {
			return b.sendUnauthorizedMenu(c)
		}
		_ = tghelpers.SendText(c, genericErrorText)
		return err
	}
	greeting := fmt.Sprintf("С возвращением, %s! 👋\n\n%s", acct.FirstName, chooseActionText)
	return b.sendAuthorizedMenu(c, greeting)
}

func (b *Bot) sendAuthorizedMenu(c tele.Context, text string) error {
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: authorizedMenuKeyboard()})
}

func (b *Bot) sendUnauthorizedMenu(c tele.Context) error {
	return tghelpers.SendText(c, welcomeText, &tele.SendOptions{ReplyMarkup: unauthorizedMenuKeyboard()})
}

func (b *Bot) handleHelp(c tele.Context) error {
	return tghelpers.SendText(c, helpText, &tele.SendOptions{ReplyMarkup: backToMenuKeyboard()})
}

func (b *Bot) handleBackToMenu(c tele.Context) error {
	return b.sendMainMenu(c)
}

// handleNonRegistration keeps the guest in the unauthorized menu.
func (b *Bot) handleNonRegistration(c tele.Context) error {
	return b.sendUnauthorizedMenu(c)
}

// handleFreeText serves text that matched no command and no dialog:
// an order number gets looked up, bare digits get a hint, anything
// else gets the unknown-command reply.
func (b *Bot) handleFreeText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	switch {
	case order.LooksLikeNumber(text):
		return b.showOrderDetails(c, text)
	case digitsRE.MatchString(text):
		return tghelpers.SendText(c, digitsGuidanceText)
	default:
		return tghelpers.SendText(c, unknownCommandText)
	}
}
