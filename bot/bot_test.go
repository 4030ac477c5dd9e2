package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/apperr"
	coreconfig "orderbot/core/config"
	"orderbot/core/telegram/state"
	"orderbot/order"
	"orderbot/user"

	tele "gopkg.in/telebot.v4"
)

// fakeContext covers the tele.Context surface the handlers touch. The
// embedded interface panics on anything unexpected.
type fakeContext struct {
	tele.Context

	chat     *tele.Chat
	sender   *tele.User
	text     string
	callback *tele.Callback
	store    map[string]any
	sent     []string
}

func newFakeContext(chatID int64, text string) *fakeContext {
	return &fakeContext{
		chat:   &tele.Chat{ID: chatID},
		sender: &tele.User{ID: chatID, Username: "alice"},
		text:   text,
		store:  make(map[string]any),
	}
}

func newCallbackContext(chatID int64, unique, payload string) *fakeContext {
	c := newFakeContext(chatID, "")
	c.callback = &tele.Callback{Data: "\f" + unique + "|" + payload}
	return c
}

func (c *fakeContext) Chat() *tele.Chat { return c.chat }

func (c *fakeContext) Sender() *tele.User { return c.sender }

func (c *fakeContext) Text() string { return c.text }

func (c *fakeContext) Callback() *tele.Callback { return c.callback }

func (c *fakeContext) Update() tele.Update { return tele.Update{ID: 1} }

func (c *fakeContext) Get(key string) any { return c.store[key] }

func (c *fakeContext) Set(key string, v any) { c.store[key] = v }

func (c *fakeContext) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		c.sent = append(c.sent, s)
	}
	return nil
}

func (c *fakeContext) allSent() string { return strings.Join(c.sent, "\n---\n") }

// memUserRepo and memOrderRepo are in-memory stores backing the handlers
// under test.
type memUserRepo struct {
	accounts map[int64]*user.Account
}

func (r *memUserRepo) Create(_ context.Context, a *user.Account) error {
	if _, ok := r.accounts[a.ChatID]; ok {
		return apperr.New(apperr.KindAlreadyExists, "chat already registered")
	}
	cp := *a
	r.accounts[a.ChatID] = &cp
	return nil
}

func (r *memUserRepo) FindByChatID(_ context.Context, chatID int64) (*user.Account, error) {
	a, ok := r.accounts[chatID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "not registered")
	}
	cp := *a
	return &cp, nil
}

func (r *memUserRepo) FindByPhone(_ context.Context, phone string) (*user.Account, error) {
	for _, a := range r.accounts {
		if a.Phone != nil && *a.Phone == phone {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "not registered")
}

func (r *memUserRepo) ExistsByChatID(_ context.Context, chatID int64) (bool, error) {
	_, ok := r.accounts[chatID]
	return ok, nil
}

func (r *memUserRepo) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	_, err := r.FindByPhone(context.Background(), phone)
	return err == nil, nil
}

type memOrderRepo struct {
	orders []*order.Order
}

func (r *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	for _, existing := range r.orders {
		if existing.Number == o.Number {
			return apperr.New(apperr.KindAlreadyExists, "number taken")
		}
	}
	cp := *o
	r.orders = append(r.orders, &cp)
	return nil
}

func (r *memOrderRepo) FindByNumber(_ context.Context, number string) (*order.Order, error) {
	for _, o := range r.orders {
		if o.Number == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "order not found")
}

func (r *memOrderRepo) ListByOwner(_ context.Context, chatID int64) ([]order.Order, error) {
	var out []order.Order
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].OwnerChatID != nil && *r.orders[i].OwnerChatID == chatID {
			out = append(out, *r.orders[i])
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListByHandle(_ context.Context, handle string) ([]order.Order, error) {
	var out []order.Order
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].ExternalHandle != nil && *r.orders[i].ExternalHandle == handle {
			out = append(out, *r.orders[i])
		}
	}
	return out, nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, number string, from, to order.Status) (bool, error) {
	for _, o := range r.orders {
		if o.Number == number && o.Status == from {
			o.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *memOrderRepo) StatsByOwner(ctx context.Context, chatID int64) (order.Statistics, error) {
	list, _ := r.ListByOwner(ctx, chatID)
	return tally(list), nil
}

func (r *memOrderRepo) StatsByHandle(ctx context.Context, handle string) (order.Statistics, error) {
	list, _ := r.ListByHandle(ctx, handle)
	return tally(list), nil
}

func (r *memOrderRepo) StatsGlobal(_ context.Context) (order.Statistics, error) {
	var all []order.Order
	for _, o := range r.orders {
		all = append(all, *o)
	}
	return tally(all), nil
}

func tally(list []order.Order) order.Statistics {
	var s order.Statistics
	for _, o := range list {
		s.Total++
		switch o.Status {
		case order.StatusNew:
			s.Active++
		case order.StatusCompleted:
			s.Completed++
		}
	}
	return s
}

func newTestBot() (*Bot, *memOrderRepo, *memUserRepo) {
	userRepo := &memUserRepo{accounts: make(map[int64]*user.Account)}
	orderRepo := &memOrderRepo{}
	b := New(
		&coreconfig.Config{},
		user.NewDirectory(userRepo),
		order.NewLedger(orderRepo),
		state.NewMemoryStore(),
	)
	return b, orderRepo, userRepo
}

func registerAlice(t *testing.T, users *memUserRepo, chatID int64) {
	t.Helper()
	phone := "+79991234567"
	username := "alice"
	require.NoError(t, users.Create(context.Background(), &user.Account{
		ChatID:    chatID,
		Username:  &username,
		FirstName: "Alice",
		Phone:     &phone,
	}))
}

func TestStartUnregistered(t *testing.T) {
	b, _, _ := newTestBot()

	c := newFakeContext(1, "/start")
	require.NoError(t, b.handleStart(c))
	assert.Contains(t, c.allSent(), "Добро пожаловать")
}

func TestStartRegistered(t *testing.T) {
	b, _, users := newTestBot()
	registerAlice(t, users, 1)

	c := newFakeContext(1, "/start")
	require.NoError(t, b.handleStart(c))
	assert.Contains(t, c.allSent(), "С возвращением, Alice")
}

func TestFreeTextRouting(t *testing.T) {
	b, _, _ := newTestBot()

	unknown := newFakeContext(1, "ORD-202602231551-ZZZZ")
	require.NoError(t, b.handleFreeText(unknown))
	assert.Contains(t, unknown.allSent(), "не найден")

	digits := newFakeContext(1, "42")
	require.NoError(t, b.handleFreeText(digits))
	assert.Contains(t, digits.allSent(), "номер заказа")
	assert.False(t, b.engine.InProgress(1), "bare digits must not open a dialog")

	chatter := newFakeContext(1, "привет")
	require.NoError(t, b.handleFreeText(chatter))
	assert.Contains(t, chatter.allSent(), "не понимаю")
}

func TestGuestOrderDialog(t *testing.T) {
	b, orders, _ := newTestBot()

	start := newFakeContext(1, "")
	require.NoError(t, b.handleNewOrder(start))
	assert.Contains(t, start.allSent(), "Введите ваше имя")

	require.NoError(t, b.engine.Resume(newFakeContext(1, "Alice")))
	require.NoError(t, b.engine.Resume(newFakeContext(1, "Smith")))
	require.NoError(t, b.engine.Resume(newFakeContext(1, "+79991234567")))

	done := newFakeContext(1, "Landscape design")
	require.NoError(t, b.engine.Resume(done))
	assert.Contains(t, done.allSent(), "Заказ успешно создан")

	require.Len(t, orders.orders, 1)
	o := orders.orders[0]
	assert.Contains(t, done.allSent(), o.Number)
	assert.Equal(t, order.StatusNew, o.Status)
	assert.Equal(t, "Alice Smith", o.CustomerName)
	assert.Nil(t, o.OwnerChatID, "guest orders carry no owner")
	require.NotNil(t, o.ExternalHandle)
	assert.Equal(t, "alice", *o.ExternalHandle)
	assert.False(t, b.engine.InProgress(1))
}

func TestRegisteredOrderDialogSkipsContactSteps(t *testing.T) {
	b, orders, users := newTestBot()
	registerAlice(t, users, 1)

	start := newFakeContext(1, "")
	require.NoError(t, b.handleNewOrder(start))
	assert.Contains(t, start.allSent(), "Опишите услугу")

	done := newFakeContext(1, "Fence repair")
	require.NoError(t, b.engine.Resume(done))

	require.Len(t, orders.orders, 1)
	o := orders.orders[0]
	assert.Equal(t, "Alice", o.CustomerName)
	assert.Equal(t, "+79991234567", o.CustomerPhone)
	require.NotNil(t, o.OwnerChatID)
	assert.Equal(t, int64(1), *o.OwnerChatID)
}

func TestOrderDialogCancel(t *testing.T) {
	b, orders, _ := newTestBot()

	require.NoError(t, b.handleNewOrder(newFakeContext(1, "")))
	require.NoError(t, b.engine.Resume(newFakeContext(1, "Alice")))

	cancel := newFakeContext(1, cancelText)
	require.NoError(t, b.engine.Resume(cancel))
	assert.Contains(t, cancel.allSent(), "Создание заказа отменено")
	assert.Empty(t, orders.orders)
	assert.False(t, b.engine.InProgress(1))
}

func TestRegistrationDialog(t *testing.T) {
	b, _, users := newTestBot()

	start := newFakeContext(1, "")
	require.NoError(t, b.handleRegistrationStart(start))
	assert.Contains(t, start.allSent(), "Введите ваше имя")

	require.NoError(t, b.engine.Resume(newFakeContext(1, "Alice")))
	require.NoError(t, b.engine.Resume(newFakeContext(1, "-")))

	done := newFakeContext(1, "+79991234567")
	require.NoError(t, b.engine.Resume(done))
	assert.Contains(t, done.allSent(), "Регистрация завершена")

	a, ok := users.accounts[1]
	require.True(t, ok)
	assert.Equal(t, "Alice", a.FirstName)
	assert.Nil(t, a.LastName, "a dash skips the last name")
	require.NotNil(t, a.Phone)
	assert.Equal(t, "+79991234567", *a.Phone)
}

func TestRegistrationStartWhenAlreadyRegistered(t *testing.T) {
	b, _, users := newTestBot()
	registerAlice(t, users, 1)

	c := newFakeContext(1, "")
	require.NoError(t, b.handleRegistrationStart(c))
	assert.Contains(t, c.allSent(), "уже зарегистрированы")
	assert.False(t, b.engine.InProgress(1))
}

func TestViewOrderCallback(t *testing.T) {
	b, orders, _ := newTestBot()
	owner := int64(1)
	require.NoError(t, orders.Create(context.Background(), &order.Order{
		Number:        "ORD-202602231551-04FD",
		OwnerChatID:   &owner,
		CustomerName:  "Alice",
		CustomerPhone: "+79991234567",
		Details:       "Landscape design",
		Status:        order.StatusNew,
	}))

	c := newCallbackContext(1, cbViewOrder, "ORD-202602231551-04FD")
	require.NoError(t, b.handleViewOrder(c))
	assert.Contains(t, c.allSent(), "ORD-202602231551-04FD")
	assert.Contains(t, c.allSent(), "Landscape design")
}

func TestConfirmCancelCallback(t *testing.T) {
	b, orders, _ := newTestBot()
	require.NoError(t, orders.Create(context.Background(), &order.Order{
		Number:        "ORD-1",
		CustomerName:  "Alice",
		CustomerPhone: "+79991234567",
		Details:       "x",
		Status:        order.StatusNew,
	}))

	c := newCallbackContext(1, cbConfirmCancel, "ORD-1")
	require.NoError(t, b.handleConfirmCancel(c))
	assert.Contains(t, c.allSent(), "отменен")
	assert.Equal(t, order.StatusCancelled, orders.orders[0].Status)

	// Orders past NEW refuse cancellation.
	again := newCallbackContext(1, cbConfirmCancel, "ORD-1")
	require.NoError(t, b.handleConfirmCancel(again))
	assert.Contains(t, again.allSent(), "нельзя отменить")
}

func TestMyOrdersFallsBackToHandle(t *testing.T) {
	b, orders, users := newTestBot()
	registerAlice(t, users, 1)

	handle := "alice"
	require.NoError(t, orders.Create(context.Background(), &order.Order{
		Number:         "ORD-1",
		ExternalHandle: &handle,
		CustomerName:   "Alice",
		CustomerPhone:  "+79991234567",
		Details:        "Placed before registration",
		Status:         order.StatusNew,
	}))

	c := newFakeContext(1, "")
	require.NoError(t, b.handleMyOrders(c))
	assert.Contains(t, c.allSent(), "ORD-1")
}

func TestMyProfile(t *testing.T) {
	b, orders, users := newTestBot()
	registerAlice(t, users, 1)

	owner := int64(1)
	require.NoError(t, orders.Create(context.Background(), &order.Order{
		Number: "ORD-1", OwnerChatID: &owner, Status: order.StatusCompleted,
		CustomerName: "Alice", CustomerPhone: "+79991234567", Details: "x",
	}))

	c := newFakeContext(1, "")
	require.NoError(t, b.handleMyProfile(c))
	assert.Contains(t, c.allSent(), "Alice")
	assert.Contains(t, c.allSent(), "+79991234567")
	assert.Contains(t, c.allSent(), "Всего: 1")
	assert.Contains(t, c.allSent(), "Завершенных: 1")
}

func TestMyProfileUnregistered(t *testing.T) {
	b, _, _ := newTestBot()

	c := newFakeContext(1, "")
	require.NoError(t, b.handleMyProfile(c))
	assert.Contains(t, c.allSent(), "Профиль не найден")
}
