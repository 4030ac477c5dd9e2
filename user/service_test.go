package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/apperr"
)

// fakeRepo is an in-memory Repository used by directory tests.
type fakeRepo struct {
	accounts map[int64]*Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[int64]*Account)}
}

func (r *fakeRepo) Create(_ context.Context, a *Account) error {
	if _, ok := r.accounts[a.ChatID]; ok {
		return apperr.Newf(apperr.KindAlreadyExists, "chat %d already registered", a.ChatID)
	}
	if a.Phone != nil {
		for _, other := range r.accounts {
			if other.Phone != nil && *other.Phone == *a.Phone {
				return apperr.New(apperr.KindAlreadyExists, "phone already bound")
			}
		}
	}
	cp := *a
	r.accounts[a.ChatID] = &cp
	return nil
}

func (r *fakeRepo) FindByChatID(_ context.Context, chatID int64) (*Account, error) {
	a, ok := r.accounts[chatID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "chat %d not registered", chatID)
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) FindByPhone(_ context.Context, phone string) (*Account, error) {
	for _, a := range r.accounts {
		if a.Phone != nil && *a.Phone == phone {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "phone not registered")
}

func (r *fakeRepo) ExistsByChatID(_ context.Context, chatID int64) (bool, error) {
	_, ok := r.accounts[chatID]
	return ok, nil
}

func (r *fakeRepo) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	for _, a := range r.accounts {
		if a.Phone != nil && *a.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func newTestDirectory(repo Repository) *Directory {
	d := NewDirectory(repo)
	d.now = func() time.Time {
		return time.Date(2026, 2, 23, 15, 51, 0, 0, time.UTC)
	}
	return d
}

func TestDirectoryRegister(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(newFakeRepo())

	a, err := d.Register(ctx, 100, RegisterInput{
		Username:  "alice",
		FirstName: " Alice ",
		LastName:  "Smith",
		Phone:     "+79991234567",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100), a.ChatID)
	assert.Equal(t, "Alice", a.FirstName)
	assert.Equal(t, "Alice Smith", a.DisplayName())
	require.NotNil(t, a.Phone)
	assert.Equal(t, "+79991234567", *a.Phone)

	exists, err := d.Exists(ctx, 100)
	require.NoError(t, err)
	assert.True(t, exists)

	found, err := d.Find(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, a.ChatID, found.ChatID)
}

func TestDirectoryRegisterOptionalFields(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(newFakeRepo())

	a, err := d.Register(ctx, 100, RegisterInput{FirstName: "Alice"})
	require.NoError(t, err)

	assert.Nil(t, a.Username)
	assert.Nil(t, a.LastName)
	assert.Nil(t, a.Phone)
	assert.Equal(t, "Alice", a.DisplayName())
}

func TestDirectoryRegisterRequiresFirstName(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(newFakeRepo())

	_, err := d.Register(ctx, 100, RegisterInput{FirstName: "   "})
	assert.True(t, apperr.IsValidation(err))
}

func TestDirectoryRegisterDuplicateChat(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(newFakeRepo())

	_, err := d.Register(ctx, 100, RegisterInput{FirstName: "Alice"})
	require.NoError(t, err)

	_, err = d.Register(ctx, 100, RegisterInput{FirstName: "Alice"})
	assert.True(t, apperr.IsAlreadyExists(err))
}

func TestDirectoryRegisterDuplicatePhone(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(newFakeRepo())

	_, err := d.Register(ctx, 100, RegisterInput{FirstName: "Alice", Phone: "+79991234567"})
	require.NoError(t, err)

	_, err = d.Register(ctx, 200, RegisterInput{FirstName: "Bob", Phone: "+79991234567"})
	assert.True(t, apperr.IsAlreadyExists(err))
}

func TestDirectoryFindUnknown(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(newFakeRepo())

	_, err := d.Find(ctx, 100)
	assert.True(t, apperr.IsNotFound(err))
}
