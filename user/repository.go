package user

import "context"

// Repository is the persistence contract for accounts.
type Repository interface {
	// Create inserts a new account. Duplicate chat id or phone surfaces
	// as an apperr.KindAlreadyExists error.
	Create(ctx context.Context, a *Account) error
	// FindByChatID returns the account or an apperr.KindNotFound error.
	FindByChatID(ctx context.Context, chatID int64) (*Account, error)
	// FindByPhone returns the account bound to the phone, if any.
	FindByPhone(ctx context.Context, phone string) (*Account, error)
	// ExistsByChatID reports whether the chat identity is registered.
	ExistsByChatID(ctx context.Context, chatID int64) (bool, error)
	// ExistsByPhone reports whether the phone is already bound.
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}
