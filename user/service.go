package user

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"orderbot/apperr"
	"orderbot/core/logger"
)

// RegisterInput carries the fields collected by the registration dialog.
// Username and LastName may be empty; Phone may be empty as well, in which
// case no uniqueness check applies.
type RegisterInput struct {
	Username  string
	FirstName string
	LastName  string
	Phone     string
}

// Directory owns the account lifecycle: at most one account per chat
// identity, created once and never deleted.
type Directory struct {
	repo Repository
	now  func() time.Time
}

// NewDirectory constructs a Directory over the given repository.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo, now: time.Now}
}

// Exists reports whether the chat identity is known to the directory.
func (d *Directory) Exists(ctx context.Context, chatID int64) (bool, error) {
	return d.repo.ExistsByChatID(ctx, chatID)
}

// Find returns the account for a chat identity or an apperr.KindNotFound error.
func (d *Directory) Find(ctx context.Context, chatID int64) (*Account, error) {
	return d.repo.FindByChatID(ctx, chatID)
}

// Register creates the account for a chat identity. It fails with
// apperr.KindAlreadyExists when the identity is already registered or the
// phone is bound to a different account.
func (d *Directory) Register(ctx context.Context, chatID int64, in RegisterInput) (*Account, error) {
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, apperr.New(apperr.KindValidation, "first name is required")
	}

	exists, err := d.repo.ExistsByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Newf(apperr.KindAlreadyExists, "chat %d already registered", chatID)
	}

	if phone := strings.TrimSpace(in.Phone); phone != "" {
		taken, err := d.repo.ExistsByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.New(apperr.KindAlreadyExists, "phone already bound to another account")
		}
	}

	a := &Account{
		ChatID:       chatID,
		Username:     optional(in.Username),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     optional(in.LastName),
		Phone:        optional(in.Phone),
		RegisteredAt: d.now(),
	}
	// The unique constraints still guard the race between the exists
	// checks and the insert.
	if err := d.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	logger.Info(ctx, "service.users", "user.registered",
		slog.Int64("chat_id", chatID),
		slog.Bool("has_phone", a.Phone != nil),
	)
	return a, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
