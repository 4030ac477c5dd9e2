// Package user implements the account directory: registration and lookup
// of bot users keyed by chat identity, with globally unique phone numbers.
package user

import (
	"strings"
	"time"
)

// Account is a registered bot user. ChatID is immutable; Phone is optional
// but unique across accounts when present.
type Account struct {
	ChatID       int64     `db:"chat_id"`
	Username     *string   `db:"telegram_username"`
	FirstName    string    `db:"first_name"`
	LastName     *string   `db:"last_name"`
	Phone        *string   `db:"phone"`
	RegisteredAt time.Time `db:"registered_at"`
}

// DisplayName joins first and last name, skipping an absent last name.
func (a *Account) DisplayName() string {
	if a.LastName == nil || strings.TrimSpace(*a.LastName) == "" {
		return a.FirstName
	}
	return a.FirstName + " " + *a.LastName
}
