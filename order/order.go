// Package order implements the order ledger: creation with generated
// order numbers, lookup, listing, statistics, and the status lifecycle.
package order

import "time"

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusNew marks a freshly created order.
	StatusNew Status = "NEW"
	// StatusInProgress marks an order taken into work.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusCompleted is terminal.
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled is terminal.
	StatusCancelled Status = "CANCELLED"
)

// transitions is the closed table of allowed status changes. Terminal
// statuses have no outgoing edges.
var transitions = map[Status][]Status{
	StatusNew:        {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether moving from one status to another is allowed.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// DisplayName returns the user-facing name of the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusNew:
		return "🆕 Новый"
	case StatusInProgress:
		return "⚙️ В работе"
	case StatusCompleted:
		return "✅ Выполнен"
	case StatusCancelled:
		return "❌ Отменен"
	}
	return string(s)
}

// Order is a placed service order. Number is globally unique and immutable.
// OwnerChatID is nil for orders placed before registration; such orders are
// attributed by ExternalHandle, the placer's messaging username.
type Order struct {
	ID             int64     `db:"id"`
	Number         string    `db:"order_number"`
	OwnerChatID    *int64    `db:"user_chat_id"`
	ExternalHandle *string   `db:"telegram_username"`
	CustomerName   string    `db:"customer_name"`
	CustomerPhone  string    `db:"customer_phone"`
	Details        string    `db:"order_details"`
	Status         Status    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
}

// Statistics aggregates order counts for a single placer.
type Statistics struct {
	Total     int `db:"total"`
	Active    int `db:"active"`
	Completed int `db:"completed"`
}
