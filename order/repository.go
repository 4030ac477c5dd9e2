package order

import "context"

// Repository is the persistence contract for orders. Listing queries
// return newest orders first.
type Repository interface {
	// Create inserts a new order. A duplicate order number surfaces as an
	// apperr.KindAlreadyExists error so the ledger can retry with a fresh one.
	Create(ctx context.Context, o *Order) error
	// FindByNumber returns the order or an apperr.KindNotFound error.
	FindByNumber(ctx context.Context, number string) (*Order, error)
	// ListByOwner returns orders attributed to a registered chat identity.
	ListByOwner(ctx context.Context, chatID int64) ([]Order, error)
	// ListByHandle returns orders attributed to an external handle.
	ListByHandle(ctx context.Context, handle string) ([]Order, error)
	// UpdateStatus atomically moves the order from one status to another.
	// It reports whether a row was updated; false means the order was not
	// in the expected status at the time of the write.
	UpdateStatus(ctx context.Context, number string, from, to Status) (bool, error)
	// StatsByOwner aggregates counts for a registered chat identity.
	StatsByOwner(ctx context.Context, chatID int64) (Statistics, error)
	// StatsByHandle aggregates counts for an external handle.
	StatsByHandle(ctx context.Context, handle string) (Statistics, error)
	// StatsGlobal aggregates counts over the whole ledger.
	StatsGlobal(ctx context.Context) (Statistics, error)
}
