package order

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"orderbot/apperr"
	"orderbot/core/logger"
)

// CreateInput carries the fields collected by the order-creation dialog.
type CreateInput struct {
	CustomerName  string
	CustomerPhone string
	Details       string
}

// numberAttempts bounds how many generated numbers are tried when the
// store reports a collision.
const numberAttempts = 2

// Ledger owns the order lifecycle after creation: it generates order
// numbers, persists new orders, and guards status transitions.
type Ledger struct {
	repo      Repository
	now       func() time.Time
	newNumber func(time.Time) string
}

// NewLedger constructs a Ledger over the given repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now, newNumber: NewNumber}
}

// Create persists a NEW order. OwnerChatID is nil when the placer is not
// registered; the order is then attributed by the external handle. A
// collision on the generated number is retried with a fresh one.
func (l *Ledger) Create(ctx context.Context, ownerChatID *int64, handle string, in CreateInput) (*Order, error) {
	if strings.TrimSpace(in.Details) == "" {
		return nil, apperr.New(apperr.KindValidation, "order details are required")
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, apperr.New(apperr.KindValidation, "customer name is required")
	}

	var lastErr error
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		o := &Order{
			Number:         l.newNumber(l.now()),
			OwnerChatID:    ownerChatID,
			ExternalHandle: optional(handle),
			CustomerName:   strings.TrimSpace(in.CustomerName),
			CustomerPhone:  strings.TrimSpace(in.CustomerPhone),
			Details:        strings.TrimSpace(in.Details),
			Status:         StatusNew,
			CreatedAt:      l.now(),
		}

		err := l.repo.Create(ctx, o)
		if err == nil {
			logger.Info(ctx, "service.orders", "order.created",
				slog.String("order_number", o.Number),
				slog.Bool("registered_owner", ownerChatID != nil),
				slog.Int("attempt", attempt),
			)
			return o, nil
		}
		lastErr = err
		if !apperr.IsAlreadyExists(err) {
			return nil, err
		}
		logger.Warn(ctx, "service.orders", "order.number_collision",
			slog.String("order_number", o.Number),
			slog.Int("attempt", attempt),
		)
	}
	return nil, apperr.Wrap(apperr.KindPersistence, "order number collision persisted after retry", lastErr)
}

// Get returns the order by number or an apperr.KindNotFound error.
func (l *Ledger) Get(ctx context.Context, number string) (*Order, error) {
	return l.repo.FindByNumber(ctx, number)
}

// ListForPlacer returns the placer's orders, newest first. A registered
// owner is queried first; when that yields nothing the external handle is
// tried, which covers orders placed before registration.
func (l *Ledger) ListForPlacer(ctx context.Context, ownerChatID *int64, handle string) ([]Order, error) {
	if ownerChatID != nil {
		list, err := l.repo.ListByOwner(ctx, *ownerChatID)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			return list, nil
		}
	}
	if strings.TrimSpace(handle) == "" {
		return nil, nil
	}
	return l.repo.ListByHandle(ctx, handle)
}

// UpdateStatus moves the order to a new status, enforcing the transition
// table. The write is conditional on the status the order was read in, so
// a concurrent transition cannot be silently overwritten.
func (l *Ledger) UpdateStatus(ctx context.Context, number string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "unknown order status %q", to)
	}

	o, err := l.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(to) {
		return nil, apperr.Newf(apperr.KindInvalidTransition,
			"order %s cannot move from %s to %s", number, o.Status, to)
	}

	moved, err := l.repo.UpdateStatus(ctx, number, o.Status, to)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Lost the race against another transition on the same order.
		return nil, apperr.Newf(apperr.KindInvalidTransition,
			"order %s changed status concurrently", number)
	}

	logger.Info(ctx, "service.orders", "order.status_changed",
		slog.String("order_number", number),
		slog.String("from", string(o.Status)),
		slog.String("to", string(to)),
	)
	o.Status = to
	return o, nil
}

// StatsForPlacer aggregates counts with the same owner-first, handle-
// fallback attribution as ListForPlacer.
func (l *Ledger) StatsForPlacer(ctx context.Context, ownerChatID *int64, handle string) (Statistics, error) {
	if ownerChatID != nil {
		s, err := l.repo.StatsByOwner(ctx, *ownerChatID)
		if err != nil {
			return Statistics{}, err
		}
		if s.Total > 0 {
			return s, nil
		}
	}
	if strings.TrimSpace(handle) == "" {
		return Statistics{}, nil
	}
	return l.repo.StatsByHandle(ctx, handle)
}

// GlobalStats aggregates counts over the whole ledger.
func (l *Ledger) GlobalStats(ctx context.Context) (Statistics, error) {
	return l.repo.StatsGlobal(ctx)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
