package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/apperr"
)

// fakeRepo is an in-memory Repository used by ledger tests.
type fakeRepo struct {
	orders map[string]*Order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[string]*Order)}
}

func (r *fakeRepo) Create(_ context.Context, o *Order) error {
	if _, ok := r.orders[o.Number]; ok {
		return apperr.Newf(apperr.KindAlreadyExists, "order number %s taken", o.Number)
	}
	cp := *o
	r.orders[o.Number] = &cp
	return nil
}

func (r *fakeRepo) FindByNumber(_ context.Context, number string) (*Order, error) {
	o, ok := r.orders[number]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "order %s not found", number)
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, chatID int64) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		if o.OwnerChatID != nil && *o.OwnerChatID == chatID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByHandle(_ context.Context, handle string) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		if o.ExternalHandle != nil && *o.ExternalHandle == handle {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, number string, from, to Status) (bool, error) {
	o, ok := r.orders[number]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r *fakeRepo) StatsByOwner(ctx context.Context, chatID int64) (Statistics, error) {
	list, _ := r.ListByOwner(ctx, chatID)
	return tally(list), nil
}

func (r *fakeRepo) StatsByHandle(ctx context.Context, handle string) (Statistics, error) {
	list, _ := r.ListByHandle(ctx, handle)
	return tally(list), nil
}

func (r *fakeRepo) StatsGlobal(_ context.Context) (Statistics, error) {
	var all []Order
	for _, o := range r.orders {
		all = append(all, *o)
	}
	return tally(all), nil
}

func tally(list []Order) Statistics {
	var s Statistics
	for _, o := range list {
		s.Total++
		switch o.Status {
		case StatusNew:
			s.Active++
		case StatusCompleted:
			s.Completed++
		}
	}
	return s
}

func newTestLedger(repo Repository) *Ledger {
	l := NewLedger(repo)
	l.now = func() time.Time {
		return time.Date(2026, 2, 23, 15, 51, 0, 0, time.UTC)
	}
	return l
}

func TestLedgerCreate(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(newFakeRepo())

	owner := int64(100)
	o, err := l.Create(ctx, &owner, "alice", CreateInput{
		CustomerName:  "  Alice Smith ",
		CustomerPhone: "+79991234567",
		Details:       "Landscape design",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusNew, o.Status)
	assert.True(t, LooksLikeNumber(o.Number))
	assert.Equal(t, "Alice Smith", o.CustomerName)
	require.NotNil(t, o.OwnerChatID)
	assert.Equal(t, owner, *o.OwnerChatID)
}

func TestLedgerCreateValidation(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(newFakeRepo())

	_, err := l.Create(ctx, nil, "alice", CreateInput{CustomerName: "Alice"})
	assert.True(t, apperr.IsValidation(err), "empty details must be rejected")

	_, err = l.Create(ctx, nil, "alice", CreateInput{Details: "something"})
	assert.True(t, apperr.IsValidation(err), "empty customer name must be rejected")
}

func TestLedgerCreateRetriesNumberCollision(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	l := newTestLedger(repo)

	numbers := []string{"ORD-202602231551-AAAA", "ORD-202602231551-BBBB"}
	l.newNumber = func(time.Time) string {
		n := numbers[0]
		if len(numbers) > 1 {
			numbers = numbers[1:]
		}
		return n
	}

	require.NoError(t, repo.Create(ctx, &Order{Number: "ORD-202602231551-AAAA", Status: StatusNew}))

	o, err := l.Create(ctx, nil, "bob", CreateInput{
		CustomerName: "Bob",
		Details:      "Fence repair",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-202602231551-BBBB", o.Number)
}

func TestLedgerCreateGivesUpAfterRetry(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	l := newTestLedger(repo)
	l.newNumber = func(time.Time) string { return "ORD-202602231551-AAAA" }

	require.NoError(t, repo.Create(ctx, &Order{Number: "ORD-202602231551-AAAA", Status: StatusNew}))

	_, err := l.Create(ctx, nil, "bob", CreateInput{CustomerName: "Bob", Details: "x"})
	assert.True(t, apperr.IsPersistence(err))
}

func TestLedgerListForPlacer(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	l := newTestLedger(repo)

	owner := int64(100)
	handle := "alice"
	require.NoError(t, repo.Create(ctx, &Order{
		Number: "ORD-1", ExternalHandle: &handle, Status: StatusNew,
	}))

	// Registered after placing the order: the owner column is empty, so
	// attribution falls back to the handle.
	list, err := l.ListForPlacer(ctx, &owner, handle)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ORD-1", list[0].Number)

	// Once owner-bound orders exist they win over the handle.
	require.NoError(t, repo.Create(ctx, &Order{
		Number: "ORD-2", OwnerChatID: &owner, Status: StatusNew,
	}))
	list, err = l.ListForPlacer(ctx, &owner, handle)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ORD-2", list[0].Number)

	// Guest without a handle has nothing to look up.
	list, err = l.ListForPlacer(ctx, nil, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLedgerUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	l := newTestLedger(repo)

	require.NoError(t, repo.Create(ctx, &Order{Number: "ORD-1", Status: StatusNew}))

	o, err := l.UpdateStatus(ctx, "ORD-1", StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	// Terminal orders allow no further transitions.
	_, err = l.UpdateStatus(ctx, "ORD-1", StatusInProgress)
	assert.True(t, apperr.IsInvalidTransition(err))

	_, err = l.UpdateStatus(ctx, "ORD-1", Status("SHIPPED"))
	assert.True(t, apperr.IsValidation(err))

	_, err = l.UpdateStatus(ctx, "ORD-missing", StatusCancelled)
	assert.True(t, apperr.IsNotFound(err))
}

// racingRepo simulates another writer moving the order between the
// ledger's read and its conditional write.
type racingRepo struct {
	*fakeRepo
	steal Status
}

func (r *racingRepo) UpdateStatus(ctx context.Context, number string, from, to Status) (bool, error) {
	r.orders[number].Status = r.steal
	return r.fakeRepo.UpdateStatus(ctx, number, from, to)
}

func TestLedgerUpdateStatusLostRace(t *testing.T) {
	ctx := context.Background()
	repo := &racingRepo{fakeRepo: newFakeRepo(), steal: StatusInProgress}
	l := newTestLedger(repo)

	require.NoError(t, repo.Create(ctx, &Order{Number: "ORD-1", Status: StatusNew}))

	_, err := l.UpdateStatus(ctx, "ORD-1", StatusCancelled)
	assert.True(t, apperr.IsInvalidTransition(err))

	o, err := l.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, o.Status, "the competing transition must survive")
}

func TestLedgerStatsForPlacer(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	l := newTestLedger(repo)

	owner := int64(100)
	handle := "alice"
	require.NoError(t, repo.Create(ctx, &Order{Number: "ORD-1", OwnerChatID: &owner, Status: StatusNew}))
	require.NoError(t, repo.Create(ctx, &Order{Number: "ORD-2", OwnerChatID: &owner, Status: StatusCompleted}))
	require.NoError(t, repo.Create(ctx, &Order{Number: "ORD-3", ExternalHandle: &handle, Status: StatusCancelled}))

	s, err := l.StatsForPlacer(ctx, &owner, handle)
	require.NoError(t, err)
	assert.Equal(t, Statistics{Total: 2, Active: 1, Completed: 1}, s)

	// No owner-bound orders: counts come from the handle.
	other := int64(200)
	s, err = l.StatsForPlacer(ctx, &other, handle)
	require.NoError(t, err)
	assert.Equal(t, Statistics{Total: 1}, s)

	s, err = l.StatsForPlacer(ctx, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Statistics{}, s)
}
