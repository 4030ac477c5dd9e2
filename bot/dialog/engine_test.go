package dialog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the few tele.Context methods the engine touches.
// The embedded interface panics on anything unexpected.
type fakeContext struct {
	tele.Context

	chat   *tele.Chat
	sender *tele.User
	text   string
	store  map[string]any
	sent   []string
}

func newFakeContext(chatID int64, text string) *fakeContext {
	return &fakeContext{
		chat:   &tele.Chat{ID: chatID},
		sender: &tele.User{ID: chatID, Username: "alice"},
		text:   text,
		store:  make(map[string]any),
	}
}

func (c *fakeContext) Chat() *tele.Chat { return c.chat }

func (c *fakeContext) Sender() *tele.User { return c.sender }

func (c *fakeContext) Text() string { return c.text }

func (c *fakeContext) Update() tele.Update { return tele.Update{ID: 1} }

func (c *fakeContext) Get(key string) any { return c.store[key] }

func (c *fakeContext) Set(key string, v any) { c.store[key] = v }

func (c *fakeContext) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		c.sent = append(c.sent, s)
	}
	return nil
}

func (c *fakeContext) lastSent() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

type flowRecorder struct {
	committed map[string]string
	commitErr error
	cancelled bool
	reported  error
}

func testFlow(rec *flowRecorder) *Flow {
	return &Flow{
		Kind:       "signup",
		CancelText: "❌ Отмена",
		Steps: []Step{
			{Name: "NAME", Field: "name", Prompt: "Введите имя:"},
			{
				Name:     "PHONE",
				Field:    "phone",
				Prompt:   "Введите телефон:",
				Retry:    "Неверный телефон, повторите:",
				Validate: Phone,
			},
		},
		Commit: func(_ tele.Context, fields map[string]string) error {
			if rec.commitErr != nil {
				return rec.commitErr
			}
			rec.committed = fields
			return nil
		},
		OnCancel: func(tele.Context) error {
			rec.cancelled = true
			return nil
		},
		OnCommitError: func(_ tele.Context, err error) error {
			rec.reported = err
			return nil
		},
	}
}

func TestEngineRunsFlowToCommit(t *testing.T) {
	rec := &flowRecorder{}
	e := NewEngine(state.NewMemoryStore())
	e.RegisterFlow(testFlow(rec))

	start := newFakeContext(1, "")
	require.NoError(t, e.Start(start, "signup", "NAME", map[string]string{"username": "alice"}))
	assert.Equal(t, "Введите имя:", start.lastSent())
	assert.True(t, e.InProgress(1))

	step1 := newFakeContext(1, "Alice")
	require.NoError(t, e.Resume(step1))
	assert.Equal(t, "Введите телефон:", step1.lastSent())

	bad := newFakeContext(1, "not a phone")
	require.NoError(t, e.Resume(bad))
	assert.Equal(t, "Неверный телефон, повторите:", bad.lastSent())
	assert.True(t, e.InProgress(1), "invalid input keeps the dialog on the same step")

	done := newFakeContext(1, "+79991234567")
	require.NoError(t, e.Resume(done))

	require.NotNil(t, rec.committed)
	assert.Equal(t, "alice", rec.committed["username"])
	assert.Equal(t, "Alice", rec.committed["name"])
	assert.Equal(t, "+79991234567", rec.committed["phone"])
	assert.False(t, e.InProgress(1), "commit ends the dialog")
}

func TestEngineCancelToken(t *testing.T) {
	rec := &flowRecorder{}
	e := NewEngine(state.NewMemoryStore())
	e.RegisterFlow(testFlow(rec))

	require.NoError(t, e.Start(newFakeContext(1, ""), "signup", "NAME", nil))
	require.NoError(t, e.Resume(newFakeContext(1, "Alice")))

	require.NoError(t, e.Resume(newFakeContext(1, "❌ Отмена")))
	assert.True(t, rec.cancelled)
	assert.False(t, e.InProgress(1))
	assert.Nil(t, rec.committed)

	// A fresh dialog starts with no residue from the cancelled one.
	require.NoError(t, e.Start(newFakeContext(1, ""), "signup", "NAME", nil))
	require.NoError(t, e.Resume(newFakeContext(1, "Bob")))
	require.NoError(t, e.Resume(newFakeContext(1, "+79991234567")))
	assert.Equal(t, "Bob", rec.committed["name"])
	assert.NotContains(t, rec.committed, "username")
}

func TestEngineCommitFailure(t *testing.T) {
	rec := &flowRecorder{commitErr: errors.New("storage down")}
	e := NewEngine(state.NewMemoryStore())
	e.RegisterFlow(testFlow(rec))

	require.NoError(t, e.Start(newFakeContext(1, ""), "signup", "NAME", nil))
	require.NoError(t, e.Resume(newFakeContext(1, "Alice")))

	err := e.Resume(newFakeContext(1, "+79991234567"))
	assert.ErrorIs(t, err, rec.commitErr)
	assert.ErrorIs(t, rec.reported, rec.commitErr)
	assert.False(t, e.InProgress(1), "failed commit does not resurrect the dialog")
}

func TestEngineIgnoresUnknownFlow(t *testing.T) {
	e := NewEngine(state.NewMemoryStore())

	c := newFakeContext(1, "")
	require.NoError(t, e.Start(c, "nope", "NAME", nil))
	assert.Empty(t, c.sent)
	assert.False(t, e.InProgress(1))
}

func TestEngineResumeWithoutSession(t *testing.T) {
	e := NewEngine(state.NewMemoryStore())
	require.NoError(t, e.Resume(newFakeContext(1, "hello")))
}
