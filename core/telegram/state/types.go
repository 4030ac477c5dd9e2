package state

// Session holds the progress of one multi-step conversation bound to a chat:
// which flow is running, which step it is on, and the fields collected so far.
type Session struct {
	Flow   string
	Step   string
	Fields map[string]string
}

// Store keeps at most one active session per chat.
//
// Implementations must be safe under concurrent access for different chats.
// Events for a single chat arrive sequentially from the transport, so
// per-chat operations are not additionally serialized here.
type Store interface {
	// Start opens a session at the given step, overwriting any prior
	// session for the chat. Seed fields are copied, not aliased.
	Start(chatID int64, flow, step string, seed map[string]string)
	// Get returns a snapshot of the chat's session, if one is active.
	Get(chatID int64) (Session, bool)
	// Advance moves the session to a new step and merges field updates
	// into the collected fields. A missing session is a no-op.
	Advance(chatID int64, step string, updates map[string]string)
	// Clear removes the chat's session together with all collected fields.
	Clear(chatID int64)
	// Active reports whether the chat has a session in progress.
	Active(chatID int64) bool
}
