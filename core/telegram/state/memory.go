package state

import "sync"

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore constructs an in-memory Store implementation. Sessions
// live for the lifetime of the process and are lost on restart.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]*Session),
	}
}

// Start opens a session for the chat, replacing any existing one.
func (m *memoryStore) Start(chatID int64, flow, step string, seed map[string]string) {
	fields := make(map[string]string, len(seed))
	for k, v := range seed {
		fields[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = &Session{Flow: flow, Step: step, Fields: fields}
}

// Get returns a copy of the chat's session so callers cannot mutate the
// stored fields without going through Advance.
func (m *memoryStore) Get(chatID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[chatID]
	if !ok {
		return Session{}, false
	}
	fields := make(map[string]string, len(sess.Fields))
	for k, v := range sess.Fields {
		fields[k] = v
	}
	return Session{Flow: sess.Flow, Step: sess.Step, Fields: fields}, true
}

// Advance moves the session to a new step and merges field updates.
func (m *memoryStore) Advance(chatID int64, step string, updates map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[chatID]
	if !ok {
		return
	}
	sess.Step = step
	for k, v := range updates {
		sess.Fields[k] = v
	}
}

// Clear removes the session for the chat.
func (m *memoryStore) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Active reports whether the chat has a session in progress.
func (m *memoryStore) Active(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[chatID]
	return ok
}
