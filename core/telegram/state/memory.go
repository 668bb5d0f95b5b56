package state

import "sync"

type session struct {
	state State
	data  Data
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*session
}

// NewMemoryStore constructs the in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[int64]*session)}
}

func (m *memoryStore) SetState(userID int64, st State, patch Data) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		sess = &session{data: make(Data, len(patch))}
		m.sessions[userID] = sess
	}
	sess.state = st
	for k, v := range patch {
		sess.data[k] = v
	}
}

func (m *memoryStore) GetState(userID int64) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess.state, true
	}
	return StateIdle, false
}

func (m *memoryStore) GetData(userID int64) Data {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return Data{}
	}
	out := make(Data, len(sess.data))
	for k, v := range sess.data {
		out[k] = v
	}
	return out
}

func (m *memoryStore) ClearState(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryStore) InProgress(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	return ok && sess.state != StateIdle
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
