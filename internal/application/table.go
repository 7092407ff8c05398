package application

import (
	"sort"
	"sync"

	"github.com/minhvn/lacefarm/internal/domain"
)

// SessionTable is the single owned copy of all session records. Every
// mutation goes through its lock, preserving the one-writer-per-id
// invariant across the scheduler and the operator console.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[domain.SessionID]domain.Session)}
}

func (t *SessionTable) Replace(sessions map[domain.SessionID]domain.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessions = make(map[domain.SessionID]domain.Session, len(sessions))
	for id, session := range sessions {
		t.sessions[id] = session
	}
}

func (t *SessionTable) Get(id domain.SessionID) (domain.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[id]
	return session, ok
}

func (t *SessionTable) Put(session domain.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessions[session.ID] = session
}

// Update applies fn to the record for id, creating it first when absent.
func (t *SessionTable) Update(id domain.SessionID, fn func(*domain.Session)) domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[id]
	if !ok {
		session = domain.NewSession(id)
	}
	fn(&session)
	t.sessions[id] = session
	return session
}

// MarkStale flips every Running record to Stopped. Used at startup:
// handles do not survive a restart, so a loaded Running record refers
// to a browser that no longer exists.
func (t *SessionTable) MarkStale() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	stale := 0
	for id, session := range t.sessions {
		if session.Status != domain.SessionRunning {
			continue
		}
		session.MarkStopped()
		t.sessions[id] = session
		stale++
	}
	return stale
}

func (t *SessionTable) Snapshot() map[domain.SessionID]domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make(map[domain.SessionID]domain.Session, len(t.sessions))
	for id, session := range t.sessions {
		snapshot[id] = session
	}
	return snapshot
}

// List returns all records ordered by id.
func (t *SessionTable) List() []domain.Session {
	snapshot := t.Snapshot()

	sessions := make([]domain.Session, 0, len(snapshot))
	for _, session := range snapshot {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}

func (t *SessionTable) IDs() []domain.SessionID {
	sessions := t.List()
	ids := make([]domain.SessionID, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	return ids
}
