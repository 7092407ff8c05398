package application

import (
	"testing"
	"time"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCreatesMissingRecord(t *testing.T) {
	table := NewSessionTable()

	session := table.Update(5, func(session *domain.Session) {
		session.MarkRunning(time.Unix(1756500000, 0))
	})

	assert.Equal(t, domain.SessionID(5), session.ID)
	assert.Equal(t, domain.SessionRunning, session.Status)
}

func TestMarkStaleOnlyTouchesRunning(t *testing.T) {
	table := NewSessionTable()
	table.Put(domain.Session{ID: 1, Status: domain.SessionRunning, StartedAt: time.Unix(1756490000, 0)})
	table.Put(domain.Session{ID: 2, Status: domain.SessionFailed, LastError: "boom"})
	table.Put(domain.Session{ID: 3, Status: domain.SessionStopped})

	assert.Equal(t, 1, table.MarkStale())

	one, _ := table.Get(1)
	assert.Equal(t, domain.SessionStopped, one.Status)
	two, _ := table.Get(2)
	assert.Equal(t, domain.SessionFailed, two.Status)
	assert.Equal(t, "boom", two.LastError)
}

func TestListOrdersByID(t *testing.T) {
	table := NewSessionTable()
	for _, id := range []domain.SessionID{3, 1, 2} {
		table.Put(domain.NewSession(id))
	}

	sessions := table.List()

	require.Len(t, sessions, 3)
	assert.Equal(t, []domain.SessionID{1, 2, 3}, table.IDs())
	assert.Equal(t, domain.SessionID(1), sessions[0].ID)
}

func TestSnapshotIsACopy(t *testing.T) {
	table := NewSessionTable()
	table.Put(domain.NewSession(1))

	snapshot := table.Snapshot()
	snapshot[1] = domain.Session{ID: 1, Status: domain.SessionFailed, LastError: "mutated"}

	session, _ := table.Get(1)
	assert.Equal(t, domain.SessionPending, session.Status)
}
