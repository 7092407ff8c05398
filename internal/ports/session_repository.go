package ports

import (
	"context"

	"github.com/minhvn/lacefarm/internal/domain"
)

// SessionRepository persists the durable session records. The snapshot
// is the sole record of operator intent; it says nothing about whether
// a browser is actually alive.
type SessionRepository interface {
	// Load returns the last snapshot. Missing or unreadable snapshots
	// yield an empty map, never an error that would abort startup.
	Load(ctx context.Context) (map[domain.SessionID]domain.Session, error)
	Save(ctx context.Context, sessions map[domain.SessionID]domain.Session) error
}
