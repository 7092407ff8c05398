package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	"github.com/rs/zerolog"
)

// Summary aggregates session counts for the dashboard.
type Summary struct {
	Total       int
	Pending     int
	Running     int
	Stopped     int
	Failed      int
	RateLimited int
}

// SessionDetail is everything the operator sees for one session.
type SessionDetail struct {
	Session       domain.Session
	Credential    domain.Credential
	HasCredential bool
	Live          bool
}

// Operator applies console commands to the shared session table and
// the live handle registry, persisting the snapshot after each action.
type Operator struct {
	runner   SessionRunner
	table    *SessionTable
	registry *HandleRegistry
	repo     ports.SessionRepository
	vault    ports.WalletVault
	clock    ports.Clock
	log      zerolog.Logger
}

func NewOperator(runner SessionRunner, table *SessionTable, registry *HandleRegistry, repo ports.SessionRepository, vault ports.WalletVault, clock ports.Clock, logger zerolog.Logger) *Operator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Operator{
		runner:   runner,
		table:    table,
		registry: registry,
		repo:     repo,
		vault:    vault,
		clock:    clock,
		log:      logger,
	}
}

// LoadState restores the last snapshot. Records that were Running when
// the previous process exited refer to browsers that are gone, so they
// come back Stopped.
func (o *Operator) LoadState(ctx context.Context) error {
	sessions, err := o.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load sessions snapshot: %w", err)
	}

	o.table.Replace(sessions)
	if stale := o.table.MarkStale(); stale > 0 {
		o.log.Warn().Int("sessions", stale).Msg("marked stale running sessions as stopped")
		if err := o.repo.Save(ctx, o.table.Snapshot()); err != nil {
			return fmt.Errorf("persist stale-session snapshot: %w", err)
		}
	}

	return nil
}

func (o *Operator) Sessions() []domain.Session {
	return o.table.List()
}

func (o *Operator) IDs() []domain.SessionID {
	return o.table.IDs()
}

func (o *Operator) Summarize() Summary {
	summary := Summary{}
	for _, session := range o.table.List() {
		summary.Total++
		switch session.Status {
		case domain.SessionPending:
			summary.Pending++
		case domain.SessionRunning:
			summary.Running++
		case domain.SessionStopped:
			summary.Stopped++
		case domain.SessionFailed:
			summary.Failed++
			if session.RateLimited() {
				summary.RateLimited++
			}
		}
	}
	return summary
}

// Stop closes the chosen sessions' environments and marks them
// Stopped. Unknown ids are reported but do not abort the rest.
func (o *Operator) Stop(ctx context.Context, ids []domain.SessionID) error {
	var errs []error
	for _, id := range ids {
		if _, ok := o.table.Get(id); !ok {
			errs = append(errs, fmt.Errorf("session %d: %w", id, domain.ErrSessionNotFound))
			continue
		}
		o.registry.Close(id)
		o.table.Update(id, func(session *domain.Session) {
			session.MarkStopped()
		})
		o.log.Info().Int("session", int(id)).Msg("session stopped")
	}

	if err := o.repo.Save(ctx, o.table.Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("persist snapshot: %w", err))
	}

	return errors.Join(errs...)
}

func (o *Operator) StopAll(ctx context.Context) error {
	return o.Stop(ctx, o.table.IDs())
}

// Restart closes any live environment for each chosen session and runs
// its lifecycle again. A restarted session never stays Stopped: it
// ends up Running or Failed with a fresh cause.
func (o *Operator) Restart(ctx context.Context, ids []domain.SessionID, password string) error {
	var errs []error
	for _, id := range ids {
		if _, ok := o.table.Get(id); !ok {
			errs = append(errs, fmt.Errorf("session %d: %w", id, domain.ErrSessionNotFound))
			continue
		}

		o.registry.Close(id)
		o.table.Update(id, func(session *domain.Session) {
			session.MarkRunning(o.clock.Now())
		})
		o.log.Info().Int("session", int(id)).Msg("restarting session")

		env, outcome := o.runner.Run(ctx, id, password)
		applyOutcome(o.table, o.registry, o.log, id, env, outcome)
	}

	if err := o.repo.Save(ctx, o.table.Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("persist snapshot: %w", err))
	}

	return errors.Join(errs...)
}

// Detail returns one session's record and credential artifact. The
// lookup never mutates state.
func (o *Operator) Detail(ctx context.Context, id domain.SessionID) (SessionDetail, error) {
	session, ok := o.table.Get(id)
	if !ok {
		return SessionDetail{}, fmt.Errorf("session %d: %w", id, domain.ErrSessionNotFound)
	}

	detail := SessionDetail{Session: session, Live: o.registry.Has(id)}

	cred, err := o.vault.Credential(ctx, id)
	if err == nil {
		detail.Credential = cred
		detail.HasCredential = true
	} else if !errors.Is(err, domain.ErrCredentialNotFound) {
		return SessionDetail{}, fmt.Errorf("load credential for session %d: %w", id, err)
	}

	return detail, nil
}
