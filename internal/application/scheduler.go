package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

type SchedulerConfig struct {
	// BatchSize bounds how many sessions register concurrently.
	BatchSize int
	// InterBatchDelay spaces batches out; the target site rate-limits
	// bursts of registrations.
	InterBatchDelay time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	// Zero is a valid operator choice (no pause between batches), so
	// only negative values are clamped. The default delay lives in the
	// config layer.
	if c.InterBatchDelay < 0 {
		c.InterBatchDelay = 0
	}
	return c
}

// Scheduler partitions the requested sessions into fixed-size batches
// and runs each batch's controllers concurrently on a worker pool.
type Scheduler struct {
	cfg      SchedulerConfig
	runner   SessionRunner
	table    *SessionTable
	registry *HandleRegistry
	repo     ports.SessionRepository
	clock    ports.Clock
	log      zerolog.Logger

	// pause is swapped out by tests.
	pause func(ctx context.Context, d time.Duration) error
}

func NewScheduler(cfg SchedulerConfig, runner SessionRunner, table *SessionTable, registry *HandleRegistry, repo ports.SessionRepository, clock ports.Clock, logger zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Scheduler{
		cfg:      cfg.withDefaults(),
		runner:   runner,
		table:    table,
		registry: registry,
		repo:     repo,
		clock:    clock,
		log:      logger,
		pause:    sleepContext,
	}
}

// RunAll drives sessions 1..total through their lifecycle. Batches run
// strictly in order; a failing session never aborts its siblings or
// later batches. The snapshot is persisted after every batch.
func (s *Scheduler) RunAll(ctx context.Context, total int, password string) error {
	if total < 1 {
		return fmt.Errorf("session count must be positive, got %d", total)
	}

	pool, err := ants.NewPool(s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	batches := (total + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	s.log.Info().Int("sessions", total).Int("batches", batches).Msg("starting batch run")

	for start := 1; start <= total; start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize - 1
		if end > total {
			end = total
		}

		if start > 1 {
			s.log.Info().Dur("delay", s.cfg.InterBatchDelay).Msg("pausing before next batch")
			if err := s.pause(ctx, s.cfg.InterBatchDelay); err != nil {
				return fmt.Errorf("inter-batch delay: %w", err)
			}
		}

		s.runBatch(ctx, pool, start, end, password)

		if err := s.repo.Save(ctx, s.table.Snapshot()); err != nil {
			s.log.Error().Err(err).Msg("persist snapshot after batch")
		}
	}

	return nil
}

func (s *Scheduler) runBatch(ctx context.Context, pool *ants.Pool, start, end int, password string) {
	s.log.Info().Int("from", start).Int("to", end).Msg("launching batch")

	var wg sync.WaitGroup
	for i := start; i <= end; i++ {
		id := domain.SessionID(i)
		s.table.Update(id, func(session *domain.Session) {
			session.MarkRunning(s.clock.Now())
		})

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			env, outcome := s.runner.Run(ctx, id, password)
			applyOutcome(s.table, s.registry, s.log, id, env, outcome)
		})
		if submitErr != nil {
			wg.Done()
			s.table.Update(id, func(session *domain.Session) {
				session.MarkFailed(fmt.Sprintf("submit worker: %v", submitErr))
			})
		}
	}
	wg.Wait()
}

// applyOutcome records one controller's terminal result. A session that
// registered stays Running with its browser held open; a failed one
// keeps its handle (when any) so the operator can inspect it.
func applyOutcome(table *SessionTable, registry *HandleRegistry, logger zerolog.Logger, id domain.SessionID, env ports.Env, outcome RegistrationOutcome) {
	if env != nil {
		registry.Put(id, env)
	}

	table.Update(id, func(session *domain.Session) {
		if !outcome.Succeeded() {
			session.MarkFailed(outcome.Cause)
		}
	})

	if outcome.Succeeded() {
		logger.Info().Int("session", int(id)).Msg("session registered and running")
	} else {
		logger.Warn().Int("session", int(id)).Str("cause", outcome.Cause).Msg("session failed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
