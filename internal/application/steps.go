package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	"github.com/rs/zerolog"
)

// StepStatus is the three-way outcome of one UI-observable step.
// Skipped means the step's precondition never appeared within its
// bound, which for optional screens is not a fault.
type StepStatus int

const (
	StepDone StepStatus = iota
	StepSkipped
	StepFailed
)

type StepResult struct {
	Status StepStatus
	Detail string
}

func (r StepResult) Failed() bool { return r.Status == StepFailed }

type FlowConfig struct {
	// PollInterval is the spacing between condition checks.
	PollInterval time.Duration
	// StepTimeout bounds the wait for a step's precondition unless a
	// step overrides it.
	StepTimeout time.Duration
	// PopupAttempts bounds popup window scans, spaced PopupInterval
	// apart.
	PopupAttempts int
	PopupInterval time.Duration
}

func (c FlowConfig) withDefaults() FlowConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = 15 * time.Second
	}
	if c.PopupAttempts <= 0 {
		c.PopupAttempts = 10
	}
	if c.PopupInterval <= 0 {
		c.PopupInterval = time.Second
	}
	return c
}

// flowRunner executes bounded waits against pages. It owns the polling
// discipline; page lookups themselves are immediate.
type flowRunner struct {
	cfg FlowConfig
	log zerolog.Logger
}

func newFlowRunner(cfg FlowConfig, logger zerolog.Logger) *flowRunner {
	return &flowRunner{cfg: cfg.withDefaults(), log: logger}
}

var errStillPresent = errors.New("element still present")

// await polls for loc until it appears or the timeout elapses.
func (r *flowRunner) await(ctx context.Context, page ports.Page, loc ports.Locator, timeout time.Duration) (ports.Element, error) {
	if timeout <= 0 {
		timeout = r.cfg.StepTimeout
	}

	var el ports.Element
	op := func() error {
		found, err := page.Find(ctx, loc, 0)
		if err != nil {
			if errors.Is(err, domain.ErrElementNotFound) {
				return err
			}
			return backoff.Permanent(err)
		}
		el = found
		return nil
	}

	if err := backoff.Retry(op, r.pollPolicy(ctx, timeout)); err != nil {
		return nil, err
	}

	return el, nil
}

// awaitGone polls until loc disappears or the timeout elapses. It
// reports whether the element went away; callers treat a lingering
// element as a soft signal, not an error.
func (r *flowRunner) awaitGone(ctx context.Context, page ports.Page, loc ports.Locator, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = r.cfg.StepTimeout
	}

	op := func() error {
		_, err := page.Find(ctx, loc, 0)
		if errors.Is(err, domain.ErrElementNotFound) {
			return nil
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return errStillPresent
	}

	return backoff.Retry(op, r.pollPolicy(ctx, timeout)) == nil
}

type stepAction func(ctx context.Context, el ports.Element) error

func clickAction() stepAction {
	return func(ctx context.Context, el ports.Element) error { return el.Click(ctx) }
}

func fillAction(value string) stepAction {
	return func(ctx context.Context, el ports.Element) error { return el.Fill(ctx, value) }
}

// step runs one optional step: wait for loc, then act on it. A
// precondition that never shows up is skipped silently.
func (r *flowRunner) step(ctx context.Context, id domain.SessionID, page ports.Page, name string, loc ports.Locator, timeout time.Duration, act stepAction) StepResult {
	el, err := r.await(ctx, page, loc, timeout)
	if err != nil {
		if errors.Is(err, domain.ErrElementNotFound) {
			r.log.Debug().Int("session", int(id)).Str("step", name).Msg("step precondition absent, skipping")
			return StepResult{Status: StepSkipped}
		}
		return StepResult{Status: StepFailed, Detail: fmt.Sprintf("%s: %v", name, err)}
	}

	if act != nil {
		if err := act(ctx, el); err != nil {
			return StepResult{Status: StepFailed, Detail: fmt.Sprintf("%s: %v", name, err)}
		}
	}

	r.log.Info().Int("session", int(id)).Str("step", name).Msg("step completed")
	return StepResult{Status: StepDone}
}

// requireStep is step for preconditions that must appear; absence is a
// failure rather than a skip.
func (r *flowRunner) requireStep(ctx context.Context, id domain.SessionID, page ports.Page, name string, loc ports.Locator, timeout time.Duration, act stepAction) StepResult {
	result := r.step(ctx, id, page, name, loc, timeout, act)
	if result.Status == StepSkipped {
		return StepResult{Status: StepFailed, Detail: fmt.Sprintf("%s: control %s never appeared", name, loc)}
	}
	return result
}

// awaitEnabled waits for loc to appear and become enabled.
func (r *flowRunner) awaitEnabled(ctx context.Context, page ports.Page, loc ports.Locator, timeout time.Duration) (ports.Element, error) {
	if timeout <= 0 {
		timeout = r.cfg.StepTimeout
	}

	var el ports.Element
	op := func() error {
		found, err := page.Find(ctx, loc, 0)
		if err != nil {
			if errors.Is(err, domain.ErrElementNotFound) {
				return err
			}
			return backoff.Permanent(err)
		}
		enabled, err := found.Enabled(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !enabled {
			return fmt.Errorf("%w: %s is disabled", domain.ErrElementNotFound, loc)
		}
		el = found
		return nil
	}

	if err := backoff.Retry(op, r.pollPolicy(ctx, timeout)); err != nil {
		return nil, err
	}

	return el, nil
}

// resolvePopup scans the environment's open windows for one whose
// origin matches originPattern and which already renders the expected
// control. The two-predicate match avoids racing a window that has the
// right origin but has not painted the control yet.
func (r *flowRunner) resolvePopup(ctx context.Context, id domain.SessionID, env ports.Env, originPattern string, control ports.Locator) (ports.Page, error) {
	var popup ports.Page
	op := func() error {
		pages, err := env.Pages(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		for _, p := range pages {
			if !strings.Contains(p.URL(), originPattern) {
				continue
			}
			if _, err := p.Find(ctx, control, 0); err != nil {
				continue
			}
			popup = p
			return nil
		}
		return domain.ErrPopupNotFound
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.PopupInterval), uint64(r.cfg.PopupAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	r.log.Info().Int("session", int(id)).Str("control", control.String()).Msg("popup window resolved")
	return popup, nil
}

func (r *flowRunner) pollPolicy(ctx context.Context, timeout time.Duration) backoff.BackOffContext {
	attempts := uint64(0)
	if timeout > r.cfg.PollInterval {
		attempts = uint64(timeout / r.cfg.PollInterval)
	}
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.PollInterval), attempts),
		ctx,
	)
}
