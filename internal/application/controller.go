package application

import (
	"context"
	"fmt"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	"github.com/rs/zerolog"
)

// SessionRunner owns one session end to end: environment, wallet
// creation, registration. Implementations never propagate a failure to
// the caller; a nil env plus a failed outcome is the failure signal.
type SessionRunner interface {
	Run(ctx context.Context, id domain.SessionID, password string) (ports.Env, RegistrationOutcome)
}

type Controller struct {
	browser     ports.Browser
	provisioner *Provisioner
	registrar   *Registrar
	log         zerolog.Logger
}

var _ SessionRunner = (*Controller)(nil)

func NewController(browser ports.Browser, provisioner *Provisioner, registrar *Registrar, logger zerolog.Logger) *Controller {
	return &Controller{
		browser:     browser,
		provisioner: provisioner,
		registrar:   registrar,
		log:         logger,
	}
}

// Run provisions an environment, creates the wallet, and registers it.
// The live handle is returned even when registration failed so the
// session stays inspectable and stoppable; only a setup failure yields
// a nil handle.
func (c *Controller) Run(ctx context.Context, id domain.SessionID, password string) (env ports.Env, outcome RegistrationOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error().Int("session", int(id)).Interface("panic", rec).Msg("session controller panicked")
			if env != nil {
				_ = env.Close()
				env = nil
			}
			outcome = *failedOutcome(fmt.Sprintf("internal error: %v", rec))
		}
	}()

	env, err := c.browser.Provision(ctx, id)
	if err != nil {
		c.log.Error().Err(err).Int("session", int(id)).Msg("environment provisioning failed")
		return nil, *failedOutcome(fmt.Sprintf("provision environment: %v", err))
	}

	if _, err := c.provisioner.CreateWallet(ctx, id, env, password); err != nil {
		c.log.Error().Err(err).Int("session", int(id)).Msg("wallet creation failed")
		_ = env.Close()
		return nil, *failedOutcome(fmt.Sprintf("create wallet: %v", err))
	}

	outcome = c.registrar.Register(ctx, id, env, password)
	if !outcome.Succeeded() {
		c.log.Error().Int("session", int(id)).Str("result", string(outcome.Result)).Str("cause", outcome.Cause).Msg("registration failed")
	}

	return env, outcome
}
