package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	"github.com/rs/zerolog"
)

type RegistrationResult string

const (
	RegistrationDone        RegistrationResult = "done"
	RegistrationRateLimited RegistrationResult = "rate_limited"
	RegistrationFailed      RegistrationResult = "failed"
)

// RegistrationOutcome is the terminal result of one registration
// attempt. Cause is a short diagnostic, set for every non-done result.
type RegistrationOutcome struct {
	Result RegistrationResult
	Cause  string
}

func (o RegistrationOutcome) Succeeded() bool { return o.Result == RegistrationDone }

type RegistrationConfig struct {
	TargetURL string
	// RateLimitStatus is the transport-level overload signal; the
	// same condition may instead surface as RateLimitMarker in the
	// rendered page, so both are checked.
	RateLimitStatus int
	RateLimitMarker string
	// NotSignedMarker on the main page means the signing step did not
	// take; it triggers exactly one retry of the sign sub-sequence.
	NotSignedMarker string
	// PopupOrigin identifies wallet extension windows.
	PopupOrigin string
	// WalletLabel is the provider button on the wallet picker.
	WalletLabel string
	// StartSessionTimeout bounds the wait for the final control.
	StartSessionTimeout time.Duration
	Flow                FlowConfig
}

func (c RegistrationConfig) withDefaults() RegistrationConfig {
	if c.RateLimitStatus == 0 {
		c.RateLimitStatus = http.StatusTooManyRequests
	}
	if c.RateLimitMarker == "" {
		c.RateLimitMarker = "too many requests"
	}
	if c.NotSignedMarker == "" {
		c.NotSignedMarker = "signed message not found"
	}
	if c.WalletLabel == "" {
		c.WalletLabel = "Lace"
	}
	if c.StartSessionTimeout <= 0 {
		c.StartSessionTimeout = 20 * time.Second
	}
	return c
}

// regState enumerates the fixed registration protocol. The only
// backward transition is the single sign retry out of verifySignature.
type regState int

const (
	stateOpenTarget regState = iota
	stateSelectWallet
	stateAuthorize
	stateAcceptTerms
	stateSign
	stateVerifySignature
	stateStartSession
	stateCleanup
)

const maxSignRetries = 1

var (
	locGetStarted    = ports.ByText("button", "Get started")
	locContinue      = ports.ByText("button", "Continue")
	locNext          = ports.ByText("button", "Next")
	locTermsCheckbox = ports.BySelector("#accept-terms")
	locAcceptAndSign = ports.ByText("button", "Accept and sign")
	locAuthorize     = ports.BySelector(`[data-testid="connect-authorize-button"]`)
	locAlways        = ports.ByText("button", "Always")
	locConfirmData   = ports.BySelector(`[data-testid="dapp-transaction-confirm"]`)
	locPopupPassword = ports.BySelector(`[data-testid="password-input"]`)
	locSignConfirm   = ports.BySelector(`[data-testid="sign-transaction-confirm"]`)
	locStartSession  = ports.ByText("button", "Start session")
)

// Registrar drives a provisioned wallet through the target site's
// registration protocol.
type Registrar struct {
	cfg    RegistrationConfig
	runner *flowRunner
	log    zerolog.Logger
}

func NewRegistrar(cfg RegistrationConfig, logger zerolog.Logger) *Registrar {
	cfg = cfg.withDefaults()
	return &Registrar{
		cfg:    cfg,
		runner: newFlowRunner(cfg.Flow, logger),
		log:    logger,
	}
}

// Register runs the registration state machine for one session.
func (r *Registrar) Register(ctx context.Context, id domain.SessionID, env ports.Env, password string) RegistrationOutcome {
	var page ports.Page
	state := stateOpenTarget
	signRetries := 0

	for {
		switch state {
		case stateOpenTarget:
			opened, outcome := r.openTarget(ctx, id, env)
			if outcome != nil {
				return *outcome
			}
			page = opened
			state = stateSelectWallet

		case stateSelectWallet:
			if outcome := r.selectWallet(ctx, id, page); outcome != nil {
				return *outcome
			}
			state = stateAuthorize

		case stateAuthorize:
			if outcome := r.authorize(ctx, id, env); outcome != nil {
				return *outcome
			}
			state = stateAcceptTerms

		case stateAcceptTerms:
			if outcome := r.acceptTerms(ctx, id, page, signRetries > 0); outcome != nil {
				return *outcome
			}
			state = stateSign

		case stateSign:
			if outcome := r.sign(ctx, id, env, password); outcome != nil {
				return *outcome
			}
			state = stateVerifySignature

		case stateVerifySignature:
			unsigned, outcome := r.verifySignature(ctx, id, page)
			if outcome != nil {
				return *outcome
			}
			if unsigned && signRetries < maxSignRetries {
				signRetries++
				r.log.Warn().Int("session", int(id)).Msg("signed message not found, retrying sign sequence once")
				state = stateAcceptTerms
				continue
			}
			if unsigned {
				r.log.Warn().Int("session", int(id)).Msg("signed message still missing after retry")
			}
			state = stateStartSession

		case stateStartSession:
			if outcome := r.startSession(ctx, id, page); outcome != nil {
				return *outcome
			}
			state = stateCleanup

		case stateCleanup:
			r.cleanup(ctx, id, env, page)
			r.log.Info().Int("session", int(id)).Msg("registration completed")
			return RegistrationOutcome{Result: RegistrationDone}
		}
	}
}

func (r *Registrar) openTarget(ctx context.Context, id domain.SessionID, env ports.Env) (ports.Page, *RegistrationOutcome) {
	page, err := env.OpenPage(ctx, "about:blank")
	if err != nil {
		return nil, failedOutcome(fmt.Sprintf("open registration tab: %v", err))
	}

	status, err := page.Navigate(ctx, r.cfg.TargetURL)
	if err != nil {
		return nil, failedOutcome(fmt.Sprintf("open target site: %v", err))
	}
	if status == r.cfg.RateLimitStatus {
		return nil, rateLimitedOutcome(fmt.Sprintf("status %d from target site", status))
	}

	limited, err := page.HasText(ctx, r.cfg.RateLimitMarker)
	if err != nil {
		return nil, failedOutcome(fmt.Sprintf("inspect target page: %v", err))
	}
	if limited {
		return nil, rateLimitedOutcome(fmt.Sprintf("page reports %q", r.cfg.RateLimitMarker))
	}

	r.log.Info().Int("session", int(id)).Str("url", r.cfg.TargetURL).Msg("target site opened")
	return page, nil
}

func (r *Registrar) selectWallet(ctx context.Context, id domain.SessionID, page ports.Page) *RegistrationOutcome {
	if res := r.runner.step(ctx, id, page, "get started", locGetStarted, 0, clickAction()); res.Failed() {
		return failedOutcome(res.Detail)
	}

	// The provider button stays disabled until the site detects the
	// extension; click only once it is enabled.
	wallet, err := r.runner.awaitEnabled(ctx, page, ports.ByText("button", r.cfg.WalletLabel), 0)
	if err != nil {
		if errors.Is(err, domain.ErrElementNotFound) {
			r.log.Debug().Int("session", int(id)).Msg("wallet picker absent, skipping")
			return nil
		}
		return failedOutcome(fmt.Sprintf("select wallet: %v", err))
	}
	if err := wallet.Click(ctx); err != nil {
		return failedOutcome(fmt.Sprintf("select wallet: %v", err))
	}
	r.log.Info().Int("session", int(id)).Str("wallet", r.cfg.WalletLabel).Msg("wallet provider selected")

	if res := r.runner.step(ctx, id, page, "continue", locContinue, 0, clickAction()); res.Failed() {
		return failedOutcome(res.Detail)
	}

	return nil
}

func (r *Registrar) authorize(ctx context.Context, id domain.SessionID, env ports.Env) *RegistrationOutcome {
	popup, err := r.runner.resolvePopup(ctx, id, env, r.cfg.PopupOrigin, locAuthorize)
	if err != nil {
		if errors.Is(err, domain.ErrPopupNotFound) {
			// The extension may have remembered a prior grant; the
			// flow fails later if authorization truly did not happen.
			r.log.Warn().Int("session", int(id)).Msg("authorize popup never appeared")
			return nil
		}
		return failedOutcome(fmt.Sprintf("resolve authorize popup: %v", err))
	}

	if res := r.runner.requireStep(ctx, id, popup, "authorize", locAuthorize, 0, clickAction()); res.Failed() {
		return failedOutcome(res.Detail)
	}
	if res := r.runner.step(ctx, id, popup, "remember authorization", locAlways, 5*time.Second, clickAction()); res.Failed() {
		return failedOutcome(res.Detail)
	}

	_ = popup.Close()
	return nil
}

func (r *Registrar) acceptTerms(ctx context.Context, id domain.SessionID, page ports.Page, retry bool) *RegistrationOutcome {
	if !retry {
		if res := r.runner.requireStep(ctx, id, page, "next", locNext, 0, clickAction()); res.Failed() {
			return failedOutcome(res.Detail)
		}
	}

	checkbox, err := r.runner.await(ctx, page, locTermsCheckbox, 5*time.Second)
	if err == nil {
		checked, checkErr := checkbox.Checked(ctx)
		if checkErr != nil {
			return failedOutcome(fmt.Sprintf("terms checkbox: %v", checkErr))
		}
		if !checked {
			if clickErr := checkbox.Click(ctx); clickErr != nil {
				return failedOutcome(fmt.Sprintf("terms checkbox: %v", clickErr))
			}
			r.log.Info().Int("session", int(id)).Msg("terms checkbox ticked")
		}
	} else if !errors.Is(err, domain.ErrElementNotFound) {
		return failedOutcome(fmt.Sprintf("terms checkbox: %v", err))
	}

	if res := r.runner.requireStep(ctx, id, page, "accept and sign", locAcceptAndSign, 0, clickAction()); res.Failed() {
		return failedOutcome(res.Detail)
	}

	return nil
}

func (r *Registrar) sign(ctx context.Context, id domain.SessionID, env ports.Env, password string) *RegistrationOutcome {
	popup, err := r.runner.resolvePopup(ctx, id, env, r.cfg.PopupOrigin, locConfirmData)
	if err != nil {
		if errors.Is(err, domain.ErrPopupNotFound) {
			// Verification decides whether this warrants the retry.
			r.log.Warn().Int("session", int(id)).Msg("confirm popup never appeared")
			return nil
		}
		return failedOutcome(fmt.Sprintf("resolve confirm popup: %v", err))
	}

	if res := r.runner.requireStep(ctx, id, popup, "confirm data", locConfirmData, 0, clickAction()); res.Failed() {
		return failedOutcome(res.Detail)
	}
	if res := r.runner.requireStep(ctx, id, popup, "unlock password", locPopupPassword, 0, fillAction(password)); res.Failed() {
		return failedOutcome(res.Detail)
	}
	if res := r.runner.requireStep(ctx, id, popup, "sign confirmation", locSignConfirm, 0, clickAction()); res.Failed() {
		return failedOutcome(res.Detail)
	}

	// The sign control disappearing means the popup finished
	// processing; close it either way, the close is idempotent.
	if !r.runner.awaitGone(ctx, popup, locSignConfirm, 10*time.Second) {
		r.log.Warn().Int("session", int(id)).Msg("sign control still visible, closing popup anyway")
	}
	_ = popup.Close()

	r.log.Info().Int("session", int(id)).Msg("message signed")
	return nil
}

func (r *Registrar) verifySignature(ctx context.Context, id domain.SessionID, page ports.Page) (bool, *RegistrationOutcome) {
	unsigned, err := page.HasText(ctx, r.cfg.NotSignedMarker)
	if err != nil {
		return false, failedOutcome(fmt.Sprintf("verify signature: %v", err))
	}
	return unsigned, nil
}

func (r *Registrar) startSession(ctx context.Context, id domain.SessionID, page ports.Page) *RegistrationOutcome {
	res := r.runner.requireStep(ctx, id, page, "start session", locStartSession, r.cfg.StartSessionTimeout, clickAction())
	if res.Failed() {
		return failedOutcome(res.Detail)
	}
	r.log.Info().Int("session", int(id)).Msg("session started")
	return nil
}

// cleanup closes every window except the target-site tab, covering
// leftover blank tabs, the extension's own app tab, and stray popups.
func (r *Registrar) cleanup(ctx context.Context, id domain.SessionID, env ports.Env, main ports.Page) {
	pages, err := env.Pages(ctx)
	if err != nil {
		r.log.Warn().Err(err).Int("session", int(id)).Msg("cleanup: list windows")
		return
	}

	mainURL := main.URL()
	for _, p := range pages {
		url := p.URL()
		if url != "" && url == mainURL {
			continue
		}
		if strings.HasPrefix(url, r.cfg.TargetURL) {
			continue
		}
		if err := p.Close(); err != nil {
			continue
		}
		r.log.Debug().Int("session", int(id)).Str("url", url).Msg("closed leftover window")
	}
}

func failedOutcome(cause string) *RegistrationOutcome {
	return &RegistrationOutcome{Result: RegistrationFailed, Cause: domain.TruncateCause(cause)}
}

func rateLimitedOutcome(detail string) *RegistrationOutcome {
	return &RegistrationOutcome{
		Result: RegistrationRateLimited,
		Cause:  domain.TruncateCause(fmt.Sprintf("%s: %s", domain.RateLimitedCause, detail)),
	}
}
