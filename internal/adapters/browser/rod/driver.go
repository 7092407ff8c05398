// Package rod drives real Chromium sessions through go-rod, one
// persistent profile per wallet session with the Lace extension loaded.
package rod

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	"github.com/rs/zerolog"
)

const profileDirMode = 0o700

type Config struct {
	// DataDir is the root under which per-session profile directories
	// are created.
	DataDir        string
	ExtensionPath  string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	// NavigationTimeout bounds each page navigation, load wait
	// included.
	NavigationTimeout time.Duration
}

type Driver struct {
	cfg Config
	log zerolog.Logger
}

var _ ports.Browser = (*Driver)(nil)

func NewDriver(cfg Config, logger zerolog.Logger) *Driver {
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = 800
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Driver{cfg: cfg, log: logger}
}

// Provision wipes any previous profile for the session and launches a
// fresh browser with the wallet extension loaded.
func (d *Driver) Provision(ctx context.Context, id domain.SessionID) (ports.Env, error) {
	profile := filepath.Join(d.cfg.DataDir, fmt.Sprintf("profile_%d", id))

	if err := os.RemoveAll(profile); err != nil {
		return nil, fmt.Errorf("clean profile directory: %w", err)
	}
	if err := os.MkdirAll(profile, profileDirMode); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}

	launch := launcher.New().
		Headless(d.cfg.Headless).
		UserDataDir(profile)
	if d.cfg.ExtensionPath != "" {
		launch = launch.
			Set(flags.Flag("disable-extensions-except"), d.cfg.ExtensionPath).
			Set(flags.Flag("load-extension"), d.cfg.ExtensionPath)
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		launch.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	d.log.Info().Int("session", int(id)).Str("profile", profile).Msg("browser environment provisioned")

	return &env{
		browser: browser,
		launch:  launch,
		cfg:     d.cfg,
	}, nil
}
