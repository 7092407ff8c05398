package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	rodadapter "github.com/minhvn/lacefarm/internal/adapters/browser/rod"
	"github.com/minhvn/lacefarm/internal/adapters/render/dashboard"
	tomlrepo "github.com/minhvn/lacefarm/internal/adapters/repo/toml"
	filevault "github.com/minhvn/lacefarm/internal/adapters/vault/file"
	"github.com/minhvn/lacefarm/internal/application"
	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	walletsDirKey    = "wallets.dir"
	profilesDirKey   = "browser.data_dir"
	extensionPathKey = "browser.extension_path"
	headlessKey      = "browser.headless"
	navTimeoutKey    = "browser.navigation_timeout"
	extensionIDKey   = "extension.id"
	targetURLKey     = "target.url"
	rateStatusKey    = "target.rate_limit_status"
	rateMarkerKey    = "target.rate_limit_marker"
	batchSizeKey     = "batch.size"
	batchDelayKey    = "batch.delay"
	logLevelKey      = "log.level"

	defaultExtensionID = "gafhhkghbfjjkeiendhlofajokpaflmk"
	defaultTargetURL   = "https://sm.midnight.gd"
)

type app struct {
	operator      *application.Operator
	scheduler     *application.Scheduler
	tableRenderer func([]domain.Session, application.Summary, dashboard.RenderOptions) string
	detailRender  func(application.SessionDetail, dashboard.RenderOptions) string
	log           zerolog.Logger
	now           func() time.Time
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".lacefarm")

	cfg := viper.New()
	cfg.SetDefault(walletsDirKey, filepath.Join(baseDir, "wallets"))
	cfg.SetDefault(profilesDirKey, filepath.Join(baseDir, "profiles"))
	cfg.SetDefault(extensionPathKey, "")
	cfg.SetDefault(headlessKey, false)
	cfg.SetDefault(navTimeoutKey, 30*time.Second)
	cfg.SetDefault(extensionIDKey, defaultExtensionID)
	cfg.SetDefault(targetURLKey, defaultTargetURL)
	cfg.SetDefault(rateStatusKey, 429)
	cfg.SetDefault(rateMarkerKey, "too many requests")
	cfg.SetDefault(batchSizeKey, 5)
	cfg.SetDefault(batchDelayKey, 10*time.Second)
	cfg.SetDefault(logLevelKey, "info")
	cfg.SetEnvPrefix("LACEFARM")
	cfg.AutomaticEnv()

	// NewRepository reads ~/.lacefarm/config.toml into cfg, so the keys
	// above pick up file overrides too.
	logger := newLogger(zerolog.InfoLevel)
	repo, err := tomlrepo.NewRepository(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.GetString(logLevelKey))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger = newLogger(level)

	vault := filevault.NewStore(cfg.GetString(walletsDirKey))

	browser := rodadapter.NewDriver(rodadapter.Config{
		DataDir:           cfg.GetString(profilesDirKey),
		ExtensionPath:     cfg.GetString(extensionPathKey),
		Headless:          cfg.GetBool(headlessKey),
		NavigationTimeout: cfg.GetDuration(navTimeoutKey),
	}, logger)

	extensionID := cfg.GetString(extensionIDKey)
	provisioner := application.NewProvisioner(application.ProvisionConfig{
		ExtensionURL: fmt.Sprintf("chrome-extension://%s/app.html", extensionID),
	}, vault, logger)

	registrar := application.NewRegistrar(application.RegistrationConfig{
		TargetURL:       cfg.GetString(targetURLKey),
		RateLimitStatus: cfg.GetInt(rateStatusKey),
		RateLimitMarker: cfg.GetString(rateMarkerKey),
		PopupOrigin:     "chrome-extension://" + extensionID,
	}, logger)

	controller := application.NewController(browser, provisioner, registrar, logger)
	table := application.NewSessionTable()
	registry := application.NewHandleRegistry()
	clock := ports.SystemClock{}

	scheduler := application.NewScheduler(application.SchedulerConfig{
		BatchSize:       cfg.GetInt(batchSizeKey),
		InterBatchDelay: cfg.GetDuration(batchDelayKey),
	}, controller, table, registry, repo, clock, logger)

	operator := application.NewOperator(controller, table, registry, repo, vault, clock, logger)

	return &app{
		operator:      operator,
		scheduler:     scheduler,
		tableRenderer: dashboard.Render,
		detailRender:  dashboard.RenderDetail,
		log:           logger,
		now:           time.Now,
	}, nil
}

func newLogger(level zerolog.Level) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
