package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	configName       = "config"
	configType       = "toml"
	sessionsPathKey  = "sessions.path"
	sessionsFileMode = 0o600
	sessionsDirMode  = 0o700
	configDir        = ".lacefarm"
	sessionsFile     = "sessions.toml"
	tempFilePattern  = ".sessions-*.toml.tmp"
)

type Repository struct {
	sessionsPath string
	mu           *sync.RWMutex
	log          zerolog.Logger
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper, logger zerolog.Logger) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDir, sessionsFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetDefault(sessionsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	sessionsPath := cfg.GetString(sessionsPathKey)
	if sessionsPath == "" {
		return nil, errors.New("sessions path is empty")
	}
	sessionsPath, err = normalizeSessionsPath(sessionsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{sessionsPath: sessionsPath, mu: lockForPath(sessionsPath), log: logger}, nil
}

// Load reads the last snapshot. A missing, unreadable, or corrupt file
// yields an empty map with a warning; startup never aborts on it.
func (r *Repository) Load(ctx context.Context) (map[domain.SessionID]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make(map[domain.SessionID]domain.Session)

	data, err := os.ReadFile(r.sessionsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.Warn().Err(err).Str("path", r.sessionsPath).Msg("sessions snapshot unreadable, starting empty")
		}
		return sessions, nil
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		r.log.Warn().Err(err).Str("path", r.sessionsPath).Msg("sessions snapshot corrupt, starting empty")
		return sessions, nil
	}
	if err := file.validateVersion(); err != nil {
		r.log.Warn().Err(err).Str("path", r.sessionsPath).Msg("sessions snapshot version unsupported, starting empty")
		return sessions, nil
	}
	file.applyDefaults()

	for _, entry := range file.Sessions {
		session := fromSchema(entry)
		if err := session.Validate(); err != nil {
			r.log.Warn().Err(err).Int("session", entry.ID).Msg("dropping invalid session record")
			continue
		}
		sessions[session.ID] = session
	}

	return sessions, nil
}

func (r *Repository) Save(ctx context.Context, sessions map[domain.SessionID]domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file := fileSchema{Version: currentSchemaVersion}
	ids := make([]int, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		file.Sessions = append(file.Sessions, toSchema(sessions[domain.SessionID(id)]))
	}

	return r.writeSchema(file)
}

func (r *Repository) writeSchema(file fileSchema) error {
	if err := os.MkdirAll(filepath.Dir(r.sessionsPath), sessionsDirMode); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode sessions file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.sessionsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp sessions file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp sessions file: %w", err)
	}

	if err := tempFile.Chmod(sessionsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp sessions file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp sessions file: %w", err)
	}

	if err := os.Rename(tempName, r.sessionsPath); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.sessionsPath, sessionsFileMode); err != nil {
		return fmt.Errorf("chmod sessions file: %w", err)
	}

	return nil
}

func toSchema(session domain.Session) sessionSchema {
	return sessionSchema{
		ID:        int(session.ID),
		Status:    string(session.Status),
		StartedAt: formatTime(session.StartedAt),
		LastError: session.LastError,
	}
}

func fromSchema(entry sessionSchema) domain.Session {
	return domain.Session{
		ID:        domain.SessionID(entry.ID),
		Status:    domain.SessionStatus(entry.Status),
		StartedAt: parseTime(entry.StartedAt),
		LastError: entry.LastError,
	}
}

func normalizeSessionsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve sessions path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
