package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	vaultDirMode  = 0o700
	vaultFileMode = 0o600

	phraseFile = "mnemonic.txt"
	recordFile = "wallet.toml"
)

// Store keeps one directory per session under root, holding the raw
// recovery phrase and the structured wallet record.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.WalletVault = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

type walletRecord struct {
	Name     string `toml:"name"`
	Mnemonic string `toml:"mnemonic"`
	Password string `toml:"password"`
}

func (s *Store) SavePhrase(ctx context.Context, id domain.SessionID, phrase string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if phrase == "" {
		return errors.New("phrase is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.walletDir(id)
	if err := os.MkdirAll(dir, vaultDirMode); err != nil {
		return fmt.Errorf("create wallet directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, phraseFile), []byte(phrase+"\n"), vaultFileMode); err != nil {
		return fmt.Errorf("write phrase file for wallet %d: %w", id, err)
	}

	return nil
}

func (s *Store) SaveCredential(ctx context.Context, id domain.SessionID, cred domain.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("invalid credential for wallet %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.walletDir(id)
	if err := os.MkdirAll(dir, vaultDirMode); err != nil {
		return fmt.Errorf("create wallet directory: %w", err)
	}

	data, err := toml.Marshal(walletRecord{Name: cred.Name, Mnemonic: cred.Mnemonic, Password: cred.Password})
	if err != nil {
		return fmt.Errorf("encode wallet record: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, recordFile), data, vaultFileMode); err != nil {
		return fmt.Errorf("write wallet record for wallet %d: %w", id, err)
	}

	return nil
}

func (s *Store) Credential(ctx context.Context, id domain.SessionID) (domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.walletDir(id), recordFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Credential{}, domain.ErrCredentialNotFound
		}
		return domain.Credential{}, fmt.Errorf("read wallet record for wallet %d: %w", id, err)
	}

	var record walletRecord
	if err := toml.Unmarshal(data, &record); err != nil {
		return domain.Credential{}, fmt.Errorf("decode wallet record for wallet %d: %w", id, err)
	}

	return domain.Credential{Name: record.Name, Mnemonic: record.Mnemonic, Password: record.Password}, nil
}

// Archive moves an existing wallet directory aside with a numbered
// suffix. A missing directory is not an error.
func (s *Store) Archive(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.walletDir(id)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat wallet directory: %w", err)
	}

	for n := 1; ; n++ {
		archived := fmt.Sprintf("%s.%d", dir, n)
		if _, err := os.Stat(archived); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat archive directory: %w", err)
		}
		if err := os.Rename(dir, archived); err != nil {
			return fmt.Errorf("archive wallet %d: %w", id, err)
		}
		return nil
	}
}

func (s *Store) walletDir(id domain.SessionID) string {
	return filepath.Join(s.root, fmt.Sprintf("wallet_%d", id))
}
