package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePhraseWritesRawFile(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	require.NoError(t, store.SavePhrase(context.Background(), 1, "alpha bravo charlie"))

	data, err := os.ReadFile(filepath.Join(root, "wallet_1", "mnemonic.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha bravo charlie\n", string(data))

	info, err := os.Stat(filepath.Join(root, "wallet_1", "mnemonic.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSavePhraseRejectsEmptyPhrase(t *testing.T) {
	store := NewStore(t.TempDir())

	assert.Error(t, store.SavePhrase(context.Background(), 1, ""))
}

func TestCredentialRoundtrip(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	cred := domain.Credential{Name: "Wallet 2", Mnemonic: "alpha bravo charlie", Password: "pw123456"}
	require.NoError(t, store.SaveCredential(ctx, 2, cred))

	loaded, err := store.Credential(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, cred, loaded)
}

func TestCredentialMissingWallet(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Credential(context.Background(), 9)

	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestSaveCredentialRejectsInvalid(t *testing.T) {
	store := NewStore(t.TempDir())

	err := store.SaveCredential(context.Background(), 1, domain.Credential{Name: "Wallet 1"})

	assert.Error(t, err)
}

func TestArchiveMovesDirectoryAside(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	require.NoError(t, store.SavePhrase(ctx, 3, "first phrase"))
	require.NoError(t, store.Archive(ctx, 3))
	require.NoError(t, store.SavePhrase(ctx, 3, "second phrase"))
	require.NoError(t, store.Archive(ctx, 3))

	first, err := os.ReadFile(filepath.Join(root, "wallet_3.1", "mnemonic.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first phrase\n", string(first))

	second, err := os.ReadFile(filepath.Join(root, "wallet_3.2", "mnemonic.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second phrase\n", string(second))

	_, err = os.Stat(filepath.Join(root, "wallet_3"))
	assert.True(t, os.IsNotExist(err))
}

func TestArchiveMissingDirectoryIsNoop(t *testing.T) {
	store := NewStore(t.TempDir())

	assert.NoError(t, store.Archive(context.Background(), 8))
}
