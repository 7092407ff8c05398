package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletNameIsDeterministic(t *testing.T) {
	assert.Equal(t, "Wallet 1", WalletName(1))
	assert.Equal(t, "Wallet 42", WalletName(42))
}

func TestCredentialValidate(t *testing.T) {
	cred := Credential{Name: "Wallet 1", Mnemonic: "alpha bravo charlie", Password: "pw"}
	require.NoError(t, cred.Validate())

	assert.Error(t, Credential{Mnemonic: "alpha", Password: "pw"}.Validate())
	assert.Error(t, Credential{Name: "Wallet 1", Password: "pw"}.Validate())
	assert.Error(t, Credential{Name: "Wallet 1", Mnemonic: "alpha"}.Validate())
}

func TestCredentialWords(t *testing.T) {
	cred := Credential{Mnemonic: "alpha  bravo\tcharlie"}
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, cred.Words())
}
