package application

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExtensionURL = "chrome-extension://ext/app.html"

func testProvisioner(vault *fakeVault) *Provisioner {
	return NewProvisioner(ProvisionConfig{
		ExtensionURL: testExtensionURL,
		Flow:         testFlowConfig(),
	}, vault, zerolog.Nop())
}

type provisionFixture struct {
	env        *fakeEnv
	page       *fakePage
	writedowns []*fakeElement
	inputs     []*fakeElement
	nameInput  *fakeElement
	passwords  []*fakeElement
}

func newProvisionFixture(words ...string) *provisionFixture {
	f := &provisionFixture{env: newFakeEnv()}

	f.page = f.env.page(testExtensionURL)
	f.page.put(locAllowClipboard)
	f.page.put(locCreateWallet)
	f.page.put(locRecoveryRadio)
	f.page.put(locSetupNext)
	f.writedowns = f.page.putList(locWordWritedown, words...)
	blanks := make([]string, len(words))
	f.inputs = f.page.putList(locWordInput, blanks...)
	f.page.put(locWordInput)
	f.nameInput = f.page.put(locWalletName)
	f.passwords = f.page.putList(locPasswordInput, "", "")

	return f
}

func TestCreateWalletCapturesPhraseAndCredential(t *testing.T) {
	words := []string{"abandon", "ability", "able"}
	f := newProvisionFixture(words...)
	vault := newFakeVault()
	provisioner := testProvisioner(vault)

	cred, err := provisioner.CreateWallet(context.Background(), 3, f.env, "pw123456")

	require.NoError(t, err)
	assert.Equal(t, "Wallet 3", cred.Name)
	assert.Equal(t, strings.Join(words, " "), cred.Mnemonic)
	assert.Equal(t, "pw123456", cred.Password)

	assert.Equal(t, 1, vault.archived[3])
	assert.Equal(t, cred.Mnemonic, vault.phrases[3])
	assert.Equal(t, cred, vault.credentials[3])
}

func TestCreateWalletConfirmsWordsIndividually(t *testing.T) {
	words := []string{"alpha", "bravo", "charlie"}
	f := newProvisionFixture(words...)
	vault := newFakeVault()
	provisioner := testProvisioner(vault)

	_, err := provisioner.CreateWallet(context.Background(), 1, f.env, "pw123456")

	require.NoError(t, err)
	for i, input := range f.inputs {
		assert.Equal(t, []string{words[i]}, input.fills)
	}
}

func TestCreateWalletFillsNameAndBothPasswordFields(t *testing.T) {
	f := newProvisionFixture("alpha", "bravo")
	vault := newFakeVault()
	provisioner := testProvisioner(vault)

	_, err := provisioner.CreateWallet(context.Background(), 7, f.env, "pw123456")

	require.NoError(t, err)
	assert.Equal(t, []string{"Wallet 7"}, f.nameInput.fills)
	assert.Equal(t, []string{"pw123456"}, f.passwords[0].fills)
	assert.Equal(t, []string{"pw123456"}, f.passwords[1].fills)
}

func TestCreateWalletKeepsGeneratedPhraseWhenWritedownEmpty(t *testing.T) {
	f := newProvisionFixture()
	vault := newFakeVault()
	provisioner := testProvisioner(vault)

	cred, err := provisioner.CreateWallet(context.Background(), 2, f.env, "pw123456")

	require.NoError(t, err)
	// No words on screen to capture, so the locally generated phrase
	// stands: 24 words of BIP-39 entropy.
	assert.Len(t, strings.Fields(cred.Mnemonic), 24)
	assert.Equal(t, cred.Mnemonic, vault.phrases[2])
}

func TestCreateWalletFailsWhenConfirmationNeverAppears(t *testing.T) {
	f := newProvisionFixture("alpha")
	f.page.elements[locWordInput.String()].absent = true
	vault := newFakeVault()
	provisioner := testProvisioner(vault)

	_, err := provisioner.CreateWallet(context.Background(), 1, f.env, "pw123456")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "await phrase confirmation")
	// The captured phrase was already persisted before the UI failed.
	assert.NotEmpty(t, vault.phrases[1])
}
