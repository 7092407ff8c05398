package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	"github.com/rs/zerolog"
	bip39 "github.com/tyler-smith/go-bip39"
)

const mnemonicEntropyBits = 256 // 24 words

var (
	locAllowClipboard = ports.ByText("button", "Allow")
	locCreateWallet   = ports.BySelector(`[data-testid="create-wallet-button"]`)
	locRecoveryRadio  = ports.BySelector(`[data-testid="radio-btn-test-id-mnemonic"]`)
	locSetupNext      = ports.BySelector(`[data-testid="wallet-setup-step-btn-next"]`)
	locWordWritedown  = ports.BySelector(`[data-testid="mnemonic-word-writedown"]`)
	locWordInput      = ports.BySelector(`input[data-testid="mnemonic-word-input"]`)
	locWalletName     = ports.BySelector(`input[data-testid="wallet-name-input"]`)
	locAnyTextInput   = ports.BySelector(`input[type="text"]`)
	locPasswordInput  = ports.BySelector(`input[type="password"]`)
	locCreateButton   = ports.ByText("button", "Create")
)

type ProvisionConfig struct {
	// ExtensionURL is the wallet extension's onboarding page.
	ExtensionURL string
	Flow         FlowConfig
}

// Provisioner creates the wallet inside a fresh environment and
// persists the credential artifact.
type Provisioner struct {
	cfg    ProvisionConfig
	vault  ports.WalletVault
	runner *flowRunner
	log    zerolog.Logger
}

func NewProvisioner(cfg ProvisionConfig, vault ports.WalletVault, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		cfg:    cfg,
		vault:  vault,
		runner: newFlowRunner(cfg.Flow, logger),
		log:    logger,
	}
}

// CreateWallet drives the extension's wallet-creation flow. The phrase
// confirmation is typed word by word; the clipboard is shared across
// concurrent sessions and would race.
func (p *Provisioner) CreateWallet(ctx context.Context, id domain.SessionID, env ports.Env, password string) (domain.Credential, error) {
	if err := p.vault.Archive(ctx, id); err != nil {
		return domain.Credential{}, fmt.Errorf("archive previous wallet: %w", err)
	}

	phrase, err := generateMnemonic()
	if err != nil {
		return domain.Credential{}, fmt.Errorf("generate mnemonic: %w", err)
	}
	if err := p.vault.SavePhrase(ctx, id, phrase); err != nil {
		return domain.Credential{}, fmt.Errorf("save provisional phrase: %w", err)
	}

	page, err := env.OpenPage(ctx, p.cfg.ExtensionURL)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("open extension page: %w", err)
	}
	p.log.Info().Int("session", int(id)).Msg("wallet extension opened")

	// Clipboard permission prompt shows up on some profiles only.
	if res := p.runner.step(ctx, id, page, "allow clipboard", locAllowClipboard, 3*time.Second, clickAction()); res.Failed() {
		return domain.Credential{}, errors.New(res.Detail)
	}

	if res := p.runner.requireStep(ctx, id, page, "create wallet", locCreateWallet, 20*time.Second, clickAction()); res.Failed() {
		return domain.Credential{}, errors.New(res.Detail)
	}

	// Recovery-method chooser is an optional intermediate screen.
	if res := p.runner.step(ctx, id, page, "recovery method", locRecoveryRadio, 5*time.Second, clickAction()); res.Status == StepDone {
		if res := p.runner.requireStep(ctx, id, page, "recovery method next", locSetupNext, 0, clickAction()); res.Failed() {
			return domain.Credential{}, errors.New(res.Detail)
		}
	} else if res.Failed() {
		return domain.Credential{}, errors.New(res.Detail)
	}

	// The writedown screen is ready once its next button renders.
	next, err := p.runner.await(ctx, page, locSetupNext, 0)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("await writedown screen: %w", err)
	}

	words, err := p.captureWords(ctx, page)
	if err != nil {
		return domain.Credential{}, err
	}
	if len(words) > 0 {
		// Keep the extension-generated phrase, not the provisional one.
		phrase = strings.Join(words, " ")
		if err := p.vault.SavePhrase(ctx, id, phrase); err != nil {
			return domain.Credential{}, fmt.Errorf("save captured phrase: %w", err)
		}
	} else {
		words = strings.Fields(phrase)
	}
	p.log.Info().Int("session", int(id)).Int("words", len(words)).Msg("recovery phrase captured")

	cred := domain.Credential{Name: domain.WalletName(id), Mnemonic: phrase, Password: password}
	if err := p.vault.SaveCredential(ctx, id, cred); err != nil {
		return domain.Credential{}, fmt.Errorf("save credential: %w", err)
	}

	if err := next.Click(ctx); err != nil {
		return domain.Credential{}, fmt.Errorf("leave writedown screen: %w", err)
	}

	if err := p.confirmWords(ctx, id, page, words); err != nil {
		return domain.Credential{}, err
	}

	if err := p.nameAndProtect(ctx, id, page, cred); err != nil {
		return domain.Credential{}, err
	}

	p.log.Info().Int("session", int(id)).Str("wallet", cred.Name).Msg("wallet created")
	return cred, nil
}

func (p *Provisioner) captureWords(ctx context.Context, page ports.Page) ([]string, error) {
	elements, err := page.FindAll(ctx, locWordWritedown)
	if err != nil {
		return nil, fmt.Errorf("capture phrase words: %w", err)
	}

	words := make([]string, 0, len(elements))
	for _, el := range elements {
		word, err := el.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("read phrase word: %w", err)
		}
		word = strings.TrimSpace(word)
		if word != "" {
			words = append(words, word)
		}
	}

	return words, nil
}

func (p *Provisioner) confirmWords(ctx context.Context, id domain.SessionID, page ports.Page, words []string) error {
	if _, err := p.runner.await(ctx, page, locWordInput, 0); err != nil {
		return fmt.Errorf("await phrase confirmation: %w", err)
	}

	inputs, err := page.FindAll(ctx, locWordInput)
	if err != nil {
		return fmt.Errorf("locate phrase inputs: %w", err)
	}

	for i, word := range words {
		if i >= len(inputs) {
			break
		}
		if err := inputs[i].Fill(ctx, word); err != nil {
			return fmt.Errorf("fill phrase word %d: %w", i+1, err)
		}
	}
	p.log.Info().Int("session", int(id)).Int("words", len(words)).Msg("phrase confirmed word by word")

	if res := p.runner.requireStep(ctx, id, page, "confirm phrase", locSetupNext, 0, clickAction()); res.Failed() {
		return errors.New(res.Detail)
	}

	return nil
}

func (p *Provisioner) nameAndProtect(ctx context.Context, id domain.SessionID, page ports.Page, cred domain.Credential) error {
	name, err := p.runner.await(ctx, page, locWalletName, 5*time.Second)
	if errors.Is(err, domain.ErrElementNotFound) {
		name, err = p.runner.await(ctx, page, locAnyTextInput, 5*time.Second)
	}
	if err == nil {
		if fillErr := name.Fill(ctx, cred.Name); fillErr != nil {
			return fmt.Errorf("set wallet name: %w", fillErr)
		}
	} else if !errors.Is(err, domain.ErrElementNotFound) {
		return fmt.Errorf("locate wallet name input: %w", err)
	}

	passwords, err := page.FindAll(ctx, locPasswordInput)
	if err != nil {
		return fmt.Errorf("locate password inputs: %w", err)
	}
	if len(passwords) >= 2 {
		if err := passwords[0].Fill(ctx, cred.Password); err != nil {
			return fmt.Errorf("set password: %w", err)
		}
		if err := passwords[1].Fill(ctx, cred.Password); err != nil {
			return fmt.Errorf("confirm password: %w", err)
		}
	}

	res := p.runner.step(ctx, id, page, "finish setup", locSetupNext, 0, clickAction())
	if res.Status == StepSkipped {
		res = p.runner.requireStep(ctx, id, page, "finish setup", locCreateButton, 0, clickAction())
	}
	if res.Failed() {
		return errors.New(res.Detail)
	}

	return nil
}

func generateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}
