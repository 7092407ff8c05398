package domain

import (
	"fmt"
	"strings"
)

// Credential is the artifact produced once during wallet setup: the
// recovery phrase reported by the extension and the shared unlock
// password. Immutable after creation.
type Credential struct {
	Name     string
	Mnemonic string
	Password string
}

func WalletName(id SessionID) string {
	return fmt.Sprintf("Wallet %d", id)
}

func (c Credential) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("wallet name is required")
	}
	if strings.TrimSpace(c.Mnemonic) == "" {
		return fmt.Errorf("mnemonic is required")
	}
	if strings.TrimSpace(c.Password) == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// Words splits the recovery phrase into its word list.
func (c Credential) Words() []string {
	return strings.Fields(c.Mnemonic)
}
