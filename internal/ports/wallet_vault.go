package ports

import (
	"context"

	"github.com/minhvn/lacefarm/internal/domain"
)

// WalletVault stores the per-session credential artifacts: the raw
// recovery phrase and the structured wallet record.
type WalletVault interface {
	SavePhrase(ctx context.Context, id domain.SessionID, phrase string) error
	SaveCredential(ctx context.Context, id domain.SessionID, cred domain.Credential) error
	Credential(ctx context.Context, id domain.SessionID) (domain.Credential, error)
	// Archive moves an existing wallet directory aside instead of
	// destroying it, so a re-provisioned session never silently
	// discards a generated phrase.
	Archive(ctx context.Context, id domain.SessionID) error
}
