// Package session turns a wallet into a signer bound to the active account.
// Every call to Connect asks the wallet again; nothing is cached between actions.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/minisafe-go"
)

// Provider obtains signers from a wallet.
type Provider struct {
	wallet minisafe.Wallet
	logger *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a Provider. A nil wallet is allowed; Connect then
// reports minisafe.ErrNoWallet.
func NewProvider(wallet minisafe.Wallet, opts ...Option) *Provider {
	p := &Provider{wallet: wallet, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available reports whether a wallet is configured.
func (p *Provider) Available() bool {
	return p.wallet != nil
}

// Connect requests the authorized accounts and returns a signer for the first one.
// It blocks for as long as the wallet does; cancel ctx to give up.
func (p *Provider) Connect(ctx context.Context) (minisafe.Signer, error) {
	if p.wallet == nil {
		return nil, minisafe.ErrNoWallet
	}

	accounts, err := p.wallet.RequestAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, minisafe.ErrNoAccounts
	}

	signer, err := p.wallet.Signer(accounts[0])
	if err != nil {
		return nil, fmt.Errorf("signer for %s: %w", accounts[0].Hex(), err)
	}

	p.logger.Debug("wallet connected", "account", accounts[0].Hex(), "authorized", len(accounts))
	return signer, nil
}
