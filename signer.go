package minisafe

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer is an authorization context bound to one account.
// It is required to submit state-changing contract calls.
type Signer interface {
	// Address returns the account the signer is bound to.
	Address() common.Address

	// SignTx signs tx for the given chain and returns the signed copy.
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Wallet supplies account authorization and transaction signing.
// Implementations hold keys locally (evm.KeyWallet) or delegate to an
// external wallet over JSON-RPC (evm.RPCWallet).
type Wallet interface {
	// RequestAccounts asks the wallet for the accounts the user has authorized.
	// The first account is the active one.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Signer returns a signer bound to account.
	Signer(account common.Address) (Signer, error)
}
