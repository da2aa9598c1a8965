package minisafe

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Gateway exposes one call per MiniSafe contract method.
// Mutating calls block until the transaction receipt is available.
type Gateway interface {
	// Balances returns the native CELO saving recorded for account.
	Balances(ctx context.Context, account common.Address) (*big.Int, error)

	// GetBalance returns the saving recorded for account in token.
	GetBalance(ctx context.Context, account, token common.Address) (*big.Int, error)

	// BalanceOf returns the account's MiniSafe bonus token balance.
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)

	Deposit(ctx context.Context, signer Signer, token common.Address, amount *big.Int) (*types.Receipt, error)
	Withdraw(ctx context.Context, signer Signer, token common.Address) (*types.Receipt, error)
	BreakTimeLock(ctx context.Context, signer Signer, token common.Address) (*types.Receipt, error)

	// AllMerchant returns the 1-based ids of every registered merchant.
	AllMerchant(ctx context.Context) ([]*big.Int, error)

	// GetMerchantInfo returns the merchant stored at the 0-based index.
	GetMerchantInfo(ctx context.Context, index *big.Int) (MerchantInfo, error)

	AddMerchant(ctx context.Context, signer Signer, name, description string, merchant common.Address) (*types.Receipt, error)
	UpdateMerchant(ctx context.Context, signer Signer, id *big.Int, name, description string, merchant common.Address) (*types.Receipt, error)

	// Send pays amount base units to the merchant address.
	Send(ctx context.Context, signer Signer, merchant common.Address, amount *big.Int) (*types.Receipt, error)
}
