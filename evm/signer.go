// Package evm provides wallets for EVM-compatible chains: KeyWallet holds
// private keys in process, RPCWallet delegates to an external wallet over JSON-RPC.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mark3labs/minisafe-go"
)

// KeyWallet implements minisafe.Wallet with in-process private keys.
// Every option adds one account; the first account added is the active one.
type KeyWallet struct {
	keys     []*ecdsa.PrivateKey
	accounts []common.Address
}

// WalletOption configures a KeyWallet.
type WalletOption func(*KeyWallet) error

// NewKeyWallet creates a new wallet with the given options.
func NewKeyWallet(opts ...WalletOption) (*KeyWallet, error) {
	w := &KeyWallet{}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	if len(w.keys) == 0 {
		return nil, minisafe.ErrInvalidKey
	}

	return w, nil
}

func (w *KeyWallet) addKey(key *ecdsa.PrivateKey) {
	w.keys = append(w.keys, key)
	w.accounts = append(w.accounts, crypto.PubkeyToAddress(key.PublicKey))
}

// WithPrivateKey adds an account from a hex private key.
func WithPrivateKey(hexKey string) WalletOption {
	return func(w *KeyWallet) error {
		// Remove 0x prefix if present
		hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")

		privateKey, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return minisafe.ErrInvalidKey
		}

		w.addKey(privateKey)
		return nil
	}
}

// RequestAccounts implements minisafe.Wallet. Local keys are always authorized.
func (w *KeyWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accounts := make([]common.Address, len(w.accounts))
	copy(accounts, w.accounts)
	return accounts, nil
}

// Signer implements minisafe.Wallet.
func (w *KeyWallet) Signer(account common.Address) (minisafe.Signer, error) {
	for i, a := range w.accounts {
		if a == account {
			return &KeySigner{key: w.keys[i], address: a}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", minisafe.ErrUnknownAccount, account.Hex())
}

// Address returns the active account.
func (w *KeyWallet) Address() common.Address {
	return w.accounts[0]
}

// KeySigner signs transactions with a single private key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// Address implements minisafe.Signer.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignTx implements minisafe.Signer.
func (s *KeySigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}
