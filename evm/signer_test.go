package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mark3labs/minisafe-go"
)

// Test private key (DO NOT use in production)
const testPrivateKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func TestNewKeyWallet(t *testing.T) {
	tests := []struct {
		name    string
		opts    []WalletOption
		wantErr error
	}{
		{
			name: "valid private key",
			opts: []WalletOption{WithPrivateKey(testPrivateKeyHex)},
		},
		{
			name: "valid private key with 0x prefix",
			opts: []WalletOption{WithPrivateKey("0x" + testPrivateKeyHex)},
		},
		{
			name:    "no keys",
			opts:    nil,
			wantErr: minisafe.ErrInvalidKey,
		},
		{
			name:    "invalid private key",
			opts:    []WalletOption{WithPrivateKey("invalid")},
			wantErr: minisafe.ErrInvalidKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet, err := NewKeyWallet(tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wallet.Address() != testAddress {
				t.Errorf("Address() = %s, want %s", wallet.Address().Hex(), testAddress.Hex())
			}
		})
	}
}

func TestKeyWallet_RequestAccountsOrder(t *testing.T) {
	wallet, err := NewKeyWallet(
		WithPrivateKey(testPrivateKeyHex),
		WithMnemonic(testMnemonic, 1),
	)
	if err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}

	accounts, err := wallet.RequestAccounts(context.Background())
	if err != nil {
		t.Fatalf("RequestAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0] != testAddress {
		t.Errorf("first account = %s, want %s", accounts[0].Hex(), testAddress.Hex())
	}

	// Mutating the returned slice must not change the wallet
	accounts[0] = common.Address{}
	again, _ := wallet.RequestAccounts(context.Background())
	if again[0] != testAddress {
		t.Error("RequestAccounts returned an aliased slice")
	}
}

func TestKeyWallet_RequestAccountsCancelled(t *testing.T) {
	wallet, err := NewKeyWallet(WithPrivateKey(testPrivateKeyHex))
	if err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := wallet.RequestAccounts(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestKeyWallet_SignTx(t *testing.T) {
	wallet, err := NewKeyWallet(WithPrivateKey(testPrivateKeyHex))
	if err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}

	signer, err := wallet.Signer(testAddress)
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	if signer.Address() != testAddress {
		t.Errorf("signer address = %s", signer.Address().Hex())
	}

	to := common.HexToAddress(minisafe.DefaultContractAddress)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    3,
		GasPrice: big.NewInt(25_000_000_000),
		Gas:      6_000_000,
		To:       &to,
		Value:    new(big.Int),
		Data:     []byte{0xde, 0xad, 0xbe, 0xef},
	})

	chainID := big.NewInt(minisafe.CeloAlfajores.ChainID)
	signed, err := signer.SignTx(context.Background(), tx, chainID)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("Sender: %v", err)
	}
	if from != testAddress {
		t.Errorf("recovered sender = %s, want %s", from.Hex(), testAddress.Hex())
	}
	if signed.ChainId().Cmp(chainID) != 0 {
		t.Errorf("chain id = %s, want %s", signed.ChainId(), chainID)
	}
}

func TestKeyWallet_SignerUnknownAccount(t *testing.T) {
	wallet, err := NewKeyWallet(WithPrivateKey(testPrivateKeyHex))
	if err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}

	_, err = wallet.Signer(common.HexToAddress("0x0000000000000000000000000000000000000001"))
	if !errors.Is(err, minisafe.ErrUnknownAccount) {
		t.Errorf("expected ErrUnknownAccount, got %v", err)
	}
}
