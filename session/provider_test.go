package session

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mark3labs/minisafe-go"
)

type stubSigner struct{ addr common.Address }

func (s stubSigner) Address() common.Address { return s.addr }

func (s stubSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return tx, nil
}

type stubWallet struct {
	accounts []common.Address
	err      error
	requests int
}

func (w *stubWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	w.requests++
	return w.accounts, w.err
}

func (w *stubWallet) Signer(account common.Address) (minisafe.Signer, error) {
	return stubSigner{addr: account}, nil
}

func TestProvider_Connect(t *testing.T) {
	first := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	second := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	rejected := errors.New("user rejected the request")

	tests := []struct {
		name     string
		wallet   minisafe.Wallet
		wantAddr common.Address
		wantErr  error
	}{
		{
			name:     "first account is active",
			wallet:   &stubWallet{accounts: []common.Address{first, second}},
			wantAddr: first,
		},
		{
			name:    "no wallet",
			wallet:  nil,
			wantErr: minisafe.ErrNoWallet,
		},
		{
			name:    "no accounts",
			wallet:  &stubWallet{},
			wantErr: minisafe.ErrNoAccounts,
		},
		{
			name:    "user rejects",
			wallet:  &stubWallet{err: rejected},
			wantErr: rejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.wallet)
			signer, err := p.Connect(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if signer.Address() != tt.wantAddr {
				t.Errorf("Address = %s, want %s", signer.Address().Hex(), tt.wantAddr.Hex())
			}
		})
	}
}

func TestProvider_ConnectAsksEveryTime(t *testing.T) {
	wallet := &stubWallet{accounts: []common.Address{common.HexToAddress("0x01")}}
	p := NewProvider(wallet)

	for i := 0; i < 3; i++ {
		if _, err := p.Connect(context.Background()); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	if wallet.requests != 3 {
		t.Errorf("RequestAccounts called %d times, want 3", wallet.requests)
	}
}

func TestProvider_Available(t *testing.T) {
	if NewProvider(nil).Available() {
		t.Error("provider without wallet should not be available")
	}
	if !NewProvider(&stubWallet{}).Available() {
		t.Error("provider with wallet should be available")
	}
}
