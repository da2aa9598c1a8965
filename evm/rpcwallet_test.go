package evm

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mark3labs/minisafe-go"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// fakeWalletServer is a minimal JSON-RPC wallet backed by the test key.
type fakeWalletServer struct {
	mu                sync.Mutex
	supportsRequest   bool
	bareSignResult    bool
	methods           []string
	lastSignArguments signTxArgs
}

func (f *fakeWalletServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.methods = append(f.methods, req.Method)
	f.mu.Unlock()

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "eth_requestAccounts":
		if !f.supportsRequest {
			resp.Error = &rpcError{Code: -32601, Message: "the method eth_requestAccounts does not exist/is not available"}
			break
		}
		resp.Result = []string{testAddress.Hex()}
	case "eth_accounts":
		resp.Result = []string{testAddress.Hex()}
	case "eth_signTransaction":
		raw, err := f.sign(req.Params[0])
		if err != nil {
			resp.Error = &rpcError{Code: -32000, Message: err.Error()}
			break
		}
		if f.bareSignResult {
			resp.Result = hexutil.Bytes(raw)
		} else {
			resp.Result = map[string]interface{}{"raw": hexutil.Bytes(raw)}
		}
	default:
		resp.Error = &rpcError{Code: -32601, Message: "method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeWalletServer) sign(param json.RawMessage) ([]byte, error) {
	var args signTxArgs
	if err := json.Unmarshal(param, &args); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastSignArguments = args
	f.mu.Unlock()

	key, err := crypto.HexToECDSA(testPrivateKeyHex)
	if err != nil {
		return nil, err
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(args.Nonce),
		GasPrice: args.GasPrice.ToInt(),
		Gas:      uint64(args.Gas),
		To:       args.To,
		Value:    args.Value.ToInt(),
		Data:     args.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(args.ChainID.ToInt()), key)
	if err != nil {
		return nil, err
	}
	return signed.MarshalBinary()
}

func (f *fakeWalletServer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func newTestRPCWallet(t *testing.T, fake *fakeWalletServer) *RPCWallet {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	wallet, err := DialRPCWallet(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("DialRPCWallet: %v", err)
	}
	t.Cleanup(wallet.Close)
	return wallet
}

func TestRPCWallet_RequestAccounts(t *testing.T) {
	tests := []struct {
		name            string
		supportsRequest bool
		wantMethods     []string
	}{
		{
			name:            "eth_requestAccounts supported",
			supportsRequest: true,
			wantMethods:     []string{"eth_requestAccounts"},
		},
		{
			name:            "falls back to eth_accounts",
			supportsRequest: false,
			wantMethods:     []string{"eth_requestAccounts", "eth_accounts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeWalletServer{supportsRequest: tt.supportsRequest}
			wallet := newTestRPCWallet(t, fake)

			accounts, err := wallet.RequestAccounts(context.Background())
			if err != nil {
				t.Fatalf("RequestAccounts: %v", err)
			}
			if len(accounts) != 1 || accounts[0] != testAddress {
				t.Fatalf("accounts = %v, want [%s]", accounts, testAddress.Hex())
			}

			got := fake.calls()
			if len(got) != len(tt.wantMethods) {
				t.Fatalf("methods = %v, want %v", got, tt.wantMethods)
			}
			for i := range got {
				if got[i] != tt.wantMethods[i] {
					t.Errorf("method[%d] = %s, want %s", i, got[i], tt.wantMethods[i])
				}
			}
		})
	}
}

func TestRPCWallet_SignTx(t *testing.T) {
	for _, bare := range []bool{false, true} {
		name := "geth envelope"
		if bare {
			name = "bare hex result"
		}
		t.Run(name, func(t *testing.T) {
			fake := &fakeWalletServer{supportsRequest: true, bareSignResult: bare}
			wallet := newTestRPCWallet(t, fake)

			signer, err := wallet.Signer(testAddress)
			if err != nil {
				t.Fatalf("Signer: %v", err)
			}

			to := common.HexToAddress(minisafe.DefaultContractAddress)
			tx := types.NewTx(&types.LegacyTx{
				Nonce:    7,
				GasPrice: big.NewInt(5_000_000_000),
				Gas:      6_000_000,
				To:       &to,
				Value:    new(big.Int),
				Data:     []byte{0x01, 0x02},
			})
			chainID := big.NewInt(minisafe.CeloMainnet.ChainID)

			signed, err := signer.SignTx(context.Background(), tx, chainID)
			if err != nil {
				t.Fatalf("SignTx: %v", err)
			}
			if signed.Nonce() != 7 || signed.Gas() != 6_000_000 {
				t.Errorf("signed tx fields changed: nonce=%d gas=%d", signed.Nonce(), signed.Gas())
			}
			if fake.lastSignArguments.From != testAddress {
				t.Errorf("from = %s, want %s", fake.lastSignArguments.From.Hex(), testAddress.Hex())
			}
			if fake.lastSignArguments.ChainID.ToInt().Cmp(chainID) != 0 {
				t.Errorf("chainId = %s, want %s", fake.lastSignArguments.ChainID.ToInt(), chainID)
			}
		})
	}
}

func TestRPCWallet_SignTxWrongAccount(t *testing.T) {
	fake := &fakeWalletServer{supportsRequest: true}
	wallet := newTestRPCWallet(t, fake)

	// The fake always signs with the test key, so a signer bound to another
	// account must reject the result.
	other := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	signer, _ := wallet.Signer(other)

	to := common.HexToAddress(minisafe.DefaultContractAddress)
	tx := types.NewTx(&types.LegacyTx{GasPrice: big.NewInt(1), Gas: 21000, To: &to, Value: new(big.Int)})

	_, err := signer.SignTx(context.Background(), tx, big.NewInt(minisafe.CeloMainnet.ChainID))
	if !errors.Is(err, minisafe.ErrUnknownAccount) {
		t.Errorf("expected ErrUnknownAccount, got %v", err)
	}
}
