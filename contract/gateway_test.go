package contract

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mark3labs/minisafe-go"
	"github.com/mark3labs/minisafe-go/evm"
	"github.com/mark3labs/minisafe-go/retry"
)

const testPrivateKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	testAccount = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testToken   = common.HexToAddress(minisafe.CeloMainnet.StableToken().Address)
	fastPolling = retry.Config{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
)

// fakeBackend answers eth_call by method and records submitted transactions.
type fakeBackend struct {
	mu       sync.Mutex
	outputs  map[string][]interface{}
	calls    []ethereum.CallMsg
	sent     []*types.Transaction
	pending  int
	status   uint64
	nonce    uint64
	gasPrice *big.Int
	callErr  error
	sendErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		outputs:  make(map[string][]interface{}),
		status:   types.ReceiptStatusSuccessful,
		nonce:    7,
		gasPrice: big.NewInt(25_000_000_000),
	}
}

func (b *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	if b.callErr != nil {
		return nil, b.callErr
	}
	method, err := parsedABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(b.outputs[method.Name]...)
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return b.gasPrice, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending > 0 {
		b.pending--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: b.status, TxHash: hash, BlockNumber: big.NewInt(100), GasUsed: 21000}, nil
}

func newTestGateway(t *testing.T, backend *fakeBackend) *Gateway {
	t.Helper()
	g, err := NewForNetwork(backend, minisafe.CeloMainnet, WithReceiptPolling(fastPolling))
	if err != nil {
		t.Fatalf("NewForNetwork: %v", err)
	}
	return g
}

func newTestSigner(t *testing.T) minisafe.Signer {
	t.Helper()
	w, err := evm.NewKeyWallet(evm.WithPrivateKey(testPrivateKeyHex))
	if err != nil {
		t.Fatalf("NewKeyWallet: %v", err)
	}
	s, err := w.Signer(testAccount)
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		address string
		opts    []Option
		wantErr bool
	}{
		{name: "valid", address: minisafe.DefaultContractAddress},
		{name: "malformed address", address: "0x1234", wantErr: true},
		{name: "empty address", address: "", wantErr: true},
		{name: "zero gas limit", address: minisafe.DefaultContractAddress, opts: []Option{WithGasLimit(0)}, wantErr: true},
		{name: "negative chain id", address: minisafe.DefaultContractAddress, opts: []Option{WithChainID(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(newFakeBackend(), tt.address, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && g.Address() != common.HexToAddress(tt.address) {
				t.Errorf("Address() = %s", g.Address().Hex())
			}
		})
	}
}

func TestGatewayReads(t *testing.T) {
	backend := newFakeBackend()
	backend.outputs[MethodBalances] = []interface{}{big.NewInt(5), big.NewInt(1700000000), big.NewInt(3)}
	backend.outputs[MethodGetBalance] = []interface{}{big.NewInt(42)}
	backend.outputs[MethodBalanceOf] = []interface{}{big.NewInt(9)}
	g := newTestGateway(t, backend)
	ctx := context.Background()

	celo, err := g.Balances(ctx, testAccount)
	if err != nil || celo.Int64() != 5 {
		t.Errorf("Balances() = %v, %v; want 5", celo, err)
	}

	cusd, err := g.GetBalance(ctx, testAccount, testToken)
	if err != nil || cusd.Int64() != 42 {
		t.Errorf("GetBalance() = %v, %v; want 42", cusd, err)
	}

	bonus, err := g.BalanceOf(ctx, testAccount)
	if err != nil || bonus.Int64() != 9 {
		t.Errorf("BalanceOf() = %v, %v; want 9", bonus, err)
	}

	// getBalance must carry the account and token in that order.
	want, _ := parsedABI.Pack(MethodGetBalance, testAccount, testToken)
	if !bytes.Equal(backend.calls[1].Data, want) {
		t.Errorf("getBalance call data = %x, want %x", backend.calls[1].Data, want)
	}
	if *backend.calls[1].To != g.Address() {
		t.Errorf("call sent to %s, want contract", backend.calls[1].To.Hex())
	}
}

func TestGatewayMerchants(t *testing.T) {
	backend := newFakeBackend()
	merchant := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	backend.outputs[MethodAllMerchant] = []interface{}{[]*big.Int{big.NewInt(1), big.NewInt(2)}}
	backend.outputs[MethodGetMerchantInfo] = []interface{}{"Coffee", "Beans and cups", merchant}
	g := newTestGateway(t, backend)
	ctx := context.Background()

	ids, err := g.AllMerchant(ctx)
	if err != nil {
		t.Fatalf("AllMerchant() error = %v", err)
	}
	if len(ids) != 2 || ids[0].Int64() != 1 || ids[1].Int64() != 2 {
		t.Errorf("AllMerchant() = %v", ids)
	}

	info, err := g.GetMerchantInfo(ctx, big.NewInt(0))
	if err != nil {
		t.Fatalf("GetMerchantInfo() error = %v", err)
	}
	if info.Name != "Coffee" || info.Description != "Beans and cups" || info.Address != merchant.Hex() {
		t.Errorf("GetMerchantInfo() = %+v", info)
	}
}

func TestGatewayReadError(t *testing.T) {
	backend := newFakeBackend()
	backend.callErr = errors.New("connection refused")
	g := newTestGateway(t, backend)

	if _, err := g.Balances(context.Background(), testAccount); !errors.Is(err, backend.callErr) {
		t.Errorf("Balances() error = %v, want wrapped %v", err, backend.callErr)
	}
}

func TestGatewayWrites(t *testing.T) {
	merchant := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	amount := big.NewInt(1500000000000000000)

	tests := []struct {
		name   string
		submit func(g *Gateway, s minisafe.Signer) (*types.Receipt, error)
		method string
		args   []interface{}
	}{
		{
			name:   "deposit",
			submit: func(g *Gateway, s minisafe.Signer) (*types.Receipt, error) { return g.Deposit(context.Background(), s, testToken, amount) },
			method: MethodDeposit,
			args:   []interface{}{testToken, amount},
		},
		{
			name:   "withdraw",
			submit: func(g *Gateway, s minisafe.Signer) (*types.Receipt, error) { return g.Withdraw(context.Background(), s, testToken) },
			method: MethodWithdraw,
			args:   []interface{}{testToken},
		},
		{
			name:   "break time lock",
			submit: func(g *Gateway, s minisafe.Signer) (*types.Receipt, error) { return g.BreakTimeLock(context.Background(), s, testToken) },
			method: MethodBreakTimeLock,
			args:   []interface{}{testToken},
		},
		{
			name: "add merchant",
			submit: func(g *Gateway, s minisafe.Signer) (*types.Receipt, error) {
				return g.AddMerchant(context.Background(), s, "Coffee", "Beans", merchant)
			},
			method: MethodAddMerchant,
			args:   []interface{}{"Coffee", "Beans", merchant},
		},
		{
			name: "update merchant",
			submit: func(g *Gateway, s minisafe.Signer) (*types.Receipt, error) {
				return g.UpdateMerchant(context.Background(), s, big.NewInt(2), "Tea", "Leaves", merchant)
			},
			method: MethodUpdateMerchant,
			args:   []interface{}{big.NewInt(2), "Tea", "Leaves", merchant},
		},
		{
			name:   "send",
			submit: func(g *Gateway, s minisafe.Signer) (*types.Receipt, error) { return g.Send(context.Background(), s, merchant, amount) },
			method: MethodSend,
			args:   []interface{}{merchant, amount},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.pending = 2
			g := newTestGateway(t, backend)

			receipt, err := tt.submit(g, newTestSigner(t))
			if err != nil {
				t.Fatalf("%s error = %v", tt.method, err)
			}
			if receipt == nil || receipt.Status != types.ReceiptStatusSuccessful {
				t.Fatalf("unexpected receipt %+v", receipt)
			}
			if backend.pending != 0 {
				t.Errorf("receipt polling stopped early, %d pending left", backend.pending)
			}
			if len(backend.sent) != 1 {
				t.Fatalf("expected 1 transaction, got %d", len(backend.sent))
			}

			tx := backend.sent[0]
			want, _ := parsedABI.Pack(tt.method, tt.args...)
			if !bytes.Equal(tx.Data(), want) {
				t.Errorf("call data = %x, want %x", tx.Data(), want)
			}
			if tx.Gas() != DefaultGasLimit {
				t.Errorf("gas = %d, want %d", tx.Gas(), DefaultGasLimit)
			}
			if tx.Nonce() != backend.nonce {
				t.Errorf("nonce = %d, want %d", tx.Nonce(), backend.nonce)
			}
			if tx.GasPrice().Cmp(backend.gasPrice) != 0 {
				t.Errorf("gas price = %s, want %s", tx.GasPrice(), backend.gasPrice)
			}
			if *tx.To() != g.Address() {
				t.Errorf("to = %s, want contract", tx.To().Hex())
			}
			if tx.ChainId().Int64() != minisafe.CeloMainnet.ChainID {
				t.Errorf("chain id = %s, want %d", tx.ChainId(), minisafe.CeloMainnet.ChainID)
			}
			sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
			if err != nil || sender != testAccount {
				t.Errorf("sender = %s, %v; want %s", sender.Hex(), err, testAccount.Hex())
			}
		})
	}
}

func TestGatewayReverted(t *testing.T) {
	backend := newFakeBackend()
	backend.status = types.ReceiptStatusFailed
	g := newTestGateway(t, backend)

	receipt, err := g.Withdraw(context.Background(), newTestSigner(t), testToken)
	if !errors.Is(err, minisafe.ErrTransactionReverted) {
		t.Fatalf("expected ErrTransactionReverted, got %v", err)
	}
	if receipt == nil {
		t.Error("expected the failed receipt to be returned")
	}
}

func TestGatewaySendError(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = errors.New("insufficient funds for gas")
	g := newTestGateway(t, backend)

	_, err := g.Deposit(context.Background(), newTestSigner(t), testToken, big.NewInt(1))
	if !errors.Is(err, backend.sendErr) {
		t.Errorf("Deposit() error = %v, want wrapped %v", err, backend.sendErr)
	}
}

func TestGatewayCustomGasLimit(t *testing.T) {
	backend := newFakeBackend()
	network := minisafe.CeloAlfajores
	network.ContractAddress = minisafe.DefaultContractAddress
	g, err := NewForNetwork(backend, network, WithGasLimit(300_000), WithReceiptPolling(fastPolling))
	if err != nil {
		t.Fatalf("NewForNetwork: %v", err)
	}

	if _, err := g.Withdraw(context.Background(), newTestSigner(t), testToken); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	tx := backend.sent[0]
	if tx.Gas() != 300_000 {
		t.Errorf("gas = %d, want 300000", tx.Gas())
	}
	if tx.ChainId().Int64() != minisafe.CeloAlfajores.ChainID {
		t.Errorf("chain id = %s, want %d", tx.ChainId(), minisafe.CeloAlfajores.ChainID)
	}
}

func TestGatewayWaitCancelled(t *testing.T) {
	backend := newFakeBackend()
	backend.pending = 1 << 30
	g := newTestGateway(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := g.Withdraw(ctx, newTestSigner(t), testToken); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestGatewayChainIDRequired(t *testing.T) {
	g, err := New(newFakeBackend(), minisafe.DefaultContractAddress)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.Withdraw(context.Background(), newTestSigner(t), testToken); err == nil {
		t.Error("expected an error without a chain id")
	}
}

// chainIDBackend reports its chain id like *ethclient.Client does.
type chainIDBackend struct {
	*fakeBackend
	chainID int64
	lookups int
}

func (b *chainIDBackend) ChainID(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookups++
	return big.NewInt(b.chainID), nil
}

func TestGatewayConcurrentWritesResolveChainIDOnce(t *testing.T) {
	backend := &chainIDBackend{fakeBackend: newFakeBackend(), chainID: minisafe.CeloAlfajores.ChainID}
	g, err := New(backend, minisafe.DefaultContractAddress, WithReceiptPolling(fastPolling))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	signer := newTestSigner(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Withdraw(context.Background(), signer, testToken)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Withdraw: %v", err)
		}
	}
	if backend.lookups != 1 {
		t.Errorf("chain id lookups = %d, want 1", backend.lookups)
	}
	if len(backend.sent) != writers {
		t.Fatalf("sent = %d, want %d", len(backend.sent), writers)
	}
	for _, tx := range backend.sent {
		if tx.ChainId().Int64() != minisafe.CeloAlfajores.ChainID {
			t.Errorf("chain id = %s, want %d", tx.ChainId(), minisafe.CeloAlfajores.ChainID)
		}
	}
}

func TestNewForNetworkRequiresContract(t *testing.T) {
	if _, err := NewForNetwork(newFakeBackend(), minisafe.CeloAlfajores); !errors.Is(err, minisafe.ErrNoContract) {
		t.Errorf("alfajores without contract: err = %v, want ErrNoContract", err)
	}

	network := minisafe.CeloAlfajores
	network.ContractAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	g, err := NewForNetwork(newFakeBackend(), network)
	if err != nil {
		t.Fatalf("NewForNetwork: %v", err)
	}
	if g.Address() != common.HexToAddress(network.ContractAddress) {
		t.Errorf("address = %s, want %s", g.Address().Hex(), network.ContractAddress)
	}
}
