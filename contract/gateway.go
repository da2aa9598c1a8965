// Package contract implements minisafe.Gateway over an Ethereum JSON-RPC backend.
// Reads go through eth_call; writes are signed by the session signer, submitted
// and awaited until their receipt is available.
package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mark3labs/minisafe-go"
	"github.com/mark3labs/minisafe-go/retry"
	"github.com/mark3labs/minisafe-go/validation"
)

// DefaultGasLimit is the fixed gas limit applied to every transaction.
// No gas estimation is performed.
const DefaultGasLimit uint64 = 6_000_000

// Backend is the subset of the Ethereum JSON-RPC API the gateway uses.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// chainIDReader is implemented by backends that can report their chain id.
type chainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Gateway implements minisafe.Gateway.
type Gateway struct {
	backend  Backend
	address  common.Address
	abi      abi.ABI
	gasLimit uint64
	polling  retry.Config
	logger   *slog.Logger

	// chainMu guards chainID, which is resolved from the backend on first write
	// unless WithChainID set it.
	chainMu sync.Mutex
	chainID *big.Int
}

var _ minisafe.Gateway = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway) error

// WithChainID sets the chain id used for signing. Without it the gateway asks the backend.
func WithChainID(chainID int64) Option {
	return func(g *Gateway) error {
		if chainID <= 0 {
			return fmt.Errorf("invalid chain id: %d", chainID)
		}
		g.chainID = big.NewInt(chainID)
		return nil
	}
}

// WithGasLimit overrides DefaultGasLimit.
func WithGasLimit(limit uint64) Option {
	return func(g *Gateway) error {
		if limit == 0 {
			return errors.New("gas limit must be positive")
		}
		g.gasLimit = limit
		return nil
	}
}

// WithReceiptPolling sets how the gateway waits for receipts.
func WithReceiptPolling(config retry.Config) Option {
	return func(g *Gateway) error {
		g.polling = config
		return nil
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// New creates a gateway for the contract at address.
func New(backend Backend, address string, opts ...Option) (*Gateway, error) {
	contractAddress, err := validation.ParseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("contract address: %w", err)
	}

	g := &Gateway{
		backend:  backend,
		address:  contractAddress,
		abi:      parsedABI,
		gasLimit: DefaultGasLimit,
		polling:  retry.ReceiptPolling,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// NewForNetwork creates a gateway for the network's contract and chain id.
func NewForNetwork(backend Backend, network minisafe.NetworkConfig, opts ...Option) (*Gateway, error) {
	if network.ContractAddress == "" {
		return nil, fmt.Errorf("%w: %s", minisafe.ErrNoContract, network.Name)
	}
	opts = append([]Option{WithChainID(network.ChainID)}, opts...)
	return New(backend, network.ContractAddress, opts...)
}

// Dial connects to a JSON-RPC node.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return client, nil
}

// Address returns the contract address.
func (g *Gateway) Address() common.Address {
	return g.address
}

// Balances implements minisafe.Gateway.
func (g *Gateway) Balances(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := g.call(ctx, MethodBalances, account)
	if err != nil {
		return nil, err
	}
	return bigOutput(out, 0, MethodBalances)
}

// GetBalance implements minisafe.Gateway.
func (g *Gateway) GetBalance(ctx context.Context, account, token common.Address) (*big.Int, error) {
	out, err := g.call(ctx, MethodGetBalance, account, token)
	if err != nil {
		return nil, err
	}
	return bigOutput(out, 0, MethodGetBalance)
}

// BalanceOf implements minisafe.Gateway.
func (g *Gateway) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := g.call(ctx, MethodBalanceOf, account)
	if err != nil {
		return nil, err
	}
	return bigOutput(out, 0, MethodBalanceOf)
}

// Deposit implements minisafe.Gateway.
func (g *Gateway) Deposit(ctx context.Context, signer minisafe.Signer, token common.Address, amount *big.Int) (*types.Receipt, error) {
	return g.transact(ctx, signer, MethodDeposit, token, amount)
}

// Withdraw implements minisafe.Gateway.
func (g *Gateway) Withdraw(ctx context.Context, signer minisafe.Signer, token common.Address) (*types.Receipt, error) {
	return g.transact(ctx, signer, MethodWithdraw, token)
}

// BreakTimeLock implements minisafe.Gateway.
func (g *Gateway) BreakTimeLock(ctx context.Context, signer minisafe.Signer, token common.Address) (*types.Receipt, error) {
	return g.transact(ctx, signer, MethodBreakTimeLock, token)
}

// AllMerchant implements minisafe.Gateway.
func (g *Gateway) AllMerchant(ctx context.Context) ([]*big.Int, error) {
	out, err := g.call(ctx, MethodAllMerchant)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: unexpected output count %d", MethodAllMerchant, len(out))
	}
	ids, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type %T", MethodAllMerchant, out[0])
	}
	return ids, nil
}

// GetMerchantInfo implements minisafe.Gateway.
func (g *Gateway) GetMerchantInfo(ctx context.Context, index *big.Int) (minisafe.MerchantInfo, error) {
	out, err := g.call(ctx, MethodGetMerchantInfo, index)
	if err != nil {
		return minisafe.MerchantInfo{}, err
	}
	if len(out) != 3 {
		return minisafe.MerchantInfo{}, fmt.Errorf("%s: unexpected output count %d", MethodGetMerchantInfo, len(out))
	}

	name, ok1 := out[0].(string)
	description, ok2 := out[1].(string)
	merchant, ok3 := out[2].(common.Address)
	if !ok1 || !ok2 || !ok3 {
		return minisafe.MerchantInfo{}, fmt.Errorf("%s: unexpected output types %T, %T, %T", MethodGetMerchantInfo, out[0], out[1], out[2])
	}

	return minisafe.MerchantInfo{
		Name:        name,
		Description: description,
		Address:     merchant.Hex(),
	}, nil
}

// AddMerchant implements minisafe.Gateway.
func (g *Gateway) AddMerchant(ctx context.Context, signer minisafe.Signer, name, description string, merchant common.Address) (*types.Receipt, error) {
	return g.transact(ctx, signer, MethodAddMerchant, name, description, merchant)
}

// UpdateMerchant implements minisafe.Gateway.
func (g *Gateway) UpdateMerchant(ctx context.Context, signer minisafe.Signer, id *big.Int, name, description string, merchant common.Address) (*types.Receipt, error) {
	return g.transact(ctx, signer, MethodUpdateMerchant, id, name, description, merchant)
}

// Send implements minisafe.Gateway.
func (g *Gateway) Send(ctx context.Context, signer minisafe.Signer, merchant common.Address, amount *big.Int) (*types.Receipt, error) {
	return g.transact(ctx, signer, MethodSend, merchant, amount)
}

func (g *Gateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	out, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &g.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := g.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return values, nil
}

func (g *Gateway) transact(ctx context.Context, signer minisafe.Signer, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	chainID, err := g.resolveChainID(ctx)
	if err != nil {
		return nil, err
	}

	from := signer.Address()
	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%s: nonce: %w", method, err)
	}
	gasPrice, err := g.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: gas price: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      g.gasLimit,
		To:       &g.address,
		Value:    new(big.Int),
		Data:     data,
	})

	signed, err := signer.SignTx(ctx, tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("%s: sign: %w", method, err)
	}

	if err := g.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%s: send: %w", method, err)
	}

	hash := signed.Hash()
	g.logger.Info("transaction submitted", "method", method, "tx", hash.Hex(), "from", from.Hex(), "nonce", nonce)

	receipt, err := retry.Do(ctx, g.polling, isNotFound, func(ctx context.Context) (*types.Receipt, error) {
		return g.backend.TransactionReceipt(ctx, hash)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: wait for %s: %w", method, hash.Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		g.logger.Warn("transaction reverted", "method", method, "tx", hash.Hex(), "block", receipt.BlockNumber)
		return receipt, fmt.Errorf("%w: %s %s", minisafe.ErrTransactionReverted, method, hash.Hex())
	}

	g.logger.Info("transaction confirmed", "method", method, "tx", hash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

func (g *Gateway) resolveChainID(ctx context.Context) (*big.Int, error) {
	g.chainMu.Lock()
	defer g.chainMu.Unlock()
	if g.chainID != nil {
		return g.chainID, nil
	}
	reader, ok := g.backend.(chainIDReader)
	if !ok {
		return nil, errors.New("chain id not configured and backend cannot report it")
	}
	chainID, err := reader.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	g.chainID = chainID
	return chainID, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound)
}

func bigOutput(out []interface{}, i int, method string) (*big.Int, error) {
	if len(out) <= i {
		return nil, fmt.Errorf("%s: missing output %d", method, i)
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type %T", method, out[i])
	}
	return v, nil
}
