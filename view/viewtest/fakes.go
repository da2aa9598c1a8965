// Package viewtest provides in-memory sessions and gateways for testing the
// view layer and the surfaces built on it.
package viewtest

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mark3labs/minisafe-go"
)

// Account is the address every fake signer reports.
var Account = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// Signer is a minisafe.Signer that returns transactions unchanged.
type Signer struct {
	Account common.Address
}

// Address implements minisafe.Signer.
func (s Signer) Address() common.Address { return s.Account }

// SignTx implements minisafe.Signer.
func (s Signer) SignTx(_ context.Context, tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	return tx, nil
}

// Session is a fake view.Session. With Err set, Connect fails with it.
type Session struct {
	mu    sync.Mutex
	Err   error
	calls int
}

// Connect returns a Signer for Account or Err.
func (s *Session) Connect(ctx context.Context) (minisafe.Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return Signer{Account: Account}, nil
}

// Calls returns how many times Connect was called.
func (s *Session) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Call records one gateway invocation.
type Call struct {
	Method string
	Args   []interface{}
}

// Gateway is an in-memory minisafe.Gateway. It keeps per-token savings and a
// merchant registry so writes are visible to later reads.
type Gateway struct {
	mu sync.Mutex

	Savings   map[common.Address]*big.Int
	Bonus     *big.Int
	Merchants []minisafe.MerchantInfo

	// Errs makes the named method fail with the given error.
	Errs map[string]error

	calls []Call
}

// NewGateway creates an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{
		Savings: make(map[common.Address]*big.Int),
		Bonus:   new(big.Int),
		Errs:    make(map[string]error),
	}
}

// SetErr makes method fail with err; a nil err clears it.
func (g *Gateway) SetErr(method string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.Errs, method)
		return
	}
	g.Errs[method] = err
}

// Calls returns the recorded invocations.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// Count returns how many times method was called.
func (g *Gateway) Count(method string) int {
	n := 0
	for _, c := range g.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Last returns the most recent invocation of method.
func (g *Gateway) Last(method string) (Call, bool) {
	calls := g.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method {
			return calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets the recorded invocations.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

func (g *Gateway) record(method string, args ...interface{}) error {
	g.calls = append(g.calls, Call{Method: method, Args: args})
	return g.Errs[method]
}

func (g *Gateway) receipt() *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      common.BigToHash(big.NewInt(int64(len(g.calls)))),
		BlockNumber: big.NewInt(int64(len(g.calls))),
	}
}

func (g *Gateway) saving(token common.Address) *big.Int {
	if v, ok := g.Savings[token]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (g *Gateway) Balances(_ context.Context, account common.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("balances", account); err != nil {
		return nil, err
	}
	return g.saving(common.HexToAddress(minisafe.NativeTokenAddress)), nil
}

func (g *Gateway) GetBalance(_ context.Context, account, token common.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("getBalance", account, token); err != nil {
		return nil, err
	}
	return g.saving(token), nil
}

func (g *Gateway) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("balanceOf", account); err != nil {
		return nil, err
	}
	return new(big.Int).Set(g.Bonus), nil
}

func (g *Gateway) Deposit(_ context.Context, _ minisafe.Signer, token common.Address, amount *big.Int) (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("deposit", token, amount); err != nil {
		return nil, err
	}
	g.Savings[token] = new(big.Int).Add(g.saving(token), amount)
	g.Bonus = new(big.Int).Add(g.Bonus, big.NewInt(1))
	return g.receipt(), nil
}

func (g *Gateway) Withdraw(_ context.Context, _ minisafe.Signer, token common.Address) (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("withdraw", token); err != nil {
		return nil, err
	}
	delete(g.Savings, token)
	return g.receipt(), nil
}

func (g *Gateway) BreakTimeLock(_ context.Context, _ minisafe.Signer, token common.Address) (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("breakTimeLock", token); err != nil {
		return nil, err
	}
	delete(g.Savings, token)
	return g.receipt(), nil
}

func (g *Gateway) AllMerchant(context.Context) ([]*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("allMerchant"); err != nil {
		return nil, err
	}
	ids := make([]*big.Int, len(g.Merchants))
	for i := range g.Merchants {
		ids[i] = big.NewInt(int64(i + 1))
	}
	return ids, nil
}

func (g *Gateway) GetMerchantInfo(_ context.Context, index *big.Int) (minisafe.MerchantInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("getMerchantInfo", index); err != nil {
		return minisafe.MerchantInfo{}, err
	}
	i := int(index.Int64())
	if i < 0 || i >= len(g.Merchants) {
		return minisafe.MerchantInfo{}, errIndex
	}
	return g.Merchants[i], nil
}

func (g *Gateway) AddMerchant(_ context.Context, _ minisafe.Signer, name, description string, merchant common.Address) (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("addMerchant", name, description, merchant); err != nil {
		return nil, err
	}
	g.Merchants = append(g.Merchants, minisafe.MerchantInfo{Name: name, Description: description, Address: merchant.Hex()})
	return g.receipt(), nil
}

func (g *Gateway) UpdateMerchant(_ context.Context, _ minisafe.Signer, id *big.Int, name, description string, merchant common.Address) (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("updateMerchant", id, name, description, merchant); err != nil {
		return nil, err
	}
	i := int(id.Int64()) - 1
	if i < 0 || i >= len(g.Merchants) {
		return nil, errIndex
	}
	g.Merchants[i] = minisafe.MerchantInfo{Name: name, Description: description, Address: merchant.Hex()}
	return g.receipt(), nil
}

func (g *Gateway) Send(_ context.Context, _ minisafe.Signer, merchant common.Address, amount *big.Int) (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("send", merchant, amount); err != nil {
		return nil, err
	}
	return g.receipt(), nil
}

var _ minisafe.Gateway = (*Gateway)(nil)

var errIndex = errors.New("viewtest: merchant index out of range")
