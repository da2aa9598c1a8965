// Package view holds the view state of the MiniSafe client and the user actions
// that change it. Every surface (terminal UI, HTTP, MCP, CLI) drives the same
// Controller.
//
// Each action connects the wallet again, submits or reads through the gateway
// and then re-reads what the action affected. State is replaced whole; a
// failed action leaves the previous balances and merchants in place.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/mark3labs/minisafe-go"
	"github.com/mark3labs/minisafe-go/validation"
)

// Action names used in logs and in Status.
const (
	ActionRefresh          = "refresh"
	ActionRefreshMerchants = "refresh_merchants"
	ActionSelectToken      = "select_token"
	ActionDeposit          = "deposit"
	ActionWithdraw         = "withdraw"
	ActionBreakLock        = "break_lock"
	ActionAddMerchant      = "add_merchant"
	ActionModifyMerchant   = "modify_merchant"
	ActionSendPayment      = "send_payment"
)

// Session acquires a signer for the active account. *session.Provider implements it.
type Session interface {
	Connect(ctx context.Context) (minisafe.Signer, error)
}

// Status describes the outcome of the most recent action.
type Status struct {
	Action   string    `json:"action,omitempty"`
	ActionID string    `json:"actionId,omitempty"`
	Err      error     `json:"-"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at,omitempty"`
}

// OK reports whether the last action succeeded.
func (s Status) OK() bool {
	return s.Err == nil
}

// State is a copy of the view state.
type State struct {
	Account       common.Address           `json:"account"`
	Connected     bool                     `json:"connected"`
	Balances      minisafe.BalanceSnapshot `json:"balances"`
	Merchants     []minisafe.Merchant      `json:"merchants"`
	SelectedToken minisafe.TokenConfig     `json:"selectedToken"`
	Pending       int                      `json:"pending"`
	Status        Status                   `json:"status"`
}

// Merchant returns the merchant with the given id.
func (s State) Merchant(id uint64) (minisafe.Merchant, bool) {
	for _, m := range s.Merchants {
		if m.ID == id {
			return m, true
		}
	}
	return minisafe.Merchant{}, false
}

// Controller owns the view state. It is safe for concurrent use; concurrent
// actions are not deduplicated.
type Controller struct {
	session Session
	gateway minisafe.Gateway
	network minisafe.NetworkConfig
	logger  *slog.Logger

	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

// Option configures a Controller.
type Option func(*Controller) error

// WithNetwork sets the network whose tokens the controller offers. Defaults to CeloMainnet.
func WithNetwork(network minisafe.NetworkConfig) Option {
	return func(c *Controller) error {
		if len(network.Tokens) == 0 {
			return fmt.Errorf("network %q has no tokens", network.Name)
		}
		c.network = network
		return nil
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) error {
		c.logger = logger
		return nil
	}
}

// OnChange registers fn to be called with a copy of the state after every change.
// fn runs on the goroutine that made the change.
func OnChange(fn func(State)) Option {
	return func(c *Controller) error {
		c.listeners = append(c.listeners, fn)
		return nil
	}
}

// Subscribe registers fn like OnChange on a controller that already exists.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// NewController creates a controller.
func NewController(session Session, gateway minisafe.Gateway, opts ...Option) (*Controller, error) {
	if session == nil {
		return nil, errors.New("session is required")
	}
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}

	c := &Controller{
		session: session,
		gateway: gateway,
		network: minisafe.CeloMainnet,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.state.SelectedToken = c.network.DefaultToken()
	c.state.Balances = minisafe.NewBalanceSnapshot(nil, nil, nil, c.network)
	return c, nil
}

// Network returns the network the controller was configured with.
func (c *Controller) Network() minisafe.NetworkConfig {
	return c.network
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyState()
}

func (c *Controller) copyState() State {
	s := c.state
	s.Merchants = append([]minisafe.Merchant(nil), c.state.Merchants...)
	return s
}

// update applies fn under the lock and notifies listeners.
func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	s := c.copyState()
	listeners := c.listeners
	c.mu.Unlock()

	for _, l := range listeners {
		l(s)
	}
}

// Disconnect forgets the account and every value read for it.
func (c *Controller) Disconnect() {
	c.update(func(s *State) {
		s.Account = common.Address{}
		s.Connected = false
		s.Balances = minisafe.NewBalanceSnapshot(nil, nil, nil, c.network)
		s.Merchants = nil
	})
}

// SelectToken switches the token passed to deposit, withdraw and break-lock.
func (c *Controller) SelectToken(symbol string) error {
	token, err := c.network.Token(symbol)
	if err != nil {
		c.logger.Warn("token selection rejected", "symbol", symbol, "error", err)
		return err
	}
	c.update(func(s *State) {
		s.SelectedToken = token
	})
	c.logger.Debug("token selected", "symbol", token.Symbol, "address", token.Address)
	return nil
}

// Refresh re-reads the savings balances and the bonus token balance.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.run(ctx, ActionRefresh, nil, func(ctx context.Context, signer minisafe.Signer, _ *slog.Logger) error {
		return c.refreshBalances(ctx, signer.Address(), true)
	})
}

// RefreshMerchants re-reads the merchant registry.
func (c *Controller) RefreshMerchants(ctx context.Context) error {
	return c.run(ctx, ActionRefreshMerchants, nil, func(ctx context.Context, _ minisafe.Signer, _ *slog.Logger) error {
		return c.refreshMerchants(ctx)
	})
}

// Deposit saves amount of the selected token. An empty amount makes no call.
func (c *Controller) Deposit(ctx context.Context, amount string) error {
	if err := validation.RequireAmount(amount); err != nil {
		return c.reject(ActionDeposit, err)
	}
	token := c.Snapshot().SelectedToken

	return c.run(ctx, ActionDeposit, []any{"token", token.Symbol, "amount", amount}, func(ctx context.Context, signer minisafe.Signer, logger *slog.Logger) error {
		tokenAddress, value, err := encodeTokenAmount(token, amount)
		if err != nil {
			return minisafe.NewActionError(minisafe.ErrCodeEncoding, ActionDeposit, "invalid deposit", err).
				WithDetails("token", token.Symbol)
		}
		receipt, err := c.gateway.Deposit(ctx, signer, tokenAddress, value)
		if err != nil {
			return submitError(ActionDeposit, err)
		}
		logger.Info("deposit confirmed", "tx", receipt.TxHash.Hex())
		c.refreshAfterWrite(logger, c.refreshBalances(ctx, signer.Address(), true))
		return nil
	})
}

// Withdraw withdraws the saving held in the selected token.
func (c *Controller) Withdraw(ctx context.Context) error {
	token := c.Snapshot().SelectedToken

	return c.run(ctx, ActionWithdraw, []any{"token", token.Symbol}, func(ctx context.Context, signer minisafe.Signer, logger *slog.Logger) error {
		tokenAddress, err := validation.ParseAddress(token.Address)
		if err != nil {
			return minisafe.NewActionError(minisafe.ErrCodeEncoding, ActionWithdraw, "invalid token", err)
		}
		receipt, err := c.gateway.Withdraw(ctx, signer, tokenAddress)
		if err != nil {
			return submitError(ActionWithdraw, err)
		}
		logger.Info("withdrawal confirmed", "tx", receipt.TxHash.Hex())
		c.refreshAfterWrite(logger, c.refreshBalances(ctx, signer.Address(), true))
		return nil
	})
}

// BreakLock releases the selected token's saving before the lock expires.
// Only the savings balances are re-read afterwards.
func (c *Controller) BreakLock(ctx context.Context) error {
	token := c.Snapshot().SelectedToken

	return c.run(ctx, ActionBreakLock, []any{"token", token.Symbol}, func(ctx context.Context, signer minisafe.Signer, logger *slog.Logger) error {
		tokenAddress, err := validation.ParseAddress(token.Address)
		if err != nil {
			return minisafe.NewActionError(minisafe.ErrCodeEncoding, ActionBreakLock, "invalid token", err)
		}
		receipt, err := c.gateway.BreakTimeLock(ctx, signer, tokenAddress)
		if err != nil {
			return submitError(ActionBreakLock, err)
		}
		logger.Info("time lock broken", "tx", receipt.TxHash.Hex())
		c.refreshAfterWrite(logger, c.refreshBalances(ctx, signer.Address(), false))
		return nil
	})
}

// AddMerchant registers a merchant. Any empty field makes no call.
func (c *Controller) AddMerchant(ctx context.Context, form minisafe.MerchantForm) error {
	if err := validation.RequireMerchantForm(form); err != nil {
		return c.reject(ActionAddMerchant, err)
	}

	return c.run(ctx, ActionAddMerchant, []any{"name", form.Name, "address", form.Address}, func(ctx context.Context, signer minisafe.Signer, logger *slog.Logger) error {
		merchant, err := validation.ParseAddress(form.Address)
		if err != nil {
			return minisafe.NewActionError(minisafe.ErrCodeEncoding, ActionAddMerchant, "invalid merchant address", err)
		}
		receipt, err := c.gateway.AddMerchant(ctx, signer, form.Name, form.Description, merchant)
		if err != nil {
			return submitError(ActionAddMerchant, err)
		}
		logger.Info("merchant added", "tx", receipt.TxHash.Hex())
		c.refreshAfterWrite(logger, c.refreshMerchants(ctx))
		return nil
	})
}

// ModifyMerchant replaces the fields of the merchant with the given registry id.
// A zero id means no merchant is selected.
func (c *Controller) ModifyMerchant(ctx context.Context, id uint64, form minisafe.MerchantForm) error {
	if err := validation.RequireMerchantForm(form); err != nil {
		return c.reject(ActionModifyMerchant, err)
	}
	if id == 0 {
		return c.reject(ActionModifyMerchant, minisafe.ErrMerchantNotSelected)
	}

	return c.run(ctx, ActionModifyMerchant, []any{"merchant_id", id, "name", form.Name}, func(ctx context.Context, signer minisafe.Signer, logger *slog.Logger) error {
		merchant, err := validation.ParseAddress(form.Address)
		if err != nil {
			return minisafe.NewActionError(minisafe.ErrCodeEncoding, ActionModifyMerchant, "invalid merchant address", err)
		}
		receipt, err := c.gateway.UpdateMerchant(ctx, signer, new(big.Int).SetUint64(id), form.Name, form.Description, merchant)
		if err != nil {
			return submitError(ActionModifyMerchant, err)
		}
		logger.Info("merchant updated", "tx", receipt.TxHash.Hex())
		c.refreshAfterWrite(logger, c.refreshMerchants(ctx))
		return nil
	})
}

// SendPayment pays amount to a merchant address. Amounts are in whole CELO
// units with 18 decimals.
func (c *Controller) SendPayment(ctx context.Context, merchantAddress, amount string) error {
	if merchantAddress == "" {
		return c.reject(ActionSendPayment, fmt.Errorf("%w: merchant address", minisafe.ErrEmptyField))
	}
	if err := validation.RequireAmount(amount); err != nil {
		return c.reject(ActionSendPayment, err)
	}

	return c.run(ctx, ActionSendPayment, []any{"merchant", merchantAddress, "amount", amount}, func(ctx context.Context, signer minisafe.Signer, logger *slog.Logger) error {
		merchant, err := validation.ParseAddress(merchantAddress)
		if err != nil {
			return minisafe.NewActionError(minisafe.ErrCodeEncoding, ActionSendPayment, "invalid merchant address", err)
		}
		value, err := minisafe.ParseUnits(amount, c.network.DefaultToken().Decimals)
		if err != nil {
			return minisafe.NewActionError(minisafe.ErrCodeEncoding, ActionSendPayment, "invalid amount", err)
		}
		receipt, err := c.gateway.Send(ctx, signer, merchant, value)
		if err != nil {
			return submitError(ActionSendPayment, err)
		}
		logger.Info("payment confirmed", "tx", receipt.TxHash.Hex())
		c.refreshAfterWrite(logger, c.refreshMerchants(ctx))
		return nil
	})
}

// run connects the wallet and executes fn, recording the outcome in Status.
// A missing wallet skips fn and reports nothing.
func (c *Controller) run(ctx context.Context, action string, attrs []any, fn func(context.Context, minisafe.Signer, *slog.Logger) error) error {
	actionID := uuid.NewString()
	logger := c.logger.With(append([]any{"action", action, "action_id", actionID}, attrs...)...)

	c.update(func(s *State) { s.Pending++ })
	defer c.update(func(s *State) { s.Pending-- })

	signer, err := c.session.Connect(ctx)
	if errors.Is(err, minisafe.ErrNoWallet) {
		logger.Debug("no wallet, action skipped")
		return nil
	}
	if err != nil {
		err = minisafe.NewActionError(minisafe.ErrCodeWallet, action, "wallet authorization failed", err)
		c.finish(action, actionID, err, logger)
		return err
	}

	c.update(func(s *State) {
		s.Account = signer.Address()
		s.Connected = true
	})

	err = fn(ctx, signer, logger)
	c.finish(action, actionID, err, logger)
	return err
}

func (c *Controller) finish(action, actionID string, err error, logger *slog.Logger) {
	status := Status{Action: action, ActionID: actionID, Err: err, At: time.Now()}
	if err != nil {
		status.Error = err.Error()
		logger.Error("action failed", "error", err, "code", minisafe.CodeOf(err))
	} else {
		logger.Debug("action completed")
	}
	c.update(func(s *State) { s.Status = status })
}

// reject records a guard failure. No wallet or gateway call has been made.
func (c *Controller) reject(action string, err error) error {
	err = minisafe.NewActionError(minisafe.ErrCodeInvalidForm, action, "form incomplete", err)
	c.logger.Warn("action rejected", "action", action, "error", err)
	c.update(func(s *State) {
		s.Status = Status{Action: action, Err: err, Error: err.Error(), At: time.Now()}
	})
	return err
}

// refreshAfterWrite logs a failed re-read that follows a confirmed transaction.
// The transaction stands, so the action still succeeds and the previous values stay.
func (c *Controller) refreshAfterWrite(logger *slog.Logger, err error) {
	if err != nil {
		logger.Warn("refresh after confirmed transaction failed", "error", err, "code", minisafe.CodeOf(err))
	}
}

// refreshBalances reads every balance first and replaces the snapshot only
// when all reads succeed. Without withBonus the previous bonus value is kept.
func (c *Controller) refreshBalances(ctx context.Context, account common.Address, withBonus bool) error {
	celo, err := c.gateway.Balances(ctx, account)
	if err != nil {
		return readError("balances", err)
	}

	stable, err := validation.ParseAddress(c.network.StableToken().Address)
	if err != nil {
		return readError("balances", err)
	}
	cusd, err := c.gateway.GetBalance(ctx, account, stable)
	if err != nil {
		return readError("balances", err)
	}

	var bonus *big.Int
	if withBonus {
		bonus, err = c.gateway.BalanceOf(ctx, account)
		if err != nil {
			return readError("balances", err)
		}
	}

	c.update(func(s *State) {
		if !withBonus {
			bonus = s.Balances.BonusRaw
		}
		s.Balances = minisafe.NewBalanceSnapshot(celo, cusd, bonus, c.network)
	})
	return nil
}

// refreshMerchants reads the registry ids and then each merchant record.
// allMerchant returns 1-based ids; getMerchantInfo takes the 0-based index.
func (c *Controller) refreshMerchants(ctx context.Context) error {
	ids, err := c.gateway.AllMerchant(ctx)
	if err != nil {
		return readError("merchants", err)
	}

	merchants := make([]minisafe.Merchant, 0, len(ids))
	for _, id := range ids {
		if id.Sign() <= 0 || !id.IsUint64() {
			return readError("merchants", fmt.Errorf("invalid merchant id %s", id))
		}
		index := new(big.Int).Sub(id, big.NewInt(1))
		info, err := c.gateway.GetMerchantInfo(ctx, index)
		if err != nil {
			return readError("merchants", err).WithDetails("merchant_id", id.Uint64())
		}
		merchants = append(merchants, minisafe.Merchant{
			ID:          id.Uint64(),
			Name:        info.Name,
			Description: info.Description,
			Address:     info.Address,
		})
	}

	c.update(func(s *State) {
		s.Merchants = merchants
	})
	return nil
}

func encodeTokenAmount(token minisafe.TokenConfig, amount string) (common.Address, *big.Int, error) {
	tokenAddress, err := validation.ParseAddress(token.Address)
	if err != nil {
		return common.Address{}, nil, err
	}
	value, err := minisafe.ParseUnits(amount, token.Decimals)
	if err != nil {
		return common.Address{}, nil, err
	}
	return tokenAddress, value, nil
}

func readError(what string, err error) *minisafe.ActionError {
	return minisafe.NewActionError(minisafe.ErrCodeRead, "read_"+what, "could not read "+what, err)
}

func submitError(action string, err error) error {
	code := minisafe.ErrCodeSubmit
	if errors.Is(err, minisafe.ErrTransactionReverted) {
		code = minisafe.ErrCodeReverted
	}
	return minisafe.NewActionError(code, action, "transaction failed", err)
}
