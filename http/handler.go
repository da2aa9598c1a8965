// Package http exposes the MiniSafe view layer over HTTP as JSON.
// Handler holds the framework-independent logic; the chi and gin subpackages
// mount it on their routers.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mark3labs/minisafe-go"
	"github.com/mark3labs/minisafe-go/view"
)

var (
	// ErrMerchantNotFound indicates a merchant id that is not in the registry.
	ErrMerchantNotFound = errors.New("minisafe: merchant not found")

	// ErrInvalidRequest indicates a request body or path parameter that could not be decoded.
	ErrInvalidRequest = errors.New("minisafe: invalid request")
)

// TokenRequest selects the savings token.
type TokenRequest struct {
	Symbol string `json:"symbol"`
}

// AmountRequest carries a decimal amount as typed by the user.
type AmountRequest struct {
	Amount string `json:"amount"`
}

// HomeResponse is the home page: account, balances and selected token.
type HomeResponse struct {
	Account       string                   `json:"account,omitempty"`
	Connected     bool                     `json:"connected"`
	Balances      minisafe.BalanceSnapshot `json:"balances"`
	SelectedToken string                   `json:"selectedToken"`
	Tokens        []string                 `json:"tokens"`
	Status        view.Status              `json:"status"`
}

// PayResponse is the merchant page.
type PayResponse struct {
	Merchants []minisafe.Merchant `json:"merchants"`
	Status    view.Status         `json:"status"`
}

// Handler serves the navigation surface from a view controller.
type Handler struct {
	controller *view.Controller
	logger     *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a handler for controller.
func NewHandler(controller *view.Controller, opts ...HandlerOption) *Handler {
	h := &Handler{controller: controller, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Logger returns the handler's logger.
func (h *Handler) Logger() *slog.Logger {
	return h.logger
}

// Home re-reads the balances and returns the home page.
func (h *Handler) Home(ctx context.Context) (HomeResponse, error) {
	if err := h.controller.Refresh(ctx); err != nil {
		return HomeResponse{}, err
	}
	return h.home(), nil
}

// Pay re-reads the merchant registry and returns the merchant page.
func (h *Handler) Pay(ctx context.Context) (PayResponse, error) {
	if err := h.controller.RefreshMerchants(ctx); err != nil {
		return PayResponse{}, err
	}
	return h.pay(), nil
}

// SelectToken switches the token used by deposit, withdraw and break-lock.
func (h *Handler) SelectToken(req TokenRequest) (HomeResponse, error) {
	if err := h.controller.SelectToken(req.Symbol); err != nil {
		return HomeResponse{}, err
	}
	return h.home(), nil
}

// Deposit saves req.Amount of the selected token.
func (h *Handler) Deposit(ctx context.Context, req AmountRequest) (HomeResponse, error) {
	if err := h.controller.Deposit(ctx, req.Amount); err != nil {
		return HomeResponse{}, err
	}
	return h.home(), nil
}

// Withdraw withdraws the selected token's saving.
func (h *Handler) Withdraw(ctx context.Context) (HomeResponse, error) {
	if err := h.controller.Withdraw(ctx); err != nil {
		return HomeResponse{}, err
	}
	return h.home(), nil
}

// BreakLock breaks the selected token's time lock.
func (h *Handler) BreakLock(ctx context.Context) (HomeResponse, error) {
	if err := h.controller.BreakLock(ctx); err != nil {
		return HomeResponse{}, err
	}
	return h.home(), nil
}

// AddMerchant registers a merchant.
func (h *Handler) AddMerchant(ctx context.Context, form minisafe.MerchantForm) (PayResponse, error) {
	if err := h.controller.AddMerchant(ctx, form); err != nil {
		return PayResponse{}, err
	}
	return h.pay(), nil
}

// ModifyMerchant updates the merchant with the given registry id.
func (h *Handler) ModifyMerchant(ctx context.Context, id string, form minisafe.MerchantForm) (PayResponse, error) {
	merchantID, err := ParseMerchantID(id)
	if err != nil {
		return PayResponse{}, err
	}
	if err := h.controller.ModifyMerchant(ctx, merchantID, form); err != nil {
		return PayResponse{}, err
	}
	return h.pay(), nil
}

// PayMerchant sends req.Amount to the address of the merchant with the given id.
// The merchant list is re-read when the id is not known yet.
func (h *Handler) PayMerchant(ctx context.Context, id string, req AmountRequest) (PayResponse, error) {
	merchantID, err := ParseMerchantID(id)
	if err != nil {
		return PayResponse{}, err
	}

	merchant, ok := h.controller.Snapshot().Merchant(merchantID)
	if !ok {
		if err := h.controller.RefreshMerchants(ctx); err != nil {
			return PayResponse{}, err
		}
		if merchant, ok = h.controller.Snapshot().Merchant(merchantID); !ok {
			return PayResponse{}, fmt.Errorf("%w: %d", ErrMerchantNotFound, merchantID)
		}
	}

	if err := h.controller.SendPayment(ctx, merchant.Address, req.Amount); err != nil {
		return PayResponse{}, err
	}
	return h.pay(), nil
}

func (h *Handler) home() HomeResponse {
	s := h.controller.Snapshot()
	resp := HomeResponse{
		Connected:     s.Connected,
		Balances:      s.Balances,
		SelectedToken: s.SelectedToken.Symbol,
		Status:        s.Status,
	}
	if s.Connected {
		resp.Account = s.Account.Hex()
	}
	for _, t := range h.controller.Network().Tokens {
		resp.Tokens = append(resp.Tokens, t.Symbol)
	}
	return resp
}

func (h *Handler) pay() PayResponse {
	s := h.controller.Snapshot()
	merchants := s.Merchants
	if merchants == nil {
		merchants = []minisafe.Merchant{}
	}
	return PayResponse{Merchants: merchants, Status: s.Status}
}

// ParseMerchantID parses a 1-based merchant registry id.
func ParseMerchantID(id string) (uint64, error) {
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: merchant id %q", ErrInvalidRequest, id)
	}
	return v, nil
}
