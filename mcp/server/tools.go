package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mark3labs/minisafe-go"
)

// Tool names
const (
	ToolGetBalances    = "get_balances"
	ToolSelectToken    = "select_token"
	ToolDeposit        = "deposit"
	ToolWithdraw       = "withdraw"
	ToolBreakLock      = "break_lock"
	ToolListMerchants  = "list_merchants"
	ToolAddMerchant    = "add_merchant"
	ToolUpdateMerchant = "update_merchant"
	ToolPayMerchant    = "pay_merchant"
)

type toolEntry struct {
	tool     mcpproto.Tool
	handler  mcpserver.ToolHandlerFunc
	mutating bool
}

// BalancesResult is returned by the balance-affecting tools.
type BalancesResult struct {
	Account       string                   `json:"account,omitempty"`
	SelectedToken string                   `json:"selectedToken"`
	Balances      minisafe.BalanceSnapshot `json:"balances"`
}

// MerchantsResult is returned by the merchant tools.
type MerchantsResult struct {
	Merchants []minisafe.Merchant `json:"merchants"`
}

func (s *Server) toolset() []toolEntry {
	return []toolEntry{
		{
			tool: mcpproto.NewTool(ToolGetBalances,
				mcpproto.WithDescription("Read the connected account's CELO and cUSD savings and its MiniSafe bonus token balance"),
			),
			handler: s.handleGetBalances,
		},
		{
			tool: mcpproto.NewTool(ToolSelectToken,
				mcpproto.WithDescription("Select the token used by deposit, withdraw and break_lock"),
				mcpproto.WithString("symbol", mcpproto.Required(), mcpproto.Description("Token symbol: CELO or cUSD")),
			),
			handler: s.handleSelectToken,
		},
		{
			tool: mcpproto.NewTool(ToolDeposit,
				mcpproto.WithDescription("Deposit an amount of the selected token into the savings contract"),
				mcpproto.WithString("amount", mcpproto.Required(), mcpproto.Description("Decimal amount, e.g. \"1.5\"")),
			),
			handler:  s.handleDeposit,
			mutating: true,
		},
		{
			tool: mcpproto.NewTool(ToolWithdraw,
				mcpproto.WithDescription("Withdraw the saving held in the selected token"),
			),
			handler:  s.handleWithdraw,
			mutating: true,
		},
		{
			tool: mcpproto.NewTool(ToolBreakLock,
				mcpproto.WithDescription("Break the time lock on the selected token's saving before it expires"),
			),
			handler:  s.handleBreakLock,
			mutating: true,
		},
		{
			tool: mcpproto.NewTool(ToolListMerchants,
				mcpproto.WithDescription("List the merchants in the payment registry"),
			),
			handler: s.handleListMerchants,
		},
		{
			tool: mcpproto.NewTool(ToolAddMerchant,
				mcpproto.WithDescription("Register a merchant"),
				mcpproto.WithString("name", mcpproto.Required(), mcpproto.Description("Merchant name")),
				mcpproto.WithString("description", mcpproto.Required(), mcpproto.Description("What the merchant sells")),
				mcpproto.WithString("address", mcpproto.Required(), mcpproto.Description("Merchant payout address (0x...)")),
			),
			handler:  s.handleAddMerchant,
			mutating: true,
		},
		{
			tool: mcpproto.NewTool(ToolUpdateMerchant,
				mcpproto.WithDescription("Replace the name, description and address of a registered merchant"),
				mcpproto.WithNumber("id", mcpproto.Required(), mcpproto.Description("Merchant id as listed by list_merchants")),
				mcpproto.WithString("name", mcpproto.Required(), mcpproto.Description("Merchant name")),
				mcpproto.WithString("description", mcpproto.Required(), mcpproto.Description("What the merchant sells")),
				mcpproto.WithString("address", mcpproto.Required(), mcpproto.Description("Merchant payout address (0x...)")),
			),
			handler:  s.handleUpdateMerchant,
			mutating: true,
		},
		{
			tool: mcpproto.NewTool(ToolPayMerchant,
				mcpproto.WithDescription("Send a payment to a merchant address"),
				mcpproto.WithString("address", mcpproto.Required(), mcpproto.Description("Merchant address (0x...)")),
				mcpproto.WithString("amount", mcpproto.Required(), mcpproto.Description("Decimal CELO amount")),
			),
			handler:  s.handlePayMerchant,
			mutating: true,
		},
	}
}

func (s *Server) handleGetBalances(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	return s.balancesResult(s.controller.Refresh(ctx))
}

func (s *Server) handleSelectToken(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	symbol := stringArg(req, "symbol")
	return s.balancesResult(s.controller.SelectToken(symbol))
}

func (s *Server) handleDeposit(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	return s.balancesResult(s.controller.Deposit(ctx, stringArg(req, "amount")))
}

func (s *Server) handleWithdraw(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	return s.balancesResult(s.controller.Withdraw(ctx))
}

func (s *Server) handleBreakLock(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	return s.balancesResult(s.controller.BreakLock(ctx))
}

func (s *Server) handleListMerchants(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	return s.merchantsResult(s.controller.RefreshMerchants(ctx))
}

func (s *Server) handleAddMerchant(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	return s.merchantsResult(s.controller.AddMerchant(ctx, merchantForm(req)))
}

func (s *Server) handleUpdateMerchant(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	id, err := idArg(req, "id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	return s.merchantsResult(s.controller.ModifyMerchant(ctx, id, merchantForm(req)))
}

func (s *Server) handlePayMerchant(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	return s.merchantsResult(s.controller.SendPayment(ctx, stringArg(req, "address"), stringArg(req, "amount")))
}

// balancesResult reports err as a tool error, or the current balances.
// Action failures are tool results, not protocol errors, so the agent sees them.
func (s *Server) balancesResult(err error) (*mcpproto.CallToolResult, error) {
	if err != nil {
		return s.errorResult(err), nil
	}
	st := s.controller.Snapshot()
	result := BalancesResult{
		SelectedToken: st.SelectedToken.Symbol,
		Balances:      st.Balances,
	}
	if st.Connected {
		result.Account = st.Account.Hex()
	}
	return jsonResult(result)
}

func (s *Server) merchantsResult(err error) (*mcpproto.CallToolResult, error) {
	if err != nil {
		return s.errorResult(err), nil
	}
	merchants := s.controller.Snapshot().Merchants
	if merchants == nil {
		merchants = []minisafe.Merchant{}
	}
	return jsonResult(MerchantsResult{Merchants: merchants})
}

func (s *Server) errorResult(err error) *mcpproto.CallToolResult {
	s.config.Logger.Warn("tool failed", "error", err, "code", minisafe.CodeOf(err))
	return mcpproto.NewToolResultError(err.Error())
}

func jsonResult(v interface{}) (*mcpproto.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcpproto.NewToolResultText(string(data)), nil
}

func stringArg(req mcpproto.CallToolRequest, key string) string {
	v, _ := req.GetArguments()[key].(string)
	return v
}

// idArg accepts a merchant id sent either as a JSON number or a string.
func idArg(req mcpproto.CallToolRequest, key string) (uint64, error) {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		if v < 1 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("invalid %s: %v", key, v)
		}
		return uint64(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return 0, fmt.Errorf("invalid %s: %q", key, v)
		}
		return id, nil
	case nil:
		return 0, minisafe.ErrMerchantNotSelected
	default:
		return 0, fmt.Errorf("invalid %s: %v", key, v)
	}
}

func merchantForm(req mcpproto.CallToolRequest) minisafe.MerchantForm {
	return minisafe.MerchantForm{
		Name:        stringArg(req, "name"),
		Description: stringArg(req, "description"),
		Address:     stringArg(req, "address"),
	}
}
