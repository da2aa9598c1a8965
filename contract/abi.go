package contract

import (
	_ "embed"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names. They must match the deployed ABI exactly.
const (
	MethodBalances        = "balances"
	MethodGetBalance      = "getBalance"
	MethodBalanceOf       = "balanceOf"
	MethodDeposit         = "deposit"
	MethodWithdraw        = "withdraw"
	MethodBreakTimeLock   = "breakTimeLock"
	MethodAllMerchant     = "allMerchant"
	MethodGetMerchantInfo = "getMerchantInfo"
	MethodAddMerchant     = "addMerchant"
	MethodUpdateMerchant  = "updateMerchant"
	MethodSend            = "send"
)

//go:embed minisafe.abi.json
var minisafeABIJSON string

var parsedABI = mustParseABI(minisafeABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("contract: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

// ABI returns the MiniSafe contract interface.
func ABI() abi.ABI {
	return parsedABI
}
