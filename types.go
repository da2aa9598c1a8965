package minisafe

import "math/big"

// TokenConfig represents configuration for a supported token.
type TokenConfig struct {
	// Address is the token contract address, or NativeTokenAddress for CELO.
	Address string

	// Symbol is the token symbol (e.g., "CELO", "cUSD").
	Symbol string

	// Decimals is the number of decimal places for the token.
	Decimals int

	// Name is an optional human-readable token name.
	Name string
}

// BalanceSnapshot is the current account's savings as reported by the contract.
// The display strings are derived from the raw base-unit values.
type BalanceSnapshot struct {
	CeloBalance       string `json:"celoBalance"`
	CUSDBalance       string `json:"cUsdBalance"`
	BonusTokenBalance string `json:"bonusTokenBalance"`

	CeloRaw  *big.Int `json:"-"`
	CUSDRaw  *big.Int `json:"-"`
	BonusRaw *big.Int `json:"-"`
}

// NewBalanceSnapshot formats raw base-unit balances for display.
func NewBalanceSnapshot(celo, cusd, bonus *big.Int, network NetworkConfig) BalanceSnapshot {
	celoDecimals, cusdDecimals := 18, 18
	if t, err := network.Token(SymbolCELO); err == nil {
		celoDecimals = t.Decimals
	}
	if t, err := network.Token(SymbolCUSD); err == nil {
		cusdDecimals = t.Decimals
	}
	return BalanceSnapshot{
		CeloBalance:       FormatUnits(celo, celoDecimals),
		CUSDBalance:       FormatUnits(cusd, cusdDecimals),
		BonusTokenBalance: FormatUnits(bonus, network.BonusToken.Decimals),
		CeloRaw:           celo,
		CUSDRaw:           cusd,
		BonusRaw:          bonus,
	}
}

// MerchantInfo is the record returned by the contract's getMerchantInfo.
type MerchantInfo struct {
	Name        string
	Description string
	Address     string
}

// Merchant is an entry in the contract's merchant registry.
type Merchant struct {
	// ID is the 1-based registry id returned by allMerchant.
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

// MerchantForm holds the user-editable merchant fields.
type MerchantForm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

// Complete reports whether every field is non-empty.
func (f MerchantForm) Complete() bool {
	return f.Name != "" && f.Description != "" && f.Address != ""
}
