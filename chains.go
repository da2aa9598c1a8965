// Package minisafe provides the types, network presets and interfaces shared by
// the MiniSafe savings and merchant-payment client. The contract itself lives on
// Celo; this package describes where it is deployed, which tokens it accepts and
// how wallets and the contract gateway plug into the view layer.
package minisafe

import (
	"fmt"
	"strings"
)

// NativeTokenAddress is the marker address the MiniSafe contract uses for native CELO.
const NativeTokenAddress = "0x0000000000000000000000000000000000000000"

// DefaultContractAddress is the deployed MiniSafe contract.
const DefaultContractAddress = "0x55670abc1948e8e4eaf6fbd3dfdd93066fc085fa"

// Token symbols accepted by the savings contract.
const (
	SymbolCELO = "CELO"
	SymbolCUSD = "cUSD"
	SymbolMST  = "MST"
)

// NetworkConfig contains network-specific configuration for the MiniSafe contract.
type NetworkConfig struct {
	// Name is the short network identifier (e.g., "celo", "alfajores").
	Name string

	// ChainID is the EIP-155 chain id used when signing transactions.
	ChainID int64

	// RPCURL is the default public JSON-RPC endpoint.
	RPCURL string

	// ContractAddress is the MiniSafe contract address on this network.
	// Empty when no public deployment is known; callers must supply one.
	ContractAddress string

	// Tokens are the savings tokens in display order. The first one is selected by default.
	Tokens []TokenConfig

	// BonusToken is the MiniSafe reward token reported by balanceOf.
	BonusToken TokenConfig
}

// Network presets
var (
	// CeloMainnet is the configuration for Celo mainnet.
	CeloMainnet = NetworkConfig{
		Name:            "celo",
		ChainID:         42220,
		RPCURL:          "https://forno.celo.org",
		ContractAddress: DefaultContractAddress,
		Tokens: []TokenConfig{
			{Address: NativeTokenAddress, Symbol: SymbolCELO, Decimals: 18, Name: "Celo"},
			{Address: "0x765DE816845861e75A25fCA122bb6898B8B1282a", Symbol: SymbolCUSD, Decimals: 18, Name: "Celo Dollar"},
		},
		BonusToken: TokenConfig{Symbol: SymbolMST, Decimals: 0, Name: "MiniSafe Token"},
	}

	// CeloAlfajores is the configuration for the Alfajores testnet. There is no
	// published testnet deployment, so ContractAddress must be set by the caller.
	CeloAlfajores = NetworkConfig{
		Name:    "alfajores",
		ChainID: 44787,
		RPCURL:  "https://alfajores-forno.celo-testnet.org",
		Tokens: []TokenConfig{
			{Address: NativeTokenAddress, Symbol: SymbolCELO, Decimals: 18, Name: "Celo"},
			{Address: "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1", Symbol: SymbolCUSD, Decimals: 18, Name: "Celo Dollar"},
		},
		BonusToken: TokenConfig{Symbol: SymbolMST, Decimals: 0, Name: "MiniSafe Token"},
	}
)

// NetworkByName returns the preset for a network name. Lookup is case-insensitive
// and accepts the chain id as well ("42220").
func NetworkByName(name string) (NetworkConfig, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "celo", "mainnet", "42220":
		return CeloMainnet, nil
	case "alfajores", "celo-alfajores", "44787":
		return CeloAlfajores, nil
	default:
		return NetworkConfig{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
	}
}

// Token returns the savings token with the given symbol.
func (n NetworkConfig) Token(symbol string) (TokenConfig, error) {
	for _, t := range n.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, nil
		}
	}
	return TokenConfig{}, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
}

// DefaultToken returns the token selected before the user picks one.
func (n NetworkConfig) DefaultToken() TokenConfig {
	if len(n.Tokens) == 0 {
		return TokenConfig{}
	}
	return n.Tokens[0]
}

// StableToken returns the cUSD configuration for this network.
func (n NetworkConfig) StableToken() TokenConfig {
	t, _ := n.Token(SymbolCUSD)
	return t
}
