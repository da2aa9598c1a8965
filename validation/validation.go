// Package validation holds the checks the view layer applies before it
// reaches the wallet or the contract: required-field guards and hex address
// decoding. Amount ranges and balances are left to the contract.
package validation

import (
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mark3labs/minisafe-go"
)

// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars)
var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// RequireAmount checks that an amount field was filled in.
// The value itself is parsed later against the token's decimals.
func RequireAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("%w: amount", minisafe.ErrEmptyField)
	}
	return nil
}

// RequireMerchantForm checks that every merchant field was filled in.
// The error names the first empty field.
func RequireMerchantForm(form minisafe.MerchantForm) error {
	switch {
	case form.Name == "":
		return fmt.Errorf("%w: name", minisafe.ErrEmptyField)
	case form.Description == "":
		return fmt.Errorf("%w: description", minisafe.ErrEmptyField)
	case form.Address == "":
		return fmt.Errorf("%w: address", minisafe.ErrEmptyField)
	}
	return nil
}

// ValidateAddress validates a 0x-prefixed hex address.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: address cannot be empty", minisafe.ErrInvalidAddress)
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("%w: %s (expected 0x followed by 40 hex characters)", minisafe.ErrInvalidAddress, address)
	}
	return nil
}

// ParseAddress decodes a hex address. Unlike common.HexToAddress it refuses
// malformed input instead of silently producing a truncated or zero address.
func ParseAddress(address string) (common.Address, error) {
	if err := ValidateAddress(address); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(address), nil
}
