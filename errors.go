package minisafe

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWallet indicates that no wallet is configured. Actions that need a
	// signer are skipped without reporting anything.
	ErrNoWallet = errors.New("minisafe: no wallet available")

	// ErrNoAccounts indicates the wallet authorized no accounts.
	ErrNoAccounts = errors.New("minisafe: wallet returned no accounts")

	// ErrUnknownAccount indicates a signer was requested for an account the wallet does not hold.
	ErrUnknownAccount = errors.New("minisafe: account not managed by wallet")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("minisafe: invalid private key")

	// ErrInvalidKeystore indicates an unreadable or undecryptable keystore file.
	ErrInvalidKeystore = errors.New("minisafe: invalid keystore file")

	// ErrInvalidMnemonic indicates an invalid mnemonic phrase.
	ErrInvalidMnemonic = errors.New("minisafe: invalid mnemonic phrase")

	// ErrInvalidAmount indicates a malformed decimal amount.
	ErrInvalidAmount = errors.New("minisafe: invalid amount")

	// ErrInvalidAddress indicates a malformed hex address.
	ErrInvalidAddress = errors.New("minisafe: invalid address")

	// ErrEmptyField indicates a required form field was left empty.
	ErrEmptyField = errors.New("minisafe: required field is empty")

	// ErrMerchantNotSelected indicates a modification without a selected merchant.
	ErrMerchantNotSelected = errors.New("minisafe: no merchant selected")

	// ErrUnknownToken indicates a token symbol the network does not accept.
	ErrUnknownToken = errors.New("minisafe: unknown token")

	// ErrNoContract indicates a network without a known MiniSafe deployment.
	ErrNoContract = errors.New("minisafe: no contract address for network")

	// ErrUnknownNetwork indicates an unsupported network name.
	ErrUnknownNetwork = errors.New("minisafe: unknown network")

	// ErrTransactionReverted indicates the transaction was mined with a failed status.
	ErrTransactionReverted = errors.New("minisafe: transaction reverted")
)

// ErrorCode classifies an ActionError.
type ErrorCode string

const (
	ErrCodeWallet      ErrorCode = "WALLET"
	ErrCodeEncoding    ErrorCode = "ENCODING"
	ErrCodeRead        ErrorCode = "READ"
	ErrCodeSubmit      ErrorCode = "SUBMIT"
	ErrCodeReverted    ErrorCode = "REVERTED"
	ErrCodeInvalidForm ErrorCode = "INVALID_FORM"
)

// ActionError describes the failure of one user action.
type ActionError struct {
	Code    ErrorCode
	Action  string
	Message string
	Err     error
	Details map[string]interface{}
}

// NewActionError creates an ActionError.
func NewActionError(code ErrorCode, action, message string, err error) *ActionError {
	return &ActionError{
		Code:    code,
		Action:  action,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails attaches a key/value pair and returns the error for chaining.
func (e *ActionError) WithDetails(key string, value interface{}) *ActionError {
	e.Details[key] = value
	return e
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first ActionError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
