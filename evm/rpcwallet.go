package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mark3labs/minisafe-go"
)

// methodNotFound is the JSON-RPC error code for an unknown method.
const methodNotFound = -32601

// RPCWallet implements minisafe.Wallet by delegating to an external wallet
// that speaks the Ethereum JSON-RPC account methods. The wallet owns the keys
// and may prompt its user on every request.
type RPCWallet struct {
	client *rpc.Client
}

// NewRPCWallet wraps an existing JSON-RPC client.
func NewRPCWallet(client *rpc.Client) *RPCWallet {
	return &RPCWallet{client: client}
}

// DialRPCWallet connects to the wallet endpoint (http, ws or ipc).
func DialRPCWallet(ctx context.Context, endpoint string) (*RPCWallet, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial wallet %s: %w", endpoint, err)
	}
	return NewRPCWallet(client), nil
}

// Close releases the underlying connection.
func (w *RPCWallet) Close() {
	w.client.Close()
}

// RequestAccounts implements minisafe.Wallet. It asks for authorization with
// eth_requestAccounts and falls back to eth_accounts for endpoints that do not
// implement the prompt.
func (w *RPCWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := w.client.CallContext(ctx, &accounts, "eth_requestAccounts")

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == methodNotFound {
		accounts = nil
		err = w.client.CallContext(ctx, &accounts, "eth_accounts")
	}
	if err != nil {
		return nil, fmt.Errorf("request accounts: %w", err)
	}
	return accounts, nil
}

// Signer implements minisafe.Wallet. The account is not checked here; the
// wallet rejects signing requests for accounts it does not hold.
func (w *RPCWallet) Signer(account common.Address) (minisafe.Signer, error) {
	return &RPCSigner{client: w.client, address: account}, nil
}

// RPCSigner signs through eth_signTransaction.
type RPCSigner struct {
	client  *rpc.Client
	address common.Address
}

// Address implements minisafe.Signer.
func (s *RPCSigner) Address() common.Address {
	return s.address
}

// signTxArgs mirrors the transaction object accepted by eth_signTransaction.
type signTxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Data     hexutil.Bytes   `json:"data"`
	ChainID  *hexutil.Big    `json:"chainId"`
}

// SignTx implements minisafe.Signer.
func (s *RPCSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	args := signTxArgs{
		From:     s.address,
		To:       tx.To(),
		Gas:      hexutil.Uint64(tx.Gas()),
		GasPrice: (*hexutil.Big)(tx.GasPrice()),
		Value:    (*hexutil.Big)(tx.Value()),
		Nonce:    hexutil.Uint64(tx.Nonce()),
		Data:     tx.Data(),
		ChainID:  (*hexutil.Big)(chainID),
	}

	var result json.RawMessage
	if err := s.client.CallContext(ctx, &result, "eth_signTransaction", args); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := decodeSignedTx(result)
	if err != nil {
		return nil, err
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		return nil, fmt.Errorf("recover signer: %w", err)
	}
	if from != s.address {
		return nil, fmt.Errorf("%w: wallet signed as %s, expected %s", minisafe.ErrUnknownAccount, from.Hex(), s.address.Hex())
	}
	return signed, nil
}

// decodeSignedTx accepts both the geth shape {"raw": "0x..", "tx": {..}} and a bare hex string.
func decodeSignedTx(result json.RawMessage) ([]byte, error) {
	if bytes.HasPrefix(bytes.TrimSpace(result), []byte(`"`)) {
		var raw hexutil.Bytes
		if err := json.Unmarshal(result, &raw); err != nil {
			return nil, fmt.Errorf("decode signed transaction: %w", err)
		}
		return raw, nil
	}

	var envelope struct {
		Raw hexutil.Bytes `json:"raw"`
	}
	if err := json.Unmarshal(result, &envelope); err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}
	if len(envelope.Raw) == 0 {
		return nil, errors.New("decode signed transaction: empty raw field")
	}
	return envelope.Raw, nil
}
