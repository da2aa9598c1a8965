package evm

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mark3labs/minisafe-go"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// WithKeystore adds an account from an encrypted V3 keystore file.
func WithKeystore(keystorePath, password string) WalletOption {
	return func(w *KeyWallet) error {
		data, err := os.ReadFile(keystorePath)
		if err != nil {
			return fmt.Errorf("%w: %v", minisafe.ErrInvalidKeystore, err)
		}

		var keyJSON struct {
			Crypto keystore.CryptoJSON `json:"crypto"`
		}
		if err := json.Unmarshal(data, &keyJSON); err != nil {
			return fmt.Errorf("%w: invalid JSON format", minisafe.ErrInvalidKeystore)
		}

		privateKeyBytes, err := keystore.DecryptDataV3(keyJSON.Crypto, password)
		if err != nil {
			return fmt.Errorf("%w: decryption failed", minisafe.ErrInvalidKeystore)
		}

		privateKey, err := crypto.ToECDSA(privateKeyBytes)
		if err != nil {
			return fmt.Errorf("%w: invalid private key", minisafe.ErrInvalidKeystore)
		}

		w.addKey(privateKey)
		return nil
	}
}

// WithMnemonic adds the account derived from a BIP39 mnemonic phrase.
// Derivation path: m/44'/60'/0'/0/{accountIndex}
func WithMnemonic(mnemonic string, accountIndex uint32) WalletOption {
	return func(w *KeyWallet) error {
		if !bip39.IsMnemonicValid(mnemonic) {
			return minisafe.ErrInvalidMnemonic
		}

		seed := bip39.NewSeed(mnemonic, "")

		privateKey, err := deriveEthereumKey(seed, accountIndex)
		if err != nil {
			return fmt.Errorf("%w: %v", minisafe.ErrInvalidMnemonic, err)
		}

		w.addKey(privateKey)
		return nil
	}
}

// deriveEthereumKey walks m/44'/60'/0'/0/{index} from a BIP39 seed.
func deriveEthereumKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44, // purpose
		bip32.FirstHardenedChild + 60, // coin type
		bip32.FirstHardenedChild + 0,  // account
		0,                             // external chain
		index,
	}
	for _, child := range path {
		key, err = key.NewChildKey(child)
		if err != nil {
			return nil, err
		}
	}

	return crypto.ToECDSA(key.Key)
}
