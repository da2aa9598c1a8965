package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/minisafe-go"
	"github.com/mark3labs/minisafe-go/contract"
	"github.com/mark3labs/minisafe-go/evm"
	"github.com/mark3labs/minisafe-go/session"
	"github.com/mark3labs/minisafe-go/view"
	"github.com/spf13/pflag"
)

// envPrefix prefixes the environment variable bound to every flag:
// --private-key reads MINISAFE_PRIVATE_KEY.
const envPrefix = "MINISAFE_"

// config holds the persistent flags shared by all subcommands.
type config struct {
	Network          string
	RPCURL           string
	Contract         string
	PrivateKey       string
	Keystore         string
	KeystorePassword string
	Mnemonic         string
	AccountIndex     uint32
	WalletRPC        string
	LogLevel         string
	GasLimit         uint64
}

func (c *config) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Network, "network", "celo", "Network to use (celo, alfajores)")
	fs.StringVar(&c.RPCURL, "rpc", "", "JSON-RPC endpoint (defaults to the network's public endpoint)")
	fs.StringVar(&c.Contract, "contract", "", "MiniSafe contract address (defaults to the network's deployment; required on alfajores)")
	fs.StringVar(&c.PrivateKey, "private-key", "", "Hex private key of the wallet account")
	fs.StringVar(&c.Keystore, "keystore", "", "Path to an encrypted keystore file")
	fs.StringVar(&c.KeystorePassword, "keystore-password", "", "Password for --keystore")
	fs.StringVar(&c.Mnemonic, "mnemonic", "", "BIP-39 mnemonic of the wallet")
	fs.Uint32Var(&c.AccountIndex, "account-index", 0, "Account index derived from --mnemonic")
	fs.StringVar(&c.WalletRPC, "wallet-rpc", "", "External wallet JSON-RPC endpoint that holds the keys")
	fs.StringVar(&c.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.Uint64Var(&c.GasLimit, "gas-limit", contract.DefaultGasLimit, "Gas limit for every contract write")
}

// envName returns the environment variable bound to a flag.
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnv sets every flag not given on the command line from its environment
// variable, if present.
func applyEnv(fs *pflag.FlagSet, lookup func(string) (string, bool)) error {
	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}
		value, ok := lookup(envName(f.Name))
		if !ok {
			return
		}
		if err := fs.Set(f.Name, value); err != nil {
			firstErr = fmt.Errorf("%s: %w", envName(f.Name), err)
		}
	})
	return firstErr
}

// newLogger returns a text logger writing to w at the configured level.
func (c *config) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// network resolves the preset and applies the --rpc and --contract overrides.
func (c *config) network() (minisafe.NetworkConfig, error) {
	network, err := minisafe.NetworkByName(c.Network)
	if err != nil {
		return minisafe.NetworkConfig{}, err
	}
	if c.RPCURL != "" {
		network.RPCURL = c.RPCURL
	}
	if c.Contract != "" {
		network.ContractAddress = c.Contract
	}
	return network, nil
}

// wallet builds the configured wallet. It returns nil when no wallet is
// configured; actions then do nothing.
func (c *config) wallet(ctx context.Context) (minisafe.Wallet, func(), error) {
	noop := func() {}
	if c.WalletRPC != "" {
		w, err := evm.DialRPCWallet(ctx, c.WalletRPC)
		if err != nil {
			return nil, noop, err
		}
		return w, w.Close, nil
	}

	var opts []evm.WalletOption
	if c.PrivateKey != "" {
		opts = append(opts, evm.WithPrivateKey(c.PrivateKey))
	}
	if c.Keystore != "" {
		opts = append(opts, evm.WithKeystore(c.Keystore, c.KeystorePassword))
	}
	if c.Mnemonic != "" {
		opts = append(opts, evm.WithMnemonic(c.Mnemonic, c.AccountIndex))
	}
	if len(opts) == 0 {
		return nil, noop, nil
	}

	w, err := evm.NewKeyWallet(opts...)
	if err != nil {
		return nil, noop, err
	}
	return w, noop, nil
}

// app is the wired client shared by the subcommands.
type app struct {
	controller *view.Controller
	logger     *slog.Logger
	close      func()
}

// build dials the network, loads the wallet and wires the controller.
// Logs go to logOut.
func (c *config) build(ctx context.Context, logOut io.Writer) (*app, error) {
	logger, err := c.newLogger(logOut)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	network, err := c.network()
	if err != nil {
		return nil, err
	}

	wallet, closeWallet, err := c.wallet(ctx)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		logger.Warn("no wallet configured; actions will do nothing",
			"hint", "set --private-key, --keystore, --mnemonic or --wallet-rpc")
	}

	client, err := contract.Dial(ctx, network.RPCURL)
	if err != nil {
		closeWallet()
		return nil, err
	}
	closeAll := func() {
		client.Close()
		closeWallet()
	}

	gateway, err := contract.NewForNetwork(client, network,
		contract.WithGasLimit(c.GasLimit),
		contract.WithLogger(logger),
	)
	if err != nil {
		closeAll()
		return nil, err
	}

	controller, err := view.NewController(
		session.NewProvider(wallet, session.WithLogger(logger)),
		gateway,
		view.WithNetwork(network),
		view.WithLogger(logger),
	)
	if err != nil {
		closeAll()
		return nil, err
	}

	logger.Debug("client ready", "network", network.Name, "rpc", network.RPCURL, "contract", gateway.Address().Hex())
	return &app{controller: controller, logger: logger, close: closeAll}, nil
}
