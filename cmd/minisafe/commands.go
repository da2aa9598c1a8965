package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/mark3labs/minisafe-go"
	httpminisafe "github.com/mark3labs/minisafe-go/http"
	chiminisafe "github.com/mark3labs/minisafe-go/http/chi"
	ginminisafe "github.com/mark3labs/minisafe-go/http/gin"
	mcpminisafe "github.com/mark3labs/minisafe-go/mcp/server"
	"github.com/mark3labs/minisafe-go/tui"
	"github.com/mark3labs/minisafe-go/view"
	"github.com/spf13/cobra"
)

func newRootCmd(out io.Writer) *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:           "minisafe",
		Short:         "Save CELO and cUSD with MiniSafe and pay merchants",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyEnv(cmd.Flags(), os.LookupEnv)
		},
	}
	root.SetOut(out)
	cfg.bindFlags(root.PersistentFlags())

	root.AddCommand(
		tuiCmd(cfg),
		serveCmd(cfg),
		mcpCmd(cfg),
		balanceCmd(cfg),
		depositCmd(cfg),
		withdrawCmd(cfg),
		breakLockCmd(cfg),
		merchantsCmd(cfg),
		addMerchantCmd(cfg),
		updateMerchantCmd(cfg),
		payCmd(cfg),
	)
	return root
}

// withApp builds the client, runs fn and releases the connections.
func withApp(cmd *cobra.Command, cfg *config, logOut io.Writer, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := cfg.build(ctx, logOut)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func tuiCmd(cfg *config) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the UI; logs go to a file or nowhere.
			logOut := io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}
			return withApp(cmd, cfg, logOut, func(ctx context.Context, a *app) error {
				return tui.New(a.controller, tui.WithLogger(a.logger)).Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")
	return cmd
}

func serveCmd(cfg *config) *cobra.Command {
	var addr, router string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the navigation surface as a JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
				handler, err := newHTTPHandler(router, httpminisafe.NewHandler(a.controller, httpminisafe.WithLogger(a.logger)))
				if err != nil {
					return err
				}

				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()

				a.logger.Info("serving", "addr", addr, "router", router)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&router, "router", "chi", "HTTP router (chi, gin)")
	return cmd
}

func newHTTPHandler(router string, h *httpminisafe.Handler) (http.Handler, error) {
	switch router {
	case "chi":
		return chiminisafe.NewRouter(h), nil
	case "gin":
		return ginminisafe.NewEngine(h), nil
	default:
		return nil, fmt.Errorf("unknown router %q (want chi or gin)", router)
	}
}

func mcpCmd(cfg *config) *cobra.Command {
	var addr string
	var readOnly bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MiniSafe as MCP tools over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the stdio transport.
			return withApp(cmd, cfg, cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
				config := mcpminisafe.DefaultConfig()
				config.ReadOnly = readOnly
				config.Logger = a.logger
				srv := mcpminisafe.NewServer(a.controller, config)
				if addr != "" {
					return srv.Start(addr)
				}
				return srv.ServeStdio()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "Serve streamable HTTP on this address instead of stdio")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Register only the tools that do not submit transactions")
	return cmd
}

func balanceCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the account's savings and bonus balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
				if err := a.controller.Refresh(ctx); err != nil {
					return err
				}
				return printBalances(cmd.OutOrStdout(), a.controller.Snapshot())
			})
		},
	}
}

// tokenAction runs a savings action against the token named by --token.
func tokenAction(cfg *config, use, short string, args cobra.PositionalArgs, action func(ctx context.Context, c *view.Controller, args []string) error) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
				if err := a.controller.SelectToken(token); err != nil {
					return err
				}
				if err := action(ctx, a.controller, args); err != nil {
					return err
				}
				return printBalances(cmd.OutOrStdout(), a.controller.Snapshot())
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", minisafe.SymbolCELO, "Savings token (CELO, cUSD)")
	return cmd
}

func depositCmd(cfg *config) *cobra.Command {
	return tokenAction(cfg, "deposit AMOUNT", "Deposit AMOUNT of the token into savings", cobra.ExactArgs(1),
		func(ctx context.Context, c *view.Controller, args []string) error {
			return c.Deposit(ctx, args[0])
		})
}

func withdrawCmd(cfg *config) *cobra.Command {
	return tokenAction(cfg, "withdraw", "Withdraw the token's saving", cobra.NoArgs,
		func(ctx context.Context, c *view.Controller, args []string) error {
			return c.Withdraw(ctx)
		})
}

func breakLockCmd(cfg *config) *cobra.Command {
	return tokenAction(cfg, "break-lock", "Break the time lock on the token's saving", cobra.NoArgs,
		func(ctx context.Context, c *view.Controller, args []string) error {
			return c.BreakLock(ctx)
		})
}

func merchantsCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "merchants",
		Short: "List the merchant registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
				if err := a.controller.RefreshMerchants(ctx); err != nil {
					return err
				}
				return printMerchants(cmd.OutOrStdout(), a.controller.Snapshot().Merchants)
			})
		},
	}
}

// merchantFlags binds the merchant form fields to cmd.
func merchantFlags(cmd *cobra.Command, form *minisafe.MerchantForm) {
	cmd.Flags().StringVar(&form.Name, "name", "", "Merchant name")
	cmd.Flags().StringVar(&form.Description, "description", "", "What the merchant sells")
	cmd.Flags().StringVar(&form.Address, "address", "", "Merchant payout address")
}

func addMerchantCmd(cfg *config) *cobra.Command {
	var form minisafe.MerchantForm
	cmd := &cobra.Command{
		Use:   "add-merchant",
		Short: "Register a merchant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
				if err := a.controller.AddMerchant(ctx, form); err != nil {
					return err
				}
				return printMerchants(cmd.OutOrStdout(), a.controller.Snapshot().Merchants)
			})
		},
	}
	merchantFlags(cmd, &form)
	return cmd
}

func updateMerchantCmd(cfg *config) *cobra.Command {
	var form minisafe.MerchantForm
	cmd := &cobra.Command{
		Use:   "update-merchant ID",
		Short: "Replace a registered merchant's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := httpminisafe.ParseMerchantID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, cfg, cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
				if err := a.controller.ModifyMerchant(ctx, id, form); err != nil {
					return err
				}
				return printMerchants(cmd.OutOrStdout(), a.controller.Snapshot().Merchants)
			})
		},
	}
	merchantFlags(cmd, &form)
	return cmd
}

func payCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "pay ADDRESS AMOUNT",
		Short: "Send AMOUNT CELO to a merchant address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, cmd.ErrOrStderr(), func(ctx context.Context, a *app) error {
				if err := a.controller.SendPayment(ctx, args[0], args[1]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "payment %s\n", statusWord(a.controller.Snapshot().Status))
				return err
			})
		},
	}
}

func printBalances(w io.Writer, s view.State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	account := "not connected"
	if s.Connected {
		account = s.Account.Hex()
	}
	fmt.Fprintf(tw, "Account\t%s\n", account)
	fmt.Fprintf(tw, "Selected token\t%s\n", s.SelectedToken.Symbol)
	fmt.Fprintf(tw, "CELO\t%s\n", s.Balances.CeloBalance)
	fmt.Fprintf(tw, "cUSD\t%s\n", s.Balances.CUSDBalance)
	fmt.Fprintf(tw, "MiniSafe bonus\t%s MST\n", s.Balances.BonusTokenBalance)
	return tw.Flush()
}

func printMerchants(w io.Writer, merchants []minisafe.Merchant) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tADDRESS")
	for _, m := range merchants {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", strconv.FormatUint(m.ID, 10), m.Name, m.Description, m.Address)
	}
	return tw.Flush()
}

// statusWord reports the last action outcome. Without a wallet nothing runs,
// so the status stays empty.
func statusWord(s view.Status) string {
	switch {
	case s.Action == "":
		return "skipped (no wallet)"
	case s.OK():
		return "done"
	default:
		return "failed"
	}
}
