// Command minisafe is a client for the MiniSafe savings and merchant-payment
// contract on Celo. It runs as a terminal UI, an HTTP server, an MCP server or
// as one-shot commands.
//
// Usage:
//
//	minisafe tui --private-key 0x...
//	minisafe serve --addr :8080 --router gin
//	minisafe deposit 1.5 --token cUSD
//
// Every flag can also be set through a MINISAFE_* environment variable
// (--private-key reads MINISAFE_PRIVATE_KEY) or a .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
