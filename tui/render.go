package tui

import (
	"fmt"
	"strings"

	"github.com/mark3labs/minisafe-go"
	"github.com/mark3labs/minisafe-go/view"
	"github.com/rivo/tview"
)

// balancesText renders the home page header.
func balancesText(s view.State) string {
	var b strings.Builder
	if s.Connected {
		fmt.Fprintf(&b, "[::b]Account[::-] %s\n\n", s.Account.Hex())
	} else {
		b.WriteString("[::b]Account[::-] not connected\n\n")
	}
	fmt.Fprintf(&b, "Your CELO Balance: %s CELO\n", s.Balances.CeloBalance)
	fmt.Fprintf(&b, "Your cUSD Balance: %s cUSD\n", s.Balances.CUSDBalance)
	fmt.Fprintf(&b, "Your MiniSafe Bonus: %s MST\n", s.Balances.BonusTokenBalance)
	return b.String()
}

// statusText renders the outcome of the last action for the status line.
func statusText(s view.State) string {
	if s.Pending > 0 {
		return fmt.Sprintf("[yellow]waiting for confirmation (%d pending)[-]", s.Pending)
	}
	st := s.Status
	switch {
	case st.Action == "":
		return "ready"
	case !st.OK():
		return fmt.Sprintf("[red]%s failed:[-] %s", st.Action, tview.Escape(st.Error))
	default:
		return fmt.Sprintf("[green]%s done[-] %s", st.Action, st.At.Format("15:04:05"))
	}
}

// merchantRows returns the merchant table cells including the header row.
func merchantRows(merchants []minisafe.Merchant) [][]string {
	rows := [][]string{{"ID", "Name", "Description", "Address"}}
	for _, m := range merchants {
		rows = append(rows, []string{fmt.Sprintf("%d", m.ID), m.Name, m.Description, m.Address})
	}
	return rows
}

// tokenIndex returns the position of symbol in tokens, or 0.
func tokenIndex(tokens []minisafe.TokenConfig, symbol string) int {
	for i, t := range tokens {
		if t.Symbol == symbol {
			return i
		}
	}
	return 0
}
