// Package tui is the terminal view layer: a home page with balances, the
// token selector and savings actions, and a pay page with the merchant
// registry. Actions run on their own goroutines; the controller's change
// notifications redraw the screen.
package tui

import (
	"context"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/mark3labs/minisafe-go"
	"github.com/mark3labs/minisafe-go/view"
	"github.com/rivo/tview"
)

// Page names
const (
	PageHome     = "home"
	PagePay      = "pay"
	PageMerchant = "merchant"
	PagePayment  = "payment"
)

const (
	labelToken       = "Token"
	labelAmount      = "Amount"
	labelName        = "Name"
	labelDescription = "Description"
	labelAddress     = "Address"
)

// UI is the terminal application.
type UI struct {
	controller *view.Controller
	logger     *slog.Logger

	app       *tview.Application
	pages     *tview.Pages
	balances  *tview.TextView
	status    *tview.TextView
	savings   *tview.Form
	merchants *tview.Table
	merchant  *tview.Form
	payment   *tview.Form

	// editing is the merchant id the merchant form modifies; 0 adds a new one.
	editing uint64
	// paying is the merchant the payment form pays.
	paying minisafe.Merchant

	// dispatch runs an action off the event loop; redraw runs fn on it.
	dispatch func(func())
	redraw   func(func())
}

// Option configures a UI.
type Option func(*UI)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(u *UI) {
		u.logger = logger
	}
}

// New builds the UI for controller.
func New(controller *view.Controller, opts ...Option) *UI {
	u := &UI{
		controller: controller,
		logger:     slog.Default(),
		app:        tview.NewApplication(),
		pages:      tview.NewPages(),
	}
	u.dispatch = func(fn func()) { go fn() }
	u.redraw = func(fn func()) { u.app.QueueUpdateDraw(fn) }
	for _, opt := range opts {
		opt(u)
	}

	u.pages.
		AddPage(PageHome, u.homePage(), true, true).
		AddPage(PagePay, u.payPage(), true, false).
		AddPage(PageMerchant, u.merchantPage(), true, false).
		AddPage(PagePayment, u.paymentPage(), true, false)

	u.status = tview.NewTextView().SetDynamicColors(true)
	u.status.SetText(statusText(controller.Snapshot()))

	nav := tview.NewTextView().SetDynamicColors(true).
		SetText("[::b]F1[::-] Home  [::b]F2[::-] Pay Bills  [::b]F5[::-] Refresh  [::b]Esc[::-] Back  [::b]Ctrl-C[::-] Quit")

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nav, 1, 0, false).
		AddItem(u.pages, 0, 1, true).
		AddItem(u.status, 1, 0, false)

	u.app.SetRoot(root, true).SetInputCapture(u.handleKey)
	controller.Subscribe(func(s view.State) {
		u.redraw(func() { u.render(s) })
	})
	return u
}

// Run loads the balances and merchants and blocks until the user quits or ctx is done.
func (u *UI) Run(ctx context.Context) error {
	defer stopOnDone(ctx, u.app.Stop)()

	u.async(ctx, u.controller.Refresh)
	u.async(ctx, u.controller.RefreshMerchants)

	u.logger.Debug("terminal UI started", "network", u.controller.Network().Name)
	defer u.logger.Debug("terminal UI stopped")
	return u.app.Run()
}

// stopOnDone calls stop when ctx is done. The returned release ends the
// watcher without calling stop.
func stopOnDone(ctx context.Context, stop func()) (release func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

// async runs a controller action off the event loop. Failures already reach
// the status line through the controller state.
func (u *UI) async(ctx context.Context, action func(context.Context) error) {
	u.dispatch(func() {
		_ = action(ctx)
	})
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	ctx := context.Background()
	switch event.Key() {
	case tcell.KeyF1:
		u.pages.SwitchToPage(PageHome)
		return nil
	case tcell.KeyF2:
		u.pages.SwitchToPage(PagePay)
		return nil
	case tcell.KeyF5:
		u.async(ctx, u.controller.Refresh)
		u.async(ctx, u.controller.RefreshMerchants)
		return nil
	case tcell.KeyEscape:
		if name, _ := u.pages.GetFrontPage(); name == PageMerchant || name == PagePayment {
			u.pages.SwitchToPage(PagePay)
			return nil
		}
	}
	return event
}

func (u *UI) homePage() tview.Primitive {
	u.balances = tview.NewTextView().SetDynamicColors(true)
	u.balances.SetBorder(true).SetTitle(" START SAVING NOW ")

	tokens := u.controller.Network().Tokens
	symbols := make([]string, len(tokens))
	for i, t := range tokens {
		symbols[i] = t.Symbol
	}

	ctx := context.Background()
	u.savings = tview.NewForm().
		AddDropDown(labelToken, symbols, tokenIndex(tokens, u.controller.Snapshot().SelectedToken.Symbol), func(option string, _ int) {
			// Synchronous so a button pressed next sees the new token.
			_ = u.controller.SelectToken(option)
		}).
		AddInputField(labelAmount, "", 20, tview.InputFieldFloat, nil).
		AddButton("Deposit", func() {
			amount := u.inputText(u.savings, labelAmount)
			u.async(ctx, func(ctx context.Context) error {
				err := u.controller.Deposit(ctx, amount)
				if err == nil {
					u.redraw(func() { u.setInputText(u.savings, labelAmount, "") })
				}
				return err
			})
		}).
		AddButton("Withdraw", func() { u.async(ctx, u.controller.Withdraw) }).
		AddButton("Break Lock", func() { u.async(ctx, u.controller.BreakLock) })
	u.savings.SetBorder(true).SetTitle(" Savings ")

	u.balances.SetText(balancesText(u.controller.Snapshot()))

	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.balances, 7, 0, false).
		AddItem(u.savings, 0, 1, true)
}

func (u *UI) payPage() tview.Primitive {
	u.merchants = tview.NewTable().SetBorders(false).SetSelectable(true, false).SetFixed(1, 0)
	u.merchants.SetBorder(true).SetTitle(" Available Merchants (Enter: pay, m: modify, a: add) ")
	u.renderMerchants(nil)

	u.merchants.SetSelectedFunc(func(row, _ int) {
		if m, ok := u.merchantAt(row); ok {
			u.openPayment(m)
		}
	})
	u.merchants.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'a':
			u.openMerchantForm(minisafe.Merchant{})
			return nil
		case 'm':
			row, _ := u.merchants.GetSelection()
			if m, ok := u.merchantAt(row); ok {
				u.openMerchantForm(m)
			}
			return nil
		}
		return event
	})

	help := tview.NewTextView().SetText("Welcome to your No. 1 Stable coin payment gateway!!!")
	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(help, 1, 0, false).
		AddItem(u.merchants, 0, 1, true)
}

func (u *UI) merchantPage() tview.Primitive {
	ctx := context.Background()
	u.merchant = tview.NewForm().
		AddInputField(labelName, "", 40, nil, nil).
		AddInputField(labelDescription, "", 60, nil, nil).
		AddInputField(labelAddress, "", 44, nil, nil).
		AddButton("Save", func() {
			form := minisafe.MerchantForm{
				Name:        u.inputText(u.merchant, labelName),
				Description: u.inputText(u.merchant, labelDescription),
				Address:     u.inputText(u.merchant, labelAddress),
			}
			id := u.editing
			u.async(ctx, func(ctx context.Context) error {
				var err error
				if id == 0 {
					err = u.controller.AddMerchant(ctx, form)
				} else {
					err = u.controller.ModifyMerchant(ctx, id, form)
				}
				if err == nil {
					u.redraw(func() { u.pages.SwitchToPage(PagePay) })
				}
				return err
			})
		}).
		AddButton("Cancel", func() { u.pages.SwitchToPage(PagePay) })
	u.merchant.SetBorder(true)
	return u.merchant
}

func (u *UI) paymentPage() tview.Primitive {
	ctx := context.Background()
	u.payment = tview.NewForm().
		AddInputField(labelAmount, "", 20, tview.InputFieldFloat, nil).
		AddButton("Send", func() {
			address := u.paying.Address
			amount := u.inputText(u.payment, labelAmount)
			u.async(ctx, func(ctx context.Context) error {
				err := u.controller.SendPayment(ctx, address, amount)
				if err == nil {
					u.redraw(func() { u.pages.SwitchToPage(PagePay) })
				}
				return err
			})
		}).
		AddButton("Cancel", func() { u.pages.SwitchToPage(PagePay) })
	u.payment.SetBorder(true)
	return u.payment
}

func (u *UI) openMerchantForm(m minisafe.Merchant) {
	u.editing = m.ID
	if m.ID == 0 {
		u.merchant.SetTitle(" Add Merchant ")
	} else {
		u.merchant.SetTitle(" Modify " + m.Name + " ")
	}
	u.setInputText(u.merchant, labelName, m.Name)
	u.setInputText(u.merchant, labelDescription, m.Description)
	u.setInputText(u.merchant, labelAddress, m.Address)
	u.pages.SwitchToPage(PageMerchant)
}

func (u *UI) openPayment(m minisafe.Merchant) {
	u.paying = m
	u.payment.SetTitle(" Pay " + m.Name + " ")
	u.setInputText(u.payment, labelAmount, "")
	u.pages.SwitchToPage(PagePayment)
}

// merchantAt maps a table row to a merchant; row 0 is the header.
func (u *UI) merchantAt(row int) (minisafe.Merchant, bool) {
	merchants := u.controller.Snapshot().Merchants
	if row < 1 || row > len(merchants) {
		return minisafe.Merchant{}, false
	}
	return merchants[row-1], true
}

// render runs on the event loop.
func (u *UI) render(s view.State) {
	u.balances.SetText(balancesText(s))
	u.status.SetText(statusText(s))
	u.renderMerchants(s.Merchants)

	if dd, ok := u.savings.GetFormItemByLabel(labelToken).(*tview.DropDown); ok {
		if i, _ := dd.GetCurrentOption(); i != tokenIndex(u.controller.Network().Tokens, s.SelectedToken.Symbol) {
			dd.SetCurrentOption(tokenIndex(u.controller.Network().Tokens, s.SelectedToken.Symbol))
		}
	}
}

func (u *UI) renderMerchants(merchants []minisafe.Merchant) {
	u.merchants.Clear()
	for r, row := range merchantRows(merchants) {
		for c, text := range row {
			cell := tview.NewTableCell(text).SetExpansion(1)
			if r == 0 {
				cell.SetSelectable(false).SetAttributes(tcell.AttrBold)
			}
			u.merchants.SetCell(r, c, cell)
		}
	}
}

func (u *UI) inputText(form *tview.Form, label string) string {
	if field, ok := form.GetFormItemByLabel(label).(*tview.InputField); ok {
		return field.GetText()
	}
	return ""
}

func (u *UI) setInputText(form *tview.Form, label, text string) {
	if field, ok := form.GetFormItemByLabel(label).(*tview.InputField); ok {
		field.SetText(text)
	}
}
