package http

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/minisafe-go"
	"github.com/mark3labs/minisafe-go/view"
	"github.com/mark3labs/minisafe-go/view/viewtest"
)

const merchantAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func newTestHandler(t *testing.T) (*Handler, *viewtest.Gateway) {
	t.Helper()
	gateway := viewtest.NewGateway()
	controller, err := view.NewController(&viewtest.Session{}, gateway)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return NewHandler(controller), gateway
}

func TestParseMerchantID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "1", want: 1},
		{in: "42", want: 42},
		{in: "0", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMerchantID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMerchantID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMerchantID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range Routes() {
		key := r.Method + " " + r.Path
		if seen[key] {
			t.Errorf("duplicate route %s", key)
		}
		seen[key] = true
	}

	for _, want := range []string{"GET /", "GET /pay", "GET /invest", "GET /jobs", "GET /testimonials", "GET /blogs", "GET /contact", "GET /faq"} {
		if !seen[want] {
			t.Errorf("missing navigation route %s", want)
		}
	}
}

func TestHandlerHome(t *testing.T) {
	h, _ := newTestHandler(t)

	resp, err := h.Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if !resp.Connected || resp.Account != viewtest.Account.Hex() {
		t.Errorf("account = %q connected=%v", resp.Account, resp.Connected)
	}
	if resp.SelectedToken != minisafe.SymbolCELO {
		t.Errorf("selected token = %s", resp.SelectedToken)
	}
	if len(resp.Tokens) != 2 || resp.Tokens[0] != minisafe.SymbolCELO || resp.Tokens[1] != minisafe.SymbolCUSD {
		t.Errorf("tokens = %v", resp.Tokens)
	}
}

func TestHandlerPayMerchant(t *testing.T) {
	h, gateway := newTestHandler(t)
	gateway.Merchants = []minisafe.MerchantInfo{{Name: "Coffee", Description: "Beans", Address: merchantAddress}}

	// The merchant list has not been loaded yet, so the handler reads it first.
	if _, err := h.PayMerchant(context.Background(), "1", AmountRequest{Amount: "2"}); err != nil {
		t.Fatalf("PayMerchant: %v", err)
	}
	call, ok := gateway.Last("send")
	if !ok {
		t.Fatal("no send call recorded")
	}
	if got := call.Args[0].(interface{ Hex() string }).Hex(); got != merchantAddress {
		t.Errorf("send to %s, want %s", got, merchantAddress)
	}

	if _, err := h.PayMerchant(context.Background(), "9", AmountRequest{Amount: "2"}); !errors.Is(err, ErrMerchantNotFound) {
		t.Errorf("expected ErrMerchantNotFound, got %v", err)
	}
}

func TestHandlerSelectToken(t *testing.T) {
	h, _ := newTestHandler(t)

	resp, err := h.SelectToken(TokenRequest{Symbol: "cusd"})
	if err != nil {
		t.Fatalf("SelectToken: %v", err)
	}
	if resp.SelectedToken != minisafe.SymbolCUSD {
		t.Errorf("selected token = %s, want cUSD", resp.SelectedToken)
	}

	if _, err := h.SelectToken(TokenRequest{Symbol: "BTC"}); !errors.Is(err, minisafe.ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
}
