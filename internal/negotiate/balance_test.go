package negotiate

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBalance(t *testing.T) {
	var gotPath, gotCurrency, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCurrency = r.URL.Query().Get("currency")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"currency":"NGN","available_balance":1500.5,"ledger_balance":1600}}`)
	}))
	defer server.Close()

	client := NewBalanceClient(server.URL+"/Payment/Wallet/balance", "", nil, nil, nil)
	balance := client.Balance(context.Background(), "tok", "WAL-1")

	if balance.Degraded {
		t.Fatal("Expected a real balance")
	}
	if balance.Available != 1500.5 || balance.Ledger != 1600 || balance.Currency != "NGN" {
		t.Errorf("Unexpected balance: %+v", balance)
	}
	if gotPath != "/Payment/Wallet/balance/WAL-1" || gotCurrency != "NGN" || gotAuth != "Bearer tok" {
		t.Errorf("Unexpected request: path=%s currency=%s auth=%s", gotPath, gotCurrency, gotAuth)
	}
}

func TestBalanceDegradesToZero(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wallet  string
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }, "WAL-1"},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "not json") }, "WAL-1"},
		{"missing data", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{"status":"ok"}`) }, "WAL-1"},
		{"no wallet", func(w http.ResponseWriter, r *http.Request) { t.Error("No request expected without a wallet") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			balance := NewBalanceClient(server.URL, "NGN", nil, nil, nil).Balance(context.Background(), "tok", tt.wallet)
			if !balance.Degraded || balance.Available != 0 || balance.Ledger != 0 {
				t.Errorf("Expected degraded zero balance, got %+v", balance)
			}
		})
	}
}
