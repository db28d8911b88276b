package negotiate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Balance is the wallet balance reported by the balance endpoint
type Balance struct {
	Currency  string  `json:"currency"`
	Available float64 `json:"available_balance"`
	Ledger    float64 `json:"ledger_balance"`
	Degraded  bool    `json:"-"` // true when the enquiry failed and zeros were substituted
}

// BalanceClient queries the wallet balance. Downloads never wait on its
// success.
type BalanceClient struct {
	endpoint string
	currency string
	headers  map[string]string
	client   *http.Client
	logger   *slog.Logger
}

// NewBalanceClient creates a client for endpoint
func NewBalanceClient(endpoint, currency string, headers map[string]string, client *http.Client, logger *slog.Logger) *BalanceClient {
	if client == nil {
		client = http.DefaultClient
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceClient{endpoint: endpoint, currency: currency, headers: headers, client: client, logger: logger}
}

// Balance returns the balance of walletReference. Any failure is logged and
// reported as a zero, degraded balance.
func (b *BalanceClient) Balance(ctx context.Context, token, walletReference string) Balance {
	balance, err := b.fetch(ctx, token, walletReference)
	if err != nil {
		b.logger.Warn("balance enquiry failed, using zero balance", "wallet", walletReference, "error", err)
		return Balance{Currency: b.currency, Degraded: true}
	}
	return balance
}

func (b *BalanceClient) fetch(ctx context.Context, token, walletReference string) (Balance, error) {
	if strings.TrimSpace(walletReference) == "" {
		return Balance{}, fmt.Errorf("negotiate: no wallet reference")
	}
	if b.endpoint == "" {
		return Balance{}, ErrEmptyEndpoint
	}

	u := strings.TrimRight(b.endpoint, "/") + "/" + url.PathEscape(walletReference) + "?currency=" + url.QueryEscape(b.currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Balance{}, fmt.Errorf("negotiate: build balance request: %w", err)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return Balance{}, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return Balance{}, err
	}

	var envelope struct {
		Data *Balance `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Balance{}, fmt.Errorf("negotiate: decode balance: %w", err)
	}
	if envelope.Data == nil {
		return Balance{}, fmt.Errorf("negotiate: balance response has no data")
	}
	if envelope.Data.Currency == "" {
		envelope.Data.Currency = b.currency
	}
	return *envelope.Data, nil
}
