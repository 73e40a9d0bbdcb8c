// Package plaid wraps the handful of Plaid API operations this service needs.
// Callers get either the raw success payload for relaying to the browser, or
// an *APIError carrying the nested error body Plaid returned.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const transactionWindowDays = 30

var environmentHosts = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// Config carries the credentials and link settings for a Client.
type Config struct {
	ClientID     string
	Secret       string
	Environment  string
	Products     []string
	CountryCodes []string
	WebhookURL   string
	// BaseURL overrides the environment host; used by tests.
	BaseURL string
}

// Client calls the Plaid API. The webhook URL is mutable process-wide via
// SetWebhookURL and guarded separately from the immutable credentials.
type Client struct {
	baseURL      string
	clientID     string
	secret       string
	products     []string
	countryCodes []string
	httpClient   *http.Client

	mu         sync.RWMutex
	webhookURL string
}

// ExchangeResult is the parsed outcome of a public-token exchange.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// NewClient builds a client for the configured Plaid environment.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		host, ok := environmentHosts[strings.ToLower(strings.TrimSpace(cfg.Environment))]
		if !ok {
			return nil, fmt.Errorf("unknown plaid environment %q", cfg.Environment)
		}
		baseURL = host
	}
	products := cfg.Products
	if len(products) == 0 {
		products = []string{"transactions"}
	}
	countryCodes := cfg.CountryCodes
	if len(countryCodes) == 0 {
		countryCodes = []string{"US"}
	}
	return &Client{
		baseURL:      baseURL,
		clientID:     strings.TrimSpace(cfg.ClientID),
		secret:       strings.TrimSpace(cfg.Secret),
		products:     products,
		countryCodes: countryCodes,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		webhookURL:   strings.TrimSpace(cfg.WebhookURL),
	}, nil
}

// WebhookURL returns the webhook destination sent on link-token requests.
func (c *Client) WebhookURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.webhookURL
}

// SetWebhookURL swaps the process-wide webhook destination.
func (c *Client) SetWebhookURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.webhookURL = strings.TrimSpace(url)
}

// CreateLinkToken requests a short-lived token that initializes the Link flow.
func (c *Client) CreateLinkToken(ctx context.Context) (json.RawMessage, error) {
	body := map[string]any{
		"user":          map[string]string{"client_user_id": "user-id"},
		"client_name":   "Plaid Webhooks Demo",
		"products":      c.products,
		"country_codes": c.countryCodes,
		"language":      "en",
	}
	if url := c.WebhookURL(); url != "" {
		body["webhook"] = url
	}
	return c.post(ctx, "/link/token/create", body)
}

// ExchangePublicToken swaps a public token for a long-lived access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (ExchangeResult, error) {
	raw, err := c.post(ctx, "/item/public_token/exchange", map[string]any{
		"public_token": publicToken,
	})
	if err != nil {
		return ExchangeResult{}, err
	}
	var result ExchangeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ExchangeResult{}, fmt.Errorf("decode exchange response: %w", err)
	}
	if result.AccessToken == "" {
		return ExchangeResult{}, fmt.Errorf("exchange response missing access_token")
	}
	return result, nil
}

// Transactions fetches the last 30 days of transactions for the Item.
func (c *Client) Transactions(ctx context.Context, accessToken string, now time.Time) (json.RawMessage, error) {
	end := now
	start := end.AddDate(0, 0, -transactionWindowDays)
	return c.post(ctx, "/transactions/get", map[string]any{
		"access_token": accessToken,
		"start_date":   start.Format("2006-01-02"),
		"end_date":     end.Format("2006-01-02"),
	})
}

// Balances fetches current account balances for the Item.
func (c *Client) Balances(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.post(ctx, "/accounts/balance/get", map[string]any{
		"access_token": accessToken,
	})
}

// CreateAssetReport kicks off asynchronous asset-report generation; completion
// arrives later as an ASSETS webhook.
func (c *Client) CreateAssetReport(ctx context.Context, accessToken string) (json.RawMessage, error) {
	body := map[string]any{
		"access_tokens":  []string{accessToken},
		"days_requested": transactionWindowDays,
	}
	if url := c.WebhookURL(); url != "" {
		body["options"] = map[string]string{"webhook": url}
	}
	return c.post(ctx, "/asset_report/create", body)
}

// FireTestWebhook asks the sandbox to deliver a DEFAULT_UPDATE webhook.
func (c *Client) FireTestWebhook(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.post(ctx, "/sandbox/item/fire_webhook", map[string]any{
		"access_token": accessToken,
		"webhook_code": "DEFAULT_UPDATE",
	})
}

// UpdateWebhook points the Item's webhook at a new URL.
func (c *Client) UpdateWebhook(ctx context.Context, accessToken, newURL string) (json.RawMessage, error) {
	return c.post(ctx, "/item/webhook/update", map[string]any{
		"access_token": accessToken,
		"webhook":      newURL,
	})
}

func (c *Client) post(ctx context.Context, path string, body map[string]any) (json.RawMessage, error) {
	body["client_id"] = c.clientID
	body["secret"] = c.secret
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, newAPIError(path, resp.StatusCode, payload)
	}
	return payload, nil
}
