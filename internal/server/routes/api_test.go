package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/christian-bermeo-pci/plaid-webhooks/internal/connection"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/plaid"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/record"
)

func TestSwapPublicTokenConnectsAndPersists(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/public_token/exchange" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "access-sandbox-xyz",
			"item_id":      "item-1",
		})
	}))
	t.Cleanup(upstream.Close)

	api, store := newTestAPI(t, upstream.URL)
	rec := callJSON(t, api.handleSwapPublicToken, http.MethodPost, "/server/swap_public_token", `{"public_token":"public-xyz"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "success" {
		t.Fatalf("unexpected response: %v", resp)
	}

	persisted, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load persisted record: %v", err)
	}
	want := record.ConnectionRecord{AccessToken: "access-sandbox-xyz", UserStatus: record.StatusConnected}
	if persisted != want {
		t.Fatalf("persisted record mismatch: got=%+v want=%+v", persisted, want)
	}
}

func TestGetUserInfoIsIdempotent(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t, "http://plaid.invalid")

	first := callJSON(t, api.handleGetUserInfo, http.MethodGet, "/server/get_user_info", "")
	second := callJSON(t, api.handleGetUserInfo, http.MethodGet, "/server/get_user_info", "")
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("unexpected status: first=%d second=%d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("user info not idempotent: first=%s second=%s", first.Body.String(), second.Body.String())
	}
	if !strings.Contains(first.Body.String(), `"user_status":"disconnected"`) {
		t.Fatalf("expected disconnected status, body=%s", first.Body.String())
	}
}

func TestReceiveWebhookAcknowledgesTransactionsUpdate(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t, "http://plaid.invalid")
	rec := callJSON(t, api.handleReceiveWebhook, http.MethodPost, "/server/receive_webhook",
		`{"webhook_type":"TRANSACTIONS","webhook_code":"DEFAULT_UPDATE","new_transactions":5}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"received"`) {
		t.Fatalf("expected received ack, body=%s", rec.Body.String())
	}
}

func TestReceiveWebhookUserRevokedDisconnects(t *testing.T) {
	t.Parallel()

	api, store := newTestAPI(t, "http://plaid.invalid")
	ctx := context.Background()
	if err := api.conn.Connect(ctx, "access-sandbox-xyz"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	rec := callJSON(t, api.handleReceiveWebhook, http.MethodPost, "/server/receive_webhook",
		`{"webhook_type":"ITEM","webhook_code":"USER_PERMISSION_REVOKED"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}

	if got := api.conn.Record(); got != record.Default() {
		t.Fatalf("expected default record after revocation, got %+v", got)
	}
	persisted, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load persisted record: %v", err)
	}
	if persisted != record.Default() {
		t.Fatalf("expected default persisted record, got %+v", persisted)
	}
}

func TestReceiveWebhookUnknownTypeStillAcknowledges(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t, "http://plaid.invalid")
	rec := callJSON(t, api.handleReceiveWebhook, http.MethodPost, "/server/receive_webhook",
		`{"webhook_type":"FOO","webhook_code":"BAR"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"received"`) {
		t.Fatalf("expected received ack, body=%s", rec.Body.String())
	}
}

func TestTransactionsWithoutLinkedItemFails(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t, "http://plaid.invalid")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/server/transactions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := api.handleTransactions(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing linked item, got %v", err)
	}
}

func TestUpdateWebhookSwapsProcessWideURL(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/webhook/update" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"item":{}}`))
	}))
	t.Cleanup(upstream.Close)

	api, _ := newTestAPI(t, upstream.URL)
	if err := api.conn.Connect(context.Background(), "access-sandbox-xyz"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	rec := callJSON(t, api.handleUpdateWebhook, http.MethodPost, "/server/update_webhook",
		`{"newUrl":"https://example.com/server/receive_webhook"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := api.plaid.WebhookURL(); got != "https://example.com/server/receive_webhook" {
		t.Fatalf("webhook URL not updated, got %q", got)
	}
}

func newTestAPI(t *testing.T, upstreamURL string) (*APIRoutes, record.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := plaid.NewClient(plaid.Config{
		ClientID: "client-id",
		Secret:   "secret",
		BaseURL:  upstreamURL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	store := record.NewFileStore(filepath.Join(t.TempDir(), "user_record.json"))
	conn, err := connection.NewController(context.Background(), store, log)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return NewAPIRoutes(log, client, conn), store
}

func callJSON(t *testing.T, handler echo.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}
