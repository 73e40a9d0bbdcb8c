// Package plaid dispatches inbound Plaid webhooks. Events are routed by
// (webhook_type, webhook_code) through a lookup table; unknown combinations
// are logged no-ops. The HTTP acknowledgement is the caller's job and never
// depends on what a handler did.
package plaid

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// Webhook product types this service recognizes.
const (
	ProductItem         = "ITEM"
	ProductTransactions = "TRANSACTIONS"
	ProductAssets       = "ASSETS"
)

// Event is one inbound webhook payload. It lives only for the duration of a
// single dispatch; nothing is queued or retried.
type Event struct {
	WebhookType         string          `json:"webhook_type"`
	WebhookCode         string          `json:"webhook_code"`
	ItemID              string          `json:"item_id"`
	Error               json.RawMessage `json:"error"`
	NewTransactions     int             `json:"new_transactions"`
	RemovedTransactions []string        `json:"removed_transactions"`
	AssetReportID       string          `json:"asset_report_id"`
	NewWebhookURL       string          `json:"new_webhook_url"`
}

// Connection is the slice of the lifecycle controller the dispatcher needs:
// revocation must go through it, never by mutating the record directly.
type Connection interface {
	Disconnect(ctx context.Context) error
}

type routeKey struct {
	product string
	code    string
}

type handlerFunc func(ctx context.Context, ev Event)

// Dispatcher routes webhook events to per-product handlers.
type Dispatcher struct {
	log      *slog.Logger
	conn     Connection
	handlers map[routeKey]handlerFunc
}

// NewDispatcher builds the routing table.
func NewDispatcher(log *slog.Logger, conn Connection) *Dispatcher {
	d := &Dispatcher{log: log, conn: conn}
	d.handlers = map[routeKey]handlerFunc{
		{ProductItem, "ERROR"}:                        d.itemError,
		{ProductItem, "NEW_ACCOUNTS_AVAILABLE"}:       d.itemNewAccounts,
		{ProductItem, "PENDING_EXPIRATION"}:           d.itemPendingExpiration,
		{ProductItem, "USER_PERMISSION_REVOKED"}:      d.itemUserRevoked,
		{ProductItem, "WEBHOOK_UPDATE_ACKNOWLEDGED"}:  d.itemWebhookUpdated,
		{ProductTransactions, "INITIAL_UPDATE"}:       d.transactionsUpdate,
		{ProductTransactions, "HISTORICAL_UPDATE"}:    d.transactionsUpdate,
		{ProductTransactions, "DEFAULT_UPDATE"}:       d.transactionsUpdate,
		{ProductTransactions, "TRANSACTIONS_REMOVED"}: d.transactionsRemoved,
		{ProductAssets, "PRODUCT_READY"}:              d.assetsReady,
		{ProductAssets, "ERROR"}:                      d.assetsError,
	}
	return d
}

// Dispatch routes one event. It never returns an error: the webhook sender
// gets its acknowledgement regardless of the handler outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	ev.WebhookType = strings.ToUpper(strings.TrimSpace(ev.WebhookType))
	ev.WebhookCode = strings.ToUpper(strings.TrimSpace(ev.WebhookCode))

	handler, ok := d.handlers[routeKey{ev.WebhookType, ev.WebhookCode}]
	if !ok {
		d.log.Info("Ignoring unhandled webhook", "webhook_type", ev.WebhookType, "webhook_code", ev.WebhookCode)
		return
	}
	handler(ctx, ev)
}

func (d *Dispatcher) itemError(_ context.Context, ev Event) {
	d.log.Warn("Item is in an error state", "item_id", ev.ItemID, "error", string(ev.Error))
}

func (d *Dispatcher) itemNewAccounts(_ context.Context, ev Event) {
	d.log.Info("New accounts are available for this Item", "item_id", ev.ItemID)
}

func (d *Dispatcher) itemPendingExpiration(_ context.Context, ev Event) {
	d.log.Warn("Item credentials are about to expire, send the user through update mode", "item_id", ev.ItemID)
}

func (d *Dispatcher) itemUserRevoked(ctx context.Context, ev Event) {
	d.log.Info("User revoked access, disconnecting", "item_id", ev.ItemID)
	if err := d.conn.Disconnect(ctx); err != nil {
		d.log.Error("Failed to persist disconnect after revocation", "error", err)
	}
}

func (d *Dispatcher) itemWebhookUpdated(_ context.Context, ev Event) {
	d.log.Info("Webhook URL update acknowledged", "item_id", ev.ItemID, "new_webhook_url", ev.NewWebhookURL)
}

func (d *Dispatcher) transactionsUpdate(_ context.Context, ev Event) {
	d.log.Info("Transactions update received", "webhook_code", ev.WebhookCode, "new_transactions", ev.NewTransactions)
}

func (d *Dispatcher) transactionsRemoved(_ context.Context, ev Event) {
	d.log.Info("Transactions were removed", "removed", len(ev.RemovedTransactions))
}

func (d *Dispatcher) assetsReady(_ context.Context, ev Event) {
	d.log.Info("Asset report is ready for download", "asset_report_id", ev.AssetReportID)
}

func (d *Dispatcher) assetsError(_ context.Context, ev Event) {
	d.log.Warn("Asset report generation failed", "asset_report_id", ev.AssetReportID, "error", string(ev.Error))
}
