package plaid

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestDispatchTransactionsDefaultUpdate(t *testing.T) {
	t.Parallel()

	conn := &fakeConnection{}
	d := NewDispatcher(discardLogger(), conn)
	d.Dispatch(context.Background(), Event{
		WebhookType:     "TRANSACTIONS",
		WebhookCode:     "DEFAULT_UPDATE",
		NewTransactions: 5,
	})
	if conn.disconnects != 0 {
		t.Fatalf("transactions update must not touch the connection, got %d disconnects", conn.disconnects)
	}
}

func TestDispatchUserPermissionRevokedDisconnects(t *testing.T) {
	t.Parallel()

	conn := &fakeConnection{}
	d := NewDispatcher(discardLogger(), conn)
	d.Dispatch(context.Background(), Event{
		WebhookType: "ITEM",
		WebhookCode: "USER_PERMISSION_REVOKED",
		ItemID:      "item-1",
	})
	if conn.disconnects != 1 {
		t.Fatalf("expected one disconnect, got %d", conn.disconnects)
	}
}

func TestDispatchUnknownProductIsNoOp(t *testing.T) {
	t.Parallel()

	conn := &fakeConnection{}
	d := NewDispatcher(discardLogger(), conn)
	d.Dispatch(context.Background(), Event{WebhookType: "FOO", WebhookCode: "BAR"})
	if conn.disconnects != 0 {
		t.Fatalf("unknown webhook must be a no-op, got %d disconnects", conn.disconnects)
	}
}

func TestDispatchUnknownCodeWithinKnownProductIsNoOp(t *testing.T) {
	t.Parallel()

	conn := &fakeConnection{}
	d := NewDispatcher(discardLogger(), conn)
	d.Dispatch(context.Background(), Event{WebhookType: "ITEM", WebhookCode: "SOMETHING_NEW"})
	if conn.disconnects != 0 {
		t.Fatalf("unknown code must be a no-op, got %d disconnects", conn.disconnects)
	}
}

func TestDispatchNormalizesTypeAndCode(t *testing.T) {
	t.Parallel()

	conn := &fakeConnection{}
	d := NewDispatcher(discardLogger(), conn)
	d.Dispatch(context.Background(), Event{WebhookType: " item ", WebhookCode: "user_permission_revoked"})
	if conn.disconnects != 1 {
		t.Fatalf("expected normalized dispatch to disconnect, got %d", conn.disconnects)
	}
}

type fakeConnection struct {
	disconnects int
}

func (f *fakeConnection) Disconnect(context.Context) error {
	f.disconnects++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
