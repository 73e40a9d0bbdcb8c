// Package connection owns the connection record's state machine. All reads
// and writes of the access token go through the Controller; nothing else
// touches the store directly.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/christian-bermeo-pci/plaid-webhooks/internal/record"
)

// Controller serializes access to the in-memory record and writes it through
// to the store. On a failed save the in-memory record stays authoritative
// until the next successful save.
type Controller struct {
	mu      sync.Mutex
	store   record.Store
	log     *slog.Logger
	current record.ConnectionRecord
}

// NewController loads the persisted record, falling back to the default record
// when none exists or the stored bytes are corrupt.
func NewController(ctx context.Context, store record.Store, log *slog.Logger) (*Controller, error) {
	rec, err := store.Load(ctx)
	switch {
	case errors.Is(err, record.ErrNotFound):
		rec = record.Default()
	case errors.Is(err, record.ErrCorruptRecord):
		log.Warn("Stored connection record unreadable, starting disconnected", "error", err)
		rec = record.Default()
	case err != nil:
		return nil, fmt.Errorf("load connection record: %w", err)
	}
	return &Controller{store: store, log: log, current: rec}, nil
}

// Connect records a successful public-token exchange: the access token is set
// and the status flips to connected in the same persisted write.
func (c *Controller) Connect(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("connect requires a non-empty access token")
	}
	return c.update(ctx, record.ConnectionRecord{
		AccessToken: accessToken,
		UserStatus:  record.StatusConnected,
	})
}

// Disconnect clears the access token and flips the status to disconnected,
// persisted together. Used when the remote side reports the user revoked
// access.
func (c *Controller) Disconnect(ctx context.Context) error {
	return c.update(ctx, record.Default())
}

func (c *Controller) update(ctx context.Context, rec record.ConnectionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = rec
	if err := c.store.Save(ctx, rec); err != nil {
		c.log.Error("Failed to persist connection record, keeping in-memory state", "error", err)
		return fmt.Errorf("persist connection record: %w", err)
	}
	return nil
}

// AccessToken returns the stored token; ok is false while disconnected.
func (c *Controller) AccessToken() (token string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.AccessToken, c.current.AccessToken != ""
}

// Status returns the current connection status.
func (c *Controller) Status() record.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.UserStatus
}

// Record returns a copy of the current record.
func (c *Controller) Record() record.ConnectionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
