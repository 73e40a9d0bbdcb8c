package record

import "context"

// Store persists the connection record. Load returns ErrNotFound when nothing
// was saved yet and ErrCorruptRecord when the stored bytes cannot be parsed;
// both are recoverable with Default(). Save fully replaces the prior record.
type Store interface {
	Load(ctx context.Context) (ConnectionRecord, error)
	Save(ctx context.Context, rec ConnectionRecord) error
	Close() error
}
