// Package record persists the single user connection record that tracks
// whether a Plaid Item is linked and which access token belongs to it.
package record

import "errors"

var (
	// ErrNotFound means no record has been persisted yet (first run).
	ErrNotFound = errors.New("connection record not found")
	// ErrCorruptRecord means persisted bytes could not be parsed. Callers
	// recover with Default(); the stored bytes are discarded on next save.
	ErrCorruptRecord = errors.New("connection record corrupt")
)

// Status is the connection state of the record.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// ConnectionRecord is the one record this service persists. An empty
// AccessToken means no Item is linked; UserStatus is connected exactly when
// AccessToken is set.
type ConnectionRecord struct {
	AccessToken string `json:"accessToken"`
	UserStatus  Status `json:"userStatus"`
}

// Default returns the record used before any public token was exchanged.
func Default() ConnectionRecord {
	return ConnectionRecord{UserStatus: StatusDisconnected}
}

// Valid reports whether the status/token pairing is consistent.
func (r ConnectionRecord) Valid() bool {
	if r.AccessToken != "" {
		return r.UserStatus == StatusConnected
	}
	return r.UserStatus == StatusDisconnected
}
