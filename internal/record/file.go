package record

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the record as one JSON object on local disk. The file holds
// an access token, so it is created owner read/write only.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path. The parent directory is
// created on first save.
func NewFileStore(path string) *FileStore {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "data/user_record.json"
	}
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (ConnectionRecord, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ConnectionRecord{}, ErrNotFound
		}
		return ConnectionRecord{}, fmt.Errorf("read record: %w", err)
	}
	var rec ConnectionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ConnectionRecord{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return rec, nil
}

// Save writes the full record to a temp file in the same directory and renames
// it over the previous copy, so a concurrent Load never observes a partial
// record.
func (s *FileStore) Save(_ context.Context, rec ConnectionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create record dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".record-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("restrict record permissions: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
