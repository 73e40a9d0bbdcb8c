package record

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	// SQLite driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const sqliteDriver = "sqlite"

// SQLiteStore keeps the record in a single-row SQLite table. It honors the
// same load-or-default contract as FileStore, for deployments that want a real
// keyed store behind the same interface.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and migrates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "data/user_record"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open(sqliteDriver, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open record database: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(sqliteDriver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate record database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	values := url.Values{}
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "synchronous(NORMAL)")
	values.Add("_pragma", "busy_timeout(5000)")
	return fmt.Sprintf("file:%s.sqlite?%s", path, values.Encode())
}

func (s *SQLiteStore) Load(ctx context.Context) (ConnectionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM connection_record WHERE id = 1`)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return ConnectionRecord{}, ErrNotFound
		}
		return ConnectionRecord{}, fmt.Errorf("read record row: %w", err)
	}
	var rec ConnectionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return ConnectionRecord{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec ConnectionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO connection_record (id, payload) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`, string(raw))
	if err != nil {
		return fmt.Errorf("write record row: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
