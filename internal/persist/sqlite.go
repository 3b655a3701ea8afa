package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"schoolplanner/internal/config"
	"schoolplanner/internal/model"
)

// kvEntry is one row of the key-value table holding serialized stores.
type kvEntry struct {
	bun.BaseModel `bun:"table:planner_kv"`

	Key       string `bun:"storage_key,pk"`
	Value     string `bun:"value,notnull"`
	UpdatedAt int64  `bun:"updated_at,notnull"`
}

// SQLiteBackend keeps the store as a JSON value in a SQLite table.
type SQLiteBackend struct {
	db  *bun.DB
	key string
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path, key string) (*SQLiteBackend, error) {
	if key == "" {
		key = config.StorageKey
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("persist: create db dir: %w", err)
		}
		dsn = "file:" + path + "?mode=rwc"
	}

	raw, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: open sqlite: %w", err)
	}
	// One connection: SQLite serialises writers anyway and :memory: is per-connection.
	raw.SetMaxOpenConns(1)

	db := bun.NewDB(raw, sqlitedialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))

	if _, err := db.NewCreateTable().
		Model((*kvEntry)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: create schema: %w", err)
	}
	return &SQLiteBackend{db: db, key: key}, nil
}

func (s *SQLiteBackend) Load(ctx context.Context) (model.Days, error) {
	entry := new(kvEntry)
	err := s.db.NewSelect().
		Model(entry).
		Where("storage_key = ?", s.key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Days{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("(*SQLiteBackend).Load: %w", err)
	}
	days, err := decodeDays([]byte(entry.Value))
	if err != nil {
		return nil, fmt.Errorf("(*SQLiteBackend).Load: corrupt value under %q: %w", s.key, err)
	}
	return days, nil
}

func (s *SQLiteBackend) Save(ctx context.Context, days model.Days) error {
	if days == nil {
		days = model.Days{}
	}
	data, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("(*SQLiteBackend).Save: %w", err)
	}
	entry := &kvEntry{
		Key:       s.key,
		Value:     string(data),
		UpdatedAt: time.Now().UTC().Unix(),
	}
	if _, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (storage_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*SQLiteBackend).Save: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
