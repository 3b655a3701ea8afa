// Package persist stores the whole activity store as a single blob under a
// versioned key, either in a JSON file or in a SQLite key-value table.
package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"schoolplanner/internal/config"
	"schoolplanner/internal/log"
	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
)

// Backend loads and saves the whole store. Load returns an empty store when
// nothing has been saved yet.
type Backend interface {
	Load(ctx context.Context) (model.Days, error)
	Save(ctx context.Context, days model.Days) error
	Close() error
}

// Open builds the backend selected by the storage config.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path, cfg.Key)
	case "file", "":
		return NewFileBackend(cfg.Path, cfg.Key), nil
	default:
		return nil, fmt.Errorf("persist: unknown backend %q", cfg.Backend)
	}
}

// decodeDays parses a stored blob, normalising nil maps and slices so
// callers always get a usable store.
func decodeDays(data []byte) (model.Days, error) {
	days := model.Days{}
	if len(data) == 0 {
		return days, nil
	}
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, err
	}
	if days == nil {
		days = model.Days{}
	}
	for k, rec := range days {
		if rec.Date == "" {
			rec.Date = k
		}
		if rec.Activities == nil {
			rec.Activities = []model.Activity{}
		}
		days[k] = rec
	}
	if n := planner.UniqueIDs(days, nil, planner.NewID); n > 0 {
		log.Warn("persist: replaced missing or duplicate activity ids", "count", n)
	}
	return days, nil
}
