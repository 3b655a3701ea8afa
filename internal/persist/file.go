package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"schoolplanner/internal/config"
	"schoolplanner/internal/model"
)

// FileBackend keeps the store in a JSON document of the form
// {"<key>": {<date>: <day record>, ...}}.
type FileBackend struct {
	path string
	key  string
}

func NewFileBackend(path, key string) *FileBackend {
	if key == "" {
		key = config.StorageKey
	}
	return &FileBackend{path: path, key: key}
}

func (f *FileBackend) Load(_ context.Context) (model.Days, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Days{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", f.path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, f.quarantine(err)
	}
	days, err := decodeDays(doc[f.key])
	if err != nil {
		return nil, f.quarantine(err)
	}
	return days, nil
}

// quarantine moves a corrupt file aside so the next save starts clean.
func (f *FileBackend) quarantine(cause error) error {
	backupPath := f.path + ".corrupt"
	if err := os.Rename(f.path, backupPath); err != nil {
		return fmt.Errorf("persist: corrupt JSON in %s (could not move it to %s: %v): %w", f.path, backupPath, err, cause)
	}
	return fmt.Errorf("persist: corrupt JSON in %s (backed up to %s): %w", f.path, backupPath, cause)
}

func (f *FileBackend) Save(_ context.Context, days model.Days) error {
	if days == nil {
		days = model.Days{}
	}
	data, err := json.Marshal(map[string]model.Days{f.key: days})
	if err != nil {
		return fmt.Errorf("persist: marshal: %w", err)
	}
	if err := config.WriteFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("persist: write %s: %w", f.path, err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }
