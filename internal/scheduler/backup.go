// Package scheduler runs periodic jobs, currently store backups, on a cron
// schedule.
package scheduler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"schoolplanner/internal/config"
	"schoolplanner/internal/log"
)

const (
	backupPrefix = "school-schedule-"
	backupSuffix = ".json"
	backupStamp  = "2006-01-02-150405"
)

// Exporter produces the JSON export of the current store.
type Exporter interface {
	Export() ([]byte, error)
}

// Backup writes timestamped exports into Dir and keeps the newest Keep.
type Backup struct {
	Source Exporter
	Dir    string
	Keep   int

	// Now defaults to time.Now.
	Now func() time.Time
	// Observe, if set, is told the outcome of every run.
	Observe func(err error)
}

// Run takes one backup and prunes old ones. It returns the written path.
func (b *Backup) Run() (string, error) {
	path, err := b.run()
	if b.Observe != nil {
		b.Observe(err)
	}
	if err != nil {
		log.Error("backup failed", err, "dir", b.Dir)
		return "", err
	}
	log.Info("backup written", "path", path)
	return path, nil
}

func (b *Backup) run() (string, error) {
	if b.Source == nil {
		return "", errors.New("backup: no source")
	}
	if b.Dir == "" {
		return "", errors.New("backup: no directory")
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	data, err := b.Source.Export()
	if err != nil {
		return "", fmt.Errorf("backup: export: %w", err)
	}
	path := filepath.Join(b.Dir, backupPrefix+now().Format(backupStamp)+backupSuffix)
	if err := config.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("backup: write: %w", err)
	}
	if err := b.prune(); err != nil {
		return path, fmt.Errorf("backup: prune: %w", err)
	}
	return path, nil
}

// prune deletes all but the newest Keep backups. Stamps sort
// lexicographically in time order.
func (b *Backup) prune() error {
	if b.Keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, backupPrefix) && strings.HasSuffix(n, backupSuffix) {
			names = append(names, n)
		}
	}
	if len(names) <= b.Keep {
		return nil
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-b.Keep] {
		if err := os.Remove(filepath.Join(b.Dir, n)); err != nil {
			return err
		}
		log.Debug("backup pruned", "file", n)
	}
	return nil
}
