// Package backup periodically snapshots the catalog into xlsx workbooks.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/sheet"
)

const (
	filePrefix  = "qatm-backup-"
	fileSuffix  = ".xlsx"
	stampLayout = "20060102T150405Z"
)

// Source yields the test cases to back up.
type Source interface {
	TestCases() []models.TestCase
}

// StartAutoBackup writes a snapshot of src into dir every interval and
// removes snapshots older than retention. The returned channel is closed
// once the loop has stopped after ctx is cancelled.
func StartAutoBackup(
	ctx context.Context,
	src Source,
	dir string,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				path, err := Snapshot(src, dir, now)
				if err != nil {
					log.Error("failed to write backup", zap.Error(err))
					continue
				}
				log.Info("backup written", zap.String("path", path))

				removed, err := Prune(dir, now.Add(-retention))
				if err != nil {
					log.Error("failed to prune backups", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("pruned old backups", zap.Int("removed", removed))
				}
			}
		}
	}()
	return done
}

// Snapshot writes the detailed export of src into dir, named after now.
func Snapshot(src Source, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(dir, filePrefix+now.UTC().Format(stampLayout)+fileSuffix)

	tmp, err := os.CreateTemp(dir, ".backup-*")
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := sheet.WriteTestCases(tmp, src.TestCases()); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename backup: %w", err)
	}
	return path, nil
}

// Prune removes the snapshots in dir taken before cutoff. Other files are left alone.
func Prune(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}
	removed := 0
	for _, e := range entries {
		taken, ok := snapshotTime(e.Name())
		if e.IsDir() || !ok || !taken.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("remove backup %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func snapshotTime(name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, filePrefix)
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, fileSuffix)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(stampLayout, stamp)
	return t, err == nil
}
