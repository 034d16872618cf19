package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"calplan/internal/capture"
	"calplan/internal/fsutil"
	appLog "calplan/internal/log"
)

const (
	backupPrefix = "events-"
	backupSuffix = ".json"
	backupLayout = "20060102T150405"
)

// Snapshotter yields the serialized event collection.
type Snapshotter interface {
	Snapshot() ([]byte, error)
}

// RunBackup writes src's snapshot to dir as events-<stamp>.json and prunes
// older backups so at most keep remain. It returns the new file's path.
func RunBackup(src Snapshotter, dir string, keep int, now time.Time) (string, error) {
	data, err := src.Snapshot()
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	path := filepath.Join(dir, backupPrefix+now.UTC().Format(backupLayout)+backupSuffix)
	if err := fsutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", err
	}

	removed, err := prune(dir, keep)
	if err != nil {
		return path, fmt.Errorf("prune backups: %w", err)
	}
	appLog.Info("backup written", "path", path, "bytes", len(data), "pruned", len(removed))
	return path, nil
}

// prune deletes all but the newest keep backups in dir. Timestamps in the
// file names sort chronologically.
func prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupSuffix) {
			names = append(names, name)
		}
	}
	if len(names) <= keep {
		return nil, nil
	}
	slices.Sort(names)

	stale := names[:len(names)-keep]
	removed := make([]string, 0, len(stale))
	for _, name := range stale {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// BackupJob adapts RunBackup to the scheduler.
func BackupJob(src Snapshotter, dir string, keep int) Func {
	return func(context.Context) error {
		_, err := RunBackup(src, dir, keep, time.Now())
		return err
	}
}

// CaptureJob refreshes the month page PNG.
func CaptureJob(opts capture.Options) Func {
	return func(ctx context.Context) error {
		return capture.MonthPNG(ctx, opts)
	}
}
