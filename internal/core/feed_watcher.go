package core

// feed_watcher.go polls a drop directory for catalog feeds.
//
// Every interval the watcher reconciles each *.csv file in the directory in
// file-name order. Files that were applied move to processed/ with a JSON
// report beside them; files that cannot be parsed move to failed/. A file
// whose run hit a dependency failure stays in place and is retried on the
// next tick.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Subdirectories of the feed directory.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// FeedRefresher runs a reconciliation only when a run slot is free.
type FeedRefresher interface {
	TryRefreshCatalog(ctx context.Context, fileName string, feed io.Reader) (*RunReport, bool, error)
}

// FeedWatcher reconciles feeds dropped into a directory.
type FeedWatcher struct {
	refresher FeedRefresher
	dir       string
	interval  time.Duration
	maxSize   int64
	now       func() time.Time
}

// NewFeedWatcher creates a watcher for dir. Files larger than maxSize are
// moved to failed/ without being read.
func NewFeedWatcher(refresher FeedRefresher, dir string, interval time.Duration, maxSize int64) *FeedWatcher {
	return &FeedWatcher{
		refresher: refresher,
		dir:       dir,
		interval:  interval,
		maxSize:   maxSize,
		now:       time.Now,
	}
}

// Run scans immediately, then every interval until ctx is cancelled.
func (w *FeedWatcher) Run(ctx context.Context) {
	slog.Info("feed watcher started", "dir", w.dir, "interval", w.interval)

	w.scanAndLog(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("feed watcher stopped")
			return
		case <-ticker.C:
			w.scanAndLog(ctx)
		}
	}
}

func (w *FeedWatcher) scanAndLog(ctx context.Context) {
	start := time.Now()
	n, err := w.Scan(ctx)
	if err != nil {
		slog.Error("feed scan failed", "dir", w.dir, "error", err)
		return
	}
	if n > 0 {
		slog.Info("feed scan completed", "files", n, "duration_ms", time.Since(start).Milliseconds())
	}
}

// Scan processes the feeds currently in the directory and returns how many
// files were moved out of it.
func (w *FeedWatcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("reading feed directory %s: %w", w.dir, err)
	}

	moved := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		if ctx.Err() != nil {
			return moved, ctx.Err()
		}

		done, err := w.processFile(ctx, entry.Name())
		if err != nil {
			return moved, err
		}
		if !done {
			// Limiter is full or a dependency is down; retry next tick.
			break
		}
		moved++
	}
	return moved, nil
}

// processFile reconciles one feed. done is false when the file was left in
// place for a later attempt.
func (w *FeedWatcher) processFile(ctx context.Context, name string) (done bool, err error) {
	path := filepath.Join(w.dir, name)

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	if w.maxSize > 0 && info.Size() > w.maxSize {
		slog.Warn("feed rejected", "file", name, "reason", "file too large", "size", info.Size())
		return true, w.move(name, FailedDir, nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", name, err)
	}
	report, started, runErr := w.refresher.TryRefreshCatalog(ctx, name, f)
	f.Close()

	switch {
	case !started:
		return false, nil
	case runErr == nil:
		return true, w.move(name, ProcessedDir, report)
	case errors.Is(runErr, ErrMalformedFeed), errors.Is(runErr, ErrEmptyFeed):
		slog.Warn("feed rejected", "file", name, "error", runErr)
		return true, w.move(name, FailedDir, nil)
	default:
		slog.Error("feed run failed, will retry",
			"file", name,
			"error", runErr,
			"user_message", FormatUserError(runErr),
		)
		return false, nil
	}
}

// move relocates a feed into sub, stamping the name so reruns of the same
// file name do not collide. A non-nil report is written next to it.
func (w *FeedWatcher) move(name, sub string, report *RunReport) error {
	destDir := filepath.Join(w.dir, sub)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", sub, err)
	}

	stamped := w.now().UTC().Format("20060102T150405") + "-" + name
	dest := filepath.Join(destDir, stamped)
	if err := os.Rename(filepath.Join(w.dir, name), dest); err != nil {
		return fmt.Errorf("failed moving file %s: %w", name, err)
	}

	if report == nil {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report for %s: %w", name, err)
	}
	reportPath := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".report.json"
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return fmt.Errorf("writing report for %s: %w", name, err)
	}
	return nil
}
