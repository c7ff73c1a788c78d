package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/starford/othala/internal/book"
)

// EventCallback is called after a watcher-driven import.
type EventCallback func(kind, contactID string)

// settleDelay gives the writing process a moment to finish the file
// before we read it.
const settleDelay = 100 * time.Millisecond

// Sweep imports every .vcf file already present in dir. Files are removed
// after a successful import; failed files stay behind for inspection.
func Sweep(repo book.Repository, dir string, logger *slog.Logger, cb EventCallback) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".vcf") {
			continue
		}
		importFile(repo, filepath.Join(dir, e.Name()), logger, cb)
	}
	return nil
}

// Watch starts an fsnotify watcher on the drop directory and imports
// .vcf files as they appear, until ctx is cancelled.
func Watch(ctx context.Context, repo book.Repository, dir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("importer: watching", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("importer: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".vcf") {
				continue
			}
			time.Sleep(settleDelay)
			importFile(repo, ev.Name, logger, cb)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importer: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

// importFile reads, parses, and upserts one vCard file, removing it on
// success.
func importFile(repo book.Repository, path string, logger *slog.Logger, cb EventCallback) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("importer: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	contacts, err := ParseVCards(data)
	if err != nil {
		logger.Warn("importer: parse failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	imported := 0
	for _, c := range contacts {
		c.ID = uuid.NewString()
		if err := repo.CreateContact(c); err != nil {
			logger.Warn("importer: create failed",
				slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		imported++
		if cb != nil {
			cb("contact.created", c.ID)
		}
	}
	if imported == 0 {
		return
	}

	logger.Info("importer: imported",
		slog.String("path", filepath.Base(path)), slog.Int("contacts", imported))
	if err := os.Remove(path); err != nil {
		logger.Warn("importer: cleanup failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}
