package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	domain "github.com/bryanwahyu/phishguard/internal/domain/assessment"
)

// FileHistory keeps the whole history as one JSON array on disk.
// Writes go through a temp file and rename so readers never see a partial file.
type FileHistory struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewFileHistory(path string, logger *slog.Logger) *FileHistory {
	if path == "" {
		path = "history.json"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileHistory{path: path, logger: logger}
}

// Path returns the backing file path.
func (f *FileHistory) Path() string { return f.path }

func (f *FileHistory) Prepend(ctx context.Context, e *domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// only a missing or malformed file reads as empty; other read errors must not overwrite it
	list, err := f.load()
	if err != nil {
		return fmt.Errorf("reading history file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.save(prepend(list, e))
}

func (f *FileHistory) List(_ context.Context) ([]*domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileHistory) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.save(nil)
}

func (f *FileHistory) load() ([]*domain.HistoryEntry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*domain.HistoryEntry{}, nil
		}
		return nil, err
	}
	list, ok := decodeHistory(data)
	if !ok {
		f.logger.Warn("history file is malformed, treating as empty", "path", f.path)
	}
	return list, nil
}

func (f *FileHistory) save(list []*domain.HistoryEntry) error {
	data, err := encodeHistory(list)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

var _ domain.HistoryRepository = (*FileHistory)(nil)
