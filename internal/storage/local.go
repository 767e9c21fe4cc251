package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalProvider stores objects below a base directory. Objects are written to
// a temporary file and renamed into place on Close.
type LocalProvider struct {
	basePath string
	log      zerolog.Logger
}

// NewLocalProvider returns a Provider rooted at basePath, creating the
// directory if needed.
func NewLocalProvider(basePath string, logger zerolog.Logger) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", basePath, err)
	}
	return &LocalProvider{basePath: basePath, log: logger.With().Str("storage", "local").Logger()}, nil
}

// Create opens a temporary file next to the final path of key.
func (p *LocalProvider) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := p.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", key, err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".partial-*")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}
	return &localWriter{f: f, path: path, log: p.log}, nil
}

// Location returns the file:// URL of key.
func (p *LocalProvider) Location(key string) string {
	path, err := p.path(key)
	if err != nil {
		path = filepath.Join(p.basePath, filepath.Base(key))
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

// path maps key below basePath, rejecting keys that would escape it.
func (p *LocalProvider) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(p.basePath, clean), nil
}

type localWriter struct {
	f    *os.File
	path string
	log  zerolog.Logger
}

func (w *localWriter) Write(b []byte) (int, error) {
	return w.f.Write(b)
}

// Close moves the finished file into place.
func (w *localWriter) Close() error {
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.f.Name())
		return err
	}
	if err := os.Rename(w.f.Name(), w.path); err != nil {
		_ = os.Remove(w.f.Name())
		return err
	}
	w.log.Info().Str("path", w.path).Msg("local file write completed")
	return nil
}

// Abort removes the temporary file.
func (w *localWriter) Abort(cause error) {
	_ = w.f.Close()
	_ = os.Remove(w.f.Name())
	w.log.Warn().Err(cause).Str("path", w.path).Msg("local file write aborted")
}
