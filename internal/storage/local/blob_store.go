// Package local implements a filesystem blob store for screenshots.
package local

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory where blobs will be stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	// BaseURL, when set, replaces file:// URIs with links under this URL.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// BlobStore writes artifacts to the local filesystem.
type BlobStore struct {
	baseDir string
	baseURL string
}

// New creates the base directory when missing and checks it is writable.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, eris.New("local: base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, eris.Wrap(mkErr, "local: create base directory")
		}
	case err != nil:
		return nil, eris.Wrap(err, "local: stat base directory")
	case !info.IsDir():
		return nil, eris.Errorf("local: %s is not a directory", cfg.BaseDir)
	}

	probe := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, eris.Wrap(err, "local: base directory is not writable")
	}
	if err := os.Remove(probe); err != nil {
		return nil, eris.Wrap(err, "local: clean up probe file")
	}

	return &BlobStore{
		baseDir: filepath.Clean(cfg.BaseDir),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// Dir returns the root directory.
func (s *BlobStore) Dir() string { return s.baseDir }

// PutObject writes data under the base directory and returns its URI.
func (s *BlobStore) PutObject(_ context.Context, p string, _ string, data io.Reader) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", eris.New("local: path is required")
	}

	fullPath := filepath.Clean(filepath.Join(s.baseDir, p))
	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) {
		return "", eris.Errorf("local: path %q escapes base directory", p)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", eris.Wrap(err, "local: create parent directories")
	}

	// #nosec G304 -- fullPath is confined to baseDir above.
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", eris.Wrap(err, "local: open file")
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return "", eris.Wrap(err, "local: write file")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "local: close file")
	}

	if s.baseURL != "" {
		rel, err := filepath.Rel(s.baseDir, fullPath)
		if err != nil {
			return "", eris.Wrap(err, "local: relative path")
		}
		return s.baseURL + "/" + (&url.URL{Path: filepath.ToSlash(rel)}).EscapedPath(), nil
	}
	return "file://" + fullPath, nil
}
