package blob

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// LocalStore writes objects into a directory on the local filesystem.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed. Returned references use baseURL
// when set and a file:// URL otherwise.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage: directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: create %s: %w", abs, err)
	}
	return &LocalStore{dir: abs, baseURL: baseURL}, nil
}

// Put writes data atomically under name. The content type is not stored.
func (s *LocalStore) Put(ctx context.Context, data []byte, _ string, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := objectName(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("local storage: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("local storage: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("local storage: close %s: %w", name, err)
	}

	dest := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("local storage: rename %s: %w", name, err)
	}

	if u := publicURL(s.baseURL, name); u != "" {
		return u, nil
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}).String(), nil
}
