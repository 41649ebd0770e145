package imagestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/learnquest/internal/filex"
)

// LocalStore writes objects below Root. The HTTP server exposes Root so the
// returned URLs resolve.
type LocalStore struct {
	root      string
	publicURL string
}

// NewLocalStore creates root if needed. Keys map to paths below root and
// URLs are publicURL + "/" + key.
func NewLocalStore(root, publicURL string) (*LocalStore, error) {
	dir, err := filex.EnsureSubdDir(root)
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: dir, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// Root is the absolute directory objects are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(ctx context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(dst, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes store root", key)
	}

	if _, err := filex.EnsureSubdDir(filepath.Dir(dst)); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("rename %s: %w", key, err)
	}

	return s.publicURL + "/" + key, nil
}
