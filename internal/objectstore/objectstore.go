// Package objectstore is the artifact-storage collaborator: bytes go in
// under a path, a stable URL comes back.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store uploads an artifact and returns the URL it will be served from.
type Store interface {
	Put(ctx context.Context, path string, r io.Reader) (string, error)
}

// SanitizeFilename keeps the base name only and replaces every character
// outside [A-Za-z0-9.-] with an underscore, so the result is safe to embed
// in an object path.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	sanitized := b.String()
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return "attachment"
	}
	return sanitized
}

// FileStore is a filesystem-backed Store. Artifacts land under root and are
// addressed as baseURL/<path>.
type FileStore struct {
	root    string
	baseURL string
}

func NewFileStore(root, baseURL string) *FileStore {
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *FileStore) Put(ctx context.Context, path string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	return s.baseURL + "/" + path, nil
}
