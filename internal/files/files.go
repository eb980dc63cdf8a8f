// Package files keeps uploaded proof files on local disk.
package files

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrEmptyKey = errors.New("empty file key")

// Store writes proofs under a directory and exposes them below a URL prefix.
type Store struct {
	dir    string
	prefix string
}

// NewStore creates dir if needed. prefix is the public URL path the HTTP
// server mounts Handler on, for example "/files/".
func NewStore(dir, prefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{dir: dir, prefix: prefix}, nil
}

// Save writes content as key.ext and returns its public URL.
func (s *Store) Save(_ context.Context, key, ext string, content []byte) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	name := filepath.Base(key)
	if ext != "" {
		name += "." + strings.ToLower(ext)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0644); err != nil {
		return "", fmt.Errorf("write proof %s: %w", name, err)
	}
	return path.Join(s.prefix, name), nil
}

// Handler serves stored files. Mount it with http.StripPrefix on the prefix.
func (s *Store) Handler() http.Handler {
	return http.FileServer(http.Dir(s.dir))
}

// Prefix returns the URL prefix files are served under.
func (s *Store) Prefix() string {
	return s.prefix
}
