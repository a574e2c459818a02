package spritemill

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
)

// Storage is where encoded assets end up. Implementations receive the full
// encoded byte stream and return a URL or path the asset is reachable at.
type Storage interface {
	Upload(b []byte, mimeType string) (string, error)
}

// DirStore is a content-addressed directory on the local filesystem.
// Identical content uploads to the same path, making uploads idempotent.
type DirStore struct {
	root string
}

// NewDirStore creates the directory if needed and returns a store rooted
// there.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DirStore{root: root}, nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	}
	return ".bin"
}

// Upload writes b under a SHA-1 derived name and returns its path.
func (s *DirStore) Upload(b []byte, mimeType string) (string, error) {
	name := fmt.Sprintf("%x%s", sha1.Sum(b), extension(mimeType))
	path := filepath.Join(s.root, name)

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
