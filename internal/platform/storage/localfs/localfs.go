package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Storage writes blobs under a root directory and serves them from a base URL.
type Storage struct {
	root    string
	baseURL string
}

func New(root, baseURL string) (*Storage, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Store writes data under folder with a uuid-prefixed, sanitized filename and
// returns the public URL.
func (s *Storage) Store(_ context.Context, data []byte, folder, filename, _ string) (string, error) {
	dir := filepath.Join(s.root, sanitize(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	name := uuid.NewString() + "_" + sanitize(filename)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, sanitize(folder), name), nil
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeChars.ReplaceAllString(s, "_")
	// ".." survives the character class; neutralize it so names can never
	// look like traversal even after joining.
	s = strings.ReplaceAll(s, "..", "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "file"
	}
	return s
}
