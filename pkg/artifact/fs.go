// pkg/artifact/fs.go
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FSStore writes artifacts under root/<runID>/<key>. It enforces the
// append-only contract by refusing to overwrite an existing key.
type FSStore struct {
	root   string
	logger *zap.Logger
}

// NewFSStore creates a filesystem-backed artifact store rooted at dir
func NewFSStore(dir string, logger *zap.Logger) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("artifact directory cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &FSStore{root: dir, logger: logger}, nil
}

// Put writes one artifact, failing if the key was already written for the run
func (s *FSStore) Put(ctx context.Context, runID, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	path := filepath.Join(s.root, runID, filepath.FromSlash(key))
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("artifact %q already exists for run %s", key, runID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact path: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Debug("Wrote artifact",
		zap.String("runID", runID),
		zap.String("key", key),
		zap.Int("bytes", len(payload)))
	return nil
}

// Close implements Store; the filesystem backend holds no resources
func (s *FSStore) Close() error {
	return nil
}

// validateKey rejects keys that could escape the run directory
func validateKey(key string) error {
	if key == "" {
		return errors.New("artifact key cannot be empty")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("artifact key %q is not a relative path", key)
	}
	return nil
}
