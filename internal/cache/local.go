package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// LocalCache keeps the snapshot in a JSON file. Writes go through a
// temporary file and a rename so readers never see a partial file.
type LocalCache struct {
	mu   sync.RWMutex
	path string
}

// NewLocalCache returns a file cache at path. An empty path disables it.
func NewLocalCache(path string) *LocalCache {
	return &LocalCache{path: path}
}

func (c *LocalCache) Get(_ context.Context) (*ModelSnapshot, error) {
	if c.path == "" {
		return nil, nil
	}
	c.mu.RLock()
	data, err := os.ReadFile(c.path)
	c.mu.RUnlock()

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return decodeSnapshot(data, c.path)
}

func (c *LocalCache) Set(_ context.Context, snapshot *ModelSnapshot) error {
	if c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

func (c *LocalCache) Close() error { return nil }

func decodeSnapshot(data []byte, source string) (*ModelSnapshot, error) {
	snapshot := new(ModelSnapshot)
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot from %s: %w", source, err)
	}
	return snapshot, nil
}
