// Package personal keeps one user's daily tasks and scratchpad in memory, mirrors them to a local
// file cache and pushes changes to the server in the background.
package personal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is the local durable tier. Load returns ErrCacheMiss when key was never stored.
type Cache interface {
	Load(key string, v any) error
	Store(key string, v any) error
}

// FileCache stores each key as a JSON file under Dir.
type FileCache struct {
	Dir string
	mu  sync.Mutex
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{Dir: dir}, nil
}

func (c *FileCache) path(key string) string {
	key = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(c.Dir, key+".json")
}

func (c *FileCache) Load(key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Store writes through a temp file so a crash never leaves a torn entry.
func (c *FileCache) Store(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	dst := c.path(key)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// MemoryCache is a Cache for tests and for sessions without a data dir.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{data: map[string][]byte{}} }

func (c *MemoryCache) Load(key string, v any) error {
	c.mu.Lock()
	data, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, v)
}

func (c *MemoryCache) Store(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = data
	c.mu.Unlock()
	return nil
}
