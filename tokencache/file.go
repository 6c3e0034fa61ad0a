package tokencache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileCache stores the token record as a single JSON file.
type FileCache struct {
	Path string
}

// NewFileCache creates a file-backed cache at the given path.
func NewFileCache(path string) *FileCache {
	return &FileCache{Path: path}
}

// DefaultPath resolves the conventional cache location,
// <user-cache-dir>/offers-sdk/token_cache.json. Returns "" when no user
// cache directory can be determined.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "offers-sdk", "token_cache.json")
}

// Load reads and parses the cache file. Any failure is a miss.
func (f *FileCache) Load() (Record, bool) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, false
	}
	if rec.AccessToken == "" {
		return Record{}, false
	}
	return rec, true
}

// Store writes the record, creating the parent directory if needed.
func (f *FileCache) Store(rec Record) error {
	if err := ensureParentDir(f.Path); err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}
	if err := os.WriteFile(f.Path, b, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}

// Clear removes the cache file. A missing file is not an error.
func (f *FileCache) Clear() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token cache: %w", err)
	}
	return nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
