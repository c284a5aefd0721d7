package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cache stores completion responses on disk so a benchmark can be replayed
// without re-querying providers.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a cache rooted at dir. An empty dir disables the cache: Get
// always misses and Put is a no-op.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Entry is one cached completion response.
type Entry struct {
	Model      string    `json:"model"`
	Target     int       `json:"target"`
	TrialIndex int       `json:"trial_index"`
	Text       string    `json:"text"`
	DurationMs int64     `json:"duration_ms"`
	CachedAt   time.Time `json:"cached_at"`
}

// Key generates a unique cache key for one trial's completion request.
// The key covers everything that shapes a response:
// - model identifier
// - target word count and trial index
// - the full rendered prompt
// - temperature
func Key(model string, target, trialIndex int, prompt string, temperature float64) (string, error) {
	h := sha256.New()

	if err := writeString(h, model); err != nil {
		return "", err
	}
	if err := writeInt(h, target); err != nil {
		return "", err
	}
	if err := writeInt(h, trialIndex); err != nil {
		return "", err
	}
	if err := writeString(h, prompt); err != nil {
		return "", err
	}
	if err := writeFloat(h, temperature); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached response if it exists
func (c *Cache) Get(key string) (*Entry, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.cachePath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		// Cache miss
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Invalid cache entry, treat as miss
		return nil, false
	}

	return &entry, true
}

// Put stores a completion response in the cache
func (c *Cache) Put(key string, entry *Entry) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	path := c.cachePath(key)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

// Stats summarizes the cache directory for the CLI.
type Stats struct {
	Entries   int
	SizeBytes int64
}

// Stat reports entry count and total size. A disabled or missing cache
// reports zero values.
func (c *Cache) Stat() (Stats, error) {
	if c.dir == "" {
		return Stats{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("reading cache directory: %w", err)
	}

	var stats Stats
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.SizeBytes += info.Size()
	}

	return stats, nil
}

// Clear removes all cached responses
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: verify this looks like a cache directory before removing.
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	if len(entries) > 0 {
		hasValidCache := false
		for _, entry := range entries {
			if entry.IsDir() {
				return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
			}
			if filepath.Ext(entry.Name()) == ".json" {
				hasValidCache = true
			} else {
				return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
			}
		}
		if !hasValidCache {
			return fmt.Errorf("no valid cache files found in directory - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Deterministic reports whether cached responses are representative of a
// live run. At temperature zero providers are expected to produce stable
// output for a fixed prompt; above that a cache hit freezes one sample of a
// distribution.
func Deterministic(temperature float64) bool {
	return temperature == 0
}

// Helper functions

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeInt(w io.Writer, i int) error {
	// Write int with null byte delimiter to prevent hash collisions
	_, err := fmt.Fprintf(w, "%d\x00", i)
	return err
}

func writeFloat(w io.Writer, f float64) error {
	_, err := fmt.Fprintf(w, "%g\x00", f)
	return err
}
