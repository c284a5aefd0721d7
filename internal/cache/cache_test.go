package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	key1, err := Key("llama3.2", 25, 1, "Write exactly 25 words about the ocean.", 0.7)
	require.NoError(t, err)
	assert.NotEmpty(t, key1)
	assert.Len(t, key1, 64) // SHA256 hex is 64 chars

	// Same inputs should produce same key
	key2, err := Key("llama3.2", 25, 1, "Write exactly 25 words about the ocean.", 0.7)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}

func TestKey_EachFieldChangesKey(t *testing.T) {
	base, err := Key("llama3.2", 25, 1, "prompt", 0.7)
	require.NoError(t, err)

	tests := []struct {
		name        string
		model       string
		target      int
		trialIndex  int
		prompt      string
		temperature float64
	}{
		{"different model", "mistral", 25, 1, "prompt", 0.7},
		{"different target", "llama3.2", 50, 1, "prompt", 0.7},
		{"different trial index", "llama3.2", 25, 2, "prompt", 0.7},
		{"different prompt", "llama3.2", 25, 1, "other prompt", 0.7},
		{"different temperature", "llama3.2", 25, 1, "prompt", 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := Key(tt.model, tt.target, tt.trialIndex, tt.prompt, tt.temperature)
			require.NoError(t, err)
			assert.NotEqual(t, base, key)
		})
	}
}

func TestKey_NoHashCollision(t *testing.T) {
	// Field delimiters keep adjacent fields from bleeding into each other.
	key1, err := Key("ab", 25, 1, "cd", 0)
	require.NoError(t, err)

	key2, err := Key("abc", 25, 1, "d", 0)
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2, "field delimiters should prevent hash collisions")
}

func TestCache_GetPut(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	key := "test-key-123"
	entry := &Entry{
		Model:      "llama3.2",
		Target:     25,
		TrialIndex: 1,
		Text:       "one two three",
		DurationMs: 1200,
		CachedAt:   time.Now().UTC(),
	}

	// Cache miss
	retrieved, found := c.Get(key)
	assert.False(t, found)
	assert.Nil(t, retrieved)

	// Store in cache
	err := c.Put(key, entry)
	require.NoError(t, err)

	// Cache hit
	retrieved, found = c.Get(key)
	assert.True(t, found)
	require.NotNil(t, retrieved)
	assert.Equal(t, entry.Model, retrieved.Model)
	assert.Equal(t, entry.Target, retrieved.Target)
	assert.Equal(t, entry.Text, retrieved.Text)
	assert.Equal(t, entry.DurationMs, retrieved.DurationMs)
}

func TestCache_GetInvalidEntry(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "bad-key.json"), []byte("{not json"), 0644))

	_, found := c.Get("bad-key")
	assert.False(t, found, "corrupt entries should read as misses")
}

func TestCache_EmptyDir(t *testing.T) {
	c := New("")

	// Get should return false
	_, found := c.Get("any-key")
	assert.False(t, found)

	// Put should be no-op
	err := c.Put("key", &Entry{Model: "llama3.2", Text: "words"})
	assert.NoError(t, err)

	// Clear should be no-op
	err = c.Clear()
	assert.NoError(t, err)

	// Stat should be all zeroes
	stats, err := c.Stat()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestCache_Stat(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	stats, err := c.Stat()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)

	require.NoError(t, c.Put("key1", &Entry{Model: "llama3.2", Text: "one"}))
	require.NoError(t, c.Put("key2", &Entry{Model: "mistral", Text: "two"}))

	stats, err = c.Stat()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Greater(t, stats.SizeBytes, int64(0))
}

func TestCache_StatMissingDir(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "never-created"))

	stats, err := c.Stat()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestCache_Clear(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	entry := &Entry{Model: "llama3.2", Text: "cached words"}

	require.NoError(t, c.Put("key1", entry))
	require.NoError(t, c.Put("key2", entry))

	_, found := c.Get("key1")
	assert.True(t, found)

	err := c.Clear()
	require.NoError(t, err)

	_, found = c.Get("key1")
	assert.False(t, found)
	_, found = c.Get("key2")
	assert.False(t, found)

	_, err = os.Stat(cacheDir)
	assert.True(t, os.IsNotExist(err))
}

func TestCache_Clear_SafetyChecks(t *testing.T) {
	t.Run("refuses to clear directory with subdirectories", func(t *testing.T) {
		cacheDir := t.TempDir()
		c := New(cacheDir)

		require.NoError(t, c.Put("key1", &Entry{Model: "llama3.2"}))

		subDir := filepath.Join(cacheDir, "subdir")
		require.NoError(t, os.Mkdir(subDir, 0755))

		err := c.Clear()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "subdirectories")

		// Cache directory should still exist
		_, err = os.Stat(cacheDir)
		assert.NoError(t, err)
	})

	t.Run("refuses to clear directory with non-json files", func(t *testing.T) {
		cacheDir := t.TempDir()
		c := New(cacheDir)

		require.NoError(t, c.Put("key1", &Entry{Model: "llama3.2"}))

		nonCacheFile := filepath.Join(cacheDir, "README.txt")
		require.NoError(t, os.WriteFile(nonCacheFile, []byte("test"), 0644))

		err := c.Clear()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "non-cache files")

		_, err = os.Stat(cacheDir)
		assert.NoError(t, err)
	})

	t.Run("successfully clears empty cache directory", func(t *testing.T) {
		cacheDir := t.TempDir()
		c := New(cacheDir)

		err := c.Clear()
		assert.NoError(t, err)

		_, err = os.Stat(cacheDir)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestDeterministic(t *testing.T) {
	assert.True(t, Deterministic(0))
	assert.False(t, Deterministic(0.1))
	assert.False(t, Deterministic(1.0))
}

func TestCache_ConcurrentOperations(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	numGoroutines := 10
	numOperations := 50

	t.Run("concurrent Put operations on different keys", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < numOperations; j++ {
					key := fmt.Sprintf("key-%d-%d", id, j)
					entry := &Entry{
						Model: fmt.Sprintf("model-%d", id),
						Text:  fmt.Sprintf("response %d %d", id, j),
					}
					err := c.Put(key, entry)
					assert.NoError(t, err)
				}
			}(i)
		}
		wg.Wait()

		entries, err := os.ReadDir(cacheDir)
		require.NoError(t, err)
		assert.Equal(t, numGoroutines*numOperations, len(entries))
	})

	t.Run("concurrent Get operations", func(t *testing.T) {
		testKey := "shared-key"
		require.NoError(t, c.Put(testKey, &Entry{Model: "shared-model", Text: "shared"}))

		var wg sync.WaitGroup
		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < numOperations; j++ {
					entry, found := c.Get(testKey)
					assert.True(t, found)
					if found {
						assert.Equal(t, "shared-model", entry.Model)
					}
				}
			}()
		}
		wg.Wait()
	})

	t.Run("concurrent Put on same key", func(t *testing.T) {
		sharedKey := "same-key"
		var wg sync.WaitGroup
		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				err := c.Put(sharedKey, &Entry{Model: fmt.Sprintf("model-%d", id)})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		entry, found := c.Get(sharedKey)
		assert.True(t, found, "cache entry should exist after concurrent writes")
		assert.NotNil(t, entry, "cached entry should be valid")
	})
}
