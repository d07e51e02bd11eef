package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

const cacheEntryExt = ".mp3"

// Cache is the content-addressed synthesis cache: one audio file per
// (text, settings) digest. Entries expire by age; when the directory grows
// past the size budget the whole cache is cleared at once.
type Cache struct {
	dir        string
	maxAge     time.Duration
	maxBytes   int64
	sweepEvery time.Duration

	mu        sync.Mutex
	lastSweep time.Time
}

func NewCache(dir string, maxAge time.Duration, maxBytes int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir:        dir,
		maxAge:     maxAge,
		maxBytes:   maxBytes,
		sweepEvery: time.Hour,
	}, nil
}

// CacheKey is the content address of one synthesis result. The digest
// covers the text and the full settings, so any settings change produces a
// distinct entry.
func CacheKey(text string, st ports.SynthesisSettings) string {
	h := sha256.New()
	// text and voice are free-form, length prefixes keep the field
	// boundaries unambiguous
	fmt.Fprintf(h, "%d:%s|%d:%s|%.3f|%s|%.3f|%.3f|%t",
		len(text), text, len(st.VoiceID), st.VoiceID,
		st.Speed, st.Emotion, st.Stability, st.SimilarityBoost, st.UseLoudspeaker)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached audio path when a fresh entry exists.
func (c *Cache) Get(key string) (string, bool) {
	path := filepath.Join(c.dir, key+cacheEntryExt)
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if c.maxAge > 0 && time.Since(info.ModTime()) > c.maxAge {
		return "", false
	}
	return path, true
}

// Put stores audio under key, replacing any previous entry.
func (c *Cache) Put(key string, audio []byte) (string, error) {
	path := filepath.Join(c.dir, key+cacheEntryExt)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return "", fmt.Errorf("write cache entry: %w", err)
	}
	return path, nil
}

// Sweep walks the cache directory once: entries older than maxAge go first,
// then the whole cache is cleared when the remainder still exceeds the size
// budget. Unforced sweeps are rate-limited to one per hour, so callers may
// invoke this opportunistically after every write.
func (c *Cache) Sweep(force bool) {
	c.mu.Lock()
	if !force && time.Since(c.lastSweep) < c.sweepEvery {
		c.mu.Unlock()
		return
	}
	c.lastSweep = time.Now()
	c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		log.Printf("[speech] cache scan: %v", err)
		return
	}

	var total int64
	expired := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if c.maxAge > 0 && time.Since(info.ModTime()) > c.maxAge {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
				expired++
				continue
			}
		}
		total += info.Size()
	}
	if expired > 0 {
		log.Printf("[speech] cache sweep: evicted %d expired entries", expired)
	}

	if c.maxBytes > 0 && total > c.maxBytes {
		removed := c.clear()
		log.Printf("[speech] cache over budget (%s > %s), cleared %d entries",
			humanize.Bytes(uint64(total)), humanize.Bytes(uint64(c.maxBytes)), removed)
	}
}

func (c *Cache) clear() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed
}
