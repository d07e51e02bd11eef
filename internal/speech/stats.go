package speech

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

var (
	usageBucket = []byte("tts_usage")
	usageKey    = []byte("counters")
)

// StatsStore keeps the Speak usage counters durable across restarts.
type StatsStore struct {
	db *bolt.DB
}

func OpenStatsStore(path string) (*StatsStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open stats store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usageBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &StatsStore{db: db}, nil
}

func (s *StatsStore) Close() error { return s.db.Close() }

// RecordHit counts a Speak served from cache.
func (s *StatsStore) RecordHit() error {
	return s.update(func(u *ports.SpeechUsage) {
		u.Requests++
		u.CacheHits++
	})
}

// RecordMiss counts a Speak that reached the vendor with chars characters.
func (s *StatsStore) RecordMiss(chars int) error {
	return s.update(func(u *ports.SpeechUsage) {
		u.Requests++
		u.CacheMisses++
		u.CharactersSent += uint64(chars)
	})
}

// Snapshot returns the current counters.
func (s *StatsStore) Snapshot() (ports.SpeechUsage, error) {
	var u ports.SpeechUsage
	err := s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(usageBucket).Get(usageKey); raw != nil {
			return json.Unmarshal(raw, &u)
		}
		return nil
	})
	return u, err
}

func (s *StatsStore) update(mut func(*ports.SpeechUsage)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(usageBucket)
		var u ports.SpeechUsage
		if raw := b.Get(usageKey); raw != nil {
			if err := json.Unmarshal(raw, &u); err != nil {
				u = ports.SpeechUsage{}
			}
		}
		mut(&u)
		raw, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return b.Put(usageKey, raw)
	})
}
