package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/infiniscroll/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var bucketSnapshots = []byte("snapshots")

// snapshot is the stored form of a dataset read
type snapshot struct {
	Endpoint string         `json:"endpoint"`
	SavedAt  time.Time      `json:"saved_at"`
	Photos   []domain.Photo `json:"photos"`
}

// SnapshotStore implements domain.SnapshotStore using BoltDB.
type SnapshotStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory copy for hot-path reads (promoted on access)
	cache map[string][]byte

	maxAge time.Duration
	now    func() time.Time
}

// NewSnapshotStore opens the store under cacheDir. An empty cacheDir gives a
// memory-only store. maxAge <= 0 means snapshots never expire.
func NewSnapshotStore(cacheDir string, maxAge time.Duration) (*SnapshotStore, error) {
	s := &SnapshotStore{
		cache:  make(map[string][]byte),
		maxAge: maxAge,
		now:    time.Now,
	}
	if cacheDir == "" {
		return s, nil
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "infiniscroll.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

// endpointKey hashes a normalized endpoint URL into a short bucket key
func endpointKey(endpoint string) string {
	normalized := strings.TrimRight(strings.ToLower(endpoint), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetPhotos returns the stored dataset for endpoint, if present and not expired.
// A read failure is returned as an error; a miss is (nil, false, nil).
func (s *SnapshotStore) GetPhotos(endpoint string) ([]domain.Photo, bool, error) {
	data, ok, err := s.load(endpointKey(endpoint))
	if err != nil || !ok {
		return nil, false, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.maxAge > 0 && s.now().Sub(snap.SavedAt) > s.maxAge {
		return nil, false, nil
	}
	return snap.Photos, true, nil
}

// SavePhotos replaces the stored dataset for endpoint
func (s *SnapshotStore) SavePhotos(endpoint string, photos []domain.Photo) error {
	data, err := json.Marshal(snapshot{
		Endpoint: endpoint,
		SavedAt:  s.now(),
		Photos:   photos,
	})
	if err != nil {
		return err
	}

	key := endpointKey(endpoint)

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte(key), data)
	})
}

// Invalidate drops the stored dataset for endpoint
func (s *SnapshotStore) Invalidate(endpoint string) error {
	key := endpointKey(endpoint)

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(key))
	})
}

func (s *SnapshotStore) load(key string) ([]byte, bool, error) {
	s.mu.RLock()
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return data, true, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSnapshots).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return data, true, nil
}
