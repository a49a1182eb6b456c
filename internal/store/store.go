package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avlowe/cratedig/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketGenres    = []byte("genres")
	bucketSubgenres = []byte("subgenres")
)

const genreSnapshotKey = "list"

// GenreSnapshot is a persisted genre list with its fetch time, so a
// restart within the freshness window does not re-traverse the catalog.
type GenreSnapshot struct {
	Entries   []domain.GenreEntry `json:"entries"`
	FetchedAt time.Time           `json:"fetchedAt"`
}

// SnapshotStore persists genre-catalog snapshots using BoltDB, keyed per
// server so snapshots never leak across catalog endpoints.
type SnapshotStore struct {
	db *bolt.DB
}

// NewSnapshotStore opens (or creates) the snapshot database under
// baseCacheDir. An empty baseCacheDir yields a no-op store.
func NewSnapshotStore(baseCacheDir, serverURL string) (*SnapshotStore, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &SnapshotStore{}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "cratedig.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketGenres, bucketSubgenres} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SnapshotStore{db: db}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SnapshotStore) get(bucket []byte, key string, dest interface{}) bool {
	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (s *SnapshotStore) set(bucket []byte, key string, value interface{}) error {
	if s.db == nil {
		return nil // Memory-only mode
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

// GetGenres returns the persisted genre snapshot, if any
func (s *SnapshotStore) GetGenres() (*GenreSnapshot, bool) {
	var snap GenreSnapshot
	if !s.get(bucketGenres, genreSnapshotKey, &snap) {
		return nil, false
	}
	return &snap, true
}

// SaveGenres persists a genre snapshot
func (s *SnapshotStore) SaveGenres(snap *GenreSnapshot) error {
	return s.set(bucketGenres, genreSnapshotKey, snap)
}

// GetSubgenres returns the persisted subgenre list for a parent genre
func (s *SnapshotStore) GetSubgenres(genreTitle string) ([]domain.SubgenreEntry, bool) {
	var entries []domain.SubgenreEntry
	ok := s.get(bucketSubgenres, genreTitle, &entries)
	return entries, ok
}

// SaveSubgenres persists the subgenre list for a parent genre
func (s *SnapshotStore) SaveSubgenres(genreTitle string, entries []domain.SubgenreEntry) error {
	return s.set(bucketSubgenres, genreTitle, entries)
}

// InvalidateSubgenres wipes only the persisted subgenre lists. Called when
// a fresh genre fetch supersedes the parent snapshot.
func (s *SnapshotStore) InvalidateSubgenres() {
	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		return resetBucket(tx, bucketSubgenres)
	})
}

// resetBucket drops and recreates a bucket, which is cheaper and safer
// than deleting keys during cursor iteration
func resetBucket(tx *bolt.Tx, name []byte) error {
	if tx.Bucket(name) != nil {
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
	}
	_, err := tx.CreateBucket(name)
	return err
}

// InvalidateAll wipes every persisted snapshot. Called alongside an explicit
// genre-cache invalidation so a stale snapshot cannot reseed the next start.
func (s *SnapshotStore) InvalidateAll() {
	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketGenres, bucketSubgenres} {
			if err := resetBucket(tx, bucket); err != nil {
				return err
			}
		}
		return nil
	})
}
