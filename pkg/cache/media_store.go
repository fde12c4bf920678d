package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/deingipfel/touren-finder/pkg/logger"
	"github.com/deingipfel/touren-finder/pkg/models"
	"go.etcd.io/bbolt"
)

const (
	// BoltDB bucket name for storing media records
	MediaBucket = "media"
)

// MediaStore caches media records by WordPress id
type MediaStore interface {
	Get(id int) (models.Media, bool, error)
	Set(value models.Media) error
	Delete(id int) error
	ForEach(fn func(value models.Media) error) error
	Statistics() (map[string]int, error)
	Close() error
}

// BoltMediaStore implements MediaStore using BoltDB for persistence
type BoltMediaStore struct {
	db *bbolt.DB
}

// NewBoltMediaStore opens (or creates) the media cache at dbPath
func NewBoltMediaStore(dbPath string) (*BoltMediaStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(MediaBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger.Info("BoltDB media cache initialized at: %s", dbPath)
	return &BoltMediaStore{db: db}, nil
}

func mediaKey(id int) []byte {
	return []byte(strconv.Itoa(id))
}

// Get retrieves a media record by id
func (s *BoltMediaStore) Get(id int) (models.Media, bool, error) {
	var media models.Media
	var found bool

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MediaBucket))
		if bucket == nil {
			return nil
		}

		data := bucket.Get(mediaKey(id))
		if data == nil {
			return nil
		}

		found = true
		return json.Unmarshal(data, &media)
	})

	if err != nil {
		return models.Media{}, false, fmt.Errorf("failed to get media %d: %w", id, err)
	}

	return media, found, nil
}

// Set stores a media record under its own id
func (s *BoltMediaStore) Set(value models.Media) error {
	if value.ID <= 0 {
		return fmt.Errorf("refusing to cache media without id")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MediaBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s does not exist", MediaBucket)
		}

		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal media: %w", err)
		}

		return bucket.Put(mediaKey(value.ID), data)
	})
}

// Delete removes a media record by id
func (s *BoltMediaStore) Delete(id int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MediaBucket))
		if bucket == nil {
			return nil
		}

		return bucket.Delete(mediaKey(id))
	})
}

// ForEach iterates over all cached media records
func (s *BoltMediaStore) ForEach(fn func(value models.Media) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MediaBucket))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var media models.Media
			if err := json.Unmarshal(v, &media); err != nil {
				logger.Error("Failed to unmarshal media for key %s: %v", string(k), err)
				return nil
			}

			return fn(media)
		})
	})
}

// Close closes the BoltDB database
func (s *BoltMediaStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Statistics counts cached records and how many carry a usable source
func (s *BoltMediaStore) Statistics() (map[string]int, error) {
	stats := map[string]int{
		"total_entries": 0,
		"with_sizes":    0,
		"without_sizes": 0,
	}

	err := s.ForEach(func(media models.Media) error {
		stats["total_entries"]++
		if len(media.Sizes) > 0 {
			stats["with_sizes"]++
		} else {
			stats["without_sizes"]++
		}
		return nil
	})

	return stats, err
}
