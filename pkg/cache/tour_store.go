package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deingipfel/touren-finder/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Snapshot is one fetched tour collection
type Snapshot struct {
	Tours     []models.Tour `json:"tours"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Age reports how long ago the snapshot was fetched.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// TourStore holds the latest tour collection
type TourStore interface {
	Get(ctx context.Context) (Snapshot, bool, error)
	Set(ctx context.Context, snap Snapshot) error
	Invalidate(ctx context.Context) error
}

// MemoryTourStore keeps the collection in process memory.
type MemoryTourStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewMemoryTourStore() *MemoryTourStore {
	return &MemoryTourStore{}
}

func (s *MemoryTourStore) Get(_ context.Context) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Snapshot{}, false, nil
	}
	return *s.snap, true, nil
}

// Set replaces the collection wholesale.
func (s *MemoryTourStore) Set(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
	return nil
}

func (s *MemoryTourStore) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}

// RedisTourStore shares the collection between replicas under one key.
type RedisTourStore struct {
	client *redis.Client
	key    string
}

// NewRedisTourStore parses url, pings the server and returns a store.
func NewRedisTourStore(ctx context.Context, url, key string) (*RedisTourStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisTourStoreWithClient(client, key), nil
}

func NewRedisTourStoreWithClient(client *redis.Client, key string) *RedisTourStore {
	if key == "" {
		key = "touren:collection"
	}
	return &RedisTourStore{client: client, key: key}
}

func (s *RedisTourStore) Get(ctx context.Context) (Snapshot, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to read %s: %w", s.key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to decode %s: %w", s.key, err)
	}
	return snap, true, nil
}

// Set stores the snapshot without expiry; freshness is judged by FetchedAt
// so a stale copy stays available when WordPress is down.
func (s *RedisTourStore) Set(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisTourStore) Invalidate(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisTourStore) Close() error {
	return s.client.Close()
}
