package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory ObjectStore. It backs tests and lets the
// service run without external storage; it implements the same contract
// as the MinIO and filesystem drivers.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	modded  map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		modded:  make(map[string]time.Time),
		now:     time.Now,
	}
}

func memKey(bucket, key string) string { return bucket + "\x00" + key }

// Put stores a copy of data under bucket/key.
func (s *MemoryStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[memKey(bucket, key)] = buf
	s.modded[memKey(bucket, key)] = s.now()
	return nil
}

// Get returns a copy of the stored object or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[memKey(bucket, key)]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// List returns objects in the bucket whose key starts with prefix,
// ordered by key.
func (s *MemoryStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucketPrefix := bucket + "\x00"
	var infos []ObjectInfo
	for full, data := range s.objects {
		if !strings.HasPrefix(full, bucketPrefix) {
			continue
		}
		key := strings.TrimPrefix(full, bucketPrefix)
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, ObjectInfo{
			Key:          key,
			Size:         int64(len(data)),
			LastModified: s.modded[full],
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// SetClock overrides the modification-time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

// Len reports the number of stored objects across all buckets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
