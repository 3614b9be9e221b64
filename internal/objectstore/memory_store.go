package objectstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
)

// MemoryStore keeps uploaded objects in memory. Presigned URLs point at
// the server's own upload route, which writes through this store.
type MemoryStore struct {
	objects map[string][]byte
	baseURL string
	mu      sync.RWMutex
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

func (s *MemoryStore) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("%s/uploads/%s?expires=%d", s.baseURL, key, int(expiry.Seconds())), nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[key]
	if !exists {
		return nil, domain.ErrObjectNotFound
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = stored

	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return domain.ErrObjectNotFound
	}
	delete(s.objects, key)

	return nil
}

var _ domain.ObjectStore = (*MemoryStore)(nil)
