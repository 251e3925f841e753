package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/metrics"
)

// MemoryStore is an in-process Store. Items are kept in key order so scans
// paginate deterministically.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[record.Key]record.Item
	keys  []record.Key
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[record.Key]record.Item)}
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, item record.Item) error {
	start := time.Now()
	defer func() {
		metrics.RecordStorePutLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := item.Key()
	if err != nil {
		return fmt.Errorf("memory put: %w", err)
	}
	cp := make(record.Item, len(item))
	for a, v := range item {
		cp[a] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[k]; !exists {
		i := sort.Search(len(s.keys), func(i int) bool { return !keyLess(s.keys[i], k) })
		s.keys = append(s.keys, record.Key{})
		copy(s.keys[i+1:], s.keys[i:])
		s.keys[i] = k
	}
	s.items[k] = cp
	return nil
}

// Scan implements Store.
func (s *MemoryStore) Scan(ctx context.Context, in ScanInput) (ScanPage, error) {
	if err := ctx.Err(); err != nil {
		return ScanPage{}, err
	}
	if in.From > in.To {
		return ScanPage{}, ErrInvalidRange
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i := 0
	if in.Token != "" {
		after, err := decodeToken(in.Token)
		if err != nil {
			return ScanPage{}, err
		}
		i = sort.Search(len(s.keys), func(i int) bool { return keyLess(after, s.keys[i]) })
	}

	var page ScanPage
	limit := in.limit()
	evaluated := 0
	for ; i < len(s.keys) && evaluated < limit; i++ {
		evaluated++
		item := s.items[s.keys[i]]
		if ts, ok := item.Timestamp(); ok && in.matches(ts) {
			page.Items = append(page.Items, item)
		}
	}
	if i < len(s.keys) && evaluated > 0 {
		page.Next = encodeToken(s.keys[i-1])
	}
	return page, nil
}

// Count implements Counter.
func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys), nil
}
