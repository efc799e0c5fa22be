package snapshot

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// InMemoryRepository keeps the latest snapshot per crop and region.
// Used when no database is configured and in tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	latest map[string]*Snapshot
}

// NewInMemoryRepository creates a new in-memory snapshot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{latest: make(map[string]*Snapshot)}
}

// Save stores s, replacing an older snapshot for the same crop and region.
func (r *InMemoryRepository) Save(_ context.Context, s *Snapshot) error {
	if s.ID == "" {
		return errors.New("snapshot id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := s.Crop + "\x00" + s.Region
	if cur, ok := r.latest[key]; ok && cur.FetchedAt.After(s.FetchedAt) {
		return nil
	}
	cpy := *s
	r.latest[key] = &cpy
	return nil
}

// Latest returns the newest snapshot per crop and region.
func (r *InMemoryRepository) Latest(_ context.Context, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	r.mu.RLock()
	out := make([]*Snapshot, 0, len(r.latest))
	for _, s := range r.latest {
		cpy := *s
		out = append(out, &cpy)
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(s []*Snapshot) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].FetchedAt.Equal(s[j].FetchedAt) {
			return s[i].FetchedAt.After(s[j].FetchedAt)
		}
		if s[i].Region != s[j].Region {
			return s[i].Region < s[j].Region
		}
		return s[i].Crop < s[j].Crop
	})
}
