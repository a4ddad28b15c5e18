// Package memory provides process-local implementations of the state ports.
// Nothing survives a restart; useful for tests and throwaway runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ReleaseCache   = (*CacheStore)(nil)
	_ driven.DismissalStore = (*DismissalStore)(nil)
)

// CacheStore implements driven.ReleaseCache in memory.
type CacheStore struct {
	mu    sync.Mutex
	entry *model.CachedRelease
}

// NewCacheStore creates an empty in-memory release cache.
func NewCacheStore() *CacheStore {
	return &CacheStore{}
}

func (s *CacheStore) Get(_ context.Context) (model.CachedRelease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == nil {
		return model.CachedRelease{}, driven.ErrNoCachedRelease
	}
	return *s.entry, nil
}

func (s *CacheStore) Put(_ context.Context, entry model.CachedRelease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := entry
	s.entry = &cp
	return nil
}

func (s *CacheStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = nil
	return nil
}

// DismissalStore implements driven.DismissalStore in memory.
type DismissalStore struct {
	mu      sync.Mutex
	records map[string]model.Dismissal
}

// NewDismissalStore creates an empty in-memory dismissal store.
func NewDismissalStore() *DismissalStore {
	return &DismissalStore{records: map[string]model.Dismissal{}}
}

func (s *DismissalStore) Get(_ context.Context, version model.Version) (*model.Dismissal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.records[version.String()]; ok {
		cp := d
		return &cp, nil
	}
	return nil, nil
}

func (s *DismissalStore) Upsert(_ context.Context, dismissal model.Dismissal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[dismissal.Version.String()] = dismissal
	return nil
}

func (s *DismissalStore) Delete(_ context.Context, version model.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, version.String())
	return nil
}

func (s *DismissalStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = map[string]model.Dismissal{}
	return nil
}

func (s *DismissalStore) DeleteOlderThan(_ context.Context, version model.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, d := range s.records {
		if d.Version.Compare(version) < 0 {
			delete(s.records, key)
		}
	}
	return nil
}

func (s *DismissalStore) List(_ context.Context) ([]model.Dismissal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Dismissal, 0, len(s.records))
	for _, d := range s.records {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Version.Compare(out[j].Version); c != 0 {
			return c < 0
		}
		return out[i].Version.String() < out[j].Version.String()
	})
	return out, nil
}
