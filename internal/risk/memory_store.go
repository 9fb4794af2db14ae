package risk

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/mbd888/riskops/internal/pagination"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string][]*Assessment // subject → oldest first
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assessments: make(map[string][]*Assessment)}
}

func (s *MemoryStore) Record(_ context.Context, a *Assessment) error {
	key := strings.ToUpper(a.Subject)
	s.mu.Lock()
	s.assessments[key] = append(s.assessments[key], cloneAssessment(a))
	s.mu.Unlock()
	return nil
}

// ListBySubject returns the most recent assessments first, up to limit.
func (s *MemoryStore) ListBySubject(_ context.Context, subject string, limit int, before *pagination.Cursor) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.assessments[strings.ToUpper(subject)]
	if len(all) == 0 {
		return nil, nil
	}

	sorted := make([]*Assessment, len(all))
	copy(sorted, all)
	slices.SortFunc(sorted, func(a, b *Assessment) int {
		if c := b.EvaluatedAt.Compare(a.EvaluatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	var result []*Assessment
	for _, a := range sorted {
		if len(result) == limit {
			break
		}
		if before.Admits(a.EvaluatedAt, a.ID) {
			result = append(result, cloneAssessment(a))
		}
	}
	return result, nil
}
