package jobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

// MemoryStore keeps jobs in a process-local map. Records are copied in and out so
// callers never share memory with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

// Create inserts a new job
func (s *MemoryStore) Create(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a copy of the job
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job.Clone(), nil
}

// Mutate applies fn to a copy of the job and stores it if fn succeeds
func (s *MemoryStore) Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = id

	s.jobs[id] = updated
	return updated.Clone(), nil
}

// Len returns the number of stored jobs
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
