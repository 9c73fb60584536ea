package job

import (
	"fmt"
	"sync"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/entity"
)

// Store persists job state. Update applies the mutation atomically with
// respect to other readers and writers of the same job.
type Store interface {
	Create(job *entity.Job) error
	Get(id string) (*entity.Job, error)
	Update(id string, fn func(*entity.Job)) error
	Delete(id string) error
	ListIDs() ([]string, error)
}

// MemoryStore keeps jobs in a map. Reads return clones so callers never
// observe a job mid-mutation.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*entity.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*entity.Job)}
}

func (s *MemoryStore) Create(job *entity.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return common.NewAppError("DUPLICATE_JOB", fmt.Sprintf("job %s already exists", job.ID), common.ErrInvalidInput)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(id string) (*entity.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, common.NewAppError("JOB_NOT_FOUND", fmt.Sprintf("job %s not found", id), common.ErrNotFound)
	}
	return job.Clone(), nil
}

func (s *MemoryStore) Update(id string, fn func(*entity.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return common.NewAppError("JOB_NOT_FOUND", fmt.Sprintf("job %s not found", id), common.ErrNotFound)
	}
	fn(job)
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return common.NewAppError("JOB_NOT_FOUND", fmt.Sprintf("job %s not found", id), common.ErrNotFound)
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) ListIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids, nil
}
