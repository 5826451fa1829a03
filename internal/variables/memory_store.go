package variables

import (
	"context"
	"sync"
	"time"
)

type memoryExecution struct {
	vars    map[string]interface{}
	touched time.Time
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
// With a positive ttl, an execution not written for ttl is dropped.
type MemoryStore struct {
	mu         sync.RWMutex
	executions map[string]*memoryExecution
	ttl        time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

// NewMemoryStore creates an empty MemoryStore; ttl <= 0 keeps executions
// until Delete.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		executions: make(map[string]*memoryExecution),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Register records executionID so it is known before any variable is set
func (s *MemoryStore) Register(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(executionID)
	return nil
}

// Exists reports whether executionID is registered and not expired
func (s *MemoryStore) Exists(ctx context.Context, executionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.live(executionID) != nil, nil
}

func (s *MemoryStore) Get(ctx context.Context, executionID, name string) (interface{}, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec := s.live(executionID)
	if exec == nil {
		return nil, false, nil
	}
	value, ok := exec.vars[name]
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, executionID, name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(executionID).vars[name] = value
	return nil
}

// GetAll returns a copy of the variables of executionID
func (s *MemoryStore) GetAll(ctx context.Context, executionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec := s.live(executionID)
	if exec == nil {
		return map[string]interface{}{}, nil
	}

	result := make(map[string]interface{}, len(exec.vars))
	for k, v := range exec.vars {
		result[k] = v
	}
	return result, nil
}

func (s *MemoryStore) Delete(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.executions, executionID)
	return nil
}

// Len returns the number of executions currently held, expired ones
// included until the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.executions)
}

// live returns the execution unless it is missing or expired. Callers hold mu.
func (s *MemoryStore) live(executionID string) *memoryExecution {
	exec, ok := s.executions[executionID]
	if !ok || s.expired(exec, s.now()) {
		return nil
	}
	return exec
}

// touch creates or refreshes an execution and sweeps expired ones at most
// once per ttl. Callers hold mu for writing.
func (s *MemoryStore) touch(executionID string) *memoryExecution {
	now := s.now()
	s.sweep(now)

	exec, ok := s.executions[executionID]
	if !ok || s.expired(exec, now) {
		exec = &memoryExecution{vars: make(map[string]interface{})}
		s.executions[executionID] = exec
	}
	exec.touched = now
	return exec
}

func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	for id, exec := range s.executions {
		if s.expired(exec, now) {
			delete(s.executions, id)
		}
	}
	s.lastSweep = now
}

func (s *MemoryStore) expired(exec *memoryExecution, now time.Time) bool {
	return s.ttl > 0 && now.Sub(exec.touched) >= s.ttl
}
