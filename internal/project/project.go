package project

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Store lookups for names with no project.
var ErrNotFound = errors.New("project not found")

// Project is an immutable snapshot of a campaign configuration. Sessions
// hold a reference to the snapshot fetched at validation time; later store
// writes never affect live sessions.
type Project struct {
	ID          int64
	Name        string
	Autoexecute string
}

// Store resolves projects by name. Implementations return ErrNotFound for
// a miss; any other error indicates a store failure and must be propagated
// by callers, not treated as a miss.
type Store interface {
	FindByName(ctx context.Context, name string) (*Project, error)
}

// MemStore is an in-memory Store keyed by project name.
type MemStore struct {
	mu     sync.RWMutex
	byName map[string]*Project
	nextID int64
}

func NewMemStore() *MemStore {
	return &MemStore{byName: make(map[string]*Project)}
}

// Add registers a project, assigning it an id. Existing names are replaced.
func (s *MemStore) Add(name, autoexecute string) *Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := &Project{ID: s.nextID, Name: name, Autoexecute: autoexecute}
	s.byName[name] = p
	return p
}

func (s *MemStore) FindByName(_ context.Context, name string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *p
	return &copy, nil
}
