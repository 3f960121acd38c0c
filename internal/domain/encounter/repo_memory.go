package encounter

import (
	"context"
	"sync"
)

type repoMemory struct {
	mu         sync.RWMutex
	seq        int64
	encounters []*Encounter
	byID       map[int64]*Encounter
}

// NewMemoryRepo returns a process-lifetime store.
func NewMemoryRepo() Repository {
	return &repoMemory{byID: make(map[int64]*Encounter)}
}

func (r *repoMemory) Create(_ context.Context, enc *Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	enc.ID = r.seq
	stored := enc.Clone()
	r.encounters = append(r.encounters, stored)
	r.byID[stored.ID] = stored
	return nil
}

func (r *repoMemory) GetByID(_ context.Context, id int64) (*Encounter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enc, ok := r.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return enc.Clone(), nil
}

func (r *repoMemory) List(_ context.Context) ([]*Encounter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Encounter, len(r.encounters))
	for i, enc := range r.encounters {
		out[i] = enc.Clone()
	}
	return out, nil
}

func (r *repoMemory) UpdateStatus(_ context.Context, id int64, fn MutateFunc) (*Encounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	stored.CurrentStatus = working.CurrentStatus
	stored.ExamType = working.ExamType
	stored.History = working.History
	return working.Clone(), nil
}
