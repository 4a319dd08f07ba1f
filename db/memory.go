package db

import (
	"context"
	"sync"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

type Memory struct {
	mu       sync.RWMutex
	projects map[string]model.Project
}

func NewMemory() *Memory {
	return &Memory{projects: make(map[string]model.Project)}
}

func (m *Memory) Get(_ context.Context, id string) (model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return model.Project{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) Put(_ context.Context, p model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *Memory) List(_ context.Context) ([]model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]model.Project, 0, len(m.projects))
	for _, p := range m.projects {
		res = append(res, p.Clone())
	}
	return res, nil
}

func (m *Memory) Close() error { return nil }
