package store

import (
	"context"
	"sync"

	"github.com/teranos/promptvars/types"
)

// MemoryBackend keeps templates and versions in maps owned by the value.
// Every read and write copies, so callers never share state with it.
type MemoryBackend struct {
	mu        sync.RWMutex
	templates map[string]*types.Template
	versions  map[string][]*types.Version
}

// NewMemoryBackend returns an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		templates: make(map[string]*types.Template),
		versions:  make(map[string][]*types.Version),
	}
}

// NewMemory returns a Store backed by a fresh MemoryBackend
func NewMemory(opts ...Option) *Versioned {
	return NewVersioned(NewMemoryBackend(), opts...)
}

func (m *MemoryBackend) GetTemplate(_ context.Context, id string) (*types.Template, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, false, nil
	}
	return t.Clone(), true, nil
}

func (m *MemoryBackend) PutTemplate(_ context.Context, t *types.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t.Clone()
	return nil
}

func (m *MemoryBackend) DeleteTemplate(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.templates[id]
	delete(m.templates, id)
	delete(m.versions, id)
	return ok, nil
}

func (m *MemoryBackend) ListTemplates(_ context.Context) ([]*types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (m *MemoryBackend) MaxVersion(_ context.Context, templateID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, v := range m.versions[templateID] {
		if v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (m *MemoryBackend) AppendVersion(_ context.Context, v *types.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[v.TemplateID] = append(m.versions[v.TemplateID], v.Clone())
	return nil
}

func (m *MemoryBackend) GetVersion(_ context.Context, templateID, versionID string) (*types.Version, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.versions[templateID] {
		if v.VersionID == versionID {
			return v.Clone(), true, nil
		}
	}
	return nil, false, nil
}

func (m *MemoryBackend) ListVersions(_ context.Context, templateID string) ([]*types.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Version, 0, len(m.versions[templateID]))
	for _, v := range m.versions[templateID] {
		out = append(out, v.Clone())
	}
	return out, nil
}

var _ Backend = (*MemoryBackend)(nil)
