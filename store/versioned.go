package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/placeholder"
	"github.com/teranos/promptvars/types"
)

// Versioned implements Store on top of a Backend.
//
// Saves are serialized within one process. Across processes nothing is
// locked: the record upsert and the version append are separate backend
// calls, so a failure between them leaves the record updated without a new
// version, and two writers may race on the next version number (the backend
// rejects the duplicate where it can).
type Versioned struct {
	backend Backend
	now     func() time.Time
	newID   func() string
	mu      sync.Mutex
}

// Option configures a Versioned store
type Option func(*Versioned)

// WithClock replaces the wall clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Versioned) { s.now = now }
}

// WithIDGenerator replaces the version id generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Versioned) { s.newID = newID }
}

// NewVersioned builds a Store over backend
func NewVersioned(backend Backend, opts ...Option) *Versioned {
	s := &Versioned{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend
func (s *Versioned) Backend() Backend {
	return s.backend
}

// Save merges t onto the stored record with the same id and appends a
// version numbered one past the highest stored. An empty name or template
// and nil variables keep the stored values; a non-nil empty variable list
// clears them. Placeholders are rewritten to {{name}} and the result must
// declare a variable for every placeholder.
//
// An existing record keeps its createdAt and gets updatedAt = now; a new
// record has no updatedAt.
func (s *Versioned) Save(ctx context.Context, t *types.Template) (*types.Template, error) {
	if t == nil || strings.TrimSpace(t.ID) == "" {
		return nil, errors.NewInvalidRequestError("template id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	record := t.Clone()

	existing, found, err := s.backend.GetTemplate(ctx, record.ID)
	if err != nil {
		return nil, errors.WrapBackend("load template", err)
	}
	if found {
		if record.Name == "" {
			record.Name = existing.Name
		}
		if record.Template == "" {
			record.Template = existing.Template
		}
		if record.Variables == nil {
			record.Variables = types.CloneVariables(existing.Variables)
		}
		record.CreatedAt = existing.CreatedAt
		record.UpdatedAt = &now
	} else {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = nil
	}
	if record.Variables == nil {
		record.Variables = []types.Variable{}
	}

	record.Template = placeholder.Normalize(record.Template)
	if err := record.Validate(); err != nil {
		return nil, errors.Wrapf(err, "template %s", record.ID)
	}

	if err := s.backend.PutTemplate(ctx, record); err != nil {
		return nil, errors.WrapBackend("save template", err)
	}

	latest, err := s.backend.MaxVersion(ctx, record.ID)
	if err != nil {
		return nil, errors.WrapBackend("read latest version", err)
	}

	version := &types.Version{
		VersionID:     s.newID(),
		VersionNumber: latest + 1,
		TemplateID:    record.ID,
		Name:          record.Name,
		Template:      record.Template,
		Variables:     types.CloneVariables(record.Variables),
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
		SnapshotAt:    now,
	}
	if err := s.backend.AppendVersion(ctx, version); err != nil {
		return nil, errors.WrapBackend("append version", err)
	}

	return record.Clone(), nil
}

// List returns all templates ordered by createdAt, then id
func (s *Versioned) List(ctx context.Context) ([]*types.Template, error) {
	all, err := s.backend.ListTemplates(ctx)
	if err != nil {
		return nil, errors.WrapBackend("list templates", err)
	}
	if all == nil {
		all = []*types.Template{}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	for i, t := range all {
		all[i] = t.Clone()
	}
	return all, nil
}

func (s *Versioned) Get(ctx context.Context, id string) (*types.Template, bool, error) {
	t, found, err := s.backend.GetTemplate(ctx, id)
	if err != nil {
		return nil, false, errors.WrapBackend("get template", err)
	}
	if !found {
		return nil, false, nil
	}
	return t.Clone(), true, nil
}

func (s *Versioned) Update(ctx context.Context, id string, patch Patch) (*types.Template, bool, error) {
	current, found, err := s.Get(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}

	if patch.Name != "" {
		current.Name = patch.Name
	}
	if patch.Template != "" {
		current.Template = patch.Template
	}
	if len(patch.Variables) > 0 {
		current.Variables = types.CloneVariables(patch.Variables)
	}

	saved, err := s.Save(ctx, current)
	if err != nil {
		return nil, false, err
	}
	return saved, true, nil
}

func (s *Versioned) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.backend.DeleteTemplate(ctx, id)
	if err != nil {
		return false, errors.WrapBackend("delete template", err)
	}
	return deleted, nil
}

func (s *Versioned) Search(ctx context.Context, query string, limit int) ([]*types.Template, error) {
	limit = normalizeLimit(limit, DefaultSearchLimit)
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	matches := make([]*types.Template, 0, min(limit, len(all)))
	for _, t := range all {
		if len(matches) == limit {
			break
		}
		if needle == "" || strings.Contains(haystack(t), needle) {
			matches = append(matches, t)
		}
	}
	return matches, nil
}

// haystack is the lowercased text a search query is matched against
func haystack(t *types.Template) string {
	parts := make([]string, 0, len(t.Variables)+2)
	parts = append(parts, t.Name, t.Template)
	for _, v := range t.Variables {
		parts = append(parts, v.Name)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

func (s *Versioned) ListVersions(ctx context.Context, templateID string, limit int) ([]*types.Version, error) {
	limit = normalizeLimit(limit, DefaultVersionsLimit)
	versions, err := s.backend.ListVersions(ctx, templateID)
	if err != nil {
		return nil, errors.WrapBackend("list versions", err)
	}
	if versions == nil {
		versions = []*types.Version{}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})
	if len(versions) > limit {
		versions = versions[:limit]
	}
	for i, v := range versions {
		versions[i] = v.Clone()
	}
	return versions, nil
}

// RestoreVersion saves the name, template and variables of versionID as a
// new version. History is never rewritten.
func (s *Versioned) RestoreVersion(ctx context.Context, templateID, versionID string) (*types.Template, bool, error) {
	current, found, err := s.Get(ctx, templateID)
	if err != nil || !found {
		return nil, false, err
	}

	version, found, err := s.backend.GetVersion(ctx, templateID, versionID)
	if err != nil {
		return nil, false, errors.WrapBackend("get version", err)
	}
	if !found {
		return nil, false, nil
	}

	vars := types.CloneVariables(version.Variables)
	if vars == nil {
		vars = []types.Variable{}
	}
	saved, err := s.Save(ctx, &types.Template{
		ID:        templateID,
		Name:      version.Name,
		Template:  version.Template,
		Variables: vars,
		CreatedAt: current.CreatedAt,
	})
	if err != nil {
		return nil, false, err
	}
	return saved, true, nil
}

var _ Store = (*Versioned)(nil)
