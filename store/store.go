// Package store persists templates with an append-only version history.
//
// Store is the contract callers use. Every backend (memory, SQL, Redis) only
// implements the raw record operations of Backend; Versioned layers the save,
// merge, versioning, search and restore rules on top so all backends behave
// identically.
package store

import (
	"context"

	"github.com/teranos/promptvars/types"
)

// Default and minimum result limits
const (
	DefaultSearchLimit   = 25
	DefaultVersionsLimit = 20
)

// Store is the versioned template repository. Missing records are reported
// through the found/deleted flags, never as errors. Slices returned on
// success are never nil.
type Store interface {
	// Save merges t onto any stored record (t.ID is required), validates the
	// result and appends a version. Invalid templates are invalid requests.
	Save(ctx context.Context, t *types.Template) (*types.Template, error)
	// List returns all templates ordered by creation time.
	List(ctx context.Context) ([]*types.Template, error)
	Get(ctx context.Context, id string) (*types.Template, bool, error)
	// Update merges the non-empty fields of patch and saves.
	Update(ctx context.Context, id string, patch Patch) (*types.Template, bool, error)
	// Delete removes a template and its whole version history.
	Delete(ctx context.Context, id string) (bool, error)
	// Search matches query case-insensitively against name, template text
	// and variable names. An empty query matches everything.
	Search(ctx context.Context, query string, limit int) ([]*types.Template, error)
	// ListVersions returns the newest versions first.
	ListVersions(ctx context.Context, templateID string, limit int) ([]*types.Version, error)
	// RestoreVersion saves the content of an earlier version as a new version.
	RestoreVersion(ctx context.Context, templateID, versionID string) (*types.Template, bool, error)
}

// Patch holds the fields of an update. Empty fields leave the stored value
// unchanged.
type Patch struct {
	Name      string           `json:"name,omitempty"`
	Template  string           `json:"template,omitempty"`
	Variables []types.Variable `json:"variables,omitempty"`
}

// Backend is the raw persistence a Versioned store is built on.
// Implementations must return values the caller may freely mutate.
type Backend interface {
	GetTemplate(ctx context.Context, id string) (*types.Template, bool, error)
	// PutTemplate inserts or replaces the record with t.ID.
	PutTemplate(ctx context.Context, t *types.Template) error
	// DeleteTemplate removes the record and all of its versions.
	DeleteTemplate(ctx context.Context, id string) (bool, error)
	// ListTemplates returns all records in any order.
	ListTemplates(ctx context.Context) ([]*types.Template, error)
	// MaxVersion returns the highest version number stored, 0 if none.
	MaxVersion(ctx context.Context, templateID string) (int, error)
	AppendVersion(ctx context.Context, v *types.Version) error
	GetVersion(ctx context.Context, templateID, versionID string) (*types.Version, bool, error)
	// ListVersions returns all versions of a template in any order.
	ListVersions(ctx context.Context, templateID string) ([]*types.Version, error)
}

func normalizeLimit(limit, def int) int {
	if limit == 0 {
		return def
	}
	if limit < 1 {
		return 1
	}
	return limit
}
