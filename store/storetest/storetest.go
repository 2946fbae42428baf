// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/types"
)

// Factory returns an empty store that takes its timestamps from now
type Factory func(t *testing.T, now func() time.Time) store.Store

// Clock hands out strictly increasing timestamps, one second apart
type Clock struct {
	mu  sync.Mutex
	cur time.Time
}

// NewClock starts a clock at a fixed UTC instant
func NewClock() *Clock {
	return &Clock{cur: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func sample(id string) *types.Template {
	return &types.Template{
		ID:       id,
		Name:     "Summary " + id,
		Template: "Summarize {{topic}} for {{audience}}.",
		Variables: []types.Variable{
			{Name: "topic", Type: types.TypeString, Required: true},
			{Name: "audience", Type: types.TypeEnum, Required: true, DefaultValue: "general",
				Options: []string{"general", "executive"}},
		},
	}
}

// Run executes the conformance suite against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	open := func(t *testing.T) store.Store {
		return newStore(t, NewClock().Now)
	}

	t.Run("SaveRequiresID", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, &types.Template{Name: "no id"})
		require.Error(t, err)
		assert.True(t, errors.IsInvalidRequestError(err))

		_, err = s.Save(ctx, nil)
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("SaveAppendsVersions", func(t *testing.T) {
		s := open(t)
		first, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		assert.False(t, first.CreatedAt.IsZero())
		assert.Nil(t, first.UpdatedAt)

		edit := sample("t1")
		edit.Template = "Summarize {{topic}}."
		second, err := s.Save(ctx, edit)
		require.NoError(t, err)
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt), "createdAt must survive an upsert")
		require.NotNil(t, second.UpdatedAt)
		assert.True(t, second.UpdatedAt.After(first.CreatedAt))

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].VersionNumber)
		assert.Equal(t, 1, versions[1].VersionNumber)
		assert.Equal(t, "Summarize {{topic}}.", versions[0].Template)
		assert.Equal(t, "t1", versions[0].TemplateID)
		assert.NotEqual(t, versions[0].VersionID, versions[1].VersionID)
		assert.Nil(t, versions[1].UpdatedAt)
	})

	t.Run("SaveNilVariablesStoresEmptyList", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, &types.Template{ID: "bare", Name: "Bare", Template: "static"})
		require.NoError(t, err)

		got, found, err := s.Get(ctx, "bare")
		require.NoError(t, err)
		require.True(t, found)
		assert.NotNil(t, got.Variables)
		assert.Empty(t, got.Variables)
	})

	t.Run("SaveMergesOntoExisting", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)

		saved, err := s.Save(ctx, &types.Template{ID: "t1", Template: "Explain {{topic}}."})
		require.NoError(t, err)
		assert.Equal(t, "Summary t1", saved.Name)
		assert.Equal(t, "Explain {{topic}}.", saved.Template)
		assert.Len(t, saved.Variables, 2)

		saved, err = s.Save(ctx, &types.Template{ID: "t1", Name: "Renamed"})
		require.NoError(t, err)
		assert.Equal(t, "Explain {{topic}}.", saved.Template)

		got, _, err := s.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Len(t, got.Variables, 2)

		_, err = s.Save(ctx, &types.Template{ID: "t1", Template: "Static text", Variables: []types.Variable{}})
		require.NoError(t, err)
		got, _, err = s.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Empty(t, got.Variables, "an explicit empty list clears the variables")
	})

	t.Run("SaveNormalizesPlaceholders", func(t *testing.T) {
		s := open(t)
		saved, err := s.Save(ctx, &types.Template{
			ID:        "t1",
			Template:  "Hi [Recipient Name], about {{ Topic }}.",
			Variables: []types.Variable{{Name: "recipient_name", Type: types.TypeString, Required: true}, {Name: "topic", Type: types.TypeString, Required: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Hi {{recipient_name}}, about {{topic}}.", saved.Template)

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, saved.Template, versions[0].Template)
	})

	t.Run("SaveRejectsInvalidTemplates", func(t *testing.T) {
		tests := []struct {
			name string
			in   *types.Template
		}{
			{"non-canonical variable name", &types.Template{ID: "t1", Template: "static",
				Variables: []types.Variable{{Name: "Bad Name!", Type: types.TypeString}}}},
			{"unknown variable type", &types.Template{ID: "t1", Template: "static",
				Variables: []types.Variable{{Name: "who", Type: "weird"}}}},
			{"undeclared placeholder", &types.Template{ID: "t1", Template: "Hi {{who}}"}},
			{"undeclared after normalizing", &types.Template{ID: "t1", Template: "Hi [tone] {{who}}",
				Variables: []types.Variable{{Name: "who", Type: types.TypeString, Required: true}}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := open(t)
				_, err := s.Save(ctx, tt.in)
				require.Error(t, err)
				assert.True(t, errors.IsInvalidRequestError(err), "got %v", err)

				_, found, err := s.Get(ctx, "t1")
				require.NoError(t, err)
				assert.False(t, found, "nothing is persisted")
				versions, err := s.ListVersions(ctx, "t1", 0)
				require.NoError(t, err)
				assert.Empty(t, versions)
			})
		}
	})

	t.Run("SaveRejectsEditThatDropsDeclarations", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)

		_, err = s.Save(ctx, &types.Template{ID: "t1", Template: "Summarize {{topic}} in {{length}}."})
		require.Error(t, err)
		assert.True(t, errors.IsInvalidRequestError(err))

		got, _, err := s.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "Summarize {{topic}} for {{audience}}.", got.Template)
	})

	t.Run("ConcurrentSavesNumberVersionsSequentially", func(t *testing.T) {
		s := open(t)
		const writers = 20

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tmpl := sample("t1")
				tmpl.Name = fmt.Sprintf("writer %d", i)
				if _, err := s.Save(ctx, tmpl); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent save failed: %v", err)
		}

		versions, err := s.ListVersions(ctx, "t1", writers+5)
		require.NoError(t, err)
		require.Len(t, versions, writers)
		for i, v := range versions {
			assert.Equal(t, writers-i, v.VersionNumber)
		}
	})

	t.Run("GetRoundTrip", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)

		got, found, err := s.Get(ctx, "t1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Summary t1", got.Name)
		require.Len(t, got.Variables, 2)
		assert.Equal(t, types.TypeEnum, got.Variables[1].Type)
		assert.Equal(t, "general", got.Variables[1].DefaultValue)
		assert.Equal(t, []string{"general", "executive"}, got.Variables[1].Options)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		got, found, err := s.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("ReturnedValuesAreCopies", func(t *testing.T) {
		s := open(t)
		saved, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		saved.Name = "mutated"
		saved.Variables[0].Name = "mutated"

		listed, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		listed[0].Variables[1].Options[0] = "mutated"

		got, _, err := s.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "Summary t1", got.Name)
		assert.Equal(t, "topic", got.Variables[0].Name)
		assert.Equal(t, "general", got.Variables[1].Options[0])
	})

	t.Run("ListOrdersByCreation", func(t *testing.T) {
		s := open(t)
		for _, id := range []string{"c", "a", "b"} {
			_, err := s.Save(ctx, sample(id))
			require.NoError(t, err)
		}
		// Re-saving keeps the original position.
		_, err := s.Save(ctx, sample("c"))
		require.NoError(t, err)

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"c", "a", "b"}, ids(all))
	})

	t.Run("ListEmpty", func(t *testing.T) {
		all, err := open(t).List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)

		updated, found, err := s.Update(ctx, "t1", store.Patch{Name: "Renamed"})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "Summarize {{topic}} for {{audience}}.", updated.Template)
		assert.Len(t, updated.Variables, 2)
		require.NotNil(t, updated.UpdatedAt)

		updated, _, err = s.Update(ctx, "t1", store.Patch{
			Template:  "Explain {{topic}}.",
			Variables: []types.Variable{{Name: "topic", Type: types.TypeString, Required: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "Explain {{topic}}.", updated.Template)
		assert.Len(t, updated.Variables, 1)

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		assert.Len(t, versions, 3)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := open(t)
		got, found, err := s.Update(ctx, "nope", store.Patch{Name: "x"})
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)

		versions, err := s.ListVersions(ctx, "nope", 0)
		require.NoError(t, err)
		assert.Empty(t, versions)
	})

	t.Run("DeleteRemovesHistory", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		_, err = s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		_, err = s.Save(ctx, sample("t2"))
		require.NoError(t, err)

		deleted, err := s.Delete(ctx, "t1")
		require.NoError(t, err)
		assert.True(t, deleted)

		_, found, err := s.Get(ctx, "t1")
		require.NoError(t, err)
		assert.False(t, found)

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		assert.Empty(t, versions)

		others, err := s.ListVersions(ctx, "t2", 0)
		require.NoError(t, err)
		assert.Len(t, others, 1)

		deleted, err = s.Delete(ctx, "t1")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("SaveAfterDeleteRestartsNumbering", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		_, err = s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		_, err = s.Delete(ctx, "t1")
		require.NoError(t, err)

		saved, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		assert.Nil(t, saved.UpdatedAt)

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, 1, versions[0].VersionNumber)
	})

	t.Run("Search", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, &types.Template{ID: "mail", Name: "Customer Email", Template: "Dear {{recipient_name}},",
			Variables: []types.Variable{{Name: "recipient_name", Type: types.TypeString, Required: true}}})
		require.NoError(t, err)
		_, err = s.Save(ctx, &types.Template{ID: "sum", Name: "Summary", Template: "Summarize {{source_text}}",
			Variables: []types.Variable{{Name: "source_text", Type: types.TypeText, Required: true}}})
		require.NoError(t, err)

		tests := []struct {
			query string
			want  []string
		}{
			{"email", []string{"mail"}},
			{"SUMMARIZE", []string{"sum"}},
			{"source_text", []string{"sum"}},
			{"recipient", []string{"mail"}},
			{"", []string{"mail", "sum"}},
			{"   ", []string{"mail", "sum"}},
			{"nothing matches", nil},
		}
		for _, tt := range tests {
			got, err := s.Search(ctx, tt.query, 0)
			require.NoError(t, err, tt.query)
			if tt.want == nil {
				assert.Empty(t, got, tt.query)
				continue
			}
			assert.Equal(t, tt.want, ids(got), tt.query)
		}
	})

	t.Run("SearchLimits", func(t *testing.T) {
		s := open(t)
		for i := 0; i < store.DefaultSearchLimit+3; i++ {
			_, err := s.Save(ctx, sample(fmt.Sprintf("t%02d", i)))
			require.NoError(t, err)
		}

		got, err := s.Search(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, got, store.DefaultSearchLimit)

		got, err = s.Search(ctx, "summary", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"t00", "t01"}, ids(got))

		got, err = s.Search(ctx, "", -4)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("ListVersionsLimits", func(t *testing.T) {
		s := open(t)
		for i := 0; i < store.DefaultVersionsLimit+2; i++ {
			_, err := s.Save(ctx, sample("t1"))
			require.NoError(t, err)
		}

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, versions, store.DefaultVersionsLimit)
		assert.Equal(t, store.DefaultVersionsLimit+2, versions[0].VersionNumber)

		versions, err = s.ListVersions(ctx, "t1", -1)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, store.DefaultVersionsLimit+2, versions[0].VersionNumber)

		versions, err = s.ListVersions(ctx, "t1", 100)
		require.NoError(t, err)
		assert.Len(t, versions, store.DefaultVersionsLimit+2)
	})

	t.Run("RestoreVersion", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		_, _, err = s.Update(ctx, "t1", store.Patch{Template: "Second {{topic}}"})
		require.NoError(t, err)
		_, _, err = s.Update(ctx, "t1", store.Patch{Name: "Third", Template: "Third {{topic}}"})
		require.NoError(t, err)

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, versions, 3)
		v1 := versions[2]
		require.Equal(t, 1, v1.VersionNumber)

		restored, found, err := s.RestoreVersion(ctx, "t1", v1.VersionID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, v1.Template, restored.Template)
		assert.Equal(t, v1.Name, restored.Name)
		assert.Len(t, restored.Variables, 2)
		assert.True(t, restored.CreatedAt.Equal(v1.CreatedAt))
		require.NotNil(t, restored.UpdatedAt)

		versions, err = s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, versions, 4)
		assert.Equal(t, 4, versions[0].VersionNumber)
		assert.Equal(t, v1.Template, versions[0].Template)
		assert.Equal(t, "Third {{topic}}", versions[1].Template, "history is never rewritten")
	})

	t.Run("RestoreAppendsNextNumber", func(t *testing.T) {
		s := open(t)
		first, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		_, err = s.Save(ctx, &types.Template{ID: "t1", Name: "Edited", Template: "Edited {{topic}}"})
		require.NoError(t, err)

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, versions, 2)

		_, found, err := s.RestoreVersion(ctx, "t1", versions[1].VersionID)
		require.NoError(t, err)
		require.True(t, found)

		versions, err = s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, versions, 3)
		assert.Equal(t, 3, versions[0].VersionNumber)
		assert.Equal(t, first.Template, versions[0].Template)
	})

	t.Run("RestoreVersionMissing", func(t *testing.T) {
		s := open(t)
		_, err := s.Save(ctx, sample("t1"))
		require.NoError(t, err)
		_, err = s.Save(ctx, sample("t2"))
		require.NoError(t, err)
		other, err := s.ListVersions(ctx, "t2", 1)
		require.NoError(t, err)

		_, found, err := s.RestoreVersion(ctx, "t1", "no-such-version")
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = s.RestoreVersion(ctx, "t1", other[0].VersionID)
		require.NoError(t, err)
		assert.False(t, found, "a version of another template must not restore")

		_, found, err = s.RestoreVersion(ctx, "missing", other[0].VersionID)
		require.NoError(t, err)
		assert.False(t, found)

		versions, err := s.ListVersions(ctx, "t1", 0)
		require.NoError(t, err)
		assert.Len(t, versions, 1)
	})
}

func ids(ts []*types.Template) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
