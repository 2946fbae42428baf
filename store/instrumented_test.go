package store_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/types"
)

func TestInstrumentedCountsOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := store.NewMetrics("promptvars", reg)
	s := store.NewInstrumented(store.NewMemory(), "memory", nil, metrics)

	_, err := s.Save(ctx, &types.Template{ID: "t1", Template: "x"})
	require.NoError(t, err)
	_, err = s.Save(ctx, &types.Template{})
	require.Error(t, err)
	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
	_, found, err = s.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("save", store.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("save", store.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("get", store.OutcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("get", store.OutcomeOK)))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.Duration))
}

func TestInstrumentedLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := store.NewInstrumented(store.NewMemory(), "memory", zap.New(core).Sugar(), nil)

	_, err := s.Save(context.Background(), &types.Template{Name: "no id"})
	require.True(t, errors.IsInvalidRequestError(err))

	failures := logs.FilterMessage("store operation failed").All()
	require.Len(t, failures, 1)
	fields := failures[0].ContextMap()
	assert.Equal(t, "save", fields["operation"])
	assert.Equal(t, "memory", fields["backend"])
}

func TestInstrumentedPassesResultsThrough(t *testing.T) {
	ctx := context.Background()
	s := store.NewInstrumented(store.NewMemory(), "memory", nil, nil)

	_, err := s.Save(ctx, &types.Template{ID: "t1", Name: "Greeting", Template: "Hi there"})
	require.NoError(t, err)

	matches, err := s.Search(ctx, "greeting", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	versions, err := s.ListVersions(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	restored, found, err := s.RestoreVersion(ctx, "t1", versions[0].VersionID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Hi there", restored.Template)

	deleted, err := s.Delete(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, deleted)
}
