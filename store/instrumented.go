package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/teranos/promptvars/logger"
	"github.com/teranos/promptvars/types"
)

// Operation outcomes recorded in metrics
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds the store collectors
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics registers the store collectors with reg under namespace
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of template store operations",
			},
			[]string{"operation", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of template store operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Instrumented decorates a Store with logging and metrics. Either the
// logger or the metrics may be nil.
type Instrumented struct {
	next    Store
	log     *zap.SugaredLogger
	metrics *Metrics
	backend string
}

// NewInstrumented wraps next. backend names the storage kind in log lines.
func NewInstrumented(next Store, backend string, log *zap.SugaredLogger, metrics *Metrics) *Instrumented {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Instrumented{next: next, log: log, metrics: metrics, backend: backend}
}

func (s *Instrumented) observe(ctx context.Context, op string, start time.Time, found bool, err error, kv ...interface{}) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
	case !found:
		outcome = OutcomeNotFound
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.Operations.WithLabelValues(op, outcome).Inc()
		s.metrics.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}

	log := logger.LoggerFromContext(ctx, s.log)
	fields := append([]interface{}{
		logger.FieldOperation, op,
		logger.FieldBackend, s.backend,
		logger.FieldDurationMS, elapsed.Milliseconds(),
	}, kv...)
	if err != nil {
		log.Errorw("store operation failed", append(fields, logger.FieldError, err)...)
		return
	}
	log.Debugw("store operation", append(fields, logger.FieldFound, found)...)
}

func (s *Instrumented) Save(ctx context.Context, t *types.Template) (*types.Template, error) {
	start := time.Now()
	saved, err := s.next.Save(ctx, t)
	var id string
	if t != nil {
		id = t.ID
	}
	s.observe(ctx, "save", start, true, err, logger.FieldTemplateID, id)
	return saved, err
}

func (s *Instrumented) List(ctx context.Context) ([]*types.Template, error) {
	start := time.Now()
	all, err := s.next.List(ctx)
	s.observe(ctx, "list", start, true, err, logger.FieldCount, len(all))
	return all, err
}

func (s *Instrumented) Get(ctx context.Context, id string) (*types.Template, bool, error) {
	start := time.Now()
	t, found, err := s.next.Get(ctx, id)
	s.observe(ctx, "get", start, found, err, logger.FieldTemplateID, id)
	return t, found, err
}

func (s *Instrumented) Update(ctx context.Context, id string, patch Patch) (*types.Template, bool, error) {
	start := time.Now()
	t, found, err := s.next.Update(ctx, id, patch)
	s.observe(ctx, "update", start, found, err, logger.FieldTemplateID, id)
	return t, found, err
}

func (s *Instrumented) Delete(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	deleted, err := s.next.Delete(ctx, id)
	s.observe(ctx, "delete", start, deleted, err, logger.FieldTemplateID, id)
	return deleted, err
}

func (s *Instrumented) Search(ctx context.Context, query string, limit int) ([]*types.Template, error) {
	start := time.Now()
	matches, err := s.next.Search(ctx, query, limit)
	s.observe(ctx, "search", start, true, err, logger.FieldQuery, query, logger.FieldCount, len(matches))
	return matches, err
}

func (s *Instrumented) ListVersions(ctx context.Context, templateID string, limit int) ([]*types.Version, error) {
	start := time.Now()
	versions, err := s.next.ListVersions(ctx, templateID, limit)
	s.observe(ctx, "list_versions", start, true, err, logger.FieldTemplateID, templateID, logger.FieldCount, len(versions))
	return versions, err
}

func (s *Instrumented) RestoreVersion(ctx context.Context, templateID, versionID string) (*types.Template, bool, error) {
	start := time.Now()
	t, found, err := s.next.RestoreVersion(ctx, templateID, versionID)
	s.observe(ctx, "restore_version", start, found, err,
		logger.FieldTemplateID, templateID, logger.FieldVersionID, versionID)
	return t, found, err
}

var _ Store = (*Instrumented)(nil)
