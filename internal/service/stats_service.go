package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

type statsStore interface {
	MonthlyStats(ctx context.Context) ([]models.MonthlyStats, error)
	Summary(ctx context.Context, currentMonth string) (*models.FinanceSummary, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// StatsService serves revenue statistics, cached until the next session write.
type StatsService struct {
	store  statsStore
	cache  statsCache
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// StatsServiceOption customises StatsService.
type StatsServiceOption func(*StatsService)

// WithStatsMetrics times the aggregation queries.
func WithStatsMetrics(metrics *MetricsService) StatsServiceOption {
	return func(s *StatsService) {
		s.metrics = metrics
	}
}

// NewStatsService constructs the service. cache may be nil.
func NewStatsService(store statsStore, cache statsCache, ttl time.Duration, logger *zap.Logger, opts ...StatsServiceOption) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &StatsService{store: store, cache: cache, ttl: ttl, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Monthly returns per-month totals, latest month first. The bool reports a cache hit.
func (s *StatsService) Monthly(ctx context.Context) ([]models.MonthlyStats, bool, error) {
	key := statsKey("monthly")
	var cached []models.MonthlyStats
	if s.lookup(ctx, key, &cached) {
		return cached, true, nil
	}

	start := time.Now()
	stats, err := s.store.MonthlyStats(ctx)
	s.metrics.ObserveDBQuery("monthly_stats", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly stats")
	}
	if stats == nil {
		stats = []models.MonthlyStats{}
	}
	s.persist(ctx, key, stats)
	return stats, false, nil
}

// Summary returns paid and unpaid totals overall and for the current month.
func (s *StatsService) Summary(ctx context.Context) (*models.FinanceSummary, bool, error) {
	month := s.now().UTC().Format(monthLayout)
	key := statsKey("summary", month)
	var cached models.FinanceSummary
	if s.lookup(ctx, key, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	summary, err := s.store.Summary(ctx, month)
	s.metrics.ObserveDBQuery("finance_summary", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load finance summary")
	}
	s.persist(ctx, key, summary)
	return summary, false, nil
}

// lookup reads through the cache. Cache failures fall back to the database.
func (s *StatsService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *StatsService) persist(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}
