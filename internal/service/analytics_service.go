package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
	"github.com/noah-isme/campus-monitor-api/pkg/jobs"
)

const allPeriods = "all"

// approvedRecordSource is the read side analytics depends on.
type approvedRecordSource interface {
	ListForAnalytics(ctx context.Context, category models.Category, period string) ([]models.Record, error)
}

// AnalyticsService aggregates approved records with cache integration.
type AnalyticsService struct {
	records approvedRecordSource
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(records approvedRecordSource, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		records: records,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Summary returns the aggregate for one category and period. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) Summary(ctx context.Context, category models.Category, period string) (*models.CategorySummary, bool, error) {
	if !category.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	period = strings.TrimSpace(period)
	if period != "" {
		if err := ValidatePeriod(period); err != nil {
			return nil, false, err
		}
	}

	scope := string(category)
	generation := s.cache.Generation(scope)
	cacheKey := analyticsCacheKey(category, period)
	var cached models.CategorySummary
	// Cache failures are logged by the cache service and served from the store.
	if hit, err := s.cache.Lookup(ctx, scope, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	records, err := s.records.ListForAnalytics(ctx, category, period)
	if err != nil {
		return nil, false, err
	}
	s.metrics.ObserveQuery("analytics_"+string(category), time.Since(start))

	summary := summarise(category, period, records)
	summary.GeneratedAt = s.now()
	if _, err := s.cache.Store(ctx, scope, generation, cacheKey, summary, 0); err != nil {
		s.logger.Warn("cache analytics summary", zap.String("key", cacheKey), zap.Error(err))
	}
	return summary, false, nil
}

// Overview returns a summary for every category in display order.
func (s *AnalyticsService) Overview(ctx context.Context, period string) ([]models.CategorySummary, error) {
	summaries := make([]models.CategorySummary, 0, len(models.Categories))
	for _, category := range models.Categories {
		summary, _, err := s.Summary(ctx, category, period)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.SystemMetrics {
	return s.metrics.Snapshot()
}

func summarise(category models.Category, period string, records []models.Record) *models.CategorySummary {
	summary := &models.CategorySummary{
		Category: category,
		Label:    category.Label(),
		Period:   period,
		Records:  len(records),
		Totals:   map[string]float64{},
	}
	for _, record := range records {
		var fields map[string]interface{}
		if err := json.Unmarshal(record.Payload, &fields); err != nil {
			continue
		}
		for key, value := range fields {
			if n, ok := value.(float64); ok {
				summary.Totals[key] += n
			}
		}
	}
	if isParityCategory(category) {
		split := &models.GenderSplit{
			Male:   summary.Totals["male"],
			Female: summary.Totals["female"],
		}
		split.Total = split.Male + split.Female
		if split.Total > 0 {
			split.FemalePercent = math.Round(split.Female/split.Total*10000) / 100
		}
		summary.Gender = split
	}
	return summary
}

func isParityCategory(category models.Category) bool {
	switch category {
	case models.CategoryStudents, models.CategoryFaculty, models.CategoryStaff:
		return true
	}
	return false
}

func analyticsCacheKey(category models.Category, period string) string {
	if period == "" {
		period = allPeriods
	}
	return "analytics:" + string(category) + ":" + period
}

// AnalyticsInvalidationJob is the job type enqueued on record changes.
const AnalyticsInvalidationJob = "analytics.invalidate"

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AnalyticsCacheInvalidator drops cached summaries affected by a record change.
// Deletion runs on the job queue when one is attached, inline otherwise.
type AnalyticsCacheInvalidator struct {
	cache  *CacheService
	queue  jobEnqueuer
	logger *zap.Logger
}

// NewAnalyticsCacheInvalidator constructs the invalidator. queue may be nil.
func NewAnalyticsCacheInvalidator(cache *CacheService, queue jobEnqueuer, logger *zap.Logger) *AnalyticsCacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsCacheInvalidator{cache: cache, queue: queue, logger: logger}
}

// AttachQueue sets the queue after construction, for when the queue handler
// itself needs the invalidator.
func (i *AnalyticsCacheInvalidator) AttachQueue(queue jobEnqueuer) {
	i.queue = queue
}

// RecordChanged implements RecordListener.
func (i *AnalyticsCacheInvalidator) RecordChanged(ctx context.Context, event RecordEvent) {
	i.cache.Advance(string(event.Category))
	if !i.cache.Enabled() {
		return
	}
	keys := invalidationKeys(event)
	if i.queue != nil {
		err := i.queue.Enqueue(jobs.Job{Type: AnalyticsInvalidationJob, Payload: keys})
		if err == nil {
			return
		}
		i.logger.Warn("enqueue analytics invalidation failed, invalidating inline", zap.Error(err))
	}
	if err := i.invalidate(ctx, keys); err != nil {
		i.logger.Warn("analytics invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Handle is the queue handler for AnalyticsInvalidationJob.
func (i *AnalyticsCacheInvalidator) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != AnalyticsInvalidationJob {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}
	keys, ok := job.Payload.([]string)
	if !ok {
		return fmt.Errorf("invalid payload for %s", job.Type)
	}
	return i.invalidate(ctx, keys)
}

func (i *AnalyticsCacheInvalidator) invalidate(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := i.cache.Invalidate(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func invalidationKeys(event RecordEvent) []string {
	set := map[string]struct{}{
		analyticsCacheKey(event.Category, ""): {},
	}
	if event.Period != "" {
		set[analyticsCacheKey(event.Category, event.Period)] = struct{}{}
	}
	if event.PreviousPeriod != "" {
		set[analyticsCacheKey(event.Category, event.PreviousPeriod)] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
