package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/repositories"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

// Cache TTL (in seconds)
const reportByIDTTL = 60

const reportCacheKeyspace = "report"

// CachedReportAdapter wraps a ReportRepository with a read-through cache of
// single reports. Visibility is re-checked on every cached read.
type CachedReportAdapter struct {
	adapter repositories.ReportRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedReportAdapter creates a new cached report adapter
func NewCachedReportAdapter(adapter repositories.ReportRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.ReportRepository {
	return &CachedReportAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

func reportCacheKey(id string) string {
	return fmt.Sprintf("%s:%s", reportCacheKeyspace, id)
}

// Create inserts the report; the cache is filled on first read
func (a *CachedReportAdapter) Create(ctx context.Context, report *entities.Report) error {
	return a.adapter.Create(ctx, report)
}

// GetByID retrieves a report with caching
func (a *CachedReportAdapter) GetByID(ctx context.Context, id string, identity entities.Identity) (*entities.Report, error) {
	logger := observability.LoggerFromContext(ctx)
	cacheKey := reportCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var report entities.Report
		if err := json.Unmarshal(cached, &report); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, reportCacheKeyspace)
			if !report.VisibleTo(identity) {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("report with id %s not found", id))
			}
			return &report, nil
		}
		logger.Warn().Err(err).Str("report_id", id).Msg("failed to unmarshal cached report")
	}
	observability.RecordCacheMiss(ctx, a.metrics, reportCacheKeyspace)

	report, err := a.adapter.GetByID(ctx, id, identity)
	if err != nil {
		return nil, err
	}

	a.fill(ctx, report)
	return report, nil
}

// RequestReview delegates and writes the new state through to the cache
func (a *CachedReportAdapter) RequestReview(ctx context.Context, id, patientID, doctorID string, at time.Time) (*entities.Report, error) {
	report, err := a.adapter.RequestReview(ctx, id, patientID, doctorID, at)
	if err != nil {
		return nil, err
	}
	a.store(ctx, report)
	return report, nil
}

// SubmitReview delegates and writes the new state through to the cache
func (a *CachedReportAdapter) SubmitReview(ctx context.Context, id, doctorID, notes string, at time.Time) (*entities.Report, error) {
	report, err := a.adapter.SubmitReview(ctx, id, doctorID, notes, at)
	if err != nil {
		return nil, err
	}
	a.store(ctx, report)
	return report, nil
}

// fill caches a report read from the store. A transition written through
// while the read was in flight wins over the older snapshot.
func (a *CachedReportAdapter) fill(ctx context.Context, report *entities.Report) {
	data, err := encodeCachedReport(report)
	if err == nil {
		_, err = a.cache.SetIfAbsent(ctx, reportCacheKey(report.ID), data, reportByIDTTL)
	}
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("report_id", report.ID).Msg("failed to cache report")
	}
}

// store overwrites the cached report after a transition
func (a *CachedReportAdapter) store(ctx context.Context, report *entities.Report) {
	logger := observability.LoggerFromContext(ctx)
	cacheKey := reportCacheKey(report.ID)

	data, err := encodeCachedReport(report)
	if err == nil {
		err = a.cache.Set(ctx, cacheKey, data, reportByIDTTL)
	}
	if err != nil {
		logger.Warn().Err(err).Str("report_id", report.ID).Msg("failed to cache report")
		// A stale entry must not outlive a transition we could not write.
		if delErr := a.cache.Delete(ctx, cacheKey); delErr != nil {
			logger.Warn().Err(delErr).Str("report_id", report.ID).Msg("failed to invalidate cached report")
		}
	}
}

func encodeCachedReport(report *entities.Report) ([]byte, error) {
	cached := *report
	cached.RawText = ""
	return json.Marshal(&cached)
}
