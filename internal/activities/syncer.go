package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/andrewwb/trainsight/internal/strava"
	"github.com/andrewwb/trainsight/internal/telemetry/metrics"
	"github.com/andrewwb/trainsight/internal/telemetry/tracing"
	"github.com/andrewwb/trainsight/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=syncer_mocks_test.go -package=activities_test

type activitiesFetcher interface {
	ListAllActivities(ctx context.Context, after, before time.Time, perPage int) ([]strava.Activity, error)
}

type syncerRepo interface {
	Add(ctx context.Context, activity Activity) (*Activity, error)
	LastStartTime(ctx context.Context) (time.Time, error)
}

// SyncResult sums up one sync run.
type SyncResult struct {
	Fetched  int       `json:"fetched"`
	Inserted int       `json:"inserted"`
	Skipped  int       `json:"skipped"`
	Since    time.Time `json:"since"`
}

// Syncer pulls new activities from Strava and stores the unseen ones.
// Each run fetches only activities newer than the last stored start
// time, a fresh database pulls the whole history.
type Syncer struct {
	fetcher        activitiesFetcher
	repo           syncerRepo
	metricsManager *metrics.Manager
	pageSize       int
}

func NewSyncer(
	fetcher activitiesFetcher,
	repo syncerRepo,
	metricsManager *metrics.Manager,
	pageSize int,
) *Syncer {
	if pageSize <= 0 {
		pageSize = strava.DefaultPageSize
	}
	return &Syncer{
		fetcher:        fetcher,
		repo:           repo,
		metricsManager: metricsManager,
		pageSize:       pageSize,
	}
}

// Sync runs one fetch-and-store pass.
func (s *Syncer) Sync(ctx context.Context) (_ SyncResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "activities.syncer.sync")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	startedAt := time.Now()
	defer func() {
		s.metricsManager.HistActivitySyncDuration.Observe(time.Since(startedAt).Seconds())
		if err != nil {
			s.metricsManager.CounterActivitySyncErrors.Inc()
		}
	}()

	since, err := s.repo.LastStartTime(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("get last start time: %w", err)
	}

	fetched, err := s.fetcher.ListAllActivities(ctx, since, time.Time{}, s.pageSize)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list activities: %w", err)
	}

	result := SyncResult{
		Fetched: len(fetched),
		Since:   since,
	}
	for _, sa := range fetched {
		if _, err := s.repo.Add(ctx, FromStrava(sa)); err != nil {
			if pkg.IsUniqueViolationError(err) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("add activity %d: %w", sa.ID, err)
		}
		result.Inserted++
	}

	s.metricsManager.CounterActivitiesSynced.Add(float64(result.Inserted))
	span.SetAttributes(attribute.Int("fetched", result.Fetched))
	span.SetAttributes(attribute.Int("inserted", result.Inserted))

	log.Debugf(
		"activities sync done: %d fetched, %d inserted, %d skipped",
		result.Fetched, result.Inserted, result.Skipped,
	)

	return result, nil
}

// StartPeriodicSync runs Sync every interval until the context is done.
// Meant to run in its own goroutine.
func (s *Syncer) StartPeriodicSync(ctx context.Context, interval time.Duration) {
	log.Debugf("starting periodic activities sync, interval %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugln("periodic activities sync stopping")
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil {
				log.Errorf("periodic activities sync: %s", err)
			}
		}
	}
}
