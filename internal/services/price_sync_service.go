/**
 * @description
 * Service layer for price synchronization.
 * Orchestrates one sync run per source: resolves the material set mapped to the
 * source, partitions the requested date range to the source's span limit,
 * fetches each (material, sub-interval) unit with a transient-retry budget,
 * and upserts the normalized points to Postgres. Publishes progress events to
 * Redis pub/sub and caches the last run summary per source.
 *
 * @dependencies
 * - backend/internal/pricefeed (source adapters, interval math, error taxonomy)
 * - backend/internal/store (material resolution, price upserts, run records)
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/models"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/store"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	CacheKeyLastRunPrefix = "sync:last:"
	LastRunCacheTTL       = 24 * time.Hour

	SyncProgressChannel = "sync:progress"

	runLockKeyPrefix = "sync:lock:"
	RunLockTTL       = 30 * time.Minute
)

var (
	// ErrSyncInProgress is returned when a run for the same source already
	// holds the run lock. Mapped to 409 by the API layer.
	ErrSyncInProgress = errors.New("sync already in progress for this source")

	// ErrUnknownSource is returned for source names with no registered adapter.
	ErrUnknownSource = errors.New("unknown price source")
)

// UnitFailure records one (material, sub-interval) unit that could not be
// fetched or persisted. The run continues past unit failures.
type UnitFailure struct {
	Material string `json:"material"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Reason   string `json:"reason"`
}

// ProgressEvent is published to Redis after every processed unit and once at
// run completion, for SSE streaming to admin clients.
type ProgressEvent struct {
	RunID    string `json:"run_id"`
	Source   string `json:"source"`
	Material string `json:"material,omitempty"`
	Status   string `json:"status"` // synced | unit_failed | completed | failed
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
}

type PriceSyncService struct {
	Redis   *redis.Client
	Config  *config.Config
	Sources map[string]pricefeed.Source

	Materials *store.MaterialStore
	Prices    *store.PriceStore
	Runs      *store.RunStore
}

func NewPriceSyncService(db *gorm.DB, redis *redis.Client, cfg *config.Config, sources map[string]pricefeed.Source) *PriceSyncService {
	return &PriceSyncService{
		Redis:     redis,
		Config:    cfg,
		Sources:   sources,
		Materials: store.NewMaterialStore(db),
		Prices:    store.NewPriceStore(db),
		Runs:      store.NewRunStore(db),
	}
}

// SourceNames returns the registered source names in stable order.
func (s *PriceSyncService) SourceNames() []string {
	names := make([]string, 0, len(s.Sources))
	for name := range s.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultInterval returns the rolling window the scheduled sync covers,
// ending today and reaching back SYNC_LOOKBACK_DAYS days.
func (s *PriceSyncService) DefaultInterval() pricefeed.Interval {
	end := pricefeed.DateOf(time.Now().UTC())
	lookback := s.Config.Sync.LookbackDays
	if lookback < 1 {
		lookback = 1
	}
	return pricefeed.Interval{Start: end.AddDate(0, 0, -(lookback - 1)), End: end}
}

// SyncSource runs a full sync for one source over the given interval and
// blocks until the run finishes. A zero interval means the default rolling
// window. The returned run carries the final counters even when err is
// non-nil; err is non-nil only for run-level failures (lock held, unknown
// source, auth rejection, resolver errors).
func (s *PriceSyncService) SyncSource(ctx context.Context, sourceName string, ivl pricefeed.Interval) (*models.SyncRun, error) {
	run, adapter, unlock, err := s.beginRun(ctx, sourceName, ivl)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.executeRun(ctx, run, adapter)

	if run.Status == models.RunStatusFailed {
		return run, fmt.Errorf("sync run %s failed: %s", run.ID, run.ErrorMessage)
	}
	return run, nil
}

// StartSync begins a run for one source and returns as soon as the run record
// exists; the pipeline continues in the background. Used by the trigger
// endpoint to answer 202 with the run ID.
func (s *PriceSyncService) StartSync(ctx context.Context, sourceName string, ivl pricefeed.Interval) (*models.SyncRun, error) {
	run, adapter, unlock, err := s.beginRun(ctx, sourceName, ivl)
	if err != nil {
		return nil, err
	}

	go func() {
		defer unlock()
		s.executeRun(context.Background(), run, adapter)
	}()

	return run, nil
}

// SyncAll runs every registered source in sequence over the default window.
// Sources that are already running or fail are logged and skipped; one bad
// source never blocks the others.
func (s *PriceSyncService) SyncAll(ctx context.Context) {
	ivl := s.DefaultInterval()

	for _, name := range s.SourceNames() {
		run, err := s.SyncSource(ctx, name, ivl)
		if errors.Is(err, ErrSyncInProgress) {
			log.Printf("Sync for %s skipped: previous run still in progress", name)
			continue
		}
		if err != nil {
			log.Printf("Sync for %s failed: %v", name, err)
			continue
		}
		log.Printf("Sync for %s completed: %d fetched, %d inserted, %d updated, %d skipped",
			name, run.Fetched, run.Inserted, run.Updated, run.Skipped)
	}
}

// LastRun returns the most recent run summary for a source, preferring the
// Redis cache and falling back to the database.
func (s *PriceSyncService) LastRun(ctx context.Context, sourceName string) (*models.SyncRun, error) {
	val, err := s.Redis.Get(ctx, lastRunKey(sourceName)).Result()
	if err == nil {
		var run models.SyncRun
		if err := json.Unmarshal([]byte(val), &run); err == nil {
			return &run, nil
		}
		// If unmarshal fails, fall through to DB
	}

	runs, _, err := s.Runs.List(ctx, sourceName, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &runs[0], nil
}

func (s *PriceSyncService) beginRun(ctx context.Context, sourceName string, ivl pricefeed.Interval) (*models.SyncRun, pricefeed.Source, func(), error) {
	adapter, ok := s.Sources[sourceName]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownSource, sourceName)
	}

	if ivl.Start.IsZero() || ivl.End.IsZero() {
		ivl = s.DefaultInterval()
	}
	ivl = pricefeed.NewInterval(ivl.Start, ivl.End)
	if ivl.Start.After(ivl.End) {
		return nil, nil, nil, fmt.Errorf("invalid interval %s: start is after end", ivl)
	}

	runID := uuid.New()
	unlock, err := s.acquireRunLock(ctx, sourceName, runID.String())
	if err != nil {
		return nil, nil, nil, err
	}

	run := &models.SyncRun{
		ID:        runID,
		Source:    sourceName,
		FromDate:  ivl.Start,
		ToDate:    ivl.End,
		StartedAt: time.Now().UTC(),
		Status:    models.RunStatusRunning,
	}
	if err := s.Runs.Create(ctx, run); err != nil {
		unlock()
		return nil, nil, nil, fmt.Errorf("failed to create sync run: %w", err)
	}

	return run, adapter, unlock, nil
}

func (s *PriceSyncService) executeRun(ctx context.Context, run *models.SyncRun, adapter pricefeed.Source) {
	ivl := pricefeed.Interval{Start: run.FromDate, End: run.ToDate}

	source, err := s.Materials.SourceByName(ctx, run.Source)
	if err != nil {
		s.failRun(ctx, run, fmt.Errorf("source %q is not registered in the database: %w", run.Source, err))
		return
	}

	pairs, err := s.Materials.ResolveSymbols(ctx, source)
	if errors.Is(err, store.ErrEmptySourceSet) {
		log.Printf("No materials are mapped to %s; nothing to sync", run.Source)
		s.finishRun(ctx, run, nil)
		return
	}
	if err != nil {
		s.failRun(ctx, run, fmt.Errorf("failed to resolve symbols: %w", err))
		return
	}
	run.Materials = len(pairs)

	parts := pricefeed.Partition(ivl, adapter.MaxSpanDays())
	total := len(pairs) * len(parts)
	done := 0
	var failures []UnitFailure

	for _, pair := range pairs {
		for _, part := range parts {
			done++

			points, err := s.fetchWithRetry(ctx, adapter, pair.Symbol, part)
			if err != nil {
				if pricefeed.IsAuth(err) {
					run.Failures = marshalFailures(failures)
					s.failRun(ctx, run, fmt.Errorf("aborting run, credentials rejected: %w", err))
					return
				}
				failures = append(failures, UnitFailure{
					Material: pair.Name,
					Symbol:   pair.Symbol,
					Interval: part.String(),
					Reason:   err.Error(),
				})
				s.publishProgress(ctx, run, pair.Name, "unit_failed", done, total)
				continue
			}
			run.Fetched += len(points)

			res, err := s.Prices.SavePrices(ctx, pair.MaterialID, source.ID, points)
			if err != nil {
				failures = append(failures, UnitFailure{
					Material: pair.Name,
					Symbol:   pair.Symbol,
					Interval: part.String(),
					Reason:   fmt.Sprintf("persist: %v", err),
				})
				s.publishProgress(ctx, run, pair.Name, "unit_failed", done, total)
				continue
			}
			run.Inserted += res.Inserted
			run.Updated += res.Updated
			run.Skipped += res.Skipped

			s.publishProgress(ctx, run, pair.Name, "synced", done, total)
		}
	}

	run.Failures = marshalFailures(failures)
	s.finishRun(ctx, run, failures)
}

// fetchWithRetry retries transient upstream failures up to the configured
// attempt budget with linear backoff plus jitter. Non-transient errors are
// returned immediately.
func (s *PriceSyncService) fetchWithRetry(ctx context.Context, adapter pricefeed.Source, symbol string, ivl pricefeed.Interval) ([]pricefeed.PricePoint, error) {
	maxAttempts := s.Config.Sync.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		points, err := adapter.FetchDaily(ctx, symbol, ivl)
		if err == nil {
			return points, nil
		}
		lastErr = err

		if !pricefeed.IsTransient(err) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		backoff := time.Duration(attempt)*s.Config.Sync.RetryBackoff + time.Duration(rand.Intn(100))*time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func (s *PriceSyncService) finishRun(ctx context.Context, run *models.SyncRun, failures []UnitFailure) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted

	if err := s.Runs.Update(ctx, run); err != nil {
		log.Printf("Failed to persist sync run %s: %v", run.ID, err)
	}
	s.cacheRun(ctx, run)
	s.publishProgress(ctx, run, "", "completed", run.Materials, run.Materials)

	if len(failures) > 0 {
		log.Printf("Sync run %s for %s completed with %d failed units", run.ID, run.Source, len(failures))
	}
}

func (s *PriceSyncService) failRun(ctx context.Context, run *models.SyncRun, cause error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = models.RunStatusFailed
	run.ErrorMessage = cause.Error()

	if err := s.Runs.Update(ctx, run); err != nil {
		log.Printf("Failed to persist failed sync run %s: %v", run.ID, err)
	}
	s.cacheRun(ctx, run)
	s.publishProgress(ctx, run, "", "failed", 0, 0)

	log.Printf("Sync run %s for %s failed: %v", run.ID, run.Source, cause)
}

func (s *PriceSyncService) cacheRun(ctx context.Context, run *models.SyncRun) {
	data, err := json.Marshal(run)
	if err != nil {
		log.Printf("Failed to marshal sync run for cache: %v", err)
		return
	}
	if err := s.Redis.Set(ctx, lastRunKey(run.Source), data, LastRunCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache sync run summary: %v", err)
	}
}

func (s *PriceSyncService) publishProgress(ctx context.Context, run *models.SyncRun, material, status string, done, total int) {
	event := ProgressEvent{
		RunID:    run.ID.String(),
		Source:   run.Source,
		Material: material,
		Status:   status,
		Done:     done,
		Total:    total,
		Fetched:  run.Fetched,
		Inserted: run.Inserted,
		Updated:  run.Updated,
		Skipped:  run.Skipped,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal progress event: %v", err)
		return
	}
	if err := s.Redis.Publish(ctx, SyncProgressChannel, data).Err(); err != nil {
		log.Printf("Failed to publish progress event: %v", err)
	}
}

// acquireRunLock takes a per-source Redis lease so concurrent triggers and the
// scheduler cannot run the same source twice. The lease expires on its own if
// a crashed run never releases it.
func (s *PriceSyncService) acquireRunLock(ctx context.Context, sourceName, runID string) (func(), error) {
	key := runLockKey(sourceName)

	ok, err := s.Redis.SetNX(ctx, key, runID, RunLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}

	unlock := func() {
		ctx := context.Background()
		val, err := s.Redis.Get(ctx, key).Result()
		if err != nil || val != runID {
			// Lease expired or was taken over; nothing to release
			return
		}
		if err := s.Redis.Del(ctx, key).Err(); err != nil {
			log.Printf("Failed to release sync lock for %s: %v", sourceName, err)
		}
	}
	return unlock, nil
}

func marshalFailures(failures []UnitFailure) string {
	if len(failures) == 0 {
		return ""
	}
	data, err := json.Marshal(failures)
	if err != nil {
		log.Printf("Failed to marshal unit failures: %v", err)
		return ""
	}
	return string(data)
}

func lastRunKey(source string) string {
	return CacheKeyLastRunPrefix + source
}

func runLockKey(source string) string {
	return runLockKeyPrefix + source
}
