// Package syncer reconciles tasks stuck in non-terminal sync states once
// connectivity allows.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/logging"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// OnlineChecker reports the current connectivity state. Implemented by
// connectivity.Monitor.
type OnlineChecker interface {
	Online() bool
}

// Result summarizes one reconciliation sweep.
type Result struct {
	Synced  int   `json:"synced"`
	Deleted int   `json:"deleted"`
	Failed  int   `json:"failed"`
	Err     error `json:"-"`
}

// Syncer sweeps a user's pending and pending-deletion tasks and resolves
// them against the remote store. Sweeps are idempotent: re-synchronizing an
// already-synced task is a no-op and re-deleting an already-deleted task is
// tolerated, so repeated runs (including connectivity flapping) are safe.
type Syncer struct {
	store  task.Store
	online OnlineChecker
	bus    *eventbus.EventBus
	log    zerolog.Logger
}

// New creates a syncer over the given store and connectivity source.
func New(store task.Store, online OnlineChecker, bus *eventbus.EventBus, log zerolog.Logger) *Syncer {
	return &Syncer{
		store:  store,
		online: online,
		bus:    bus,
		log:    log.With().Str("component", "syncer").Logger(),
	}
}

// Sync resolves every task of the user whose sync status is pending or
// pending-deletion. All per-task reconciliations run concurrently; the
// sweep completes once every one has settled. A single task failing is
// counted and logged but does not abort the others. Does nothing while
// offline.
func (s *Syncer) Sync(ctx context.Context, userID string) (Result, error) {
	if !s.online.Online() {
		return Result{}, nil
	}

	pending, err := s.store.ListByUserAndStatus(ctx, userID,
		task.StatusPending, task.StatusPendingDeletion)
	if err != nil {
		return Result{}, fmt.Errorf("query pending tasks: %w", err)
	}
	if len(pending) == 0 {
		return Result{}, nil
	}

	ctx = logging.WithUserID(ctx, userID)

	var (
		mu     sync.Mutex
		result Result
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range pending {
		g.Go(func() error {
			err := s.resolve(ctx, t)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				if result.Err == nil {
					result.Err = err
				}
				s.log.Warn().Ctx(ctx).Err(err).Str("task_id", t.ID).Msg("reconcile failed")
			case t.SyncStatus == task.StatusPendingDeletion:
				result.Deleted++
			default:
				result.Synced++
			}

			// Per-task failures are tolerated; never abort the sweep.
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().
		Ctx(ctx).
		Int("synced", result.Synced).
		Int("deleted", result.Deleted).
		Int("failed", result.Failed).
		Msg("reconciliation complete")

	if s.bus != nil {
		s.bus.PublishSyncCompleted(eventbus.SyncCompletedPayload{
			Synced:  result.Synced,
			Deleted: result.Deleted,
			Failed:  result.Failed,
		})
	}

	return result, nil
}

func (s *Syncer) resolve(ctx context.Context, t task.Task) error {
	switch t.SyncStatus {
	case task.StatusPendingDeletion:
		err := s.store.Delete(ctx, t.ID)
		if err != nil && !errors.Is(err, task.ErrNotFound) {
			return fmt.Errorf("delete task %s: %w", t.ID, err)
		}
		return nil
	default:
		status := task.StatusSynced
		now := time.Now()
		err := s.store.UpdateFields(ctx, t.ID, task.Patch{
			SyncStatus: &status,
			LastSynced: &now,
		})
		if err != nil && !errors.Is(err, task.ErrNotFound) {
			return fmt.Errorf("mark task %s synced: %w", t.ID, err)
		}
		return nil
	}
}
