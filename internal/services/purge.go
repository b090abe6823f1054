package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/taskpulse/backend/internal/membership"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
	"github.com/huangang/taskpulse/backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Purger removes everything that belongs to a tombstoned project.
type Purger struct {
	store     store.Store
	directory *membership.Directory
}

func NewPurger(s store.Store, directory *membership.Directory) *Purger {
	return &Purger{store: s, directory: directory}
}

// Purge deletes the project's tasks, then its memberships, then its META
// record. Each step only touches what is still there, so a purge that failed
// halfway can simply be run again.
func (p *Purger) Purge(ctx context.Context, projectID string) error {
	items, err := store.QueryAll(ctx, p.store, models.ProjectTasksQuery(projectID))
	if err != nil {
		return fmt.Errorf("list tasks of %s: %w", projectID, err)
	}
	keys := make([]store.Item, 0, len(items))
	for _, it := range items {
		keys = append(keys, store.Item{store.AttrPK: it.Str(store.AttrPK), store.AttrSK: it.Str(store.AttrSK)})
	}
	if err := p.store.BatchWrite(ctx, keys, store.WriteDelete); err != nil {
		return fmt.Errorf("delete tasks of %s: %w", projectID, err)
	}

	members, err := p.directory.DeleteAll(ctx, projectID)
	if err != nil {
		return fmt.Errorf("delete memberships of %s: %w", projectID, err)
	}

	if err := p.store.Delete(ctx, models.ProjectKey(projectID), store.Always); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}

	logger.Info().
		Str("project_id", projectID).
		Int("tasks", len(keys)).
		Int("memberships", members).
		Msg("project purged")
	return nil
}

// Process adapts Purge to the task queue.
func (p *Purger) Process(ctx context.Context, task *PurgeTask) error {
	return p.Purge(ctx, task.ProjectID)
}

// Tombstoned lists the ids of projects whose delete has started but not finished.
func (p *Purger) Tombstoned(ctx context.Context) ([]string, error) {
	items, err := store.ScanAll(ctx, p.store, store.Scan{
		Filter: store.Filter{
			Equals: map[string]string{store.AttrSK: models.SKMeta},
			Exists: []string{"deletedAt"},
		},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Str("projectId"))
	}
	return ids, nil
}

// Reaper periodically purges every tombstoned project.
type Reaper struct {
	purger   *Purger
	locker   *Locker
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

const reaperLockName = "reaper"

func NewReaper(purger *Purger, schedule string) *Reaper {
	return &Reaper{purger: purger, schedule: schedule, timeout: 10 * time.Minute}
}

// SetLocker makes sweeps take a shared lease first, for multi-instance deployments.
func (r *Reaper) SetLocker(locker *Locker) {
	r.locker = locker
}

// Start registers the sweep on the cron schedule.
func (r *Reaper) Start() error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, r.sweep); err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	logger.Infof("[Reaper] Scheduler started (cron: %s)", r.schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func (r *Reaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if r.locker != nil {
		ok, err := r.locker.Acquire(ctx, reaperLockName, r.timeout)
		if err != nil {
			logger.Errorf("[Reaper] Lock failed: %v", err)
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := r.locker.Release(context.Background(), reaperLockName); err != nil {
				logger.Warnf("[Reaper] Release lock failed: %v", err)
			}
		}()
	}

	if _, err := r.RunOnce(ctx); err != nil {
		logger.Errorf("[Reaper] Sweep failed: %v", err)
	}
}

// RunOnce purges every tombstoned project and reports how many were removed.
// A failing project does not stop the sweep.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	ids, err := r.purger.Tombstoned(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	purged := 0
	for _, id := range ids {
		if err := r.purger.Purge(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		purged++
	}
	if purged > 0 {
		logger.Infof("[Reaper] Purged %d tombstoned project(s)", purged)
	}
	return purged, errors.Join(errs...)
}
