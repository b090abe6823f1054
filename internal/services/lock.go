package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/taskpulse/backend/internal/models"
	"github.com/huangang/taskpulse/backend/internal/store"
)

// Locker hands out scheduler leases stored in the entity table, so that only
// one instance runs a scheduled job at a time.
type Locker struct {
	store store.Store
	owner string
	now   func() time.Time
}

func NewLocker(s store.Store) *Locker {
	host, _ := os.Hostname()
	return &Locker{store: s, owner: host + "/" + uuid.NewString()[:8], now: time.Now}
}

// Acquire takes the lease name for ttl. It returns false when another owner
// holds an unexpired lease.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	now := l.now().UTC()
	lock := &models.SchedulerLock{LockName: name, LockedBy: l.owner, LockedAt: now, ExpiresAt: now.Add(ttl)}
	item, err := lock.Item()
	if err != nil {
		return false, err
	}

	err = l.store.Put(ctx, item, store.MustNotExist)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, store.ErrPreconditionFailed) {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	current, err := l.current(ctx, name)
	if err != nil || current == nil {
		return false, err
	}
	if !current.Expired(now) && current.LockedBy != l.owner {
		return false, nil
	}

	// stale lease: drop it and race for a fresh one
	if err := l.store.Delete(ctx, models.SchedulerLockKey(name), store.MustExist); err != nil && !errors.Is(err, store.ErrPreconditionFailed) {
		return false, fmt.Errorf("expire lock %s: %w", name, err)
	}
	err = l.store.Put(ctx, item, store.MustNotExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return true, nil
}

// Release drops the lease if this locker still holds it.
func (l *Locker) Release(ctx context.Context, name string) error {
	current, err := l.current(ctx, name)
	if err != nil || current == nil || current.LockedBy != l.owner {
		return err
	}
	err = l.store.Delete(ctx, models.SchedulerLockKey(name), store.MustExist)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil
	}
	return err
}

func (l *Locker) current(ctx context.Context, name string) (*models.SchedulerLock, error) {
	item, err := l.store.Get(ctx, models.SchedulerLockKey(name))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lock %s: %w", name, err)
	}
	return models.SchedulerLockFromItem(item)
}
