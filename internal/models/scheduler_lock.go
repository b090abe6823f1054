package models

import (
	"time"

	"github.com/huangang/taskpulse/backend/internal/store"
)

// SchedulerLock is a lease that lets one instance run a scheduled job.
type SchedulerLock struct {
	LockName  string    `json:"lockName"`
	LockedBy  string    `json:"lockedBy"`
	LockedAt  time.Time `json:"lockedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func SchedulerLockKey(name string) store.Key {
	return store.Key{PK: PrefixLock + name, SK: SKLease}
}

func (l *SchedulerLock) Key() store.Key { return SchedulerLockKey(l.LockName) }

// Expired reports whether the lease may be taken over at now.
func (l *SchedulerLock) Expired(now time.Time) bool { return !now.Before(l.ExpiresAt) }

func (l *SchedulerLock) Item() (store.Item, error) {
	return toItem(l, EntityLock, store.Item{
		store.AttrPK: PrefixLock + l.LockName,
		store.AttrSK: SKLease,
	})
}

func SchedulerLockFromItem(item store.Item) (*SchedulerLock, error) {
	var l SchedulerLock
	if err := fromItem(item, &l); err != nil {
		return nil, err
	}
	return &l, nil
}
