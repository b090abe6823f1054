package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/huangang/taskpulse/backend/internal/config"
	"github.com/huangang/taskpulse/backend/pkg/logger"
)

const (
	TaskTypePurge = "project:purge"

	purgeQueueName = "maintenance"
	purgeMaxRetry  = 5
)

// PurgeTask asks for the remaining records of a tombstoned project to be removed.
type PurgeTask struct {
	ProjectID string    `json:"project_id"`
	MarkedAt  time.Time `json:"marked_at"`
}

// PurgeProcessor handles one purge job.
type PurgeProcessor func(context.Context, *PurgeTask) error

// TaskQueue defines the interface for deferred purge processing
type TaskQueue interface {
	// Enqueue schedules a purge
	Enqueue(task *PurgeTask) error
	// IsAsync returns true if jobs are handed to Redis
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue picks the async queue when Redis is enabled and reachable and
// falls back to in-process processing otherwise.
func NewTaskQueue(cfg *config.RedisConfig, processor PurgeProcessor) TaskQueue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err != nil {
			logger.Infof("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		} else {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
	} else {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	}
	q := NewSyncQueue()
	q.SetProcessor(processor)
	return q
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a purge to the async queue. Jobs for the same project are
// deduplicated while one is pending.
func (q *AsyncQueue) Enqueue(task *PurgeTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypePurge, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue(purgeQueueName),
		asynq.MaxRetry(purgeMaxRetry),
		asynq.TaskID("purge:"+task.ProjectID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Purge enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue with in-process processing (no Redis)
type SyncQueue struct {
	processor PurgeProcessor
	timeout   time.Duration
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{timeout: 2 * time.Minute}
}

// SetProcessor sets the function to process purges
func (q *SyncQueue) SetProcessor(processor PurgeProcessor) {
	q.processor = processor
}

// Enqueue processes the purge in a goroutine so the request is not blocked.
// A failure is left to the reaper.
func (q *SyncQueue) Enqueue(task *PurgeTask) error {
	if q.processor == nil {
		logger.Infof("[SyncQueue] Warning: no processor set, purge of %s left to the reaper", task.ProjectID)
		return nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if err := q.processor(ctx, task); err != nil {
			logger.Infof("[SyncQueue] Purge of %s failed: %v", task.ProjectID, err)
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}
