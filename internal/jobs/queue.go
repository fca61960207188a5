package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when no job became available within the
// polling interval.
var ErrEmpty = errors.New("queue empty")

const (
	queueKey     = "jobs:v1:pending"
	pollInterval = 2 * time.Second
)

// Queue transports jobs between producers and the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks up to the polling interval and returns ErrEmpty when no
	// job arrived.
	Dequeue(ctx context.Context) (Job, error)
}

// RedisQueue is a Redis-list backed queue giving at-least-once delivery to
// competing workers across processes.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue builds a queue on the provided Redis client.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Enqueue pushes the job onto the shared list.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, queueKey, payload).Err()
}

// Dequeue pops the oldest job, blocking up to the polling interval.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	res, err := q.client.BRPop(ctx, pollInterval, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Job{}, ErrEmpty
		}
		return Job{}, err
	}
	// BRPop returns [key, value]
	if len(res) != 2 {
		return Job{}, ErrEmpty
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// MemoryQueue is a channel-backed queue for tests and single-process setups.
type MemoryQueue struct {
	ch chan Job
}

// NewMemoryQueue builds an in-memory queue with the given capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{ch: make(chan Job, capacity)}
}

// Enqueue delivers the job to the channel.
func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	select {
	case q.ch <- job:
		return nil
	default:
		return errors.New("queue full")
	}
}

// Dequeue waits up to the polling interval for a job.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.ch:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	case <-time.After(pollInterval):
		return Job{}, ErrEmpty
	}
}

// Len reports the number of queued jobs. Test helper.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}
