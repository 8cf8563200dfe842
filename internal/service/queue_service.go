package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Claim when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("queue empty")

type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	Claim(ctx context.Context, timeout time.Duration) (string, error)
	Ack(ctx context.Context, jobID string) error
}

// memoryQueue is an unbounded FIFO: Enqueue never blocks.
type memoryQueue struct {
	mu     sync.Mutex
	items  []string
	notify chan struct{}
}

func NewMemoryQueue() Queue {
	return &memoryQueue{notify: make(chan struct{}, 1)}
}

func (q *memoryQueue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	q.items = append(q.items, jobID)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *memoryQueue) Claim(ctx context.Context, timeout time.Duration) (string, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	for {
		if id, ok := q.pop(); ok {
			return id, nil
		}
		select {
		case <-q.notify:
		case <-deadline:
			return "", ErrQueueEmpty
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (q *memoryQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	id := q.items[0]
	q.items = q.items[1:]
	if len(q.items) > 0 {
		// wake another waiting claimer
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return id, true
}

func (q *memoryQueue) Ack(ctx context.Context, jobID string) error { return nil }

// RedisQueue is a reliable list queue.
// Claim: BRPOPLPUSH queueKey -> processingKey
// Ack:   LREM from processingKey
type RedisQueue struct {
	rdb           *redis.Client
	queueKey      string
	processingKey string
}

func NewRedisQueue(rdb *redis.Client, queueKey, processingKey string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueKey: queueKey, processingKey: processingKey}
}

func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.queueKey, jobID).Err()
}

func (q *RedisQueue) Claim(ctx context.Context, timeout time.Duration) (string, error) {
	id, err := q.rdb.BRPopLPush(ctx, q.queueKey, q.processingKey, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	return q.rdb.LRem(ctx, q.processingKey, 1, jobID).Err()
}

// RequeueStale moves ids left in processing (e.g. by a crashed process) back
// to the queue. Call it before workers start claiming.
func (q *RedisQueue) RequeueStale(ctx context.Context, max int64) (int64, error) {
	var moved int64
	for i := int64(0); i < max; i++ {
		_, err := q.rdb.RPopLPush(ctx, q.processingKey, q.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return moved, err
		}
		moved++
	}
	return moved, nil
}
