package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/pkg/logger"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	promoteBatch      = 100
	failedRetention   = 7 * 24 * time.Hour
	completeRetention = 24 * time.Hour
)

// RedisQueue implements Enqueuer and Provider over Redis. Claimable jobs
// live in a ready sorted set ordered by (priority, enqueue sequence),
// delayed and retried jobs in a scheduled set scored by run time, and
// claimed jobs in an in-flight set scored by lease deadline. A worker crash
// leaves the lease to expire, after which the job is claimable again.
type RedisQueue struct {
	client     *redisv9.Client
	name       string
	visibility time.Duration
	logger     *logger.Logger
}

// NewRedisQueue creates a Redis-backed queue for the given logical name
func NewRedisQueue(client *redisv9.Client, name string, visibility time.Duration, log *logger.Logger) *RedisQueue {
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &RedisQueue{
		client:     client,
		name:       name,
		visibility: visibility,
		logger:     log,
	}
}

func (q *RedisQueue) readyKey() string     { return fmt.Sprintf("queue:%s:ready", q.name) }
func (q *RedisQueue) scheduledKey() string { return fmt.Sprintf("queue:%s:scheduled", q.name) }
func (q *RedisQueue) inflightKey() string  { return fmt.Sprintf("queue:%s:inflight", q.name) }
func (q *RedisQueue) failedKey() string    { return fmt.Sprintf("queue:%s:failed", q.name) }
func (q *RedisQueue) seqKey() string       { return fmt.Sprintf("queue:%s:seq", q.name) }
func (q *RedisQueue) jobKey(id string) string {
	return fmt.Sprintf("queue:%s:job:%s", q.name, id)
}

// Enqueue adds a named job and returns its id
func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload []byte, opts ...Option) (string, error) {
	job := newJob(uuid.NewString(), name, payload, opts...)

	if err := q.saveJob(ctx, job, 0); err != nil {
		return "", err
	}

	if job.ScheduledAt.After(time.Now()) {
		err := q.client.ZAdd(ctx, q.scheduledKey(), redisv9.Z{
			Score:  float64(job.ScheduledAt.UnixMilli()),
			Member: job.ID,
		}).Err()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		return job.ID, nil
	}

	if err := q.pushReady(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// pushReady adds a job to the ready set ordered by (priority, sequence)
func (q *RedisQueue) pushReady(ctx context.Context, job *Job) error {
	seq, err := q.client.Incr(ctx, q.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	// Priority dominates the score, sequence breaks ties FIFO
	score := float64(job.Priority)*1e12 + float64(seq)
	if err := q.client.ZAdd(ctx, q.readyKey(), redisv9.Z{Score: score, Member: job.ID}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) saveJob(ctx context.Context, job *Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.Set(ctx, q.jobKey(job.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) loadJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// Fetch retrieves the next claimable job, nil if none is due
func (q *RedisQueue) Fetch(ctx context.Context) (*Job, error) {
	now := time.Now()

	if err := q.promoteScheduled(ctx, now); err != nil {
		return nil, err
	}
	if err := q.reclaimExpired(ctx, now); err != nil {
		return nil, err
	}

	members, err := q.client.ZPopMin(ctx, q.readyKey(), 1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	id := members[0].Member.(string)
	job, err := q.loadJob(ctx, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			// Record expired or was cancelled; nothing to deliver
			q.logger.Warn("Dropping queue entry without job record", zap.String("job_id", id))
			return nil, nil
		}
		return nil, err
	}

	deadline := now.Add(q.visibility)
	err = q.client.ZAdd(ctx, q.inflightKey(), redisv9.Z{
		Score:  float64(deadline.UnixMilli()),
		Member: id,
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	return job, nil
}

// promoteScheduled moves due scheduled jobs into the ready set
func (q *RedisQueue) promoteScheduled(ctx context.Context, now time.Time) error {
	ids, err := q.client.ZRangeByScore(ctx, q.scheduledKey(), &redisv9.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, q.scheduledKey(), id).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		if removed == 0 {
			// Another consumer promoted it first
			continue
		}
		job, err := q.loadJob(ctx, id)
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			return err
		}
		if err := q.pushReady(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// reclaimExpired re-queues jobs whose in-flight lease timed out
func (q *RedisQueue) reclaimExpired(ctx context.Context, now time.Time) error {
	ids, err := q.client.ZRangeByScore(ctx, q.inflightKey(), &redisv9.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, q.inflightKey(), id).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		if removed == 0 {
			continue
		}
		job, err := q.loadJob(ctx, id)
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			return err
		}
		q.logger.Warn("Reclaiming abandoned job",
			zap.String("job_id", id),
			zap.String("job_name", job.Name),
		)
		if err := q.pushReady(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// Ack acknowledges successful processing
func (q *RedisQueue) Ack(ctx context.Context, job *Job) error {
	if err := q.client.ZRem(ctx, q.inflightKey(), job.ID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	if job.RemoveOnComplete {
		if err := q.client.Del(ctx, q.jobKey(job.ID)).Err(); err != nil {
			q.logger.Warn("Failed to delete completed job record", zap.String("job_id", job.ID), zap.Error(err))
		}
		return nil
	}
	if err := q.client.Expire(ctx, q.jobKey(job.ID), completeRetention).Err(); err != nil {
		q.logger.Warn("Failed to expire completed job record", zap.String("job_id", job.ID), zap.Error(err))
	}
	return nil
}

// Nack reports failed processing
func (q *RedisQueue) Nack(ctx context.Context, job *Job, requeue bool) error {
	if err := q.client.ZRem(ctx, q.inflightKey(), job.ID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	if requeue {
		if err := q.saveJob(ctx, job, 0); err != nil {
			return err
		}
		runAt := job.ScheduledAt
		if !runAt.After(time.Now()) {
			return q.pushReady(ctx, job)
		}
		err := q.client.ZAdd(ctx, q.scheduledKey(), redisv9.Z{
			Score:  float64(runAt.UnixMilli()),
			Member: job.ID,
		}).Err()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		return nil
	}

	if !job.KeepOnFail {
		if err := q.client.Del(ctx, q.jobKey(job.ID)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		return nil
	}

	// Park for operator inspection
	if err := q.saveJob(ctx, job, failedRetention); err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.failedKey(), job.ID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	q.logger.Warn("Job parked as failed",
		zap.String("job_id", job.ID),
		zap.String("job_name", job.Name),
		zap.Int("attempt", job.Attempt),
	)
	return nil
}

// Close is a no-op; the Redis client is shared
func (q *RedisQueue) Close() error {
	return nil
}

// FailedIDs lists jobs parked in the failed set
func (q *RedisQueue) FailedIDs(ctx context.Context) ([]string, error) {
	ids, err := q.client.LRange(ctx, q.failedKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return ids, nil
}
