package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueDispatch is the Redis list key for invitation dispatch jobs.
	QueueDispatch = "worker:dispatch"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeDispatch JobType = "dispatch"
)

// DispatchPayload asks the worker to send invitations for an event.
type DispatchPayload struct {
	RunID    string      `json:"run_id"`
	UserID   uuid.UUID   `json:"user_id"`
	EventID  uuid.UUID   `json:"event_id"`
	GuestIDs []uuid.UUID `json:"guest_ids"`
	WhatsApp bool        `json:"whatsapp"`
	SMS      bool        `json:"sms"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client redis.Cmdable, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// NewDispatchJob wraps a dispatch payload in a fresh job envelope.
func NewDispatchJob(payload DispatchPayload) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      JobTypeDispatch,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EnqueueDispatch enqueues an invitation dispatch job and returns its id.
func (q *Queue) EnqueueDispatch(ctx context.Context, payload DispatchPayload) (string, error) {
	job, err := NewDispatchJob(payload)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueDispatch, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued dispatch job",
		zap.String("job_id", job.ID),
		zap.String("event_id", payload.EventID.String()),
		zap.Int("guests", len(payload.GuestIDs)))
	return job.ID, nil
}

// RequeueDispatch pushes payload back at the head of the dispatch queue so an interrupted
// batch resumes before newer jobs. The payload keeps its run id.
func (q *Queue) RequeueDispatch(ctx context.Context, payload DispatchPayload) (string, error) {
	job, err := NewDispatchJob(payload)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, QueueDispatch, raw).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}
	q.logger.Info("requeued dispatch job",
		zap.String("job_id", job.ID),
		zap.String("run_id", payload.RunID),
		zap.Int("guests", len(payload.GuestIDs)))
	return job.ID, nil
}

// Dequeue blocks until a job is available or ctx is done. Returns job and key (queue name).
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueDispatch).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// DecodeDispatch returns the dispatch payload of a job.
func (j *Job) DecodeDispatch() (DispatchPayload, error) {
	var p DispatchPayload
	if j.Type != JobTypeDispatch {
		return p, fmt.Errorf("job %s: unexpected type %q", j.ID, j.Type)
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, fmt.Errorf("job %s: decode payload: %w", j.ID, err)
	}
	return p, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueDispatch, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
