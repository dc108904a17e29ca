package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nialike/backend/internal/dispatch"
	"github.com/nialike/backend/internal/realtime"
	"github.com/nialike/backend/pkg/database"
	"github.com/nialike/backend/pkg/queue"
)

// Runner executes one invitation batch.
type Runner interface {
	Run(ctx context.Context, req dispatch.Request, progress dispatch.ProgressFunc) (dispatch.Summary, error)
}

// JobQueue is the queue surface the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
	RequeueDispatch(ctx context.Context, payload queue.DispatchPayload) (string, error)
}

// requeueTimeout bounds queue writes made after the worker context is cancelled.
const requeueTimeout = 5 * time.Second

// errPermanent marks a job that must not be retried.
var errPermanent = errors.New("permanent job failure")

// DispatchProcessor runs invitation dispatch jobs and streams their progress to watchers.
type DispatchProcessor struct {
	runner   Runner
	queue    JobQueue
	notifier realtime.Notifier
	backoff  time.Duration
	logger   *zap.Logger
}

// NewDispatchProcessor creates a dispatch job processor.
func NewDispatchProcessor(runner Runner, q JobQueue, notifier realtime.Notifier, logger *zap.Logger) *DispatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchProcessor{runner: runner, queue: q, notifier: notifier, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one dispatch job. A batch that has started is never retried; errors
// before the first guest are retried unless they are configuration or request problems.
func (p *DispatchProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := job.DecodeDispatch()
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	req := dispatch.Request{
		RunID:    payload.RunID,
		UserID:   payload.UserID,
		EventID:  payload.EventID,
		GuestIDs: payload.GuestIDs,
		WhatsApp: payload.WhatsApp,
		SMS:      payload.SMS,
	}
	if req.RunID == "" {
		req.RunID = job.ID
	}

	p.notify(req, realtime.EventDispatchStarted, map[string]interface{}{
		"run_id": req.RunID,
		"total":  len(req.GuestIDs),
	})
	summary, err := p.runner.Run(ctx, req, func(pr dispatch.Progress) {
		p.notify(req, realtime.EventDispatchProgress, pr)
	})
	if err != nil {
		p.notify(req, realtime.EventDispatchFailed, map[string]interface{}{
			"run_id": req.RunID,
			"error":  err.Error(),
		})
		if errors.Is(err, dispatch.ErrConfig) || errors.Is(err, dispatch.ErrInvalidRequest) || errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}
		return err
	}
	if summary.Cancelled && summary.Processed < len(req.GuestIDs) {
		return p.requeueRemaining(ctx, job, payload, req.RunID, summary)
	}
	p.notify(req, realtime.EventDispatchCompleted, summary)
	p.logger.Info("dispatch job completed",
		zap.String("job_id", job.ID),
		zap.String("run_id", req.RunID),
		zap.Int("guests_sent", summary.GuestsSent),
		zap.Int("failures", summary.Failures))
	return nil
}

// requeueRemaining puts the guests a cancelled batch did not reach back on the queue under
// the same run id. A failed requeue is not retried, since that would resend to processed guests.
func (p *DispatchProcessor) requeueRemaining(ctx context.Context, job *queue.Job, payload queue.DispatchPayload, runID string, summary dispatch.Summary) error {
	rest := payload
	rest.RunID = runID
	rest.GuestIDs = append([]uuid.UUID(nil), payload.GuestIDs[summary.Processed:]...)

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()
	jobID, err := p.queue.RequeueDispatch(reqCtx, rest)

	req := dispatch.Request{EventID: payload.EventID}
	p.notify(req, realtime.EventDispatchCancelled, map[string]interface{}{
		"run_id":      runID,
		"processed":   summary.Processed,
		"remaining":   len(rest.GuestIDs),
		"requeued":    err == nil,
		"guests_sent": summary.GuestsSent,
		"failures":    summary.Failures,
	})
	if err != nil {
		return fmt.Errorf("%w: requeue %d remaining guests of run %s: %v", errPermanent, len(rest.GuestIDs), runID, err)
	}
	p.logger.Info("dispatch job interrupted, remaining guests requeued",
		zap.String("job_id", job.ID),
		zap.String("requeued_job_id", jobID),
		zap.String("run_id", runID),
		zap.Int("processed", summary.Processed),
		zap.Int("remaining", len(rest.GuestIDs)))
	return nil
}

func (p *DispatchProcessor) notify(req dispatch.Request, event string, payload interface{}) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(req.EventID, event, payload)
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *DispatchProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("dispatch worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			if errors.Is(err, errPermanent) {
				p.logger.Warn("job dropped", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			retryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
			if reErr := p.queue.Retry(retryCtx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			cancel()
			p.sleep(ctx)
		}
	}
}

func (p *DispatchProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
