// Package worker drains the Redis email queue and dispatches through the
// notify sender. Delivery results are logged best-effort; a send failure
// re-enqueues the job up to the queue's retry limit.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
	"github.com/Mike3rd/world-canine-union-sub001/internal/notify"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/queue"
)

// EmailProcessor consumes email jobs and sends them.
type EmailProcessor struct {
	queue  *queue.Queue
	sender *notify.Sender
	logs   *notify.LogRepository
	logger *zap.Logger
}

// NewEmailProcessor creates an email worker.
func NewEmailProcessor(q *queue.Queue, sender *notify.Sender, logs *notify.LogRepository, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{queue: q, sender: sender, logs: logs, logger: logger}
}

// Run blocks processing jobs until ctx is cancelled.
func (p *EmailProcessor) Run(ctx context.Context) {
	p.logger.Info("email worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Warn("job failed",
				zap.String("job_id", job.ID),
				zap.Int("attempt", job.Attempt),
				zap.Error(err),
			)
			if rerr := p.queue.Retry(ctx, job); rerr != nil {
				p.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(rerr))
			}
		}
	}
}

// Process handles a single job. A malformed payload is dropped without retry.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		p.logger.Warn("unknown job type dropped", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return nil
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		p.logger.Warn("malformed email payload dropped", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	messageID, err := p.sender.Send(ctx, payload.RecipientEmail, payload.Subject, payload.BodyHTML)
	p.logResult(ctx, payload, messageID, err)
	if err != nil {
		return err
	}

	p.logger.Info("email delivered",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("message_id", messageID),
	)
	return nil
}

func (p *EmailProcessor) logResult(ctx context.Context, payload queue.EmailPayload, messageID string, sendErr error) {
	el := &models.EmailLog{
		RegistrationNumber: payload.RegistrationNumber,
		EmailType:          payload.EmailType,
		RecipientEmail:     payload.RecipientEmail,
		Subject:            payload.Subject,
		Status:             models.EmailLogStatusSent,
		ProviderMessageID:  messageID,
	}
	if sendErr != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = sendErr.Error()
	}
	if err := p.logs.Create(ctx, el); err != nil {
		p.logger.Warn("email log write failed", zap.Error(err))
	}
}
