package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/config"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/jobs"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/middleware/requestid"
)

// SessionEventPublisher is the outbound notification port. Publishing never
// fails the caller.
type SessionEventPublisher interface {
	Publish(ctx context.Context, event models.SessionEvent)
}

type eventSink interface {
	Publish(ctx context.Context, payload interface{}) (int64, error)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.SessionEvent) {}

// QueueEventPublisher hands events to an in-process worker pool which forwards
// them to the notification channel.
type QueueEventPublisher struct {
	queue   *jobs.Queue
	sink    eventSink
	metrics *MetricsService
	logger  *zap.Logger
	timeout time.Duration
}

// NewQueueEventPublisher wires the worker pool described by cfg around sink.
func NewQueueEventPublisher(sink eventSink, cfg config.NotificationConfig, metrics *MetricsService, logger *zap.Logger) *QueueEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &QueueEventPublisher{sink: sink, metrics: metrics, logger: logger, timeout: 5 * time.Second}
	p.queue = jobs.NewQueue("session-events", p.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return p
}

// Start launches the delivery workers.
func (p *QueueEventPublisher) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop drains nothing; buffered events are dropped.
func (p *QueueEventPublisher) Stop() {
	p.queue.Stop()
}

// Publish stamps the event and queues it without blocking.
func (p *QueueEventPublisher) Publish(ctx context.Context, event models.SessionEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestid.FromContext(ctx)
	}
	err := p.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: string(event.Type), Payload: event})
	if err != nil {
		p.metrics.RecordDroppedEvent()
		p.logger.Warn("session event not queued",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID),
			zap.Error(err))
	}
}

func (p *QueueEventPublisher) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.SessionEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	receivers, err := p.sink.Publish(ctx, event)
	if err != nil {
		return err
	}
	p.logger.Debug("session event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Int64("receivers", receivers))
	return nil
}
