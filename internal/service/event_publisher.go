package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/pkg/config"
	"github.com/noah-isme/exam-scheduler/pkg/jobs"
)

type busPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// EventPublisher delivers scheduling lifecycle events asynchronously.
// Publishing never blocks or fails the caller.
type EventPublisher struct {
	bus     busPublisher
	queue   *jobs.Queue
	channel string
	enabled bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewEventPublisher builds a publisher backed by a worker queue.
func NewEventPublisher(bus busPublisher, cfg config.EventsConfig, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &EventPublisher{
		bus:     bus,
		channel: cfg.Channel,
		enabled: cfg.Enabled && bus != nil,
		logger:  logger,
		now:     time.Now,
	}
	p.queue = jobs.NewQueue("schedule-events", p.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: 256,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logger,
	})
	return p
}

// Start launches delivery workers.
func (p *EventPublisher) Start(ctx context.Context) {
	if p == nil || !p.enabled {
		return
	}
	p.queue.Start(ctx)
}

// Stop drains and stops delivery workers.
func (p *EventPublisher) Stop() {
	if p == nil || !p.enabled {
		return
	}
	p.queue.Stop()
}

// Publish enqueues event for delivery.
func (p *EventPublisher) Publish(_ context.Context, event models.ScheduleEvent) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	if !p.enabled {
		p.logger.Debug("event publishing disabled", zap.String("type", string(event.Type)), zap.String("schedule_id", event.ScheduleID))
		return
	}
	if err := p.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: string(event.Type), Payload: event}); err != nil {
		p.logger.Warn("dropping schedule event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (p *EventPublisher) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.ScheduleEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", job.Payload)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	return p.bus.Publish(ctx, p.channel, payload)
}
