package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/udms-pro/udms/internal/jobs"
	"github.com/udms-pro/udms/internal/notify"
)

// Sink delivers one notification over its channel.
type Sink interface {
	Deliver(ctx context.Context, p NotificationPayload) error
}

// LogSink writes deliveries to the structured log. It stands in for the
// push, email and SMS gateways, which are outside this deployment.
type LogSink struct {
	Logger *slog.Logger
}

// Deliver implements Sink.
func (s LogSink) Deliver(_ context.Context, p NotificationPayload) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification delivered",
		slog.String("notification_id", p.ID),
		slog.String("channel", p.Channel),
		slog.String("kind", p.Kind),
		slog.String("title", p.Title),
	)
	return nil
}

// DeliveryJob processes TaskNotificationDeliver tasks.
type DeliveryJob struct {
	sink    Sink
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewDeliveryJob builds a DeliveryJob. A nil sink logs deliveries.
func NewDeliveryJob(sink Sink, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeliveryJob {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = LogSink{Logger: logger}
	}
	return &DeliveryJob{sink: sink, logger: logger, metrics: metrics}
}

// Handle executes the job.
func (j *DeliveryJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track(TaskNotificationDeliver)
	var payload NotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		j.logger.Error("decode notification payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry))
	}
	if payload.Channel == "" {
		payload.Channel = string(notify.ChannelPush)
	}
	if err := j.sink.Deliver(ctx, payload); err != nil {
		j.logger.Warn("notification delivery failed",
			slog.String("notification_id", payload.ID),
			slog.Any("error", err),
		)
		return tracker.End(err)
	}
	j.metrics.AddDelivery(payload.Channel, payload.Kind)
	return tracker.End(nil)
}
