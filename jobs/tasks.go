package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/udms-pro/udms/internal/notify"
	"github.com/udms-pro/udms/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotificationDeliver hands a console notification to its delivery channel.
	TaskNotificationDeliver = "notification:deliver"
)

// NotificationPayload is the queued form of a notify.Notification.
type NotificationPayload struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Kind      string     `json:"kind"`
	Channel   string     `json:"channel"`
	Target    shared.Tab `json:"target,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PayloadFromNotification converts a live notification into a task payload.
func PayloadFromNotification(n notify.Notification) NotificationPayload {
	return NotificationPayload{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Kind:      string(n.Kind),
		Channel:   string(n.Channel),
		Target:    n.Target,
		CreatedAt: n.CreatedAt,
	}
}

// NewNotificationTask constructs an Asynq task. The notification id doubles
// as the task id so a retried enqueue does not deliver twice.
func NewNotificationTask(payload NotificationPayload) (*asynq.Task, error) {
	if payload.ID == "" {
		return nil, fmt.Errorf("notification task: missing id")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, data,
		asynq.TaskID(payload.ID),
		asynq.MaxRetry(3),
		asynq.Queue(QueueDefault),
	), nil
}
