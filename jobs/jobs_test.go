package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/udms-pro/udms/internal/jobs"
	"github.com/udms-pro/udms/internal/notify"
	"github.com/udms-pro/udms/internal/shared"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "x", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type recordingSink struct {
	got []NotificationPayload
	err error
}

func (s *recordingSink) Deliver(_ context.Context, p NotificationPayload) error {
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, p)
	return nil
}

func sampleNotification() notify.Notification {
	return notify.Notification{
		ID:        "n-1",
		Title:     "Payment Success",
		Body:      "Ledger updated.",
		CreatedAt: time.Date(2024, 1, 25, 9, 0, 0, 0, time.UTC),
		Target:    shared.TabPayments,
		Kind:      notify.KindInfo,
		Channel:   notify.ChannelEmail,
	}
}

func TestRelayEnqueuesNotification(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}

	require.NoError(t, client.Relay(t.Context(), sampleNotification()))
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskNotificationDeliver, fake.tasks[0].Type())

	var payload NotificationPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, "n-1", payload.ID)
	assert.Equal(t, "EMAIL", payload.Channel)
	assert.Equal(t, shared.TabPayments, payload.Target)
}

func TestRelayIgnoresDuplicateTask(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, client.Relay(t.Context(), sampleNotification()))

	client = &Client{client: &fakeEnqueuer{err: errors.New("redis down")}}
	assert.Error(t, client.Relay(t.Context(), sampleNotification()))
}

func TestNewNotificationTaskRequiresID(t *testing.T) {
	_, err := NewNotificationTask(NotificationPayload{Title: "x"})
	assert.Error(t, err)
}

func TestDeliveryJobRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	sink := &recordingSink{}
	job := NewDeliveryJob(sink, nil, metrics)

	task, err := NewNotificationTask(PayloadFromNotification(sampleNotification()))
	require.NoError(t, err)
	require.NoError(t, job.Handle(t.Context(), task))

	require.Len(t, sink.got, 1)
	assert.Equal(t, "Payment Success", sink.got[0].Title)
	families, err := reg.Gather()
	require.NoError(t, err)
	var delivered float64
	for _, fam := range families {
		if fam.GetName() == "udms_notification_deliveries_total" {
			delivered = fam.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), delivered)
}

func TestDeliveryJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewDeliveryJob(&recordingSink{}, nil, nil)
	err := job.Handle(t.Context(), asynq.NewTask(TaskNotificationDeliver, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDeliveryJobPropagatesSinkFailure(t *testing.T) {
	job := NewDeliveryJob(&recordingSink{err: errors.New("gateway")}, nil, nil)
	task, err := NewNotificationTask(PayloadFromNotification(sampleNotification()))
	require.NoError(t, err)
	assert.Error(t, job.Handle(t.Context(), task))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
}
