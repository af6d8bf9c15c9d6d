package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type published struct {
	key string
	msg amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewAMQPPublisher_DeclaresBothQueues(t *testing.T) {
	ch := &fakeChannel{}
	_, err := newAMQPPublisher(ch, "events", "notifications")
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "notifications"}, ch.declared)
}

func TestNewAMQPPublisher_DeclareError(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := newAMQPPublisher(ch, "events", "notifications")
	assert.ErrorContains(t, err, "declare queue events")
}

func TestPublishApplicationCreated(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newAMQPPublisher(ch, "events", "notifications")
	require.NoError(t, err)

	event := models.ApplicationCreated{ApplicationID: uuid.New(), JobID: uuid.New(), CandidateID: uuid.New(), OccurredAt: time.Now().UTC()}
	require.NoError(t, p.PublishApplicationCreated(context.Background(), event))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "events", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application_created", got.msg.Type)

	var decoded models.ApplicationCreated
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, event.ApplicationID, decoded.ApplicationID)
}

func TestNotify(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newAMQPPublisher(ch, "events", "notifications")
	require.NoError(t, err)

	appID := uuid.New()
	require.NoError(t, p.Notify(context.Background(), appID, models.NotifyAccepted, "welcome aboard"))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "notifications", ch.published[0].key)

	var n Notification
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &n))
	assert.Equal(t, appID, n.ApplicationID)
	assert.Equal(t, models.NotifyAccepted, n.Kind)
	assert.Equal(t, "welcome aboard", n.Feedback)
}

func TestPublish_ErrorWrapped(t *testing.T) {
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	p, err := newAMQPPublisher(ch, "events", "notifications")
	require.NoError(t, err)

	err = p.Notify(context.Background(), uuid.New(), models.NotifyRejected, "")
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestLogPublisher(t *testing.T) {
	var lp LogPublisher
	assert.NoError(t, lp.PublishApplicationCreated(context.Background(), models.ApplicationCreated{}))
	assert.NoError(t, lp.Notify(context.Background(), uuid.New(), models.NotifyAdvanced, "next"))
}

// --- Integration ---

func setupRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestAMQPPublisher_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := setupRabbitMQ(t)
	cfg := config.RabbitMQConfig{URL: url, EventsQueue: "test_events", NotificationsQueue: "test_notifications"}

	p, err := NewAMQPPublisher(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	appID := uuid.New()
	require.NoError(t, p.Notify(context.Background(), appID, models.NotifyAdvanced, "moved"))

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	ch, err := conn.Channel()
	require.NoError(t, err)

	var delivery amqp.Delivery
	require.Eventually(t, func() bool {
		d, ok, err := ch.Get(cfg.NotificationsQueue, true)
		if err != nil || !ok {
			return false
		}
		delivery = d
		return true
	}, 5*time.Second, 50*time.Millisecond)

	var n Notification
	require.NoError(t, json.Unmarshal(delivery.Body, &n))
	assert.Equal(t, appID, n.ApplicationID)
	assert.Equal(t, models.NotifyAdvanced, n.Kind)
}
