package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/notification/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/circuit"
)

type fakeProducer struct {
	err     error
	records []record
}

type record struct {
	key   string
	value []byte
}

func (f *fakeProducer) Publish(_ context.Context, key, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record{key: string(key), value: value})
	return nil
}

func newNotification() *models.Notification {
	return models.New(
		id.NotificationID(uuid.New()),
		id.UserID(uuid.New()),
		models.Draft{Type: models.TypeMatchCreated, Title: "New match", Message: "A request needs you"},
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	)
}

func TestPublishKeysByRecipient(t *testing.T) {
	producer := &fakeProducer{}
	sink := New(producer)
	n := newNotification()

	require.NoError(t, sink.Publish(context.Background(), n))
	require.Len(t, producer.records, 1)
	assert.Equal(t, n.RecipientID.String(), producer.records[0].key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(producer.records[0].value, &decoded))
	assert.Equal(t, "match_created", decoded["type"])
	assert.Equal(t, n.ID.String(), decoded["id"])
}

func TestPublishFailureBeforeBreakerOpens(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	sink := New(producer, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))))

	err := sink.Publish(context.Background(), newNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestPublishSwallowsErrorsOnceOpen(t *testing.T) {
	var logs bytes.Buffer
	producer := &fakeProducer{err: errors.New("broker down")}
	breaker := circuit.New("test", circuit.WithFailureThreshold(2))
	sink := New(producer,
		WithBreaker(breaker),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	ctx := context.Background()

	require.Error(t, sink.Publish(ctx, newNotification()))
	require.NoError(t, sink.Publish(ctx, newNotification()), "second failure opens the breaker")
	assert.True(t, breaker.IsOpen())
	assert.Contains(t, logs.String(), "circuit opened")

	require.NoError(t, sink.Publish(ctx, newNotification()))

	producer.err = nil
	require.NoError(t, sink.Publish(ctx, newNotification()))
	assert.False(t, breaker.IsOpen())
	assert.Contains(t, logs.String(), "circuit closed")
}
