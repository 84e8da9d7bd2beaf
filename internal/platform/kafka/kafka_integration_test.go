//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"bloodlink/internal/platform/kafka"
	"bloodlink/pkg/testutil/containers"
)

func TestProducerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "notifications-" + uuid.NewString()
	producer, err := kafka.NewProducer(broker.Brokers, topic)
	require.NoError(t, err)
	defer producer.Close()

	require.NoError(t, producer.Ping(ctx))
	require.NoError(t, producer.EnsureTopic(ctx, 1))
	require.NoError(t, producer.EnsureTopic(ctx, 1), "existing topic is not an error")
	require.NoError(t, producer.Publish(ctx, []byte("donor-1"), []byte(`{"type":"match_created"}`)))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "donor-1", string(records[0].Key))
	require.JSONEq(t, `{"type":"match_created"}`, string(records[0].Value))
}
