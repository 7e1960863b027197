package redpanda

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblescafe/storyapi/internal/domain"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	t.Parallel()

	_, err := NewProducer(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no seed brokers")

	_, err = NewProducerWithTransactionalID([]string{}, "tx-1")
	require.Error(t, err)
}

func TestNewConsumer_Validation(t *testing.T) {
	t.Parallel()

	handler := func(context.Context, domain.SyncTaskPayload) error { return nil }

	_, err := NewConsumer(nil, "group", 2, handler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no seed brokers")

	_, err = NewConsumerWithTopic([]string{"localhost:19092"}, "", "tx", 2, TopicSync, handler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group ID")

	_, err = NewConsumerWithTopic([]string{"localhost:19092"}, "group", "tx", 2, TopicSync, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler")
}

func TestSyncTaskPayload_RoundTrip(t *testing.T) {
	t.Parallel()

	in := domain.SyncTaskPayload{RequestID: "req-1", Pages: 3, PerPage: 25}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"request_id":"req-1","pages":3,"per_page":25}`, string(b))

	var out domain.SyncTaskPayload
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestCreateTopic_ValidatesInput(t *testing.T) {
	t.Parallel()

	err := createTopicIfNotExists(context.Background(), nil, "", 1, 1)
	require.Error(t, err)

	err = createTopicIfNotExists(context.Background(), nil, "topic", 0, 1)
	require.Error(t, err)

	err = createTopicIfNotExists(context.Background(), nil, "topic", 1, 0)
	require.Error(t, err)
}
