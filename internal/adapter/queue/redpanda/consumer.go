package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/bubblescafe/storyapi/internal/domain"
)

// SyncHandler applies one decoded sync task. The usecase layer provides it so
// the consumer stays free of domain wiring.
type SyncHandler func(ctx context.Context, payload domain.SyncTaskPayload) error

// Consumer consumes sync tasks from Redpanda with read-committed isolation
// and a bounded worker pool.
type Consumer struct {
	session    *kgo.GroupTransactSession
	handler    SyncHandler
	groupID    string
	topic      string
	maxWorkers int
	taskQueue  chan *kgo.Record
}

// NewConsumer constructs a Consumer for the sync topic.
func NewConsumer(brokers []string, groupID string, maxWorkers int, handler SyncHandler) (*Consumer, error) {
	return NewConsumerWithTopic(brokers, groupID, "storyapi-consumer", maxWorkers, TopicSync, handler)
}

// NewConsumerWithTopic constructs a Consumer on a specific topic so tests can
// isolate runs.
func NewConsumerWithTopic(brokers []string, groupID, transactionalID string, maxWorkers int, topic string, handler SyncHandler) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if handler == nil {
		return nil, fmt.Errorf("missing sync handler")
	}
	if maxWorkers <= 0 {
		maxWorkers = 2
	}

	ctx := context.Background()
	tempClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("temp client: %w", err)
	}
	defer tempClient.Close()
	if err := createTopicIfNotExists(ctx, tempClient, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic), slog.Any("error", err))
	}

	kotelTracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	kotelService := kotel.NewKotel(kotel.WithTracer(kotelTracer))

	session, err := kgo.NewGroupTransactSession(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.RequireStableFetchOffsets(),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.DialTimeout(10*time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda transactional session: %w", err)
	}

	slog.Info("redpanda consumer created",
		slog.String("group_id", groupID),
		slog.String("topic", topic),
		slog.Int("max_workers", maxWorkers))
	return &Consumer{
		session:    session,
		handler:    handler,
		groupID:    groupID,
		topic:      topic,
		maxWorkers: maxWorkers,
		taskQueue:  make(chan *kgo.Record, maxWorkers*2),
	}, nil
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting redpanda consumer",
		slog.String("group_id", c.groupID),
		slog.String("topic", c.topic))

	for i := 0; i < c.maxWorkers; i++ {
		go c.worker(ctx, i)
	}
	go c.fetchLoop(ctx)

	<-ctx.Done()
	slog.Info("redpanda consumer shutting down")
	return ctx.Err()
}

func (c *Consumer) fetchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(c.taskQueue)
			return
		default:
		}

		fetches := c.session.PollFetches(ctx)
		if fetches.IsClientClosed() {
			close(c.taskQueue)
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.Any("error", err))
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			select {
			case c.taskQueue <- rec:
			case <-ctx.Done():
			}
		})
	}
}

func (c *Consumer) worker(ctx context.Context, id int) {
	for rec := range c.taskQueue {
		c.processRecord(ctx, id, rec)
	}
}

func (c *Consumer) processRecord(ctx context.Context, workerID int, rec *kgo.Record) {
	var payload domain.SyncTaskPayload
	if err := json.Unmarshal(rec.Value, &payload); err != nil {
		// Malformed records are marked and dropped; retrying cannot fix them.
		slog.Error("dropping malformed sync task",
			slog.Int("worker", workerID),
			slog.Any("error", err))
		c.session.Client().MarkCommitRecords(rec)
		return
	}

	slog.Info("processing sync task",
		slog.Int("worker", workerID),
		slog.String("request_id", payload.RequestID))
	if err := c.handler(ctx, payload); err != nil {
		slog.Error("sync task failed",
			slog.Int("worker", workerID),
			slog.String("request_id", payload.RequestID),
			slog.Any("error", err))
	}
	c.session.Client().MarkCommitRecords(rec)
}

// Close closes the underlying session.
func (c *Consumer) Close() error {
	if c.session != nil {
		c.session.Close()
	}
	return nil
}
