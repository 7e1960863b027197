// Package redpanda provides Redpanda/Kafka queue integration for sync jobs.
//
// Producers publish sync tasks transactionally; consumers process them with
// read-committed isolation so a task is applied at most once per group.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/bubblescafe/storyapi/internal/adapter/observability"
	"github.com/bubblescafe/storyapi/internal/domain"
)

// TopicSync is the Kafka topic carrying story sync jobs.
const TopicSync = "story-sync"

// Producer wraps a Kafka producer and implements domain.Queue.
type Producer struct {
	client *kgo.Client
	// Serializes transactions; one in flight at a time.
	transactionChan chan struct{}
}

// NewProducer constructs a transactional Producer.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, "storyapi-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID so tests can avoid conflicts.
func NewProducerWithTransactionalID(brokers []string, transactionalID string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	slog.Info("creating redpanda producer", slog.Any("brokers", brokers), slog.String("transactional_id", transactionalID))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicSync, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", TopicSync), slog.Any("error", err))
	}

	return &Producer{
		client:          client,
		transactionChan: make(chan struct{}, 1),
	}, nil
}

// EnqueueSync publishes a sync task and returns the message id.
func (p *Producer) EnqueueSync(ctx domain.Context, payload domain.SyncTaskPayload) (string, error) {
	return p.EnqueueSyncToTopic(ctx, payload, TopicSync)
}

// EnqueueSyncToTopic publishes to a specific topic so tests can isolate runs.
func (p *Producer) EnqueueSyncToTopic(ctx domain.Context, payload domain.SyncTaskPayload, topic string) (string, error) {
	if payload.RequestID == "" {
		payload.RequestID = ulid.Make().String()
	}

	select {
	case p.transactionChan <- struct{}{}:
		defer func() { <-p.transactionChan }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(payload.RequestID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "request_id", Value: []byte(payload.RequestID)},
		},
	}

	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())
	if err := e.Err(); err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("produce: %w", err)
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	observability.SyncJobsEnqueuedTotal.Inc()
	slog.Info("sync task enqueued",
		slog.String("topic", topic),
		slog.String("request_id", payload.RequestID),
		slog.Int("pages", payload.Pages),
		slog.Int("per_page", payload.PerPage))
	return payload.RequestID, nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
